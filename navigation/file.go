package navigation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/navcache/nav"
	"github.com/jonwraymond/navcache/observe"
)

// MenuFile is the YAML layout of a menu definition file.
type MenuFile struct {
	Menus []nav.MenuSpec `yaml:"menus"`
}

// FileSource reads menus from a YAML file or from every *.yaml and *.yml
// file in a directory. A reload bumps the version of each menu whose
// definition changed.
type FileSource struct {
	path     string
	logger   observe.Logger
	onChange func(ctx context.Context, changed []string)

	mu    sync.RWMutex
	specs map[string]nav.MenuSpec
	menus map[string]*nav.Menu
}

// FileOption configures a FileSource.
type FileOption func(*FileSource)

// WithFileLogger sets the logger used for reload messages.
func WithFileLogger(l observe.Logger) FileOption {
	return func(s *FileSource) {
		if l != nil {
			s.logger = l
		}
	}
}

// OnChange registers fn to receive the ids of menus added, changed, or
// removed by a reload.
func OnChange(fn func(ctx context.Context, changed []string)) FileOption {
	return func(s *FileSource) {
		s.onChange = fn
	}
}

// NewFileSource loads path and returns the source.
func NewFileSource(path string, opts ...FileOption) (*FileSource, error) {
	s := &FileSource{
		path:   path,
		logger: observe.NopLogger(),
		specs:  make(map[string]nav.MenuSpec),
		menus:  make(map[string]*nav.Menu),
	}
	for _, opt := range opts {
		opt(s)
	}
	if _, err := s.Reload(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads the definitions and returns the ids of changed menus.
// On a parse error the previous menus stay in place.
func (s *FileSource) Reload(ctx context.Context) ([]string, error) {
	specs, err := readSpecs(s.path)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	var changed []string
	next := make(map[string]*nav.Menu, len(specs))
	for id, spec := range specs {
		prev, known := s.specs[id]
		if known && reflect.DeepEqual(prev, spec) {
			next[id] = s.menus[id]
			continue
		}
		version := int64(1)
		if m, ok := s.menus[id]; ok {
			version = m.Version + 1
		}
		m, err := spec.Build(version)
		if err != nil {
			s.mu.Unlock()
			return nil, err
		}
		next[id] = m
		changed = append(changed, id)
	}
	for id := range s.specs {
		if _, ok := specs[id]; !ok {
			changed = append(changed, id)
		}
	}
	s.specs, s.menus = specs, next
	s.mu.Unlock()

	sort.Strings(changed)
	if len(changed) > 0 {
		s.logger.Info(ctx, "menu definitions reloaded",
			observe.F("path", s.path),
			observe.F("changed", changed),
		)
		if s.onChange != nil {
			s.onChange(ctx, changed)
		}
	}
	return changed, nil
}

// Watch reloads on every change to the watched path until ctx is done.
func (s *FileSource) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("navigation: watch %s: %w", s.path, err)
	}
	defer watcher.Close()

	dir := s.path
	if fi, err := os.Stat(s.path); err == nil && !fi.IsDir() {
		// Editors replace files on save; watch the parent to see the rename.
		dir = filepath.Dir(s.path)
	}
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("navigation: watch %s: %w", dir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 || !s.relevant(ev.Name) {
				continue
			}
			if _, err := s.Reload(ctx); err != nil {
				s.logger.Error(ctx, "menu reload failed",
					observe.F("path", ev.Name),
					observe.F("error", err),
				)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn(ctx, "menu watcher error", observe.F("error", err))
		}
	}
}

func (s *FileSource) relevant(name string) bool {
	if filepath.Clean(name) == filepath.Clean(s.path) {
		return true
	}
	return isMenuFile(name) && filepath.Dir(name) == filepath.Clean(s.path)
}

func (s *FileSource) Menu(_ context.Context, id string) (*nav.Menu, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.menus[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMenuNotFound, id)
	}
	return m, nil
}

func (s *FileSource) MenusByScope(_ context.Context, scope nav.Scope, tenantID string) ([]*nav.Menu, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedMenus(s.menus, func(m *nav.Menu) bool {
		return m.Scope == scope && (tenantID == "" || m.TenantID == tenantID)
	}), nil
}

func (s *FileSource) Menus(_ context.Context) ([]*nav.Menu, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedMenus(s.menus, nil), nil
}

func isMenuFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

// readSpecs parses path, a file or a directory of menu files.
func readSpecs(path string) (map[string]nav.MenuSpec, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("navigation: %w", err)
	}
	files := []string{path}
	if fi.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, fmt.Errorf("navigation: %w", err)
		}
		files = files[:0]
		for _, e := range entries {
			if !e.IsDir() && isMenuFile(e.Name()) {
				files = append(files, filepath.Join(path, e.Name()))
			}
		}
	}

	specs := make(map[string]nav.MenuSpec)
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("navigation: %w", err)
		}
		var mf MenuFile
		if err := yaml.Unmarshal(data, &mf); err != nil {
			return nil, fmt.Errorf("navigation: parse %s: %w", f, err)
		}
		for _, spec := range mf.Menus {
			if spec.ID == "" {
				return nil, fmt.Errorf("navigation: %s: %w", f, nav.ErrMissingID)
			}
			if _, dup := specs[spec.ID]; dup {
				return nil, fmt.Errorf("navigation: %s: %w: %q", f, errDuplicateMenu, spec.ID)
			}
			specs[spec.ID] = spec
		}
	}
	return specs, nil
}

var errDuplicateMenu = errors.New("duplicate menu id")

var _ Source = (*FileSource)(nil)
