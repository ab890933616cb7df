// Command navd serves permission-filtered navigation menus over HTTP.
//
// Usage:
//
//	navd [serve] -config navd.yaml
//	navd token -config navd.yaml -sub alice -tenant acme -roles admin
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonwraymond/navcache/config"
	"github.com/jonwraymond/navcache/secret"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "navd:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	cmd := "serve"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}
	switch cmd {
	case "serve":
		return serve(ctx, args)
	case "token":
		return token(ctx, args, stdout)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// loadConfig reads path, resolving secretref:file references relative to
// the configuration file.
func loadConfig(ctx context.Context, path string) (config.Config, error) {
	resolver := secret.NewResolver(true,
		secret.EnvProvider{},
		secret.FileProvider{Dir: filepath.Dir(path)},
	)
	return config.Load(ctx, path, resolver)
}
