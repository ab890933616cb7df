// Package navigation resolves permission-filtered navigation trees for
// principals and keeps the resolved trees cached.
//
// A Service owns a registry of menus and a cache.Store of filtered trees.
// Resolve picks the menu for a principal, serves the filtered tree from the
// cache when the cached copy was computed from the current menu version, and
// otherwise filters the menu and stores the result tagged by menu, user,
// tenant, and role. Permission and tenant changes invalidate the affected
// entries, either through direct calls or through events on an events.Bus.
//
// Menus come from a Source: MemorySource for in-process definitions,
// FileSource for YAML files with optional hot reload, and ResilientSource to
// guard a remote source with retry, circuit breaking, and timeouts.
package navigation
