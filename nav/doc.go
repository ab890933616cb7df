// Package nav models navigation menus and decides which parts of a menu a
// principal may see.
//
// Menus are stored as arena trees: every node lives in a flat slice and refers
// to its children by index, so a filtered result can be copied without
// aliasing the source menu. Visible evaluates a single node for a Principal,
// and Filter walks a whole tree, pruning hidden, disabled, forbidden and empty
// container nodes while preserving the stored order.
//
// The package holds no state and performs no I/O. Caching of filter results is
// handled by the cache package and orchestration by the navigation package.
package nav
