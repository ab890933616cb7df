// Package events is the in-process domain event bus between the navigation
// service and its neighbours.
//
// The navigation service publishes CacheInvalidated, NavigationAccessed and
// PermissionCheck events for audit and analytics consumers, and subscribes
// to UserPermissionsChanged and TenantSwitched to invalidate its cache.
// Delivery is synchronous and in subscription order; a failing handler is
// logged and does not stop delivery to the others.
package events
