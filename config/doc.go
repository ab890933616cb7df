// Package config loads the navd daemon configuration from YAML.
//
// Load applies defaults, expands ${VAR} references, and resolves
// secretref:<provider>:<ref> values before validating the result. Only
// string fields that may carry credentials are resolved.
package config
