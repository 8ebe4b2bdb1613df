// Package config defines the format-agnostic Loader interface for form
// definitions and submitted values, and picks the concrete HCL or YAML
// implementation for a path.
package config
