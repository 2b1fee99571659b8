// Package config loads the gatekeeper configuration from GATEKEEPER_*
// environment variables, validates it, and exposes the immutable values
// the components are constructed with. No component reads the environment
// directly.
package config
