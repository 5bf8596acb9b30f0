// Package config loads the webcast.yaml configuration with environment
// overrides.
package config
