// Package config loads, normalizes, and validates clipforge configuration
// from a TOML file. Engines never read configuration ambiently; the loaded
// Config is passed explicitly into every constructor.
package config
