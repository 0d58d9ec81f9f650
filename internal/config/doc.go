// Package config loads, validates, and normalizes quill configuration.
//
// Configuration is a TOML file layered over compiled defaults. Load returns
// the effective config plus the path it was read from; a missing file is not
// an error (defaults apply). Validation happens at load time so every other
// component can assume a coherent config.
package config
