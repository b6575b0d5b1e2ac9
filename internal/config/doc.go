// Package config loads, normalizes, and validates the notepipe TOML
// configuration. Path fields are expanded (including ~) and made absolute
// during Load so downstream components never see relative or home-prefixed
// paths.
package config
