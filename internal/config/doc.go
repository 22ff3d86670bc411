// Package config loads, normalizes, and validates ytqueue configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// YTQUEUE_API_TOKEN. Named generation profiles live under [profiles.<name>]
// and are merged beneath explicit command line values when jobs are added.
package config
