// Package config loads, normalizes, and validates the TOML configuration
// that controls directories, ffmpeg invocation, subtitle styling, the
// rendition ladder, and daemon behavior.
package config
