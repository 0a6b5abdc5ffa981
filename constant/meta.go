// Package constant defines immutable application-level identifiers and configuration defaults.
package constant

import _ "embed"

const (
	// App is the canonical application identifier used for filesystem paths and CLI branding.
	App = "kinoplay"

	// Version is the current application semantic version string.
	Version = "0.3.0"

	// UserAgent is the default HTTP User-Agent string used for subtitle and stream-server requests.
	UserAgent = "kinoplay/" + Version
)

// Build metadata, overridden at link time with -ldflags "-X".
var (
	BuiltAt  = "unknown"
	BuiltBy  = "unknown"
	Revision = "unknown"
)

// Logo is the banner shown above the root command help.
//
//go:embed logo.txt
var Logo string
