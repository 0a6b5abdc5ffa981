package constant

// Engine identifiers used in logs, metrics labels and history records.
const (
	EnginePrimary  = "primary"
	EngineFallback = "fallback"
)

// Player binaries launched by the engine adapters when none is configured.
const (
	DefaultPrimaryBinary  = "mpv"
	DefaultFallbackBinary = "vlc"
)

// Oldest engine releases whose control interfaces the adapters rely on.
const (
	MinPrimaryVersion  = "0.33.0"
	MinFallbackVersion = "3.0.0"
)
