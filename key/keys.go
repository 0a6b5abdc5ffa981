// Package key defines the canonical set of configuration identifiers used for centralized settings management.
package key

// Playback Engines - these keys select and tune the primary and fallback decoding engines.
const (
	PlayerPrimary          = "player.primary"
	PlayerFallback         = "player.fallback"
	PlayerHWDec            = "player.hwdec"
	PlayerSettleWindowMs   = "player.settle_window_ms"
	PlayerResume           = "player.resume"
	PlayerHistoryInterval  = "player.history_interval_s"
	PlayerCompletionMargin = "player.completion_margin_s"
)

// Subtitles - these keys govern subtitle loading and synchronization.
const (
	SubtitlesOffset = "subtitles.offset"
	SubtitlesWrap   = "subtitles.wrap"
)

// Stream Resolution - these keys configure the local torrent-stream server collaborator.
const (
	StreamServer       = "stream.server"
	StreamSeekHintRate = "stream.seek_hint_rate"
)

// Metrics - these keys control the optional prometheus endpoint.
const (
	MetricsListen = "metrics.listen"
)

// Iconography - these keys manage the visual rendering of UI symbols.
const (
	IconsVariant = "icons.variant"
)

// Logging Infrastructure - these keys manage the application's internal diagnostics and auditing system.
const (
	LogsWrite = "logs.write"
	LogsLevel = "logs.level"
	LogsJson  = "logs.json"
)

// CLI Execution Environment - these flags and settings govern the non-interactive application behavior.
const (
	CliColored      = "cli.colored"
	CliVersionCheck = "cli.version_check"
)
