// Package metrics exposes prometheus counters for playback engine switching, errors, subtitles and stream hints.
package metrics

import (
	"net/http"
	"strings"

	"github.com/kinoplay/kinoplay/constant"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	engineSwitches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kinoplay_engine_switches_total",
		Help: "Total number of primary to fallback engine switches",
	})

	playbackErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kinoplay_playback_errors_total",
		Help: "Total number of engine error notifications by engine and verdict",
	}, []string{"engine", "verdict"})

	subtitleCues = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kinoplay_subtitle_cues_total",
		Help: "Total number of subtitle cues parsed by format",
	}, []string{"format"})

	subtitleDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kinoplay_subtitle_blocks_dropped_total",
		Help: "Total number of malformed subtitle blocks dropped by format",
	}, []string{"format"})

	seekHints = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kinoplay_stream_seek_hints_total",
		Help: "Total number of seek prioritization hints by outcome",
	}, []string{"result"})
)

// Verdicts for RecordPlaybackError.
const (
	VerdictFallback = "fallback"
	VerdictFatal    = "fatal"
)

// Seek hint outcomes for RecordSeekHint.
const (
	HintSent      = "sent"
	HintThrottled = "throttled"
	HintFailed    = "failed"
)

// RecordEngineSwitch counts one primary to fallback switch.
func RecordEngineSwitch() {
	engineSwitches.Inc()
}

// RecordPlaybackError counts one classified engine error.
func RecordPlaybackError(engine, verdict string) {
	playbackErrors.WithLabelValues(normalizeEngineLabel(engine), normalizeVerdictLabel(verdict)).Inc()
}

// RecordSubtitleParse counts parsed cues and dropped blocks for one subtitle file.
func RecordSubtitleParse(format string, cues, dropped int) {
	f := normalizeFormatLabel(format)
	subtitleCues.WithLabelValues(f).Add(float64(cues))
	subtitleDropped.WithLabelValues(f).Add(float64(dropped))
}

// RecordSeekHint counts one seek hint outcome.
func RecordSeekHint(result string) {
	switch result {
	case HintSent, HintThrottled, HintFailed:
	default:
		result = "unknown"
	}
	seekHints.WithLabelValues(result).Inc()
}

// Handler serves the default registry in the prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

func normalizeEngineLabel(engine string) string {
	switch strings.ToLower(strings.TrimSpace(engine)) {
	case constant.EnginePrimary, constant.EngineFallback:
		return strings.ToLower(strings.TrimSpace(engine))
	default:
		return "unknown"
	}
}

func normalizeVerdictLabel(verdict string) string {
	switch verdict {
	case VerdictFallback, VerdictFatal:
		return verdict
	default:
		return "unknown"
	}
}

func normalizeFormatLabel(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "srt", "vtt":
		return strings.ToLower(strings.TrimSpace(format))
	default:
		return "unknown"
	}
}
