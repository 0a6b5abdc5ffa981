package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRecordPlaybackError(t *testing.T) {
	Convey("RecordPlaybackError", t, func() {
		Convey("Increments the labeled counter", func() {
			before := testutil.ToFloat64(playbackErrors.WithLabelValues("primary", VerdictFallback))
			RecordPlaybackError("primary", VerdictFallback)
			So(testutil.ToFloat64(playbackErrors.WithLabelValues("primary", VerdictFallback)), ShouldEqual, before+1)
		})

		Convey("Normalizes unknown labels", func() {
			before := testutil.ToFloat64(playbackErrors.WithLabelValues("unknown", "unknown"))
			RecordPlaybackError("exoplayer", "retry")
			So(testutil.ToFloat64(playbackErrors.WithLabelValues("unknown", "unknown")), ShouldEqual, before+1)
		})
	})
}

func TestRecordSubtitleParse(t *testing.T) {
	Convey("RecordSubtitleParse adds cues and dropped blocks", t, func() {
		cues := testutil.ToFloat64(subtitleCues.WithLabelValues("vtt"))
		dropped := testutil.ToFloat64(subtitleDropped.WithLabelValues("vtt"))

		RecordSubtitleParse("VTT", 3, 2)

		So(testutil.ToFloat64(subtitleCues.WithLabelValues("vtt")), ShouldEqual, cues+3)
		So(testutil.ToFloat64(subtitleDropped.WithLabelValues("vtt")), ShouldEqual, dropped+2)
	})
}

func TestRecordEngineSwitch(t *testing.T) {
	Convey("RecordEngineSwitch increments the switch counter", t, func() {
		before := testutil.ToFloat64(engineSwitches)
		RecordEngineSwitch()
		So(testutil.ToFloat64(engineSwitches), ShouldEqual, before+1)
	})
}

func TestHandler(t *testing.T) {
	Convey("Handler exposes the counters", t, func() {
		RecordSeekHint(HintThrottled)

		rec := httptest.NewRecorder()
		Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
		So(rec.Code, ShouldEqual, 200)
		So(rec.Body.String(), ShouldContainSubstring, "kinoplay_stream_seek_hints_total")
	})
}
