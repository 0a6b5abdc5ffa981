package subtitle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/afero"
)

const srtSample = "1\n00:00:01,000 --> 00:00:04,000\nHello world\n\n2\n00:00:05,000 --> 00:00:07,000\nGoodbye\n"

func texts(cues []Cue) []string {
	out := make([]string, len(cues))
	for i, c := range cues {
		out[i] = c.Text
	}
	return out
}

func TestParseSrt(t *testing.T) {
	Convey("Given a well formed SRT document", t, func() {
		cues := Parse(srtSample, "")

		Convey("Both cues are returned in order", func() {
			So(cues, ShouldHaveLength, 2)
			So(cues[0].Start, ShouldEqual, 1)
			So(cues[0].End, ShouldEqual, 4)
			So(cues[0].Text, ShouldEqual, "Hello world")
			So(cues[1].Start, ShouldEqual, 5)
			So(cues[1].End, ShouldEqual, 7)
			So(cues[1].Text, ShouldEqual, "Goodbye")
		})
	})

	Convey("Given CRLF line endings and a byte-order mark", t, func() {
		in := "\ufeff1\r\n00:00:01,500 --> 00:00:02,000\r\nLine one\r\nLine two\r\n\r\n"
		cues := Parse(in, "")

		Convey("The cue text joins its lines with \\n", func() {
			So(cues, ShouldHaveLength, 1)
			So(cues[0].Start, ShouldEqual, 1.5)
			So(cues[0].Text, ShouldEqual, "Line one\nLine two")
		})
	})

	Convey("Given a block without the index line", t, func() {
		cues := Parse("00:00:01,000 --> 00:00:02,000\nNo index\n", "movie.srt")
		So(texts(cues), ShouldResemble, []string{"No index"})
	})

	Convey("Given markup in the cue text", t, func() {
		cues := Parse("1\n00:00:01,000 --> 00:00:02,000\n<i>Hi</i> <font color=\"red\">there</font>\n", "")

		Convey("Tags are stripped from Text but kept in RawText", func() {
			So(cues[0].Text, ShouldEqual, "Hi there")
			So(cues[0].RawText, ShouldEqual, "<i>Hi</i> <font color=\"red\">there</font>")
		})
	})

	Convey("Given a block with an unparsable timestamp between valid cues", t, func() {
		in := "1\n00:00:01,000 --> 00:00:02,000\nfirst\n\n" +
			"2\n00:00:xx,000 --> 00:00:03,000\nbroken\n\n" +
			"3\n00:00:04,000 --> 00:00:05,000\nthird\n"
		res := Decode(in, "")

		Convey("Only the broken block is dropped", func() {
			So(texts(res.Cues), ShouldResemble, []string{"first", "third"})
			So(res.Dropped, ShouldEqual, 1)
		})
	})

	Convey("Given cues whose end is not after their start", t, func() {
		in := "1\n00:00:05,000 --> 00:00:05,000\nzero\n\n2\n00:00:06,000 --> 00:00:04,000\nbackwards\n\n3\n00:00:01,000 --> 00:00:02,000\nok\n"
		So(texts(Parse(in, "")), ShouldResemble, []string{"ok"})
	})

	Convey("Given a timestamp with out-of-range minutes", t, func() {
		in := "1\n00:00:01,000 --> 00:75:00,000\nzero length after degradation\n"
		So(Parse(in, ""), ShouldBeEmpty)
	})

	Convey("Given a block whose start timestamp is out of range", t, func() {
		in := "1\n00:00:75,000 --> 00:01:20,000\nbroken start\n\n2\n00:01:21,000 --> 00:01:22,000\nvalid\n"
		res := Decode(in, "")

		Convey("The block is dropped instead of starting at zero", func() {
			So(texts(res.Cues), ShouldResemble, []string{"valid"})
			So(res.Dropped, ShouldEqual, 1)
		})
	})

	Convey("Given cues out of order", t, func() {
		in := "1\n00:00:09,000 --> 00:00:10,000\nlate\n\n2\n00:00:01,000 --> 00:00:02,000\nearly\n"
		So(texts(Parse(in, "")), ShouldResemble, []string{"early", "late"})
	})

	Convey("Given a single-line block", t, func() {
		res := Decode("lonely\n\n1\n00:00:01,000 --> 00:00:02,000\nkept\n", "")
		So(texts(res.Cues), ShouldResemble, []string{"kept"})
		So(res.Dropped, ShouldEqual, 1)
	})
}

func TestParseVtt(t *testing.T) {
	Convey("Given a minimal WebVTT document", t, func() {
		cues := Parse("WEBVTT\n\n00:00:01.000 --> 00:00:02.500\nHi\n", "")

		Convey("The single cue is returned", func() {
			So(cues, ShouldHaveLength, 1)
			So(cues[0].Start, ShouldEqual, 1)
			So(cues[0].End, ShouldEqual, 2.5)
			So(cues[0].Text, ShouldEqual, "Hi")
		})
	})

	Convey("Given header metadata, notes and cue settings", t, func() {
		in := "WEBVTT - Episode 1\nKind: captions\n\nNOTE written by hand\n\n" +
			"00:01.000 --> 00:02.000 align:start position:10%\n<v Roger>Hello\n\n" +
			"01:00:00.000 --> 01:00:01.000\nLater\n"
		res := Decode(in, "")

		Convey("Only timed blocks survive", func() {
			So(texts(res.Cues), ShouldResemble, []string{"Hello", "Later"})
			So(res.Cues[0].Start, ShouldEqual, 1)
			So(res.Cues[1].Start, ShouldEqual, 3600)
			So(res.Dropped, ShouldEqual, 2)
		})
	})

	Convey("Given a block that starts with a cue identifier", t, func() {
		in := "WEBVTT\n\nintro\n00:00:01.000 --> 00:00:02.000\nDropped\n\n00:00:03.000 --> 00:00:04.000\nKept\n"
		So(texts(Parse(in, "")), ShouldResemble, []string{"Kept"})
	})

	Convey("Given a VTT cue with an out-of-range start", t, func() {
		in := "WEBVTT\n\n00:99.000 --> 00:02:00.000\nbroken\n\n00:00:03.000 --> 00:00:04.000\nKept\n"
		So(texts(Parse(in, "")), ShouldResemble, []string{"Kept"})
	})

	Convey("Given comma separators in a VTT file", t, func() {
		in := "WEBVTT\n\n00:00:01,000 --> 00:00:02,000\nWrong grammar\n"
		So(Parse(in, "a.vtt"), ShouldBeEmpty)
	})
}

func TestDetectFormat(t *testing.T) {
	Convey("DetectFormat", t, func() {
		Convey("Trusts a recognized hint extension", func() {
			So(DetectFormat("WEBVTT\n", "subs/movie.srt"), ShouldEqual, SRT)
			So(DetectFormat(srtSample, "https://cdn.example/s/en.vtt?token=abc"), ShouldEqual, VTT)
			So(DetectFormat("", "EN.WEBVTT"), ShouldEqual, VTT)
		})

		Convey("Sniffs the WEBVTT marker", func() {
			So(DetectFormat("WEBVTT\n\n", "subtitle"), ShouldEqual, VTT)
		})

		Convey("Sniffs dot-delimited timestamps as VTT", func() {
			So(DetectFormat("00:00:01.000 --> 00:00:02.000\nHi", ""), ShouldEqual, VTT)
		})

		Convey("Sniffs comma timestamps as SRT", func() {
			So(DetectFormat("1\n0:00:01,000 --> 0:00:02,000\nHi", ""), ShouldEqual, SRT)
		})

		Convey("Only looks at the first 100 characters", func() {
			padding := ""
			for len(padding) < 120 {
				padding += "x"
			}
			So(DetectFormat(padding+"WEBVTT", ""), ShouldEqual, SRT)
		})

		Convey("Defaults to SRT", func() {
			So(DetectFormat("garbage", ""), ShouldEqual, SRT)
		})
	})
}

func TestParseTimestamp(t *testing.T) {
	Convey("ParseTimestamp", t, func() {
		So(ParseTimestamp("01:02:03,456"), ShouldAlmostEqual, 3723.456, 1e-9)
		So(ParseTimestamp("00:00:02.500"), ShouldEqual, 2.5)
		So(ParseTimestamp("02:03.004"), ShouldAlmostEqual, 123.004, 1e-9)
		So(ParseTimestamp("nonsense"), ShouldEqual, 0)
		So(ParseTimestamp("00:61:00,000"), ShouldEqual, 0)
		So(ParseTimestamp(""), ShouldEqual, 0)
	})
}

func TestGarbage(t *testing.T) {
	Convey("Empty and garbage input yield no cues", t, func() {
		So(Parse("", ""), ShouldBeEmpty)
		So(Parse("\n\n\n", "a.vtt"), ShouldBeEmpty)
		So(Parse("-->\n-->\n\n-->", ""), ShouldBeEmpty)
		So(Parse("WEBVTT", ""), ShouldBeEmpty)
	})
}

func TestTimeline(t *testing.T) {
	Convey("Given overlapping cues", t, func() {
		tl := NewTimeline([]Cue{
			{Start: 5, End: 6, Text: "c"},
			{Start: 0, End: 10, Text: "a"},
			{Start: 2, End: 3, Text: "b"},
		})

		Convey("At returns every active cue in start order", func() {
			So(texts(tl.At(2.5)), ShouldResemble, []string{"a", "b"})
			So(texts(tl.At(5)), ShouldResemble, []string{"a", "c"})
		})

		Convey("End is exclusive", func() {
			So(texts(tl.At(3)), ShouldResemble, []string{"a"})
			So(tl.At(10), ShouldBeEmpty)
		})

		Convey("Positions before the first cue are empty", func() {
			So(tl.At(-1), ShouldBeEmpty)
		})

		Convey("Cues are kept sorted", func() {
			So(texts(tl.Cues()), ShouldResemble, []string{"a", "b", "c"})
			So(tl.Len(), ShouldEqual, 3)
		})
	})

	Convey("A nil timeline is empty", t, func() {
		var tl *Timeline
		So(tl.Len(), ShouldEqual, 0)
		So(tl.At(1), ShouldBeEmpty)
	})
}

func TestLoad(t *testing.T) {
	Convey("Given subtitle files on an in-memory filesystem", t, func() {
		fs := afero.NewMemMapFs()
		So(afero.WriteFile(fs, "/subs/ep1.vtt", []byte("WEBVTT\n\n00:00:01.000 --> 00:00:02.500\nHi\n"), 0o644), ShouldBeNil)

		Convey("Load parses with the path as hint", func() {
			cues, err := Load(fs, "/subs/ep1.vtt")
			So(err, ShouldBeNil)
			So(texts(cues), ShouldResemble, []string{"Hi"})
		})

		Convey("Load reports missing files", func() {
			_, err := Load(fs, "/subs/none.srt")
			So(err, ShouldNotBeNil)
		})
	})
}

func TestFetch(t *testing.T) {
	Convey("Given a subtitle server", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/missing.srt" {
				http.NotFound(w, r)
				return
			}
			_, _ = w.Write([]byte(srtSample))
		}))
		defer srv.Close()

		Convey("Fetch downloads and parses", func() {
			cues, err := Fetch(context.Background(), srv.Client(), srv.URL+"/en.srt")
			So(err, ShouldBeNil)
			So(texts(cues), ShouldResemble, []string{"Hello world", "Goodbye"})
		})

		Convey("Fetch reports non-200 responses", func() {
			_, err := Fetch(context.Background(), srv.Client(), srv.URL+"/missing.srt")
			So(err, ShouldNotBeNil)
		})
	})
}

func FuzzParse(f *testing.F) {
	f.Add(srtSample, "")
	f.Add("WEBVTT\n\n00:00:01.000 --> 00:00:02.500\nHi\n", "a.vtt")
	f.Add("1\n99:99:99,999 --> 00:00:00,000\n\n", "")
	f.Fuzz(func(t *testing.T, content, hint string) {
		cues := Parse(content, hint)
		for i, c := range cues {
			if c.Start >= c.End {
				t.Fatalf("cue %d violates start < end: %v", i, c)
			}
			if i > 0 && cues[i-1].Start > c.Start {
				t.Fatalf("cues out of order at %d", i)
			}
		}
	})
}
