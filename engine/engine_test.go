package engine

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestKind(t *testing.T) {
	Convey("Kind names", t, func() {
		So(Primary.String(), ShouldEqual, "primary")
		So(Fallback.String(), ShouldEqual, "fallback")
		So(Kind(7).String(), ShouldEqual, "unknown")
	})
}

func TestDescriptorClone(t *testing.T) {
	Convey("Given a descriptor with headers", t, func() {
		d := Descriptor{URL: "http://127.0.0.1:8090/stream/abc", Headers: map[string]string{"Referer": "x"}}
		c := d.Clone()

		Convey("The clone does not share the header map", func() {
			c.Headers["Referer"] = "y"
			So(d.Headers["Referer"], ShouldEqual, "x")
			So(c.URL, ShouldEqual, d.URL)
		})

		Convey("A nil header map stays nil", func() {
			So(Descriptor{URL: "a"}.Clone().Headers, ShouldBeNil)
		})
	})
}

func TestSanitizeTarget(t *testing.T) {
	Convey("SanitizeTarget", t, func() {
		Convey("Accepts http and https URLs", func() {
			u, err := SanitizeTarget(" https://cdn.example/v.mkv ")
			So(err, ShouldBeNil)
			So(u, ShouldEqual, "https://cdn.example/v.mkv")
		})

		Convey("Cleans local paths", func() {
			p, err := SanitizeTarget("videos/../videos/ep1.mkv")
			So(err, ShouldBeNil)
			So(p, ShouldEqual, "videos/ep1.mkv")
		})

		Convey("Rejects flag-like, empty and foreign-scheme targets", func() {
			for _, in := range []string{"", "--script=x.lua", "file:///etc/passwd", "http://a\nb"} {
				_, err := SanitizeTarget(in)
				So(err, ShouldNotBeNil)
			}
		})
	})

	Convey("SanitizeTitle flattens control characters", t, func() {
		So(SanitizeTitle(" Episode\n1\t\x00"), ShouldEqual, "Episode 1")
	})
}
