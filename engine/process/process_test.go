//go:build !windows

package process

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestProcess(t *testing.T) {
	Convey("Given a short-lived process", t, func() {
		p, err := Start("sh", "-c", "exit 0")
		So(err, ShouldBeNil)

		Convey("Exited closes once it ends", func() {
			select {
			case <-p.Exited():
			case <-time.After(5 * time.Second):
				t.Fatal("process did not exit")
			}
			So(p.Running(), ShouldBeFalse)
		})
	})

	Convey("Given a process that ignores the grace period", t, func() {
		p, err := Start("sleep", "30")
		So(err, ShouldBeNil)
		So(p.Running(), ShouldBeTrue)

		Convey("Stop kills it", func() {
			p.Stop(10 * time.Millisecond)
			So(p.Running(), ShouldBeFalse)
		})
	})

	Convey("Starting a missing binary fails", t, func() {
		_, err := Start("kinoplay-no-such-binary")
		So(err, ShouldNotBeNil)
	})

	Convey("Stop on a nil process is a no-op", t, func() {
		var p *Process
		So(func() { p.Stop(time.Millisecond) }, ShouldNotPanic)
	})
}
