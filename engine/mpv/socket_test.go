package mpv

import (
	"net"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestStaleSockets(t *testing.T) {
	Convey("Given a sockets directory", t, func() {
		dir := t.TempDir()

		live := filepath.Join(dir, socketName("live"))
		ln, err := net.Listen("unix", live)
		So(err, ShouldBeNil)
		Reset(func() { _ = ln.Close() })

		dead := filepath.Join(dir, socketName("dead"))
		So(os.WriteFile(dead, nil, 0o600), ShouldBeNil)
		So(os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0o600), ShouldBeNil)

		Convey("Only sockets nobody answers on are stale", func() {
			stale, err := StaleSockets(dir)
			So(err, ShouldBeNil)
			So(stale, ShouldResemble, []string{dead})
		})

		Convey("RemoveStaleSockets keeps live engines reachable", func() {
			n, err := RemoveStaleSockets(dir)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 1)

			_, err = os.Stat(dead)
			So(os.IsNotExist(err), ShouldBeTrue)
			_, err = os.Stat(live)
			So(err, ShouldBeNil)
		})
	})

	Convey("A missing directory is an error", t, func() {
		_, err := StaleSockets(filepath.Join(t.TempDir(), "none"))
		So(err, ShouldNotBeNil)
	})
}
