package mpv

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kinoplay/kinoplay/constant"
	"github.com/kinoplay/kinoplay/filesystem"
	"github.com/samber/lo"
	"github.com/spf13/afero"
)

const staleDialTimeout = 200 * time.Millisecond

// socketName is the file name of the IPC socket of one mpv instance.
func socketName(id string) string {
	return fmt.Sprintf("%s-%s.sock", constant.App, id)
}

// StaleSockets lists the IPC sockets in dir that no mpv instance answers
// on anymore, left behind by engines that crashed or were killed.
func StaleSockets(dir string) ([]string, error) {
	entries, err := afero.ReadDir(filesystem.Fs(), dir)
	if err != nil {
		return nil, err
	}

	names := lo.FilterMap(entries, func(e os.FileInfo, _ int) (string, bool) {
		name := e.Name()
		return filepath.Join(dir, name), !e.IsDir() && strings.HasPrefix(name, constant.App+"-") && strings.HasSuffix(name, ".sock")
	})

	return lo.Filter(names, func(path string, _ int) bool {
		conn, err := net.DialTimeout("unix", path, staleDialTimeout)
		if err != nil {
			return true
		}
		_ = conn.Close()
		return false
	}), nil
}

// RemoveStaleSockets deletes StaleSockets(dir) and returns how many went.
func RemoveStaleSockets(dir string) (int, error) {
	stale, err := StaleSockets(dir)
	if err != nil {
		return 0, err
	}

	var removed int
	for _, path := range stale {
		if err := filesystem.API().Remove(path); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
