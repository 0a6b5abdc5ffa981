package version

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"
)

const engineVersionTimeout = 5 * time.Second

// EngineInfo is what `binary --version` reported.
type EngineInfo struct {
	Path    string
	Banner  string
	Version Semver
}

// Outdated reports whether the engine is older than minimum.
func (e EngineInfo) Outdated(minimum string) bool {
	m, err := Parse(minimum)
	if err != nil {
		return false
	}
	return e.Version.Compare(m) < 0
}

// Engine runs binary --version and parses the first line that carries a
// version. Both mpv and VLC print it on stdout.
func Engine(ctx context.Context, binary string) (EngineInfo, error) {
	path, err := exec.LookPath(binary)
	if err != nil {
		return EngineInfo{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, engineVersionTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, path, "--version").Output()
	if err != nil {
		return EngineInfo{}, fmt.Errorf("%s --version: %w", binary, err)
	}

	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := scanner.Text()
		if v, err := Parse(line); err == nil {
			return EngineInfo{Path: path, Banner: line, Version: v}, nil
		}
	}
	return EngineInfo{}, fmt.Errorf("%s --version printed no version", binary)
}
