package subtitle

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/kinoplay/kinoplay/log"
	"github.com/kinoplay/kinoplay/metrics"
	"github.com/kinoplay/kinoplay/network"
	"github.com/spf13/afero"
)

// maxSubtitleBytes caps downloads; real subtitle files are far smaller.
const maxSubtitleBytes = 8 << 20

// Load reads a subtitle file from fs and parses it, using the path as the format hint.
func Load(fs afero.Fs, path string) ([]Cue, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read subtitle %s: %w", path, err)
	}
	return record(Decode(string(data), path), path), nil
}

// Fetch downloads a subtitle file and parses it, using the URL as the format hint.
func Fetch(ctx context.Context, client *http.Client, url string) ([]Cue, error) {
	if client == nil {
		client = network.Client
	}

	req, err := network.NewRequest(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("subtitle request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch subtitle: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch subtitle: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSubtitleBytes))
	if err != nil {
		return nil, fmt.Errorf("read subtitle body: %w", err)
	}

	return record(Decode(string(data), url), url), nil
}

func record(res Result, source string) []Cue {
	metrics.RecordSubtitleParse(string(res.Format), len(res.Cues), res.Dropped)
	if res.Dropped > 0 {
		log.Debugf("subtitle %s: dropped %d malformed blocks", source, res.Dropped)
	}
	return res.Cues
}
