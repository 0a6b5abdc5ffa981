// Package version compares the running build against the latest release.
package version

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/kinoplay/kinoplay/filesystem"
	"github.com/kinoplay/kinoplay/network"
	"github.com/kinoplay/kinoplay/util"
	"github.com/kinoplay/kinoplay/where"
	"github.com/metafates/gache"
)

// ReleasesURL is queried for the latest release tag.
var ReleasesURL = "https://api.github.com/repos/kinoplay/kinoplay/releases/latest"

var versionCacher = gache.New[string](&gache.Options{
	Path:       filepath.Join(where.Cache(), "version.json"),
	Lifetime:   time.Hour * 24 * 2,
	FileSystem: &filesystem.CacheFS{},
})

// Latest returns the newest released version, cached for two days.
func Latest(ctx context.Context) (string, error) {
	cached, expired, err := versionCacher.Get()
	if err != nil {
		return "", err
	}
	if !expired && cached != "" {
		return cached, nil
	}

	latest, err := fetchLatest(ctx)
	if err != nil {
		return "", err
	}

	_ = versionCacher.Set(latest)
	return latest, nil
}

func fetchLatest(ctx context.Context) (string, error) {
	req, err := network.NewRequest(ctx, http.MethodGet, ReleasesURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := network.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("query releases: %w", err)
	}
	defer util.Ignore(resp.Body.Close)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("query releases: unexpected status %d", resp.StatusCode)
	}

	var release struct {
		TagName string `json:"tag_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return "", fmt.Errorf("decode release: %w", err)
	}

	tag := strings.TrimPrefix(strings.TrimSpace(release.TagName), "v")
	if tag == "" {
		return "", errors.New("empty tag name")
	}
	return tag, nil
}
