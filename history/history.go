// Package history persists resume positions, one record per stream.
package history

import (
	"errors"
	"time"

	"github.com/kinoplay/kinoplay/filesystem"
	"github.com/kinoplay/kinoplay/key"
	"github.com/kinoplay/kinoplay/where"
	"github.com/metafates/gache"
	"github.com/samber/mo"
	"github.com/spf13/viper"
)

// minResume is the position below which resuming is not worth it.
const minResume = 5.0

// cacher provides an abstracted, disk-backed registry for resume records.
var cacher = gache.New[map[string]*Record](
	&gache.Options{
		Path:       where.History(),
		FileSystem: &filesystem.CacheFS{},
	},
)

// Get returns every saved record keyed by stream.
func Get() (map[string]*Record, error) {
	cached, expired, err := cacher.Get()
	if err != nil {
		return nil, err
	}
	if expired || cached == nil {
		return make(map[string]*Record), nil
	}
	return cached, nil
}

// Save stores r under its key, replacing any older record.
func Save(r Record) error {
	if r.Key == "" {
		return errors.New("history: record without key")
	}

	saved, err := Get()
	if err != nil {
		return err
	}

	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = time.Now()
	}
	saved[r.Key] = &r

	return cacher.Set(saved)
}

// Resume returns the record for key if playback should continue from it:
// the position is past the first seconds and not within the completion
// margin of the end.
func Resume(key string) mo.Option[Record] {
	saved, err := Get()
	if err != nil {
		return mo.None[Record]()
	}

	r, ok := saved[key]
	if !ok || r.Position < minResume || r.Finished(completionMargin()) {
		return mo.None[Record]()
	}
	return mo.Some(*r)
}

// Remove deletes the record for key.
func Remove(key string) error {
	saved, err := Get()
	if err != nil {
		return err
	}

	delete(saved, key)
	return cacher.Set(saved)
}

func completionMargin() float64 {
	return float64(viper.GetInt(key.PlayerCompletionMargin))
}
