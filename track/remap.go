package track

import (
	"strings"

	levenshtein "github.com/ka-weihe/fast-levenshtein"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/samber/lo"
	"github.com/samber/mo"
)

// Remap finds the candidate that best matches prev, a track selected on
// another engine instance. Matching tries, in order: the same language,
// the same name, then the closest fuzzy name match.
func Remap(prev Track, candidates []Track) mo.Option[Track] {
	if len(candidates) == 0 {
		return mo.None[Track]()
	}

	if lang := strings.TrimSpace(prev.Language); lang != "" {
		if t, ok := lo.Find(candidates, func(t Track) bool {
			return strings.EqualFold(t.Language, lang)
		}); ok {
			return mo.Some(t)
		}
	}

	name := strings.TrimSpace(prev.Name)
	if name == "" {
		return mo.None[Track]()
	}

	if t, ok := lo.Find(candidates, func(t Track) bool {
		return strings.EqualFold(t.Name, name)
	}); ok {
		return mo.Some(t)
	}

	matches := lo.Filter(candidates, func(t Track, _ int) bool {
		return fuzzy.MatchNormalizedFold(name, t.Name) || fuzzy.MatchNormalizedFold(t.Name, name)
	})
	if len(matches) == 0 {
		return mo.None[Track]()
	}

	lower := strings.ToLower(name)
	return mo.Some(lo.MinBy(matches, func(a, b Track) bool {
		return levenshtein.Distance(lower, strings.ToLower(a.Name)) < levenshtein.Distance(lower, strings.ToLower(b.Name))
	}))
}
