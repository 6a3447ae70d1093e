package repo

import (
	"sort"

	"github.com/blang/semver"
)

// SortVersions orders semver-looking versions first (ascending), then any
// other strings lexicographically.
func SortVersions(vs []string) {
	type key struct {
		raw string
		v   semver.Version
		ok  bool
	}
	keys := make([]key, len(vs))
	for i, s := range vs {
		v, err := semver.ParseTolerant(s)
		keys[i] = key{raw: s, v: v, ok: err == nil}
	}
	sort.SliceStable(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		switch {
		case a.ok && b.ok:
			if c := a.v.Compare(b.v); c != 0 {
				return c < 0
			}
			return a.raw < b.raw
		case a.ok != b.ok:
			return a.ok
		default:
			return a.raw < b.raw
		}
	})
	for i := range keys {
		vs[i] = keys[i].raw
	}
}

// LatestVersion returns the highest version of vs, or "" when empty.
func LatestVersion(vs []string) string {
	if len(vs) == 0 {
		return ""
	}
	sorted := append([]string(nil), vs...)
	SortVersions(sorted)
	// non-semver entries sort last; prefer the last semver one
	for i := len(sorted) - 1; i >= 0; i-- {
		if _, err := semver.ParseTolerant(sorted[i]); err == nil {
			return sorted[i]
		}
	}
	return sorted[len(sorted)-1]
}
