// Package version reports the application and engine versions and checks for updates.
package version

import (
	"fmt"
	"regexp"
	"strconv"
)

// versionPattern finds the first dotted version in free-form text such as
// "mpv v0.38.0-dirty Copyright" or "VLC media player 3.0.20 Vetinari".
var versionPattern = regexp.MustCompile(`(\d+)\.(\d+)(?:\.(\d+))?`)

// Semver is a major.minor.patch triple. A missing patch is 0.
type Semver struct {
	Major, Minor, Patch int
}

func (v Semver) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Compare returns 1 if v is newer than o, -1 if older and 0 if equal.
func (v Semver) Compare(o Semver) int {
	for _, d := range [...]int{v.Major - o.Major, v.Minor - o.Minor, v.Patch - o.Patch} {
		switch {
		case d > 0:
			return 1
		case d < 0:
			return -1
		}
	}
	return 0
}

// Parse extracts the first version in text.
func Parse(text string) (Semver, error) {
	m := versionPattern.FindStringSubmatch(text)
	if m == nil {
		return Semver{}, fmt.Errorf("no version in %q", text)
	}

	var v Semver
	v.Major, _ = strconv.Atoi(m[1])
	v.Minor, _ = strconv.Atoi(m[2])
	if m[3] != "" {
		v.Patch, _ = strconv.Atoi(m[3])
	}
	return v, nil
}

// Compare parses a and b and compares them like Semver.Compare.
func Compare(a, b string) (int, error) {
	av, err := Parse(a)
	if err != nil {
		return 0, err
	}
	bv, err := Parse(b)
	if err != nil {
		return 0, err
	}
	return av.Compare(bv), nil
}
