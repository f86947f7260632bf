package spec

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/cockroachdb/errors"
)

// Version is a registry feature number such as 4.6. Versions are totally
// ordered by (Major, Minor).
type Version struct {
	Major int
	Minor int
}

// ParseVersion parses "4", "4.6" or "4.6.0". Patch, pre-release and build
// components other than zero are rejected since registries never use them.
func ParseVersion(s string) (Version, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Version{}, errors.New("empty version")
	}
	sv, err := semver.NewVersion(s)
	if err != nil {
		return Version{}, errors.Wrapf(err, "invalid version %q", s)
	}
	if sv.Patch() != 0 || sv.Prerelease() != "" || sv.Metadata() != "" {
		return Version{}, errors.Newf("invalid version %q: only major.minor is allowed", s)
	}
	return Version{Major: int(sv.Major()), Minor: int(sv.Minor())}, nil
}

// MustParseVersion is ParseVersion for literals known to be valid.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

func (v Version) String() string { return fmt.Sprintf("%d.%d", v.Major, v.Minor) }

// Compare returns -1, 0 or +1.
func (v Version) Compare(o Version) int {
	switch {
	case v.Major < o.Major:
		return -1
	case v.Major > o.Major:
		return 1
	case v.Minor < o.Minor:
		return -1
	case v.Minor > o.Minor:
		return 1
	}
	return 0
}

func (v Version) Less(o Version) bool { return v.Compare(o) < 0 }

// LessEqual reports v <= o.
func (v Version) LessEqual(o Version) bool { return v.Compare(o) <= 0 }

func SortVersions(vs []Version) {
	sort.Slice(vs, func(i, j int) bool { return vs[i].Less(vs[j]) })
}
