// Package version provides an ordered version type for toolchain and library
// gates. Compiler and library versions are loose strings ("11.1.072",
// "2011.8", "2013_sp1.1.106", "2.2.0-rc1"); comparing them as strings gets
// "9" vs "11" wrong, so their numeric components are normalized into semantic
// versions before any comparison.
package version

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/blang/semver/v4"
)

// Version is a parsed dotted version. The zero value is "0.0.0".
type Version struct {
	raw string
	sv  semver.Version
}

// digitRuns picks the numeric components out of a loose version. Separators
// and alphabetic tags ("_sp", "-rc") are dropped, so "2013_sp1.1.106" reads
// as 2013.1.1 and "2.2.0-rc1" as 2.2.0.
var digitRuns = regexp.MustCompile(`[0-9]+`)

// Parse reads a loose version. Leading zeros are dropped ("072" is 72),
// missing components are zero, and components past the third are ignored.
// The string must contain at least one numeric component.
func Parse(s string) (Version, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return Version{}, fmt.Errorf("version: empty version string")
	}
	runs := digitRuns.FindAllString(raw, 3)
	if len(runs) == 0 {
		return Version{}, fmt.Errorf("version: parse %q: no numeric component", raw)
	}
	var parts [3]uint64
	for i, r := range runs {
		n, err := strconv.ParseUint(r, 10, 64)
		if err != nil {
			return Version{}, fmt.Errorf("version: parse %q: %w", raw, err)
		}
		parts[i] = n
	}
	sv := semver.Version{Major: parts[0], Minor: parts[1], Patch: parts[2]}
	if err := sv.Validate(); err != nil {
		return Version{}, fmt.Errorf("version: parse %q: %w", raw, err)
	}
	return Version{raw: raw, sv: sv}, nil
}

// MustParse is Parse for package-level constants. It panics on bad input.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the version as it was written.
func (v Version) String() string {
	if v.raw == "" {
		return v.sv.String()
	}
	return v.raw
}

// IsZero reports whether v is the zero value.
func (v Version) IsZero() bool {
	return v.raw == "" && v.sv.Major == 0 && v.sv.Minor == 0 && v.sv.Patch == 0
}

// Major returns the first component.
func (v Version) Major() uint64 { return v.sv.Major }

// Compare returns -1, 0 or +1.
func (v Version) Compare(o Version) int { return v.sv.Compare(o.sv) }

// Less reports whether v < o.
func (v Version) Less(o Version) bool { return v.sv.LT(o.sv) }

// AtLeast reports whether v >= o.
func (v Version) AtLeast(o Version) bool { return v.sv.GTE(o.sv) }

// Range is a half-open version interval [Min, Below). A zero Below means no
// upper bound.
type Range struct {
	Min   Version
	Below Version
}

// Contains reports whether v falls inside r.
func (r Range) Contains(v Version) bool {
	if !v.AtLeast(r.Min) {
		return false
	}
	if r.Below.IsZero() {
		return true
	}
	return v.Less(r.Below)
}

func (r Range) String() string {
	if r.Below.IsZero() {
		return fmt.Sprintf(">= %s", r.Min)
	}
	return fmt.Sprintf("[%s, %s)", r.Min, r.Below)
}
