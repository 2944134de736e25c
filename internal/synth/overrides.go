package synth

import (
	"fmt"

	"archsmith/internal/facts"
	"archsmith/internal/version"
)

// CompileRule forces one source file to compile with a specific flag set
// instead of the standard one.
type CompileRule struct {
	Source string // base name without extension, e.g. "qs_vxc_atom"
	Flags  string // make variable reference, e.g. "$(FCFLAGS2)"
}

// String renders the rule as a make recipe.
func (r CompileRule) String() string {
	return fmt.Sprintf("%s.o: %s.F\n\t$(FC) -c %s $<\n", r.Source, r.Source, r.Flags)
}

type compileOverride struct {
	family   facts.Family
	versions version.Range
	rules    []CompileRule
}

// lowOpt is the less aggressive optimization bundle.
const lowOpt = "$(FCFLAGS2)"

// compileOverrides lists compiler releases whose optimizer is known to
// miscompile specific sources. The first entry matching family and version
// applies.
var compileOverrides = []compileOverride{
	{
		family:   facts.FamilyIntel,
		versions: version.Range{Min: version.MustParse("2011.8"), Below: version.MustParse("2012")},
		rules:    []CompileRule{{"et_coupling", lowOpt}, {"qs_vxc_atom", lowOpt}},
	},
	{
		family:   facts.FamilyIntel,
		versions: version.Range{Min: version.MustParse("11.1.072"), Below: version.MustParse("2011")},
		rules:    []CompileRule{{"qs_vxc_atom", lowOpt}},
	},
	{
		family:   facts.FamilyIntel,
		versions: version.Range{Min: version.MustParse("2012")},
		rules:    []CompileRule{{"qs_vxc_atom", lowOpt}},
	},
}

// compileOverridesFor returns the rules for the first matching entry and the
// version window that selected them.
func compileOverridesFor(family facts.Family, v version.Version) ([]CompileRule, version.Range) {
	for _, co := range compileOverrides {
		if co.family == family && co.versions.Contains(v) {
			return append([]CompileRule(nil), co.rules...), co.versions
		}
	}
	return nil, version.Range{}
}
