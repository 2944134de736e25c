package synth

import (
	"context"
	"fmt"

	"archsmith/internal/facts"
	"archsmith/internal/version"
)

// intelNotesURL documents the Intel compiler releases known to miscompile.
const intelNotesURL = "http://software.intel.com/en-us/articles/build-cp2k-using-intel-fortran-compiler-professional-edition/"

var familyRules = map[facts.Family]func(b *build) error{
	facts.FamilyGNU:   applyGNU,
	facts.FamilyIntel: applyIntel,
}

func applyFamily(_ context.Context, b *build) error {
	tc := b.req.Toolchain
	apply, ok := familyRules[tc.Family]
	if !ok {
		return configErrorf("family", "family="+string(tc.Family),
			"don't know how to tweak configuration for this compiler family")
	}
	return apply(b)
}

func applyGNU(b *build) error {
	o := b.opts
	// -ffree-line-length-none prevents "Unterminated character constant" errors
	o.Set("FREE", "-ffree-form -ffree-line-length-none")
	o.Set("LDFLAGS", "$(FCFLAGS)")
	o.Set("OBJECTS_ARCHITECTURE", "machine_gfortran.o")
	o.Append(keyDFlags, "-D__GFORTRAN")

	o.Append(keyFCFlagsOpt, "$(DFLAGS) $(CFLAGS)")
	o.Append(keyFCFlagsOpt2, "$(DFLAGS) $(CFLAGS)")
	if b.req.Toolchain.OptArch {
		o.Append(keyFCFlagsOpt, "-march=native -fmax-stack-var-size=32768")
		o.Append(keyFCFlagsOpt2, "-march=native")
	}
	return nil
}

func applyIntel(b *build) error {
	tc := b.req.Toolchain
	v, err := parseVersion("family", "compiler_version", tc.CompilerVersion)
	if err != nil {
		return err
	}
	if err := checkIntelGate(v); err != nil {
		return err
	}

	var extraInc string
	if b.req.ModIncPath != "" {
		extraInc = "-I" + b.req.ModIncPath
	}

	o := b.opts
	o.Set("FREE", "-fpp -free")
	// "-fp-model precise -ftz" causes problems, so it is not part of SAFE
	o.Set("SAFE", "-assume protect_parens -no-unroll-aggressive")
	o.Set("INCFLAGS", join("$(DFLAGS) -I$(INTEL_INC) -I$(INTEL_INCF)", extraInc))
	o.Set("LDFLAGS", "$(INCFLAGS) -i-static")
	o.Set("OBJECTS_ARCHITECTURE", "machine_intel.o")
	o.Append(keyDFlags, "-D__INTEL")

	o.Append(keyFCFlagsOpt, "$(INCFLAGS)")
	o.Append(keyFCFlagsOpt2, "$(INCFLAGS)")
	if tc.OptArch {
		o.Append(keyFCFlagsOpt, "-xHOST -heap-arrays 64")
		o.Append(keyFCFlagsOpt2, "-xHOST -heap-arrays 64")
	}

	rules, window := compileOverridesFor(facts.FamilyIntel, v)
	if len(rules) > 0 {
		b.log.Debug("lowering optimization for known miscompiles", "compiler_version", v.String(), "window", window.String(), "sources", len(rules))
	}
	b.rules = append(b.rules, rules...)
	return nil
}

// intelGate is the minimum release accepted inside a version window.
type intelGate struct {
	window version.Range
	min    version.Version
	label  string
}

// intelGates are checked in order; the first window containing the compiler
// version decides. Versions outside every window are unsupported.
var intelGates = []intelGate{
	{
		window: version.Range{Min: version.MustParse("2011"), Below: version.MustParse("2012")},
		min:    version.MustParse("2011.8"),
		label:  "v12",
	},
	{
		window: version.Range{Min: version.MustParse("11")},
		min:    version.MustParse("11.1.072"),
		label:  "v11",
	},
}

func checkIntelGate(v version.Version) error {
	fact := "compiler_version=" + v.String()
	for _, g := range intelGates {
		if !g.window.Contains(v) {
			continue
		}
		if !v.AtLeast(g.min) {
			return configErrorf("family", fact,
				"won't build correctly with the Intel %s compilers prior to %s, see %s", g.label, g.min, intelNotesURL)
		}
		return nil
	}
	return configErrorf("family", fact, "Intel compilers version %s not supported yet", v)
}

// parseVersion parses a version fact, turning failures into ConfigErrors.
func parseVersion(step, fact, s string) (version.Version, error) {
	v, err := version.Parse(s)
	if err != nil {
		return version.Version{}, &ConfigError{
			Step: step,
			Fact: fmt.Sprintf("%s=%q", fact, s),
			Msg:  "unusable version",
			Err:  err,
		}
	}
	return v, nil
}
