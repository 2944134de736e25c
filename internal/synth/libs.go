package synth

import (
	"context"
	"fmt"
	"path"
	"strings"

	"archsmith/internal/facts"
	"archsmith/internal/version"
)

var (
	// libxcMin is the oldest exchange-correlation library that works.
	libxcMin = version.MustParse("2.0.1")
	// libxcSplitFortran is where the Fortran bindings moved to libxcf90.
	libxcSplitFortran = version.MustParse("2.2")
	// gccISOCBinding is the first GCC release with ISO_C_BINDING.
	gccISOCBinding = version.MustParse("4.3")
)

const (
	libintWrapperSource = "libint_cpp_wrapper.cpp"
	libintWrapperObject = "libint_cpp_wrapper.o"
)

// integralLibs maps the integral library major version to its archives.
var integralLibs = map[uint64]string{
	1: "$(LIBINTLIB)/libderiv.a $(LIBINTLIB)/libint.a $(LIBINTLIB)/libr12.a",
	2: "$(LIBINTLIB)/libint2.a",
}

func applyLibraries(_ context.Context, b *build) error {
	cat, env, o := b.req.Catalog, b.req.Env, b.opts

	if fftw, ok := cat.Lookup(facts.LibFFT); ok {
		inc := path.Join(fftw.Root, "include")
		lib := path.Join(fftw.Root, "lib")
		o.Set("FFTW_INC", inc)
		o.Set("FFTW3INC", inc)
		o.Set("FFTW3LIB", lib)
		o.Append(keyDFlags, "-D__FFTW3")
		o.Append(keyLibs, "-L"+lib, "-lfftw3")
	}
	if cat.Has(facts.LibLinearAlgebra) {
		o.Append(keyLibs, env.LibLAPACKMT)
	}
	if cat.Has(facts.LibScalableLinearAlgebra) {
		o.Append(keyLibs, env.LibScaLAPACK)
	}
	return nil
}

func applyIntegral(ctx context.Context, b *build) error {
	info, ok := b.req.Catalog.Lookup(facts.LibIntegral)
	if !ok {
		b.log.Warn("integral library not available, building without it")
		return nil
	}

	v, err := parseVersion("integral", facts.LibIntegral, info.Version)
	if err != nil {
		return err
	}
	libs, ok := integralLibs[v.Major()]
	if !ok {
		return configErrorf("integral", fmt.Sprintf("%s=%s", facts.LibIntegral, info.Version),
			"don't know how to handle integral library major version %d", v.Major())
	}
	b.log.Info("using integral library", "version", info.Version)

	o := b.opts
	o.Append(keyDFlags, "-D__LIBINT")

	hasBinding, err := hasISOCBinding(b.req.Toolchain)
	if err != nil {
		return err
	}
	var wrapper string
	if !hasBinding {
		o.Append(keyDFlags, "-D__HAS_NO_ISO_C_BINDING")
		if wrapper, err = b.compileLibintWrapper(ctx, info); err != nil {
			return err
		}
	}

	o.Set("LIBINTLIB", path.Join(info.Root, "lib"))
	o.Append(keyLibs, libs, "-lstdc++", wrapper)
	return nil
}

// hasISOCBinding reports whether the Fortran compiler can bind to the
// integral library directly. GCC before 4.3 cannot.
func hasISOCBinding(tc facts.Toolchain) (bool, error) {
	if tc.Family != facts.FamilyGNU || tc.CompilerVersion == "" {
		return true, nil
	}
	v, err := parseVersion("integral", "compiler_version", tc.CompilerVersion)
	if err != nil {
		return false, err
	}
	return v.AtLeast(gccISOCBinding), nil
}

// compileLibintWrapper builds the C++ wrapper object through the injected
// runner and returns the object path to link.
func (b *build) compileLibintWrapper(ctx context.Context, info facts.LibraryInfo) (string, error) {
	dir := b.req.LibintToolsDir
	if dir == "" {
		return "", configErrorf("integral", "libint_tools_dir=", "no integral library tools dir found")
	}
	cc := strings.Fields(b.req.Env.CC + " " + b.req.Env.CFlags)
	if len(cc) == 0 {
		return "", configErrorf("integral", "CC=", "a C++ capable compiler is required to build the wrapper")
	}
	if b.runner == nil {
		return "", configErrorf("integral", "runner=nil", "wrapper compilation is not available")
	}

	args := append(cc[1:], "-c", libintWrapperSource, "-I"+path.Join(info.Root, "include"))
	b.log.Info("building integral library wrapper", "dir", dir)
	if _, err := b.runner.Run(ctx, dir, cc[0], args...); err != nil {
		return "", &ConfigError{Step: "integral", Fact: "libint_tools_dir=" + dir, Msg: "building the wrapper failed", Err: err}
	}
	return path.Join(dir, libintWrapperObject), nil
}

func applyExchangeCorrelation(_ context.Context, b *build) error {
	info, ok := b.req.Catalog.Lookup(facts.LibExchangeCorrelation)
	if !ok {
		b.log.Info("exchange-correlation library not available, building without it")
		return nil
	}

	v, err := parseVersion("xc", facts.LibExchangeCorrelation, info.Version)
	if err != nil {
		return err
	}
	if v.Less(libxcMin) {
		return configErrorf("xc", fmt.Sprintf("%s=%s", facts.LibExchangeCorrelation, info.Version),
			"only works with exchange-correlation library v%s (or later)", libxcMin)
	}

	lib := path.Join(info.Root, "lib")
	b.opts.Append(keyDFlags, "-D__LIBXC2")
	if v.AtLeast(libxcSplitFortran) {
		b.opts.Append(keyLibs, "-L"+lib, "-lxcf90 -lxc")
	} else {
		b.opts.Append(keyLibs, "-L"+lib, "-lxc")
	}
	return nil
}

const (
	linkGroupStart = "-Wl,--start-group"
	linkGroupEnd   = "-Wl,--end-group"
)

// NormalizeLinkGroup removes existing group markers from libs and wraps the
// whole value in a single start/end group so circular archive dependencies
// resolve. Applying it twice gives the same result as applying it once.
func NormalizeLinkGroup(libs string) string {
	fields := strings.Fields(libs)
	kept := make([]string, 0, len(fields)+2)
	kept = append(kept, linkGroupStart)
	for _, f := range fields {
		if f == linkGroupStart || f == linkGroupEnd {
			continue
		}
		kept = append(kept, f)
	}
	return strings.Join(append(kept, linkGroupEnd), " ")
}

func applyLinkGroup(_ context.Context, b *build) error {
	b.opts.Set(keyLibs, NormalizeLinkGroup(b.opts.Value(keyLibs)))
	return nil
}
