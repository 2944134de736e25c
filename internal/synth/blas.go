package synth

import (
	"context"
	"strings"

	"archsmith/internal/facts"
)

// ProviderGeneric is the fallback BLAS provider linked through LIBBLAS.
const ProviderGeneric = "generic"

// blasProvider is one alternative supplier of BLAS/LAPACK.
type blasProvider struct {
	name    string
	present func(facts.Catalog) bool
	apply   func(b *build)
}

func installed(name string) func(facts.Catalog) bool {
	return func(c facts.Catalog) bool { return c.Has(name) }
}

// blasProviders are tried in order and the first installed one wins.
var blasProviders = []blasProvider{
	{name: facts.LibMathKernel, present: installed(facts.LibMathKernel), apply: applyMathKernel},
	{name: facts.LibCombinedMath, present: installed(facts.LibCombinedMath), apply: applyCombinedMath},
	{name: ProviderGeneric, present: func(facts.Catalog) bool { return true }, apply: applyGenericBLAS},
}

// selectProvider resolves the provider directive: "" or "auto" picks the
// first installed provider, a provider name forces it.
func selectProvider(cat facts.Catalog, directive string) (blasProvider, error) {
	d := strings.TrimSpace(directive)
	if d == "" || strings.EqualFold(d, "auto") {
		for _, p := range blasProviders {
			if p.present(cat) {
				return p, nil
			}
		}
	}
	for _, p := range blasProviders {
		if !strings.EqualFold(p.name, d) {
			continue
		}
		if !p.present(cat) {
			return blasProvider{}, configErrorf("blas", "blas_provider="+d,
				"requested BLAS provider is not installed")
		}
		return p, nil
	}
	return blasProvider{}, configErrorf("blas", "blas_provider="+d,
		"unknown BLAS provider, expected auto, %s, %s or %s",
		facts.LibMathKernel, facts.LibCombinedMath, ProviderGeneric)
}

func applyBLAS(_ context.Context, b *build) error {
	p, err := selectProvider(b.req.Catalog, b.req.Overrides.BLASProvider)
	if err != nil {
		return err
	}
	b.provider = p.name
	b.log.Info("selected BLAS provider", "provider", p.name)
	p.apply(b)
	return nil
}

// applyMathKernel configures the vendor math kernel library. Its bundled FFTW
// wrappers are used only when no dedicated FFT library is installed.
func applyMathKernel(b *build) {
	var extraInc string
	if b.req.ModIncPath != "" {
		extraInc = "-I" + b.req.ModIncPath
	}

	o := b.opts
	o.Set("INTEL_INC", "$(MKLROOT)/include")
	o.Append(keyDFlags, "-D__FFTW3")
	o.Append(keyCFlags, "-I$(INTEL_INC)", extraInc, "$(FPIC) $(DEBUG)")
	o.Append(keyLibs, smallMatrixLibs(b.req.Catalog), b.req.Env.LibScaLAPACK)

	if b.req.Catalog.Has(facts.LibFFT) {
		return
	}
	o.Set("INTEL_INCF", "$(INTEL_INC)/fftw")
	o.Append(keyDFlags, "-D__FFTMKL")
	o.Append(keyCFlags, "-I$(INTEL_INCF)")
	o.Prepend(keyLibs, b.req.Env.LibFFT)
}

// applyCombinedMath configures the AMD-style combined math library. Threaded
// builds link its _mp flavour.
func applyCombinedMath(b *build) {
	var sfx string
	if b.openmp != "" {
		sfx = "_mp"
	}
	info, _ := b.req.Catalog.Lookup(facts.LibCombinedMath)

	o := b.opts
	o.Set("ACML_INC", info.Root+"/gfortran64"+sfx+"/include")
	o.Append(keyCFlags, "-I$(ACML_INC) -I$(FFTW_INC)")
	o.Append(keyDFlags, "-D__FFTACML")

	blas := strings.ReplaceAll(b.req.Env.LibBLAS, "gfortran64", "gfortran64"+sfx)
	o.Append(keyLibs, smallMatrixLibs(b.req.Catalog), b.req.Env.LibScaLAPACK, blas)
}

func applyGenericBLAS(b *build) {
	b.opts.Append(keyLibs, smallMatrixLibs(b.req.Catalog), b.req.Env.LibBLAS)
}
