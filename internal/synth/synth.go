// Package synth resolves toolchain and library facts into an arch file: a
// flat, ordered set of make directives (compilers, flag bundles, link
// libraries) for an MPI build.
//
// Synthesis pipeline (order is part of the contract, later -D/-I entries
// shadow earlier ones):
//  1. Base: compiler wrappers, universal flags, MPI-2 feature defines
//  2. Variant: OpenMP flag for threaded builds
//  3. Family: GNU or Intel flag syntax, Intel version gate
//  4. BLAS provider: MathKernel, CombinedMath or generic, first match wins
//  5. FFT, LinearAlgebra, ScalableLinearAlgebra when installed
//  6. IntegralLib, by major version
//  7. ExchangeCorrelationLib, by version threshold
//  8. Link-group normalization of LIBS
//  9. Serialization
package synth

import (
	"context"
	"log/slog"

	"archsmith/internal/facts"
	"archsmith/internal/runner"
)

// Request is the complete, immutable input of one synthesis call.
type Request struct {
	Toolchain facts.Toolchain
	Catalog   facts.Catalog
	Env       facts.Env
	Variant   facts.Variant
	Overrides facts.Overrides
	// ModIncPath is the prepared module-include directory; empty adds no
	// include path.
	ModIncPath string
	// LibintToolsDir holds the integral-library wrapper source, needed only
	// when the compiler lacks ISO_C_BINDING.
	LibintToolsDir string
}

// RequestFrom builds a Request from loaded facts.
func RequestFrom(f *facts.Facts) Request {
	return Request{
		Toolchain:      f.Toolchain,
		Catalog:        f.Libraries,
		Env:            f.Env,
		Variant:        f.Variant,
		Overrides:      f.Overrides,
		ModIncPath:     f.ModIncPath,
		LibintToolsDir: f.LibintToolsDir,
	}
}

// Result is a synthesized configuration.
type Result struct {
	Options *OptionSet
	// Rules are per-source compile overrides appended after the directives.
	Rules []CompileRule
	// Provider is the selected BLAS provider.
	Provider string
	Text     string
}

// Synthesizer runs the pipeline. Runner is used only to compile the
// integral-library wrapper object.
type Synthesizer struct {
	Runner runner.Runner
	Log    *slog.Logger
}

// New returns a Synthesizer. A nil log uses slog.Default().
func New(r runner.Runner, log *slog.Logger) *Synthesizer {
	if log == nil {
		log = slog.Default()
	}
	return &Synthesizer{Runner: r, Log: log}
}

// build is the per-call state threaded through the pipeline steps.
type build struct {
	req      Request
	opts     *OptionSet
	rules    []CompileRule
	openmp   string
	provider string
	runner   runner.Runner
	log      *slog.Logger
}

type step struct {
	name  string
	apply func(ctx context.Context, b *build) error
}

var pipeline = []step{
	{"base", applyBase},
	{"variant", applyVariant},
	{"family", applyFamily},
	{"blas", applyBLAS},
	{"libraries", applyLibraries},
	{"integral", applyIntegral},
	{"xc", applyExchangeCorrelation},
	{"link-group", applyLinkGroup},
}

// Synthesize resolves req into an OptionSet and its serialized arch file.
// Every failure is a *ConfigError.
func (s *Synthesizer) Synthesize(ctx context.Context, req Request) (*Result, error) {
	if !req.Variant.Valid() {
		return nil, configErrorf("variant", "variant="+string(req.Variant),
			"unknown build type, known types are %v", facts.Variants)
	}

	log := s.Log
	if log == nil {
		log = slog.Default()
	}
	b := &build{
		req:    req,
		opts:   NewOptionSet(),
		runner: s.Runner,
		log:    log.With("toolchain", req.Toolchain.Name, "variant", string(req.Variant)),
	}

	b.log.Debug("synthesizing", "family", string(req.Toolchain.Family), "libraries", req.Catalog.Names())
	for _, st := range pipeline {
		if err := ctx.Err(); err != nil {
			return nil, &ConfigError{Step: st.name, Msg: "cancelled", Err: err}
		}
		if err := st.apply(ctx, b); err != nil {
			return nil, err
		}
		b.log.Debug("applied step", "step", st.name, "directives", b.opts.Len())
	}

	return &Result{
		Options:  b.opts,
		Rules:    b.rules,
		Provider: b.provider,
		Text:     Serialize(b.opts, b.rules),
	}, nil
}
