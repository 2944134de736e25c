// Package facts holds the inputs of a synthesis run: what toolchain is
// active, which libraries are installed, what the environment says about
// compiler wrappers, and what build variant was requested.
//
// Facts are loaded once from a YAML file plus the process environment and are
// never mutated afterwards.
//
// File layout:
//
//	toolchain:
//	  name: foss-2015a
//	  family: GNU
//	  compiler_version: 4.9.2
//	  mpi_family: OpenMPI
//	  optarch: true
//	  openmp_flag: -fopenmp
//	variant: psmp
//	libraries:
//	  FFT: {root: /opt/fftw/3.3.4, version: 3.3.4}
//	  IntegralLib: {root: /opt/libint/1.1.4, version: 1.1.4}
//	overrides:
//	  extra_dflags: -D__LIBINT_MAX_AM=6
//	modinc_path: /build/modinc
package facts

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"gopkg.in/yaml.v3"
)

// Family is the compiler vendor lineage.
type Family string

const (
	FamilyGNU   Family = "GNU"
	FamilyIntel Family = "Intel"
)

// Variant is the requested build flavor.
type Variant string

const (
	// VariantPopt is the parallel, optimized build.
	VariantPopt Variant = "popt"
	// VariantPsmp is the parallel build with OpenMP threading.
	VariantPsmp Variant = "psmp"
)

// Variants lists the supported build variants.
var Variants = []Variant{VariantPopt, VariantPsmp}

// Valid reports whether v is a supported variant.
func (v Variant) Valid() bool {
	for _, known := range Variants {
		if v == known {
			return true
		}
	}
	return false
}

// Well-known catalog keys.
const (
	LibMathKernel            = "MathKernel"
	LibCombinedMath          = "CombinedMath"
	LibFFT                   = "FFT"
	LibLinearAlgebra         = "LinearAlgebra"
	LibScalableLinearAlgebra = "ScalableLinearAlgebra"
	LibIntegral              = "IntegralLib"
	LibExchangeCorrelation   = "ExchangeCorrelationLib"
	LibSmallMatrix           = "SmallMatrixLib"
)

// Toolchain describes the active compiler/MPI toolchain.
type Toolchain struct {
	Name            string `yaml:"name"`
	Family          Family `yaml:"family"`
	CompilerVersion string `yaml:"compiler_version"`
	// MPIFamily is the MPI implementation declared by the toolchain. Empty
	// means undeclared; the catalog is scanned instead.
	MPIFamily  string `yaml:"mpi_family,omitempty"`
	Optimize   bool   `yaml:"optimize"`
	Debug      bool   `yaml:"debug,omitempty"`
	PIC        bool   `yaml:"pic,omitempty"`
	OptArch    bool   `yaml:"optarch,omitempty"`
	OpenMPFlag string `yaml:"openmp_flag,omitempty"`
}

// LibraryInfo locates one installed library.
type LibraryInfo struct {
	Root    string `yaml:"root"`
	Version string `yaml:"version,omitempty"`
	// Files lists detected archives, relative paths resolved against Root.
	Files []string `yaml:"files,omitempty"`
}

// Catalog maps library names to their installation. Absence means the
// library is not available.
type Catalog map[string]LibraryInfo

// Lookup returns the library registered under name.
func (c Catalog) Lookup(name string) (LibraryInfo, bool) {
	info, ok := c[name]
	return info, ok
}

// Has reports whether name is present.
func (c Catalog) Has(name string) bool {
	_, ok := c[name]
	return ok
}

// Names returns the catalog keys in sorted order.
func (c Catalog) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Overrides are free-form user additions.
type Overrides struct {
	ExtraCFlags string `yaml:"extra_cflags,omitempty"`
	ExtraDFlags string `yaml:"extra_dflags,omitempty"`
	// BLASProvider forces a provider: "", "auto", "MathKernel",
	// "CombinedMath" or "generic".
	BLASProvider string `yaml:"blas_provider,omitempty"`
}

// Facts is everything known about one build invocation.
type Facts struct {
	Toolchain Toolchain `yaml:"toolchain"`
	Variant   Variant   `yaml:"variant"`
	Libraries Catalog   `yaml:"libraries,omitempty"`
	Overrides Overrides `yaml:"overrides,omitempty"`
	// ModIncPath is a directory of prepared vendor module files. Empty means
	// no extra include path.
	ModIncPath string `yaml:"modinc_path,omitempty"`
	// LibintToolsDir is where the integral-library wrapper source lives.
	LibintToolsDir string `yaml:"libint_tools_dir,omitempty"`

	Env   Env `yaml:"-"`
	Cores int `yaml:"-"`
}

// Defaults returns facts with the non-zero defaults applied.
func Defaults() Facts {
	return Facts{
		Toolchain: Toolchain{Optimize: true},
		Variant:   VariantPopt,
	}
}

// Parse decodes a facts document. Environment and detection are not applied.
func Parse(data []byte) (*Facts, error) {
	f := Defaults()
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse facts: %w", err)
	}
	if f.Libraries == nil {
		f.Libraries = Catalog{}
	}
	return &f, nil
}

// Load reads a facts file, fills Env from the process environment, detects
// small-matrix archives and records the available core count.
func Load(path string) (*Facts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read facts %s: %w", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	f.Env = EnvFromOS()
	f.Cores = runtime.NumCPU()
	if err := f.detectArchives(); err != nil {
		return nil, err
	}
	return f, nil
}

// Marshal encodes the file-backed part of f.
func (f *Facts) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("marshal facts: %w", err)
	}
	return data, nil
}

func (f *Facts) detectArchives() error {
	info, ok := f.Libraries.Lookup(LibSmallMatrix)
	if !ok || len(info.Files) > 0 {
		return nil
	}
	files, err := DetectSmallMatrix(info.Root)
	if err != nil {
		return err
	}
	info.Files = files
	f.Libraries[LibSmallMatrix] = info
	return nil
}

// ArchivePaths returns info.Files resolved against info.Root.
func (info LibraryInfo) ArchivePaths() []string {
	paths := make([]string, len(info.Files))
	for i, f := range info.Files {
		if filepath.IsAbs(f) {
			paths[i] = f
			continue
		}
		paths[i] = filepath.Join(info.Root, f)
	}
	return paths
}
