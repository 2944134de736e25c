package facts

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// Env holds the compiler wrappers and library link lines the build
// environment exports.
type Env struct {
	MPICC        string
	MPIF90       string
	CC           string
	CFlags       string
	F77          string
	F90          string
	Libs         string
	LibBLAS      string
	LibScaLAPACK string
	LibFFT       string
	LibLAPACKMT  string
	CPPFlags     string
	LDFlags      string
}

// envVars maps each Env field to the variable it is read from.
var envVars = []struct {
	name string
	dst  func(*Env) *string
}{
	{"MPICC", func(e *Env) *string { return &e.MPICC }},
	{"MPIF90", func(e *Env) *string { return &e.MPIF90 }},
	{"CC", func(e *Env) *string { return &e.CC }},
	{"CFLAGS", func(e *Env) *string { return &e.CFlags }},
	{"F77", func(e *Env) *string { return &e.F77 }},
	{"F90", func(e *Env) *string { return &e.F90 }},
	{"LIBS", func(e *Env) *string { return &e.Libs }},
	{"LIBBLAS", func(e *Env) *string { return &e.LibBLAS }},
	{"LIBSCALAPACK", func(e *Env) *string { return &e.LibScaLAPACK }},
	{"LIBFFT", func(e *Env) *string { return &e.LibFFT }},
	{"LIBLAPACK_MT", func(e *Env) *string { return &e.LibLAPACKMT }},
	{"EBVARCPPFLAGS", func(e *Env) *string { return &e.CPPFlags }},
	{"EBVARLDFLAGS", func(e *Env) *string { return &e.LDFlags }},
}

// EnvFrom builds an Env using getenv.
func EnvFrom(getenv func(string) string) Env {
	var e Env
	for _, v := range envVars {
		*v.dst(&e) = getenv(v.name)
	}
	return e
}

// EnvFromOS reads the process environment.
func EnvFromOS() Env { return EnvFrom(os.Getenv) }

// smallMatrixPattern matches the per-variant small-matrix-multiply archives
// (libsmm_dnn.a, libsmm_znn.a, ...).
const smallMatrixPattern = "lib/libsmm_*nn.a"

// DetectSmallMatrix lists the small-matrix archives installed under root,
// relative to root and sorted.
func DetectSmallMatrix(root string) ([]string, error) {
	if root == "" {
		return nil, nil
	}
	return globArchives(os.DirFS(root), smallMatrixPattern)
}

func globArchives(fsys fs.FS, pattern string) ([]string, error) {
	matches, err := doublestar.Glob(fsys, pattern)
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", pattern, err)
	}
	files := make([]string, 0, len(matches))
	for _, m := range matches {
		files = append(files, path.Clean(m))
	}
	sort.Strings(files)
	return files, nil
}
