package regtest

import (
	"fmt"
	"strings"
)

// HarnessConfigName is the file the harness reads its configuration from.
const HarnessConfigName = "cp2k_regtest.cfg"

// referencePrefix marks an unpacked reference-output directory.
const referencePrefix = "LAST-"

// maxTestCores caps the MPI ranks used by the regression tests.
const maxTestCores = 2

// HarnessConfig is the configuration the regression harness sources before
// a run.
type HarnessConfig struct {
	// F90 is the Fortran compiler name reported by the harness.
	F90 string
	// BaseDir is the directory holding the source tree.
	BaseDir string
	// Variant is the build variant under test, e.g. "popt".
	Variant string
	// ArchTag selects the arch file, e.g. "Linux-x86-64-foss".
	ArchTag string
	// SourceDir is the source tree directory name inside BaseDir.
	SourceDir string
	MaxTasks  int
	// RunPrefix launches one test, e.g. "mpirun -np 2".
	RunPrefix string
}

// Render returns the configuration file body.
func (c HarnessConfig) Render() string {
	lines := []string{
		fmt.Sprintf("FORT_C_NAME=%q", c.F90),
		"dir_base=" + c.BaseDir,
		"cp2k_version=" + c.Variant,
		"dir_triplet=" + c.ArchTag,
		"export ARCH=${dir_triplet}",
		"cp2k_dir=" + c.SourceDir,
		`leakcheck="YES"`,
		fmt.Sprintf("maxtasks=%d", c.MaxTasks),
		fmt.Sprintf("cp2k_run_prefix=%q", c.RunPrefix),
	}
	return strings.Join(lines, "\n") + "\n"
}

// MPIRunPrefix is the launcher for a test using cores ranks.
func MPIRunPrefix(cores int) string {
	return fmt.Sprintf("mpirun -np %d", cores)
}

// TestCores returns the number of MPI ranks to use for the tests: parallel
// capped at two. parallel <= 0 means no limit. It fails when fewer cores are
// available than required.
func TestCores(parallel, available int) (int, error) {
	n := maxTestCores
	if parallel > 0 && parallel < n {
		n = parallel
	}
	if available < n {
		return 0, fmt.Errorf("cannot run MPI tests: %d cores available, %d required", available, n)
	}
	return n, nil
}

// ReferenceDir picks the reference-output directory among names: the first
// one starting with "LAST-".
func ReferenceDir(names []string) (string, bool) {
	for _, n := range names {
		if strings.HasPrefix(n, referencePrefix) {
			return n, true
		}
	}
	return "", false
}
