package workspace_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"archsmith/internal/facts"
	"archsmith/internal/workspace"
)

// withTempHome redirects os.UserHomeDir to a temp directory for the duration
// of the test.
func withTempHome(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("HOME", tmp)
	return tmp
}

func sampleFacts() *facts.Facts {
	f := facts.Defaults()
	f.Toolchain.Name = "foss-2015a"
	f.Toolchain.Family = facts.FamilyGNU
	f.Toolchain.MPIFamily = "OpenMPI"
	f.Libraries = facts.Catalog{facts.LibFFT: {Root: "/opt/fftw", Version: "3.3.4"}}
	return &f
}

func TestInitAndOpen(t *testing.T) {
	tmp := withTempHome(t)

	w, err := workspace.Init("foss", sampleFacts())
	require.NoError(t, err)

	dir := filepath.Join(tmp, ".archsmith", "foss")
	assert.Equal(t, dir, w.Dir)
	assert.FileExists(t, filepath.Join(dir, "facts.yaml"))
	assert.DirExists(t, filepath.Join(dir, "arch"))

	_, err = workspace.Init("foss", sampleFacts())
	assert.Error(t, err, "duplicate Init must fail")

	opened, err := workspace.Open("foss")
	require.NoError(t, err)
	assert.Equal(t, dir, opened.Dir)
}

func TestInitRejectsBadName(t *testing.T) {
	withTempHome(t)
	_, err := workspace.Init("", sampleFacts())
	assert.Error(t, err)
	_, err = workspace.Init("a/b", sampleFacts())
	assert.Error(t, err)
}

func TestOpenMissing(t *testing.T) {
	withTempHome(t)
	_, err := workspace.Open("notexist")
	assert.ErrorContains(t, err, "archsmith init notexist")
}

func TestFactsRoundTrip(t *testing.T) {
	withTempHome(t)
	t.Setenv("MPIF90", "mpif90")

	w, err := workspace.Init("foss", sampleFacts())
	require.NoError(t, err)

	f, err := w.LoadFacts()
	require.NoError(t, err)
	assert.Equal(t, "foss-2015a", f.Toolchain.Name)
	assert.Equal(t, "mpif90", f.Env.MPIF90)
	assert.True(t, f.Libraries.Has(facts.LibFFT))
	assert.Positive(t, f.Cores)
}

func TestArchFilesAndInstall(t *testing.T) {
	withTempHome(t)
	w, err := workspace.Init("foss", sampleFacts())
	require.NoError(t, err)

	names, err := w.ListArch()
	require.NoError(t, err)
	assert.Empty(t, names)

	_, err = w.WriteArch("Linux-x86-64-foss.psmp", "FC = mpif90 -fopenmp\n")
	require.NoError(t, err)
	path, err := w.WriteArch("Linux-x86-64-foss.popt", "FC = mpif90\n")
	require.NoError(t, err)
	assert.Equal(t, w.ArchPath("Linux-x86-64-foss.popt"), path)

	names, err = w.ListArch()
	require.NoError(t, err)
	assert.Equal(t, []string{"Linux-x86-64-foss.popt", "Linux-x86-64-foss.psmp"}, names)

	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "arch"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "arch", "Linux-x86-64-foss.popt"), []byte("stale stale stale\n"), 0o644))

	installed, err := w.Install(src)
	require.NoError(t, err)
	require.Len(t, installed, 2)

	data, err := os.ReadFile(filepath.Join(src, "arch", "Linux-x86-64-foss.popt"))
	require.NoError(t, err)
	assert.Equal(t, "FC = mpif90\n", string(data))
}

func TestWriteReport(t *testing.T) {
	withTempHome(t)
	w, err := workspace.Init("foss", sampleFacts())
	require.NoError(t, err)

	path, err := w.WriteReport("Linux-x86-64-foss.popt", []byte("---\naccept: true\n---\n"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(w.Dir, "reports", "Linux-x86-64-foss.popt.md"), path)
	assert.Equal(t, path, w.ReportPath("Linux-x86-64-foss.popt"))
}

func TestListAndReadReports(t *testing.T) {
	withTempHome(t)
	w, err := workspace.Init("foss", sampleFacts())
	require.NoError(t, err)

	names, err := w.ListReports()
	require.NoError(t, err)
	assert.Empty(t, names)

	_, err = w.WriteReport("Linux-x86-64-foss.psmp", []byte("psmp"))
	require.NoError(t, err)
	_, err = w.WriteReport("Linux-x86-64-foss.popt", []byte("popt"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(w.Dir, "reports", "notes.txt"), nil, 0o644))

	names, err = w.ListReports()
	require.NoError(t, err)
	assert.Equal(t, []string{"Linux-x86-64-foss.popt", "Linux-x86-64-foss.psmp"}, names)

	data, err := w.ReadReport("Linux-x86-64-foss.psmp")
	require.NoError(t, err)
	assert.Equal(t, "psmp", string(data))

	_, err = w.ReadReport("Linux-x86-64-foss.sopt")
	assert.ErrorContains(t, err, "no report")
}

func TestListAndRemove(t *testing.T) {
	withTempHome(t)

	names, err := workspace.List()
	require.NoError(t, err)
	assert.Empty(t, names)

	_, err = workspace.Init("a", sampleFacts())
	require.NoError(t, err)
	_, err = workspace.Init("b", sampleFacts())
	require.NoError(t, err)

	names, err = workspace.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)

	require.NoError(t, workspace.Remove("a"))
	assert.Error(t, workspace.Remove("a"))

	names, err = workspace.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, names)
}
