package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSettings(t *testing.T, root, body string) {
	t.Helper()
	dir := filepath.Join(root, Dir)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "settings.yaml"), []byte(body), 0o644))
}

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	s, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, Default(), s)
	assert.Equal(t, 3, s.Regtest.MaxTasks)
	assert.False(t, s.Regtest.IgnoreFailures)
}

func TestLoadOverridesDefaults(t *testing.T) {
	root := t.TempDir()
	writeSettings(t, root, `
regtest:
  ignore_failures: true
log:
  level: debug
`)

	s, err := Load(root)
	require.NoError(t, err)
	assert.True(t, s.Regtest.IgnoreFailures)
	assert.Equal(t, 3, s.Regtest.MaxTasks, "unset fields keep defaults")
	assert.Equal(t, []string{"*.f90"}, s.ModInc.Sources)
	assert.Equal(t, "debug", s.Log.Level)
}

func TestLoadModIncSources(t *testing.T) {
	root := t.TempDir()
	writeSettings(t, root, "modinc:\n  sources: [mkl_dfti.f90]\nregtest:\n  maxtasks: 8\n  parallel: 1\n")

	s, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"mkl_dfti.f90"}, s.ModInc.Sources)
	assert.Equal(t, 8, s.Regtest.MaxTasks)
	assert.Equal(t, 1, s.Regtest.Parallel)
}

func TestLoadInvalid(t *testing.T) {
	root := t.TempDir()
	writeSettings(t, root, "regtest: [not, a, map]\n")
	_, err := Load(root)
	assert.Error(t, err)

	writeSettings(t, root, "regtest:\n  maxtasks: 0\n")
	_, err = Load(root)
	assert.ErrorContains(t, err, "maxtasks")
}
