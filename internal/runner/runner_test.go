package runner

import (
	"context"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireSh(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestExecRunCapturesStdout(t *testing.T) {
	requireSh(t)
	dir := t.TempDir()

	out, err := New(nil, 0).Run(context.Background(), dir, "sh", "-c", "pwd")
	require.NoError(t, err)
	assert.Contains(t, string(out), strings.TrimSuffix(dir, "/"))
}

func TestExecRunIncludesStderrOnFailure(t *testing.T) {
	requireSh(t)

	_, err := New(nil, 0).Run(context.Background(), "", "sh", "-c", "echo boom >&2; exit 3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestExecRunTimeout(t *testing.T) {
	requireSh(t)

	_, err := New(nil, 50*time.Millisecond).Run(context.Background(), "", "sh", "-c", "sleep 5")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out after 50ms")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestExecRunCallerDeadline(t *testing.T) {
	requireSh(t)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, err := New(nil, 0).Run(ctx, "", "sh", "-c", "sleep 5")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "timed out after")
	assert.NotContains(t, err.Error(), "after 0s")
}

func TestFuncAdapter(t *testing.T) {
	var gotDir, gotName string
	var gotArgs []string
	r := Func(func(_ context.Context, dir, name string, args ...string) ([]byte, error) {
		gotDir, gotName, gotArgs = dir, name, args
		return []byte("ok"), nil
	})

	out, err := r.Run(context.Background(), "/tmp", "cc", "-c", "x.c")
	require.NoError(t, err)
	assert.Equal(t, "ok", string(out))
	assert.Equal(t, "/tmp", gotDir)
	assert.Equal(t, "cc", gotName)
	assert.Equal(t, []string{"-c", "x.c"}, gotArgs)
}

func TestTrimStderr(t *testing.T) {
	long := strings.Repeat("x", stderrLimit+10)
	assert.Len(t, trimStderr([]byte(long)), stderrLimit)
	assert.Equal(t, "msg", trimStderr([]byte("  msg\n")))
}
