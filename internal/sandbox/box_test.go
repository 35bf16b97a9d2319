package sandbox

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSandbox(t *testing.T) *Sandbox {
	t.Helper()
	home := t.TempDir()
	require.NoError(t, os.Chmod(home, 0o755))
	return &Sandbox{homeDir: home}
}

func TestAllowWritingAllAndNoneChmodHomeAndChildren(t *testing.T) {
	sb := newTestSandbox(t)
	childPath := filepath.Join(sb.homeDir, "a.txt")
	require.NoError(t, os.WriteFile(childPath, []byte("x"), 0o644))

	require.NoError(t, sb.allowWriting(true))
	info, err := os.Stat(sb.homeDir)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o777), info.Mode().Perm())
	childInfo, err := os.Stat(childPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o777), childInfo.Mode().Perm())

	require.NoError(t, sb.allowWriting(false))
	info, err = os.Stat(sb.homeDir)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
	childInfo, err = os.Stat(childPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), childInfo.Mode().Perm())
}

func TestAllowWritingOnlyRestrictsToDeclaredPaths(t *testing.T) {
	sb := newTestSandbox(t)
	other := filepath.Join(sb.homeDir, "other.txt")
	require.NoError(t, os.WriteFile(other, []byte("x"), 0o644))

	sb.AllowWritingOnly([]string{"output.txt"})
	require.NoError(t, sb.allowWriting(true))

	outputInfo, err := os.Stat(filepath.Join(sb.homeDir, "output.txt"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o722), outputInfo.Mode().Perm())

	otherInfo, err := os.Stat(other)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), otherInfo.Mode().Perm())
}

func TestAllowWritingOnlyIgnoresPathsEscapingHome(t *testing.T) {
	sb := newTestSandbox(t)
	sb.AllowWritingOnly([]string{"../../etc/passwd"})
	require.NoError(t, sb.allowWriting(true))

	info, err := os.Stat(sb.homeDir)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
}
