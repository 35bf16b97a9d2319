package language

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupBuiltins(t *testing.T) {
	cpp, ok := Lookup("C++17 / g++")
	require.True(t, ok)
	assert.Equal(t, ".cpp", cpp.CanonicalExtension())

	py, ok := Lookup("Python 3 / CPython")
	require.True(t, ok)
	assert.Equal(t, ".pyz", py.ExecutableExtension)
}

func TestReplaceLanguageWildcard(t *testing.T) {
	cpp, _ := Lookup("C++17 / g++")
	assert.Equal(t, "grader.cpp", cpp.ReplaceLanguageWildcard("grader.%l"))
}

func TestCompilationCommandsCpp(t *testing.T) {
	cpp, _ := Lookup("C++17 / g++")
	cmds := cpp.CompilationCommands([]string{"sum.cpp"}, "sum")
	require.Len(t, cmds, 1)
	assert.Contains(t, cmds[0], "sum.cpp")
	assert.Contains(t, cmds[0], "-o")
}

func TestCompilationCommandsPython(t *testing.T) {
	py, _ := Lookup("Python 3 / CPython")
	cmds := py.CompilationCommands([]string{"sum.py"}, "sum.pyz")
	require.GreaterOrEqual(t, len(cmds), 2)
	last := cmds[len(cmds)-1]
	assert.Equal(t, "/usr/bin/zip", last[0])
}

func TestValidateAllBuiltinsHaveSourceExtensions(t *testing.T) {
	assert.NoError(t, Validate())
}
