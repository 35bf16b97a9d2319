package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }
func u(v uint64) *uint64   { return &v }
func ss(v string) *string  { return &v }
func si(v int) *int        { return &v }

func TestMergeNilFirstReturnsCopyOfSecond(t *testing.T) {
	second := Stats{CPUTime: f(1.5), ExitStatus: OK}
	got, err := Merge(nil, &second, true)
	require.NoError(t, err)
	assert.Equal(t, second, got)
}

func TestMergeNilSecondIsError(t *testing.T) {
	first := Stats{ExitStatus: OK}
	_, err := Merge(&first, nil, true)
	assert.ErrorIs(t, err, ErrMissingSecond)
}

func TestMergeConcurrentWallMaxMemorySum(t *testing.T) {
	first := Stats{CPUTime: f(1.0), WallTime: f(2.0), MemoryBytes: u(100), ExitStatus: OK}
	second := Stats{CPUTime: f(0.5), WallTime: f(3.0), MemoryBytes: u(50), ExitStatus: OK}
	got, err := Merge(&first, &second, true)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, *got.CPUTime, 1e-9)
	assert.InDelta(t, 3.0, *got.WallTime, 1e-9)
	assert.Equal(t, uint64(150), *got.MemoryBytes)
}

func TestMergeSequentialWallSumMemoryMax(t *testing.T) {
	first := Stats{WallTime: f(2.0), MemoryBytes: u(100), ExitStatus: OK}
	second := Stats{WallTime: f(3.0), MemoryBytes: u(50), ExitStatus: OK}
	got, err := Merge(&first, &second, false)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, *got.WallTime, 1e-9)
	assert.Equal(t, uint64(100), *got.MemoryBytes)
}

func TestMergeStatusKeepsFirstUnlessOK(t *testing.T) {
	first := Stats{ExitStatus: OK}
	second := Stats{ExitStatus: Signal, Signal: si(11)}
	got, err := Merge(&first, &second, true)
	require.NoError(t, err)
	assert.Equal(t, Signal, got.ExitStatus)
	require.NotNil(t, got.Signal)
	assert.Equal(t, 11, *got.Signal)

	first2 := Stats{ExitStatus: NonzeroReturn}
	second2 := Stats{ExitStatus: OK}
	got2, err := Merge(&first2, &second2, true)
	require.NoError(t, err)
	assert.Equal(t, NonzeroReturn, got2.ExitStatus)
}

func TestMergeStdoutStderrJoinPreservesMissingSide(t *testing.T) {
	first := Stats{ExitStatus: OK, Stdout: ss("a")}
	second := Stats{ExitStatus: OK}
	got, err := Merge(&first, &second, true)
	require.NoError(t, err)
	require.NotNil(t, got.Stdout)
	assert.Equal(t, "a", *got.Stdout)

	first2 := Stats{ExitStatus: OK}
	second2 := Stats{ExitStatus: OK, Stdout: ss("b")}
	got2, err := Merge(&first2, &second2, true)
	require.NoError(t, err)
	require.NotNil(t, got2.Stdout)
	assert.Equal(t, "b", *got2.Stdout)

	first3 := Stats{ExitStatus: OK, Stdout: ss("a")}
	second3 := Stats{ExitStatus: OK, Stdout: ss("b")}
	got3, err := Merge(&first3, &second3, true)
	require.NoError(t, err)
	assert.Equal(t, "a"+joinSeparator+"b", *got3.Stdout)
}

type fakeMetaSource struct {
	cpu, wall   float64
	hasCPU      bool
	hasWall     bool
	mem         uint64
	hasMem      bool
	sig         int
	hasSig      bool
	exitStatus  ExitStatus
	stdoutPath  string
	hasStdout   bool
	stderrPath  string
	hasStderr   bool
	files       map[string][]byte
}

func (f *fakeMetaSource) CPUTime() (float64, bool)     { return f.cpu, f.hasCPU }
func (f *fakeMetaSource) WallTime() (float64, bool)    { return f.wall, f.hasWall }
func (f *fakeMetaSource) MemoryBytes() (uint64, bool)  { return f.mem, f.hasMem }
func (f *fakeMetaSource) KillingSignal() (int, bool)   { return f.sig, f.hasSig }
func (f *fakeMetaSource) ExitStatus() ExitStatus       { return f.exitStatus }
func (f *fakeMetaSource) StdoutPath() (string, bool)   { return f.stdoutPath, f.hasStdout }
func (f *fakeMetaSource) StderrPath() (string, bool)   { return f.stderrPath, f.hasStderr }
func (f *fakeMetaSource) ReadFile(path string) ([]byte, error) {
	return f.files[path], nil
}

func TestExecutionStatsConsistentWithMetaFields(t *testing.T) {
	src := &fakeMetaSource{cpu: 1.23, hasCPU: true, mem: 4096, hasMem: true, exitStatus: OK}
	got := Execution(src, false)
	require.NotNil(t, got.CPUTime)
	assert.InDelta(t, 1.23, *got.CPUTime, 1e-9)
	require.NotNil(t, got.MemoryBytes)
	assert.Equal(t, uint64(4096), *got.MemoryBytes)
}

func TestExecutionStatsScrubsInvalidUTF8(t *testing.T) {
	src := &fakeMetaSource{
		exitStatus: OK,
		hasStdout:  true,
		stdoutPath: "stdout.txt",
		files:      map[string][]byte{"stdout.txt": {'o', 'k', 0x80, 0x01}},
	}
	got := Execution(src, true)
	require.NotNil(t, got.Stdout)
	assert.Contains(t, *got.Stdout, "ok")
	assert.Contains(t, *got.Stdout, "�")
}

func TestScrubUTF8PassesThroughNewlineTabAndCR(t *testing.T) {
	assert.Equal(t, "a\nb\tc\rd", scrubUTF8([]byte("a\nb\tc\rd")))
}

func TestScrubUTF8ReplacesOtherControlBytes(t *testing.T) {
	assert.Equal(t, "a�b", scrubUTF8([]byte{'a', 0x01, 'b'}))
	assert.Equal(t, "a�b", scrubUTF8([]byte{'a', 0x7f, 'b'}))
}
