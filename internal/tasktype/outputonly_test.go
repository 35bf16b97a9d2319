package tasktype

import (
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coderunr/gradecore/internal/job"
)

// memCacher is a minimal in-memory filecacher.FileCacher for tests that
// exercise OutputOnly's sandbox-free diff path.
type memCacher struct {
	blobs map[string][]byte
}

func newMemCacher(blobs map[string][]byte) *memCacher {
	return &memCacher{blobs: blobs}
}

func (m *memCacher) Get(digest string) ([]byte, error) {
	b, ok := m.blobs[digest]
	if !ok {
		return nil, fmt.Errorf("memCacher: no blob for digest %q", digest)
	}
	return b, nil
}

func (m *memCacher) GetToWriter(digest string, w io.Writer) error {
	b, err := m.Get(digest)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

func (m *memCacher) Put(r io.Reader, description string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	digest := fmt.Sprintf("digest-%d", len(m.blobs))
	m.blobs[digest] = data
	return digest, nil
}

func TestOutputOnlyCompileIsNoop(t *testing.T) {
	o := newOutputOnly()
	j := &job.Compilation{}
	require.NoError(t, o.Compile(nil, j))
	require.NotNil(t, j.Success)
	assert.True(t, *j.Success)
	require.NotNil(t, j.CompilationSuccess)
	assert.True(t, *j.CompilationSuccess)
}

func TestOutputOnlyEvaluateRejectsInvalidParameters(t *testing.T) {
	o := newOutputOnly()
	ej := &job.Evaluation{}
	ej.TaskTypeParameters = []any{"not-a-choice"}

	require.NoError(t, o.Evaluate(nil, ej))
	require.NotNil(t, ej.Success)
	assert.False(t, *ej.Success)
}

func TestOutputOnlyEvaluateFileNotSubmittedIsZeroOutcome(t *testing.T) {
	o := newOutputOnly()
	ej := &job.Evaluation{}
	ej.TaskTypeParameters = []any{"diff"}
	ej.Operation = "testcase1"
	ej.SetFiles(map[string]job.File{})

	require.NoError(t, o.Evaluate(nil, ej))
	require.NotNil(t, ej.Success)
	assert.True(t, *ej.Success)
	require.NotNil(t, ej.Outcome)
	assert.Equal(t, "0", *ej.Outcome)
}

func TestOutputOnlyEvaluateDiffPathMatchingOutput(t *testing.T) {
	o := newOutputOnly()
	ej := &job.Evaluation{}
	ej.TaskTypeParameters = []any{"diff"}
	ej.Operation = "testcase1"
	ej.CorrectOutputDigest = "correct"
	ej.SetFiles(map[string]job.File{
		"testcase1.out": {Name: "testcase1.out", Digest: "user"},
	})

	cacher := newMemCacher(map[string][]byte{
		"correct": []byte("42\n"),
		"user":    []byte("42\n"),
	})
	ctx := &Context{Cacher: cacher}

	require.NoError(t, o.Evaluate(ctx, ej))
	require.NotNil(t, ej.Success)
	assert.True(t, *ej.Success)
	require.NotNil(t, ej.Outcome)
	assert.Equal(t, "1", *ej.Outcome)
}

func TestOutputOnlyEvaluateDiffPathMismatch(t *testing.T) {
	o := newOutputOnly()
	ej := &job.Evaluation{}
	ej.TaskTypeParameters = []any{"diff"}
	ej.Operation = "testcase1"
	ej.CorrectOutputDigest = "correct"
	ej.SetFiles(map[string]job.File{
		"testcase1.out": {Name: "testcase1.out", Digest: "user"},
	})

	cacher := newMemCacher(map[string][]byte{
		"correct": []byte("42\n"),
		"user":    []byte("7\n"),
	})
	ctx := &Context{Cacher: cacher}

	require.NoError(t, o.Evaluate(ctx, ej))
	require.NotNil(t, ej.Success)
	assert.True(t, *ej.Success)
	require.NotNil(t, ej.Outcome)
	assert.Equal(t, "0", *ej.Outcome)
}

func TestUserOutputFilename(t *testing.T) {
	assert.Equal(t, "testcase1.out", userOutputFilename("testcase1"))
}

func TestOutputOnlyNameAndFlags(t *testing.T) {
	o := newOutputOnly()
	assert.Equal(t, "Output only", o.Name())
	assert.True(t, o.AllowPartialSubmission())
	assert.False(t, o.Testable())
}
