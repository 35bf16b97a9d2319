package tasktype

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coderunr/gradecore/internal/job"
)

func TestLookupKnownTaskTypes(t *testing.T) {
	for _, name := range []string{"Batch", "Communication", "Output only"} {
		tt, ok := Lookup(name)
		require.True(t, ok, name)
		assert.Equal(t, name, tt.Name())
	}
}

func TestDispatchUnknownTaskType(t *testing.T) {
	_, err := Dispatch("NoSuchTaskType")
	assert.Error(t, err)
}

func TestDispatchKnownTaskType(t *testing.T) {
	tt, err := Dispatch("Batch")
	require.NoError(t, err)
	assert.Equal(t, "Batch", tt.Name())
}

func TestCheckFilesNumber(t *testing.T) {
	files := map[string]job.File{"a.cpp": {Name: "a.cpp", Digest: "d"}}
	assert.NoError(t, checkFilesNumber(files, 1))
	assert.Error(t, checkFilesNumber(files, 2))
}

func TestCheckManagerPresent(t *testing.T) {
	managers := map[string]job.File{"checker": {Name: "checker", Digest: "d"}}
	m, err := checkManagerPresent(managers, "checker")
	require.NoError(t, err)
	assert.Equal(t, "d", m.Digest)

	_, err = checkManagerPresent(managers, "grader")
	assert.Error(t, err)
}

func TestBoolPtrAndSetOutcome(t *testing.T) {
	assert.True(t, *boolPtr(true))
	assert.False(t, *boolPtr(false))

	var ej job.Evaluation
	setOutcome(&ej, 1)
	require.NotNil(t, ej.Outcome)
	assert.Equal(t, "1", *ej.Outcome)

	setOutcome(&ej, 0.5)
	assert.Equal(t, "0.5", *ej.Outcome)
}
