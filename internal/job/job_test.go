package job

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompilationRoundTripsFileMapsAsArrays(t *testing.T) {
	j := &Compilation{Common: Common{TaskType: "Batch"}, Language: "C++17 / g++"}
	j.SetFiles(map[string]File{"sum.cpp": {Name: "sum.cpp", Digest: "abc"}})
	j.SetManagers(map[string]File{"grader.cpp": {Name: "grader.cpp", Digest: "def"}})

	raw, err := json.Marshal(j)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"type":"compilation"`)
	assert.Contains(t, string(raw), `"filename":"sum.cpp"`)

	decoded, err := DecodeTagged(raw)
	require.NoError(t, err)
	got, ok := decoded.(*Compilation)
	require.True(t, ok)
	assert.Equal(t, "C++17 / g++", got.Language)
	assert.Equal(t, "abc", got.GetFiles()["sum.cpp"].Digest)
}

func TestEvaluationRoundTrip(t *testing.T) {
	outcome := "1.0"
	j := &Evaluation{
		Common:              Common{TaskType: "Batch", Info: "evaluate testcase 3"},
		InputDigest:         "in-digest",
		CorrectOutputDigest: "out-digest",
		TimeLimitS:          2.0,
		MemoryLimitBytes:    256 << 20,
		Operation:           "3",
		Outcome:             &outcome,
	}
	j.SetExecutables(map[string]File{"sum": {Name: "sum", Digest: "exe-digest"}})

	raw, err := json.Marshal(j)
	require.NoError(t, err)

	decoded, err := DecodeTagged(raw)
	require.NoError(t, err)
	got, ok := decoded.(*Evaluation)
	require.True(t, ok)
	assert.Equal(t, "in-digest", got.InputDigest)
	require.NotNil(t, got.Outcome)
	assert.Equal(t, "1.0", *got.Outcome)
	assert.Equal(t, "exe-digest", got.GetExecutables()["sum"].Digest)
}

func TestDecodeTaggedRejectsUnknownType(t *testing.T) {
	_, err := DecodeTagged([]byte(`{"type":"bogus"}`))
	assert.Error(t, err)
}
