package steps

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coderunr/gradecore/internal/stats"
)

func TestMessageCollectionIgnoresDuplicates(t *testing.T) {
	mc := NewMessageCollection([]Message{
		{Shorthand: "a", Message: "first"},
	})
	mc.Add(Message{Shorthand: "a", Message: "second"})
	assert.Equal(t, "first", mc.Get("a").Message)
	assert.Len(t, mc.All(), 1)
}

func TestMessageCollectionPreservesOrder(t *testing.T) {
	mc := NewMessageCollection([]Message{
		{Shorthand: "a"}, {Shorthand: "b"}, {Shorthand: "c"},
	})
	var order []string
	for _, m := range mc.All() {
		order = append(order, m.Shorthand)
	}
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestHumanEvaluationMessageSuccessAndSandboxErrorAreSilent(t *testing.T) {
	assert.Nil(t, HumanEvaluationMessage(stats.Stats{ExitStatus: stats.OK}, FeedbackRestricted))
	assert.Nil(t, HumanEvaluationMessage(stats.Stats{ExitStatus: stats.SandboxError}, FeedbackRestricted))
}

func TestHumanEvaluationMessageTimeout(t *testing.T) {
	msg := HumanEvaluationMessage(stats.Stats{ExitStatus: stats.Timeout}, FeedbackRestricted)
	require.Len(t, msg, 1)
	assert.Equal(t, EvaluationMessages.Get("timeout").Message, msg[0])
}

func TestHumanEvaluationMessageSignalRestrictedHidesSignalNumber(t *testing.T) {
	sig := 11
	msg := HumanEvaluationMessage(stats.Stats{ExitStatus: stats.Signal, Signal: &sig}, FeedbackRestricted)
	require.Len(t, msg, 1)
	assert.Equal(t, EvaluationMessages.Get("signal_restricted").Message, msg[0])
}

func TestHumanEvaluationMessageSignalFullRevealsSignalNumber(t *testing.T) {
	sig := 11
	msg := HumanEvaluationMessage(stats.Stats{ExitStatus: stats.Signal, Signal: &sig}, FeedbackFull)
	require.Len(t, msg, 2)
	assert.Equal(t, "11", msg[1])
}

func TestHumanEvaluationMessageNonzeroReturn(t *testing.T) {
	msg := HumanEvaluationMessage(stats.Stats{ExitStatus: stats.NonzeroReturn}, FeedbackRestricted)
	require.Len(t, msg, 1)
	assert.Equal(t, EvaluationMessages.Get("returncode").Message, msg[0])
}

func TestWhiteDiffFobjStepIdentical(t *testing.T) {
	outcome, text := WhiteDiffFobjStep([]byte("1 2 3\n"), []byte("1   2 3\n"))
	assert.Equal(t, 1.0, outcome)
	assert.Equal(t, EvaluationMessages.Get("success").Message, text[0])
}

func TestWhiteDiffFobjStepDifferent(t *testing.T) {
	outcome, text := WhiteDiffFobjStep([]byte("1 2 3\n"), []byte("1 2 4\n"))
	assert.Equal(t, 0.0, outcome)
	assert.Equal(t, EvaluationMessages.Get("wrong").Message, text[0])
}
