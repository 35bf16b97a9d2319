// Package steps implements the grading-step library (spec component C):
// compilation_step, evaluation_step (and its before/after-run split),
// trusted_step, checker_step and white_diff_step, each enforcing a
// characteristic resource profile on a prepared sandbox.
package steps

import "github.com/sirupsen/logrus"

// Message is a single outcome message shown to contestants: message is
// the format template, the rest of a rendered Text slice are positional
// arguments, matching spec.md §7's "short list-of-strings form".
type Message struct {
	Shorthand string
	Message   string
	HelpText  string
}

// MessageCollection mirrors original_source's MessageCollection:
// registration order is preserved, duplicate shorthands are logged and
// ignored rather than raising.
type MessageCollection struct {
	byShorthand map[string]Message
	order       []string
}

func NewMessageCollection(messages []Message) *MessageCollection {
	mc := &MessageCollection{byShorthand: map[string]Message{}}
	for _, m := range messages {
		mc.Add(m)
	}
	return mc
}

func (mc *MessageCollection) Add(m Message) {
	if _, exists := mc.byShorthand[m.Shorthand]; exists {
		logrus.Errorf("steps: duplicate message %q ignored", m.Shorthand)
		return
	}
	mc.byShorthand[m.Shorthand] = m
	mc.order = append(mc.order, m.Shorthand)
}

// Get panics if shorthand is unregistered: callers only ever look up
// constants they themselves declared, so a miss is a programming error,
// matching the original's KeyError-raising behavior.
func (mc *MessageCollection) Get(shorthand string) Message {
	m, ok := mc.byShorthand[shorthand]
	if !ok {
		logrus.Errorf("steps: unknown message %q", shorthand)
		panic("steps: unknown message " + shorthand)
	}
	return m
}

func (mc *MessageCollection) All() []Message {
	out := make([]Message, 0, len(mc.order))
	for _, s := range mc.order {
		out = append(out, mc.byShorthand[s])
	}
	return out
}

// CompilationMessages are the canonical compilation-step texts, grounded
// on original_source/cms/grading/steps/compilation.py.
var CompilationMessages = NewMessageCollection([]Message{
	{"success", "Compilation succeeded", "Your submission successfully compiled to an executable."},
	{"fail", "Compilation failed", "Your submission did not compile correctly."},
	{"timeout", "Compilation timed out", "Your submission exceeded the time limit while compiling."},
	{"signal", "Compilation killed with signal %s (could be triggered by violating memory limits)",
		"Your submission was killed with the specified signal."},
})

// EvaluationMessages are the canonical evaluation-step texts, grounded on
// original_source/cms/grading/steps/evaluation.py.
var EvaluationMessages = NewMessageCollection([]Message{
	{"success", "Output is correct", "Your submission ran and gave the correct answer"},
	{"partial", "Output is partially correct", "Your submission ran and gave the partially correct answer"},
	{"wrong", "Output isn't correct", "Your submission ran, but gave the wrong answer"},
	{"nooutput", "Evaluation didn't produce file %s", "Your submission ran, but did not write on the correct output file"},
	{"timeout", "Execution timed out", "Your submission used too much CPU time."},
	{"walltimeout", "Execution timed out (wall clock limit exceeded)", "Your submission used too much total time."},
	{"signal", "Execution killed with signal %s (could be triggered by violating memory limits)",
		"Your submission was killed with the specified signal."},
	{"signal_restricted", "Execution killed (could be triggered by violating memory limits)",
		"The evaluation was killed by a signal."},
	{"returncode", "Execution failed because the return code was nonzero",
		"Your submission failed because it exited with a return code different from 0."},
})
