package steps

import (
	"strconv"

	"github.com/coderunr/gradecore/internal/sandbox"
	"github.com/coderunr/gradecore/internal/stats"
)

// CompilationResult is the outcome of CompilationStep. Success is about
// the sandbox/tooling, not about whether compilation produced a usable
// executable: CompilationSuccess carries that distinction, and is nil
// only when Success is false (the sandbox itself failed).
type CompilationResult struct {
	Success            bool
	CompilationSuccess *bool
	Text               []string
	Stats              *stats.Stats
}

// CompilationStep runs commands (as produced by a language's
// CompilationCommands) inside sb under a compilation-appropriate
// resource profile, and classifies the outcome, grounded on
// original_source/cms/grading/steps/compilation.py's compilation_step.
func CompilationStep(sb *sandbox.Sandbox, commands [][]string, opts sandbox.Options) (CompilationResult, error) {
	st, ok, err := GenericStep(sb, commands, opts, "compile", true)
	if err != nil {
		return CompilationResult{}, err
	}
	if !ok {
		return CompilationResult{Success: false}, nil
	}

	t := func(b bool) *bool { return &b }

	switch st.ExitStatus {
	case stats.OK:
		return CompilationResult{
			Success: true, CompilationSuccess: t(true),
			Text: msgText(CompilationMessages.Get("success")), Stats: st,
		}, nil
	case stats.NonzeroReturn:
		return CompilationResult{
			Success: true, CompilationSuccess: t(false),
			Text: msgText(CompilationMessages.Get("fail")), Stats: st,
		}, nil
	case stats.Timeout, stats.TimeoutWall:
		return CompilationResult{
			Success: true, CompilationSuccess: t(false),
			Text: msgText(CompilationMessages.Get("timeout")), Stats: st,
		}, nil
	case stats.Signal, stats.MemoryLimit:
		text := CompilationMessages.Get("signal")
		signalStr := ""
		if st.Signal != nil {
			signalStr = signalName(*st.Signal)
		}
		return CompilationResult{
			Success: true, CompilationSuccess: t(false),
			Text: []string{text.Message, signalStr}, Stats: st,
		}, nil
	default: // SandboxError or unrecognized
		return CompilationResult{Success: false}, nil
	}
}

func msgText(m Message) []string { return []string{m.Message} }

func signalName(sig int) string {
	return strconv.Itoa(sig)
}
