package steps

import (
	"fmt"

	"github.com/coderunr/gradecore/internal/sandbox"
	"github.com/coderunr/gradecore/internal/stats"
)

// GenericStep runs a sequence of commands inside sb, one after another,
// stopping early as soon as one of them doesn't finish with ExitStatus
// OK. Each command's stdout/stderr is redirected to
// "<stepName>_stdout_<n>.txt" / "<stepName>_stderr_<n>.txt", and the
// per-command stats are merged sequentially (wall time summed, memory
// maxed). A false finalOK means the sandbox itself failed to run one of
// the commands (helper exit code 2) and the returned Stats is nil; an
// unexpected helper exit code or an OS-level failure is returned as err
// instead, matching _generic_execution's
// box_success check in original_source/cms/grading/steps/utils.go.
func GenericStep(sb *sandbox.Sandbox, commands [][]string, opts sandbox.Options, stepName string, collectOutput bool) (merged *stats.Stats, finalOK bool, err error) {
	if len(commands) == 0 {
		return nil, false, fmt.Errorf("steps: generic step %s has no commands", stepName)
	}

	var accumulated *stats.Stats
	for i, argv := range commands {
		cmdOpts := opts
		cmdOpts.StdoutFile = fmt.Sprintf("%s_stdout_%d.txt", stepName, i)
		cmdOpts.StderrFile = fmt.Sprintf("%s_stderr_%d.txt", stepName, i)

		ok, _, runErr := sb.ExecuteWithoutStd(argv, cmdOpts, true)
		if runErr != nil {
			return nil, false, runErr
		}
		if !ok {
			return nil, false, nil
		}

		this := stats.Execution(sb, collectOutput)
		merged, mergeErr := stats.Merge(accumulated, &this, false)
		if mergeErr != nil {
			return nil, false, mergeErr
		}
		accumulated = &merged

		if this.ExitStatus != stats.OK {
			return accumulated, true, nil
		}
	}
	return accumulated, true, nil
}
