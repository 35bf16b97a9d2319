package steps

import (
	"github.com/sirupsen/logrus"

	"github.com/coderunr/gradecore/internal/sandbox"
	"github.com/coderunr/gradecore/internal/stats"
)

// TrustedParams are the resource limits applied to every trusted-step
// command, sourced from config rather than a task's own parameters:
// trusted commands (checkers, managers) are limited generously so a
// configuration or programming error can't wedge a worker, not to grade
// contestant code.
type TrustedParams struct {
	MaxProcesses int
	MaxTimeS     float64
	MaxMemoryKiB int64
}

// TrustedResult mirrors CompilationResult/EvaluationResult's shape.
type TrustedResult struct {
	Success          bool
	ExecutionSuccess *bool
	Stats            *stats.Stats
}

// TrustedStep runs commands with the trusted resource profile, grounded on
// original_source/cms/grading/steps/trusted.py's trusted_step.
func TrustedStep(sb *sandbox.Sandbox, commands [][]string, p TrustedParams) (TrustedResult, error) {
	opts := sandbox.Options{
		PreserveEnv:      true,
		MaxProcesses:     p.MaxProcesses,
		CPUTimeLimitS:    p.MaxTimeS,
		WallTimeLimitS:   2*p.MaxTimeS + 1,
		MemoryLimitBytes: p.MaxMemoryKiB * 1024,
	}

	st, ok, err := GenericStep(sb, commands, opts, "trusted", true)
	if err != nil {
		return TrustedResult{}, err
	}
	if !ok {
		logrus.Error("sandbox failed during trusted step")
		return TrustedResult{Success: false}, nil
	}

	switch st.ExitStatus {
	case stats.OK:
		logrus.Debug("trusted step ended successfully")
		return TrustedResult{Success: true, ExecutionSuccess: boolPtr(true), Stats: st}, nil
	case stats.NonzeroReturn, stats.Timeout, stats.TimeoutWall, stats.Signal, stats.MemoryLimit:
		logrus.Errorf("trusted step ended with status %s", st.ExitStatus)
		return TrustedResult{Success: true, ExecutionSuccess: boolPtr(false), Stats: st}, nil
	case stats.SandboxError:
		logrus.Error("unexpected sandbox error exit status in trusted step")
		return TrustedResult{Success: false}, nil
	default:
		logrus.Errorf("unrecognized sandbox exit status %s in trusted step", st.ExitStatus)
		return TrustedResult{Success: false}, nil
	}
}
