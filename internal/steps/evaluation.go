package steps

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/coderunr/gradecore/internal/sandbox"
	"github.com/coderunr/gradecore/internal/stats"
)

// FeedbackLevel controls how much detail human_evaluation_message reveals
// about a killing signal, per spec.md's contestant-feedback tiers.
type FeedbackLevel int

const (
	FeedbackRestricted FeedbackLevel = iota
	FeedbackFull
)

// EvaluationParams collects evaluation_step's optional arguments.
type EvaluationParams struct {
	TimeLimitS      float64 // 0 means "not set"; negative is rejected
	MemoryLimitMiB  int64   // 0 means "not set"; negative is rejected
	AllowDirs       []string
	WritableFiles   []string
	StdinRedirect   string // empty = none
	StdoutRedirect  string // empty = default "stdout.txt"
	Multiprocess    bool
	MaxFileSizeByte int64
}

// EvaluationResult mirrors CompilationResult's three-way outcome shape.
type EvaluationResult struct {
	Success           bool
	EvaluationSuccess *bool
	Stats             *stats.Stats
}

// EvaluationStep executes commands sequentially in sb after configuring it
// for evaluation, stopping early if the sandbox itself fails. Grounded on
// original_source/cms/grading/steps/evaluation.py's evaluation_step.
func EvaluationStep(sb *sandbox.Sandbox, commands [][]string, p EvaluationParams) (EvaluationResult, error) {
	for _, command := range commands {
		ok, err := EvaluationStepBeforeRun(sb, command, p, true)
		if err != nil {
			return EvaluationResult{}, err
		}
		if !ok {
			logrus.Debug("evaluation step failed in before-run phase")
			return EvaluationResult{Success: false}, nil
		}
	}
	return EvaluationStepAfterRun(sb)
}

// EvaluationStepBeforeRun configures sb per p and starts command, either
// blocking (wait=true) or leaving the caller a handle via sb directly (this
// port always runs through ExecuteWithoutStd; non-blocking callers should
// call sb.ExecuteWithoutStd themselves using the same configuration logic
// for Communication's fifo-wired processes).
func EvaluationStepBeforeRun(sb *sandbox.Sandbox, command []string, p EvaluationParams, wait bool) (bool, error) {
	if p.TimeLimitS != 0 && p.TimeLimitS <= 0 {
		return false, fmt.Errorf("steps: time limit must be positive, is %v", p.TimeLimitS)
	}
	if p.MemoryLimitMiB != 0 && p.MemoryLimitMiB <= 0 {
		return false, fmt.Errorf("steps: memory limit must be positive, is %v", p.MemoryLimitMiB)
	}

	stdoutRedirect := p.StdoutRedirect
	if stdoutRedirect == "" {
		stdoutRedirect = "stdout.txt"
	}

	opts := sandbox.Options{
		MemoryLimitBytes: -1,
		FileSizeBytes:    p.MaxFileSizeByte,
		StdinFile:        p.StdinRedirect,
		StdoutFile:       stdoutRedirect,
		StderrFile:       "stderr.txt",
	}
	if p.TimeLimitS > 0 {
		opts.CPUTimeLimitS = p.TimeLimitS
		opts.WallTimeLimitS = 2*p.TimeLimitS + 1
	}
	if p.MemoryLimitMiB > 0 {
		opts.MemoryLimitBytes = p.MemoryLimitMiB * 1024 * 1024
	}
	if p.Multiprocess {
		opts.MaxProcesses = 0
	} else {
		opts.MaxProcesses = 1
	}

	for _, d := range p.AllowDirs {
		_ = sb.AddMappedDirectory(d, "", "", true)
	}

	writable := append([]string{}, p.WritableFiles...)
	writable = append(writable, opts.StderrFile, opts.StdoutFile)
	sb.AllowWritingOnly(writable)

	ok, _, err := sb.ExecuteWithoutStd(command, opts, wait)
	return ok, err
}

// EvaluationStepAfterRun collects stats from the most recent run and
// classifies the outcome, grounded on evaluation_step_after_run.
func EvaluationStepAfterRun(sb *sandbox.Sandbox) (EvaluationResult, error) {
	st := stats.Execution(sb, true)

	switch st.ExitStatus {
	case stats.OK:
		logrus.Debug("evaluation terminated correctly")
		return EvaluationResult{Success: true, EvaluationSuccess: boolPtr(true), Stats: &st}, nil
	case stats.Timeout, stats.TimeoutWall, stats.NonzeroReturn, stats.Signal, stats.MemoryLimit:
		logrus.Debugf("evaluation ended with exit status %s", st.ExitStatus)
		return EvaluationResult{Success: true, EvaluationSuccess: boolPtr(false), Stats: &st}, nil
	case stats.SandboxError:
		logrus.Error("evaluation aborted because of sandbox error")
		return EvaluationResult{Success: false}, nil
	default:
		logrus.Errorf("unrecognized evaluation exit status %s", st.ExitStatus)
		return EvaluationResult{Success: false}, nil
	}
}

func boolPtr(b bool) *bool { return &b }

// HumanEvaluationMessage produces the contestant-facing message for an
// evaluation outcome, per human_evaluation_message. Success and
// sandbox-error conditions yield no message.
func HumanEvaluationMessage(st stats.Stats, level FeedbackLevel) []string {
	switch st.ExitStatus {
	case stats.Timeout:
		return []string{EvaluationMessages.Get("timeout").Message}
	case stats.TimeoutWall:
		return []string{EvaluationMessages.Get("walltimeout").Message}
	case stats.Signal, stats.MemoryLimit:
		if level == FeedbackFull {
			sig := 0
			if st.Signal != nil {
				sig = *st.Signal
			}
			return []string{EvaluationMessages.Get("signal").Message, signalName(sig)}
		}
		return []string{EvaluationMessages.Get("signal_restricted").Message}
	case stats.SandboxError:
		return nil
	case stats.NonzeroReturn:
		return []string{EvaluationMessages.Get("returncode").Message}
	case stats.OK:
		return nil
	default:
		logrus.Errorf("unrecognized exit status for an evaluation: %s", st.ExitStatus)
		return nil
	}
}
