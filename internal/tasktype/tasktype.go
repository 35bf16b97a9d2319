// Package tasktype implements the three task types (spec component F):
// Batch, Communication and OutputOnly. Each validates its own parameter
// schema and orchestrates staging → grading step → finalization for
// compilation and evaluation; the shared sandbox-lifecycle and guard
// helpers in this file are grounded on
// original_source/cms/grading/TaskType.py's module-level functions and
// base class.
package tasktype

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/coderunr/gradecore/internal/config"
	"github.com/coderunr/gradecore/internal/filecacher"
	"github.com/coderunr/gradecore/internal/job"
	"github.com/coderunr/gradecore/internal/paramtype"
	"github.com/coderunr/gradecore/internal/sandbox"
	"github.com/coderunr/gradecore/internal/steps"
)

// Context bundles the collaborators every task type needs but that spec.md
// §9's "explicit passing" design note says must never be stashed on the
// task type itself, to avoid the reference implementation's import-cycle
// workaround: the file cacher, config and box-id allocator are passed
// down to Compile/Evaluate as parameters instead.
type Context struct {
	Config *config.Config
	Cacher filecacher.FileCacher
	Alloc  *sandbox.IDAllocator
	Log    *logrus.Logger
}

// TaskType is implemented by Batch, Communication and OutputOnly.
type TaskType interface {
	Name() string
	AcceptedParameters() []paramtype.Parameter
	// AllowPartialSubmission mirrors TaskType.ALLOW_PARTIAL_SUBMISSION:
	// whether a job missing a required user file should be graded as a
	// 0.0 outcome (true) or refused as a configuration error (false).
	AllowPartialSubmission() bool
	Testable() bool

	Compile(ctx *Context, j *job.Compilation) error
	Evaluate(ctx *Context, j *job.Evaluation) error
}

// Registry of built-in task types by name, populated by each task type's
// init().
var registry = map[string]TaskType{}

func register(t TaskType) { registry[t.Name()] = t }

// Lookup returns the task type by name, or (nil, false).
func Lookup(name string) (TaskType, bool) {
	t, ok := registry[name]
	return t, ok
}

// Dispatch is Lookup with an error return, for callers (the CLI, a
// worker's job loop) that just want to fail fast on an unknown task type
// rather than branch on the boolean themselves.
func Dispatch(name string) (TaskType, error) {
	t, ok := Lookup(name)
	if !ok {
		return nil, fmt.Errorf("tasktype: unknown task type %q", name)
	}
	return t, nil
}

// createSandbox allocates a box id from ctx.Alloc and creates a fresh
// sandbox tagged for this job's operation, grounded on
// TaskType.py's create_sandbox. A creation failure is reported as a
// *sandbox.SandboxCreationError, which callers treat as a job-level
// infrastructure failure (Compile/Evaluate returns success=false), not a
// panic.
func createSandbox(ctx *Context, tag string) (*sandbox.Sandbox, error) {
	if tag == "" {
		tag = uuid.NewString()
	}
	boxID := ctx.Alloc.Next()
	sb, err := sandbox.New(ctx.Config.ScratchRoot, boxID, tag, ctx.Log)
	if err != nil {
		ctx.Log.WithError(err).Error("couldn't create sandbox")
		return nil, err
	}
	return sb, nil
}

// deleteSandbox deletes sb unless the global keep_sandbox setting is on
// or the job failed (jobSuccess false), grounded on TaskType.py's
// delete_sandbox. Jobs carry no retention flag of their own, so a
// successful job's sandbox is always deleted when keep_sandbox is off.
func deleteSandbox(ctx *Context, sb *sandbox.Sandbox, jobSuccess bool) {
	keep := ctx.Config.KeepSandbox || !jobSuccess
	if keep {
		return
	}
	if err := sb.Cleanup(true); err != nil {
		ctx.Log.WithError(err).Warn("couldn't delete sandbox")
	}
}

// checkFilesNumber guards against a submission whose file count doesn't
// match what this task type expects, matching the ad hoc len(...) checks
// scattered through the tasktype modules (e.g. Batch.compile's
// len(submission.files) != 1 check).
func checkFilesNumber(files map[string]job.File, expected int) error {
	if len(files) != expected {
		return fmt.Errorf("tasktype: submission contains %d files, expecting %d", len(files), expected)
	}
	return nil
}

// checkManagerPresent guards a manager lookup that the task type requires
// to proceed (e.g. a grader, a checker), returning a descriptive error
// instead of a zero-value File on a configuration mistake.
func checkManagerPresent(managers map[string]job.File, name string) (job.File, error) {
	m, ok := managers[name]
	if !ok {
		return job.File{}, fmt.Errorf("tasktype: missing required manager %q", name)
	}
	return m, nil
}

// compileOptions translates the process-wide compiler resource limits
// into sandbox options shared by every task type's Compile step.
func compileOptions(cfg *config.Config) sandbox.Options {
	return sandbox.Options{
		CPUTimeLimitS:    cfg.CompileTimeLimitS,
		WallTimeLimitS:   2*cfg.CompileTimeLimitS + 1,
		MemoryLimitBytes: cfg.CompileMemoryLimitKB * 1024,
		MaxProcesses:     cfg.CompileProcessLimit,
		PreserveEnv:      true,
	}
}

// trustedOptions translates the process-wide trusted-manager resource
// limits (checkers, communication managers) into steps.TrustedParams.
func trustedOptions(cfg *config.Config) steps.TrustedParams {
	return steps.TrustedParams{
		MaxProcesses: cfg.TrustedProcessLimit,
		MaxTimeS:     cfg.TrustedTimeLimitS,
		MaxMemoryKiB: cfg.TrustedMemoryLimitKB,
	}
}
