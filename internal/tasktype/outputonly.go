package tasktype

import (
	"github.com/coderunr/gradecore/internal/job"
	"github.com/coderunr/gradecore/internal/paramtype"
	"github.com/coderunr/gradecore/internal/steps"
)

// outputOnly is the task type for tasks where the submission is the
// expected output itself, one file per testcase, checked by white diff
// or a comparator. There is nothing to compile. Grounded on
// original_source/cms/grading/tasktypes/OutputOnly.py and its
// eval_output helper in tasktypes/util.py.
type outputOnly struct {
	params []paramtype.Parameter
}

const (
	outputOnlyCheckerCodename    = "checker"
	outputOnlyUserOutputEvalName = "user_output.txt"
)

func init() {
	register(newOutputOnly())
}

func newOutputOnly() *outputOnly {
	return &outputOnly{
		params: []paramtype.Parameter{
			paramtype.NewChoice("output_eval", map[string]string{
				"diff":       "Outputs compared with white diff",
				"comparator": "Outputs are compared by a comparator",
			}),
		},
	}
}

func (o *outputOnly) Name() string                             { return "Output only" }
func (o *outputOnly) AcceptedParameters() []paramtype.Parameter { return o.params }
func (o *outputOnly) AllowPartialSubmission() bool              { return true }
func (o *outputOnly) Testable() bool                            { return false }

func (o *outputOnly) usesChecker(params []any) bool {
	v, _ := params[0].(string)
	return v == "comparator"
}

func userOutputFilename(testcaseCodename string) string {
	return testcaseCodename + ".out"
}

// Compile is a no-op: OutputOnly submissions are the output itself.
func (o *outputOnly) Compile(ctx *Context, j *job.Compilation) error {
	j.Success = boolPtr(true)
	j.CompilationSuccess = boolPtr(true)
	j.Text = []string{"No compilation needed"}
	return nil
}

func (o *outputOnly) Evaluate(ctx *Context, ej *job.Evaluation) error {
	if err := paramtype.ValidateSchema(o.params, ej.TaskTypeParameters); err != nil {
		ej.Success = boolPtr(false)
		ej.Text = []string{"Invalid task parameters", err.Error()}
		return nil
	}

	filename := userOutputFilename(ej.Operation)
	userFile, submitted := ej.GetFiles()[filename]
	if !submitted {
		ej.Success = boolPtr(true)
		setOutcome(ej, 0.0)
		ej.Text = []string{"File not submitted"}
		return nil
	}

	if o.usesChecker(ej.TaskTypeParameters) {
		checker, err := checkManagerPresent(ej.GetManagers(), outputOnlyCheckerCodename)
		if err != nil {
			ej.Success = boolPtr(false)
			ej.Text = []string{err.Error()}
			return nil
		}

		sb, err := createSandbox(ctx, "check")
		if err != nil {
			ej.Success = boolPtr(false)
			return nil
		}
		defer func() { deleteSandbox(ctx, sb, ej.Success == nil || *ej.Success) }()

		if err := sb.CreateFileFromDigest(ctx.Cacher, outputOnlyUserOutputEvalName, userFile.Digest, false); err != nil {
			ej.Success = boolPtr(false)
			return err
		}

		checkerDigest := checker.Digest
		result, err := steps.CheckerStep(sb, trustedOptions(ctx.Config), &checkerDigest, ej.InputDigest, ej.CorrectOutputDigest, ctx.Cacher, outputOnlyUserOutputEvalName, nil)
		if err != nil {
			ej.Success = boolPtr(false)
			return err
		}
		ej.Success = boolPtr(result.Success)
		if !result.Success {
			return nil
		}
		setOutcome(ej, result.Outcome)
		ej.Text = result.Text
		return nil
	}

	userOutputData, err := ctx.Cacher.Get(userFile.Digest)
	if err != nil {
		ej.Success = boolPtr(false)
		return err
	}
	correctOutputData, err := ctx.Cacher.Get(ej.CorrectOutputDigest)
	if err != nil {
		ej.Success = boolPtr(false)
		return err
	}

	outcome, text := steps.WhiteDiffFobjStep(userOutputData, correctOutputData)
	ej.Success = boolPtr(true)
	setOutcome(ej, outcome)
	ej.Text = text
	return nil
}
