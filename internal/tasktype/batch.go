package tasktype

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/coderunr/gradecore/internal/job"
	"github.com/coderunr/gradecore/internal/language"
	"github.com/coderunr/gradecore/internal/paramtype"
	"github.com/coderunr/gradecore/internal/steps"
)

// batch is the task type for a single standalone submission source,
// optionally compiled with a grader and checked with either a
// whitespace-insensitive diff or an external comparator. Grounded on
// original_source/cms/grading/tasktypes/Batch.py's 2-tuple `io`
// parameter revision, which matches spec.md's data model (spec.md §4.F.1
// describes exactly this three-parameter shape).
type batch struct {
	params []paramtype.Parameter
}

func init() {
	register(newBatch())
}

func newBatch() *batch {
	return &batch{
		params: []paramtype.Parameter{
			paramtype.NewChoice("compilation", map[string]string{
				"alone":  "Submissions are self-sufficient",
				"grader": "Submissions are compiled with a grader",
			}),
			paramtype.NewCollection("io", []paramtype.Parameter{
				paramtype.NewString("inputfile"),
				paramtype.NewString("outputfile"),
			}),
			paramtype.NewChoice("output_eval", map[string]string{
				"diff":       "Outputs compared with white diff",
				"comparator": "Outputs are compared by a comparator",
			}),
		},
	}
}

func (b *batch) Name() string                             { return "Batch" }
func (b *batch) AcceptedParameters() []paramtype.Parameter { return b.params }
func (b *batch) AllowPartialSubmission() bool              { return false }
func (b *batch) Testable() bool                            { return true }

func (b *batch) Compile(ctx *Context, j *job.Compilation) error {
	if err := paramtype.ValidateSchema(b.params, j.TaskTypeParameters); err != nil {
		j.Success = boolPtr(false)
		j.Text = []string{"Invalid task parameters", err.Error()}
		return nil
	}
	if err := checkFilesNumber(j.GetFiles(), 1); err != nil {
		j.Success = boolPtr(true)
		j.CompilationSuccess = boolPtr(false)
		j.Text = []string{"Invalid files in submission", err.Error()}
		return nil
	}

	lang, ok := language.Lookup(j.Language)
	if !ok {
		j.Success = boolPtr(false)
		j.Text = []string{fmt.Sprintf("unknown language %q", j.Language)}
		return nil
	}

	var sourceName, sourceDigest string
	for name, f := range j.GetFiles() {
		sourceName, sourceDigest = name, f.Digest
	}

	sb, err := createSandbox(ctx, j.Info)
	if err != nil {
		j.Success = boolPtr(false)
		return nil
	}
	defer func() {
		deleteSandbox(ctx, sb, j.Success == nil || *j.Success)
	}()

	sourceFilenames := []string{sourceName}
	if err := sb.CreateFileFromDigest(ctx.Cacher, sourceName, sourceDigest, false); err != nil {
		j.Success = boolPtr(false)
		return err
	}

	if j.TaskTypeParameters[0] == "grader" {
		graderName := lang.ReplaceLanguageWildcard("grader.%l")
		grader, gerr := checkManagerPresent(j.GetManagers(), graderName)
		if gerr != nil {
			j.Success = boolPtr(true)
			j.CompilationSuccess = boolPtr(false)
			j.Text = []string{gerr.Error()}
			return nil
		}
		if err := sb.CreateFileFromDigest(ctx.Cacher, graderName, grader.Digest, false); err != nil {
			j.Success = boolPtr(false)
			return err
		}
		sourceFilenames = append(sourceFilenames, graderName)
	}

	executableName := lang.StripSourceExtension(sourceName)
	commands := lang.CompilationCommands(sourceFilenames, executableName)

	result, err := steps.CompilationStep(sb, commands, compileOptions(ctx.Config))
	if err != nil {
		j.Success = boolPtr(false)
		return err
	}

	j.Success = boolPtr(result.Success)
	j.CompilationSuccess = result.CompilationSuccess
	j.Text = result.Text
	j.Stats = result.Stats

	if result.Success && result.CompilationSuccess != nil && *result.CompilationSuccess {
		data, err := sb.GetFileToBytes(executableName, 0)
		if err != nil {
			j.Success = boolPtr(false)
			return err
		}
		digest, err := ctx.Cacher.Put(bytes.NewReader(data), fmt.Sprintf("Executable %s", executableName))
		if err != nil {
			j.Success = boolPtr(false)
			return err
		}
		j.SetExecutables(map[string]job.File{executableName: {Name: executableName, Digest: digest}})
	}

	return nil
}

func (b *batch) Evaluate(ctx *Context, ej *job.Evaluation) error {
	if err := paramtype.ValidateSchema(b.params, ej.TaskTypeParameters); err != nil {
		ej.Success = boolPtr(false)
		ej.Text = []string{"Invalid task parameters", err.Error()}
		return nil
	}

	lang, ok := language.Lookup(ej.Language)
	if !ok {
		ej.Success = boolPtr(false)
		ej.Text = []string{fmt.Sprintf("unknown language %q", ej.Language)}
		return nil
	}

	var execName, execDigest string
	for name, f := range ej.GetExecutables() {
		execName, execDigest = name, f.Digest
	}
	command := lang.EvaluationCommands(execName, "", nil)[0]

	io, _ := ej.TaskTypeParameters[1].([]any)
	inputFilename, _ := io[0].(string)
	outputFilename, _ := io[1].(string)
	stdinRedirect, stdoutRedirect := "", ""
	if inputFilename == "" {
		inputFilename = "input.txt"
		stdinRedirect = inputFilename
	}
	if outputFilename == "" {
		outputFilename = "output.txt"
		stdoutRedirect = outputFilename
	}

	sb, err := createSandbox(ctx, ej.Info)
	if err != nil {
		ej.Success = boolPtr(false)
		return nil
	}
	defer func() {
		deleteSandbox(ctx, sb, ej.Success == nil || *ej.Success)
	}()

	if err := sb.CreateFileFromDigest(ctx.Cacher, execName, execDigest, true); err != nil {
		ej.Success = boolPtr(false)
		return err
	}
	if err := sb.CreateFileFromDigest(ctx.Cacher, inputFilename, ej.InputDigest, false); err != nil {
		ej.Success = boolPtr(false)
		return err
	}

	params := steps.EvaluationParams{
		TimeLimitS:      ej.TimeLimitS,
		MemoryLimitMiB:  int64(ej.MemoryLimitBytes / (1024 * 1024)),
		WritableFiles:   []string{outputFilename},
		StdinRedirect:   stdinRedirect,
		StdoutRedirect:  stdoutRedirect,
		Multiprocess:    ej.MultithreadedSandbox,
		MaxFileSizeByte: ctx.Config.MaxOutputFileSizeKB * 1024,
	}

	result, err := steps.EvaluationStep(sb, [][]string{command}, params)
	if err != nil {
		ej.Success = boolPtr(false)
		return err
	}
	ej.Stats = result.Stats

	if !result.Success {
		ej.Success = boolPtr(false)
		return nil
	}
	ej.Success = boolPtr(true)

	if result.EvaluationSuccess == nil || !*result.EvaluationSuccess {
		setOutcome(ej, 0.0)
		ej.Text = steps.HumanEvaluationMessage(*result.Stats, steps.FeedbackRestricted)
		return nil
	}

	switch {
	case ej.OnlyExecution:
		setOutcome(ej, 0.0)
		ej.Text = []string{"Execution completed successfully"}
	default:
		outcomeEval, _ := ej.TaskTypeParameters[2].(string)
		switch outcomeEval {
		case "diff":
			if err := sb.CreateFileFromDigest(ctx.Cacher, "res.txt", ej.CorrectOutputDigest, false); err != nil {
				ej.Success = boolPtr(false)
				return err
			}
			outcome, text, err := steps.WhiteDiffStep(sb, outputFilename, "res.txt")
			if err != nil {
				ej.Success = boolPtr(false)
				return err
			}
			setOutcome(ej, outcome)
			ej.Text = text
		case "comparator":
			var checkerDigest string
			for _, f := range ej.GetManagers() {
				checkerDigest = f.Digest
			}
			checkerResult, err := steps.CheckerStep(sb, trustedOptions(ctx.Config), &checkerDigest, ej.InputDigest, ej.CorrectOutputDigest, ctx.Cacher, outputFilename, nil)
			if err != nil {
				ej.Success = boolPtr(false)
				return err
			}
			if !checkerResult.Success {
				ej.Success = boolPtr(false)
				return nil
			}
			setOutcome(ej, checkerResult.Outcome)
			ej.Text = checkerResult.Text
		default:
			ej.Success = boolPtr(false)
			ej.Text = []string{fmt.Sprintf("unrecognized output_eval %q for Batch task type", outcomeEval)}
		}
	}

	if ej.GetOutput && sb.FileExists(outputFilename) {
		data, err := sb.GetFileToBytes(outputFilename, ctx.Config.MaxOutputFileSizeKB*1024)
		if err == nil {
			if digest, perr := ctx.Cacher.Put(bytes.NewReader(data), "user output"); perr == nil {
				ej.UserOutput = &digest
			}
		}
	}

	return nil
}

func boolPtr(b bool) *bool { return &b }

func setOutcome(ej *job.Evaluation, outcome float64) {
	s := strconv.FormatFloat(outcome, 'f', -1, 64)
	ej.Outcome = &s
}
