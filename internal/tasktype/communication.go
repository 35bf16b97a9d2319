package tasktype

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"github.com/coderunr/gradecore/internal/compare"
	"github.com/coderunr/gradecore/internal/job"
	"github.com/coderunr/gradecore/internal/language"
	"github.com/coderunr/gradecore/internal/paramtype"
	"github.com/coderunr/gradecore/internal/sandbox"
	"github.com/coderunr/gradecore/internal/stats"
	"github.com/coderunr/gradecore/internal/steps"
)

// communication is the task type for tasks with an admin-controlled
// manager process that talks to one or more user processes over either
// stdin/stdout or named pipes. Grounded on
// original_source/cms/grading/tasktypes/Communication.py.
type communication struct {
	params []paramtype.Parameter
}

const (
	communicationManagerFilename = "manager"
	communicationStubBasename    = "stub"
	communicationInputFilename   = "input.txt"
	communicationOutputFilename  = "output.txt"
)

func init() {
	register(newCommunication())
}

func newCommunication() *communication {
	return &communication{
		params: []paramtype.Parameter{
			paramtype.NewInt("num_processes"),
			paramtype.NewChoice("compilation", map[string]string{
				"alone": "Submissions are self-sufficient",
				"stub":  "Submissions are compiled with a stub",
			}),
			paramtype.NewChoice("user_io", map[string]string{
				"std_io":  "User processes read from stdin and write to stdout",
				"fifo_io": "User processes read from and write to fifos, whose paths are given as arguments",
			}),
		},
	}
}

func (c *communication) Name() string                             { return "Communication" }
func (c *communication) AcceptedParameters() []paramtype.Parameter { return c.params }
func (c *communication) AllowPartialSubmission() bool              { return false }
func (c *communication) Testable() bool                            { return false }

func (c *communication) usesStub(j []any) bool {
	compilation, _ := j[1].(string)
	return compilation == "stub"
}

func (c *communication) usesFifos(j []any) bool {
	io, _ := j[2].(string)
	return io == "fifo_io"
}

func executableFilename(codenames []string, ext string) string {
	sorted := append([]string{}, codenames...)
	sort.Strings(sorted)
	return strings.Join(sorted, "_") + ext
}

func (c *communication) Compile(ctx *Context, j *job.Compilation) error {
	if err := paramtype.ValidateSchema(c.params, j.TaskTypeParameters); err != nil {
		j.Success = boolPtr(false)
		j.Text = []string{"Invalid task parameters", err.Error()}
		return nil
	}
	if len(j.GetFiles()) < 1 {
		j.Success = boolPtr(true)
		j.CompilationSuccess = boolPtr(false)
		j.Text = []string{"Invalid files in submission"}
		return nil
	}

	lang, ok := language.Lookup(j.Language)
	if !ok {
		j.Success = boolPtr(false)
		j.Text = []string{fmt.Sprintf("unknown language %q", j.Language)}
		return nil
	}

	toCompile := []string{}
	toStage := map[string]string{}

	if c.usesStub(j.TaskTypeParameters) {
		stubName := communicationStubBasename + lang.CanonicalExtension()
		stub, err := checkManagerPresent(j.GetManagers(), stubName)
		if err != nil {
			j.Success = boolPtr(true)
			j.CompilationSuccess = boolPtr(false)
			j.Text = []string{err.Error()}
			return nil
		}
		toCompile = append(toCompile, stubName)
		toStage[stubName] = stub.Digest
	}

	var codenames []string
	for name, f := range j.GetFiles() {
		filename := lang.ReplaceLanguageWildcard(name)
		toCompile = append(toCompile, filename)
		toStage[filename] = f.Digest
		codenames = append(codenames, name)
	}

	executableName := executableFilename(codenames, lang.ExecutableExtension)
	commands := lang.CompilationCommands(toCompile, executableName)

	sb, err := createSandbox(ctx, "compile")
	if err != nil {
		j.Success = boolPtr(false)
		return nil
	}
	defer func() { deleteSandbox(ctx, sb, j.Success == nil || *j.Success) }()

	for filename, digest := range toStage {
		if err := sb.CreateFileFromDigest(ctx.Cacher, filename, digest, false); err != nil {
			j.Success = boolPtr(false)
			return err
		}
	}

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
		digest, err := ctx.Cacher.Put(bytes.NewReader(data), fmt.Sprintf("Executable %s for %s", executableName, j.Info))
		if err != nil {
			j.Success = boolPtr(false)
			return err
		}
		j.SetExecutables(map[string]job.File{executableName: {Name: executableName, Digest: digest}})
	}

	return nil
}

// fifoSet holds one bidirectional pipe pair for a single user process,
// plus the host directory they live in (so it can be torn down as a
// unit, mirroring tempfile.mkdtemp's per-process fifo directory).
type fifoSet struct {
	hostDir          string
	innerDir         string
	innerToManager   string
	innerFromManager string
}

func makeFifoSet(scratchRoot string, index int) (fifoSet, error) {
	dir, err := os.MkdirTemp(scratchRoot, fmt.Sprintf("fifo%d-", index))
	if err != nil {
		return fifoSet{}, fmt.Errorf("tasktype: create fifo dir: %w", err)
	}
	toManager := filepath.Join(dir, fmt.Sprintf("u%d_to_m", index))
	fromManager := filepath.Join(dir, fmt.Sprintf("m_to_u%d", index))
	if err := syscall.Mkfifo(toManager, 0o666); err != nil {
		return fifoSet{}, fmt.Errorf("tasktype: mkfifo: %w", err)
	}
	if err := syscall.Mkfifo(fromManager, 0o666); err != nil {
		return fifoSet{}, fmt.Errorf("tasktype: mkfifo: %w", err)
	}
	_ = os.Chmod(dir, 0o755)
	innerDir := fmt.Sprintf("/fifo%d", index)
	return fifoSet{
		hostDir:          dir,
		innerDir:         innerDir,
		innerToManager:   filepath.Join(innerDir, fmt.Sprintf("u%d_to_m", index)),
		innerFromManager: filepath.Join(innerDir, fmt.Sprintf("m_to_u%d", index)),
	}, nil
}

func (c *communication) Evaluate(ctx *Context, ej *job.Evaluation) error {
	if err := paramtype.ValidateSchema(c.params, ej.TaskTypeParameters); err != nil {
		ej.Success = boolPtr(false)
		ej.Text = []string{"Invalid task parameters", err.Error()}
		return nil
	}
	if err := checkExecutablesNumber(ej.GetExecutables(), 1); err != nil {
		ej.Success = boolPtr(false)
		ej.Text = []string{err.Error()}
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

	manager, err := checkManagerPresent(ej.GetManagers(), communicationManagerFilename)
	if err != nil {
		ej.Success = boolPtr(false)
		ej.Text = []string{err.Error()}
		return nil
	}

	numProcessesF, _ := ej.TaskTypeParameters[0].(float64)
	numProcesses := int(numProcessesF)
	if numProcesses < 1 {
		numProcesses = 1
	}

	fifos := make([]fifoSet, numProcesses)
	for i := range fifos {
		fs, err := makeFifoSet(ctx.Config.ScratchRoot, i)
		if err != nil {
			ej.Success = boolPtr(false)
			ej.Text = []string{err.Error()}
			return nil
		}
		fifos[i] = fs
	}
	defer func() {
		for _, fs := range fifos {
			os.RemoveAll(fs.hostDir)
		}
	}()

	sbMgr, err := createSandbox(ctx, "manager_evaluate")
	if err != nil {
		ej.Success = boolPtr(false)
		return nil
	}
	defer func() { deleteSandbox(ctx, sbMgr, ej.Success == nil || *ej.Success) }()

	if err := sbMgr.CreateFileFromDigest(ctx.Cacher, communicationManagerFilename, manager.Digest, true); err != nil {
		ej.Success = boolPtr(false)
		return err
	}
	if err := sbMgr.CreateFileFromDigest(ctx.Cacher, communicationInputFilename, ej.InputDigest, false); err != nil {
		ej.Success = boolPtr(false)
		return err
	}

	sbUsers := make([]*sandbox.Sandbox, numProcesses)
	for i := range sbUsers {
		sb, err := createSandbox(ctx, "user_evaluate")
		if err != nil {
			ej.Success = boolPtr(false)
			return nil
		}
		sbUsers[i] = sb
	}
	defer func() {
		for _, sb := range sbUsers {
			deleteSandbox(ctx, sb, ej.Success == nil || *ej.Success)
		}
	}()

	for i, fs := range fifos {
		if err := sbMgr.AddMappedDirectory(fs.hostDir, fs.innerDir, "rw", false); err != nil {
			ej.Success = boolPtr(false)
			return err
		}
		if err := sbUsers[i].AddMappedDirectory(fs.hostDir, fs.innerDir, "rw", false); err != nil {
			ej.Success = boolPtr(false)
			return err
		}
	}

	managerCommand := []string{"./" + communicationManagerFilename}
	for _, fs := range fifos {
		managerCommand = append(managerCommand, fs.innerToManager, fs.innerFromManager)
	}

	managerTimeLimit := float64(numProcesses) * (ej.TimeLimitS + 1.0)
	if ctx.Config.TrustedTimeLimitS > managerTimeLimit {
		managerTimeLimit = ctx.Config.TrustedTimeLimitS
	}

	managerParams := steps.EvaluationParams{
		TimeLimitS:      managerTimeLimit,
		MemoryLimitMiB:  ctx.Config.TrustedMemoryLimitKB / 1024,
		WritableFiles:   []string{communicationOutputFilename},
		StdinRedirect:   communicationInputFilename,
		Multiprocess:    ej.MultithreadedSandbox,
		MaxFileSizeByte: ctx.Config.MaxOutputFileSizeKB * 1024,
	}
	okMgr, err := steps.EvaluationStepBeforeRun(sbMgr, managerCommand, managerParams, false)
	if err != nil {
		ej.Success = boolPtr(false)
		return err
	}
	if !okMgr {
		ej.Success = boolPtr(false)
		return nil
	}

	main := communicationStubBasename
	if !c.usesStub(ej.TaskTypeParameters) {
		main = lang.StripSourceExtension(execName)
	}

	for i := range sbUsers {
		args := []string{}
		stdinRedirect, stdoutRedirect := "", ""
		if c.usesFifos(ej.TaskTypeParameters) {
			args = append(args, fifos[i].innerFromManager, fifos[i].innerToManager)
		} else {
			stdinRedirect = fifos[i].innerFromManager
			stdoutRedirect = fifos[i].innerToManager
		}
		if numProcesses != 1 {
			args = append(args, strconv.Itoa(i))
		}

		if err := sbUsers[i].CreateFileFromDigest(ctx.Cacher, execName, execDigest, true); err != nil {
			ej.Success = boolPtr(false)
			return err
		}

		commands := lang.EvaluationCommands(execName, main, args)
		if len(commands) > 1 {
			if _, err := steps.TrustedStep(sbUsers[i], commands[:len(commands)-1], trustedOptions(ctx.Config)); err != nil {
				ej.Success = boolPtr(false)
				return err
			}
		}

		userParams := steps.EvaluationParams{
			TimeLimitS:      ej.TimeLimitS,
			MemoryLimitMiB:  int64(ej.MemoryLimitBytes / (1024 * 1024)),
			StdinRedirect:   stdinRedirect,
			StdoutRedirect:  stdoutRedirect,
			Multiprocess:    ej.MultithreadedSandbox,
			MaxFileSizeByte: ctx.Config.MaxOutputFileSizeKB * 1024,
		}
		okUser, err := steps.EvaluationStepBeforeRun(sbUsers[i], commands[len(commands)-1], userParams, false)
		if err != nil {
			ej.Success = boolPtr(false)
			return err
		}
		if !okUser {
			ej.Success = boolPtr(false)
			return nil
		}
	}

	mgrResult, err := steps.EvaluationStepAfterRun(sbMgr)
	if err != nil {
		ej.Success = boolPtr(false)
		return err
	}

	var userStats *stats.Stats
	userSuccess := true
	userEvaluationSuccess := true
	for _, sb := range sbUsers {
		res, err := steps.EvaluationStepAfterRun(sb)
		if err != nil {
			ej.Success = boolPtr(false)
			return err
		}
		if !res.Success {
			userSuccess = false
			continue
		}
		if res.EvaluationSuccess == nil || !*res.EvaluationSuccess {
			userEvaluationSuccess = false
		}
		merged, mergeErr := stats.Merge(userStats, res.Stats, true)
		if mergeErr != nil {
			ej.Success = boolPtr(false)
			return mergeErr
		}
		userStats = &merged
	}

	if userSuccess && userEvaluationSuccess && userStats != nil && userStats.CPUTime != nil && *userStats.CPUTime >= ej.TimeLimitS {
		userEvaluationSuccess = false
		userStats.ExitStatus = stats.Timeout
	}

	success := userSuccess && mgrResult.Success && mgrResult.EvaluationSuccess != nil && *mgrResult.EvaluationSuccess
	ej.Success = boolPtr(success)
	if !success {
		return nil
	}
	ej.Stats = userStats

	switch {
	case ej.OnlyExecution:
		setOutcome(ej, 0.0)
		ej.Text = []string{"Execution completed successfully"}
	case !userEvaluationSuccess:
		setOutcome(ej, 0.0)
		if userStats != nil {
			ej.Text = steps.HumanEvaluationMessage(*userStats, steps.FeedbackRestricted)
		}
	default:
		stdout := ""
		stderr := ""
		if mgrResult.Stats.Stdout != nil {
			stdout = *mgrResult.Stats.Stdout
		}
		if mgrResult.Stats.Stderr != nil {
			stderr = *mgrResult.Stats.Stderr
		}
		outcome, text, err := compare.ExtractOutcomeAndText(stdout, stderr)
		if err != nil {
			ej.Success = boolPtr(false)
			return err
		}
		setOutcome(ej, outcome)
		ej.Text = text
	}

	if ej.GetOutput {
		if sbMgr.FileExists(communicationOutputFilename) {
			data, err := sbMgr.GetFileToBytes(communicationOutputFilename, 100*1024)
			if err == nil {
				if digest, perr := ctx.Cacher.Put(bytes.NewReader(data), fmt.Sprintf("Output file in job %s", ej.Info)); perr == nil {
					ej.UserOutput = &digest
				}
			}
		}
	}

	return nil
}

func checkExecutablesNumber(executables map[string]job.File, expected int) error {
	if len(executables) != expected {
		return fmt.Errorf("tasktype: submission has %d executables, expecting %d", len(executables), expected)
	}
	return nil
}
