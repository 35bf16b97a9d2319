package steps

import (
	"github.com/sirupsen/logrus"

	"github.com/coderunr/gradecore/internal/compare"
	"github.com/coderunr/gradecore/internal/sandbox"
)

// Filenames used for input and correct output in the checker sandbox,
// grounded on CHECKER_INPUT_FILENAME / CHECKER_CORRECT_OUTPUT_FILENAME /
// CHECKER_FILENAME in original_source/cms/grading/steps/trusted.py.
const (
	CheckerInputFilename         = "input.txt"
	CheckerCorrectOutputFilename = "correct_output.txt"
	CheckerFilename              = "checker"
)

// CheckerResult is checker_step's three-way outcome.
type CheckerResult struct {
	Success bool
	Outcome float64
	Text    []string
}

// CheckerStep stages the checker, the input and the correct output into sb
// (which must already contain the user's output at outputFilename), runs
// it through TrustedStep, and parses a standard manager output from its
// stdout/stderr.
func CheckerStep(sb *sandbox.Sandbox, p TrustedParams, checkerDigest *string, inputDigest, correctOutputDigest string, cacher sandbox.DigestGetter, outputFilename string, extraArgs []string) (CheckerResult, error) {
	for _, filename := range []string{CheckerInputFilename, CheckerCorrectOutputFilename, CheckerFilename} {
		if sb.FileExists(filename) {
			logrus.Errorf("file %s already in the sandbox for the checker", filename)
			return CheckerResult{Success: false}, nil
		}
	}

	if checkerDigest == nil {
		logrus.Error("configuration error: missing checker in task managers")
		return CheckerResult{Success: false}, nil
	}
	if err := sb.CreateFileFromDigest(cacher, CheckerFilename, *checkerDigest, true); err != nil {
		return CheckerResult{}, err
	}
	if err := sb.CreateFileFromDigest(cacher, CheckerInputFilename, inputDigest, false); err != nil {
		return CheckerResult{}, err
	}
	if err := sb.CreateFileFromDigest(cacher, CheckerCorrectOutputFilename, correctOutputDigest, false); err != nil {
		return CheckerResult{}, err
	}

	command := append([]string{"./" + CheckerFilename, CheckerInputFilename, CheckerCorrectOutputFilename, outputFilename}, extraArgs...)

	result, err := TrustedStep(sb, [][]string{command}, p)
	if err != nil {
		return CheckerResult{}, err
	}
	if !result.Success || result.ExecutionSuccess == nil || !*result.ExecutionSuccess {
		logrus.Error("sandbox failed during checker step")
		return CheckerResult{Success: false}, nil
	}

	stdout := ""
	if result.Stats.Stdout != nil {
		stdout = *result.Stats.Stdout
	}
	stderr := ""
	if result.Stats.Stderr != nil {
		stderr = *result.Stats.Stderr
	}

	outcome, text, err := compare.ExtractOutcomeAndText(stdout, stderr)
	if err != nil {
		logrus.Errorf("invalid output from checker: %v", err)
		return CheckerResult{Success: false}, nil
	}

	return CheckerResult{Success: true, Outcome: outcome, Text: text}, nil
}
