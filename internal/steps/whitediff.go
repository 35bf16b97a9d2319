package steps

import (
	"github.com/coderunr/gradecore/internal/compare"
	"github.com/coderunr/gradecore/internal/sandbox"
)

// WhiteDiffFobjStep compares two already-read byte buffers, grounded on
// white_diff_fobj_step.
func WhiteDiffFobjStep(output, correct []byte) (float64, []string) {
	if compare.WhiteDiffBytes(output, correct) {
		return 1.0, []string{EvaluationMessages.Get("success").Message}
	}
	return 0.0, []string{EvaluationMessages.Get("wrong").Message}
}

// WhiteDiffStep compares outputFilename against correctOutputFilename
// inside sb, yielding outcome 0.0 with a "missing output" message when
// outputFilename doesn't exist, grounded on white_diff_step.
func WhiteDiffStep(sb *sandbox.Sandbox, outputFilename, correctOutputFilename string) (float64, []string, error) {
	if !sb.FileExists(outputFilename) {
		return 0.0, []string{EvaluationMessages.Get("nooutput").Message, outputFilename}, nil
	}
	out, err := sb.GetFileToBytes(outputFilename, 0)
	if err != nil {
		return 0, nil, err
	}
	correct, err := sb.GetFileToBytes(correctOutputFilename, 0)
	if err != nil {
		return 0, nil, err
	}
	outcome, text := WhiteDiffFobjStep(out, correct)
	return outcome, text, nil
}
