package compare

import (
	"fmt"
	"strconv"
	"strings"
)

// CheckerOutputError is raised when the checker's stdout/stderr cannot be
// decoded as the standard manager output: stdout's first line isn't a
// float, or stderr's first line contains forbidden control characters.
// Treated as a SandboxError by callers per spec.md §7.
type CheckerOutputError struct {
	Reason string
}

func (e *CheckerOutputError) Error() string {
	return fmt.Sprintf("checker output error: %s", e.Reason)
}

// translateMessages holds the canonical localized text for the
// "translate:x" convention, grounded on EVALUATION_MESSAGES in
// original_source/cms/grading/steps/evaluation.py.
var translateMessages = map[string]string{
	"success": "Output is correct",
	"partial": "Output is partially correct",
	"wrong":   "Output isn't correct",
}

// sanitizeMessage escapes '%' to '%%' and rejects control characters
// (0x00-0x08, 0x0a-0x1f, 0x7f-0xbf), matching _sanitize_message.
func sanitizeMessage(s string) (string, error) {
	for _, r := range s {
		if (r >= 0x00 && r <= 0x08) || (r >= 0x0a && r <= 0x1f) || (r >= 0x7f && r <= 0xbf) {
			return "", &CheckerOutputError{Reason: fmt.Sprintf("invalid character in outcome: 0x%02x", r)}
		}
	}
	return strings.ReplaceAll(s, "%", "%%"), nil
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return strings.TrimSpace(s[:idx])
	}
	return strings.TrimSpace(s)
}

// ExtractOutcomeAndText parses the standard manager/checker output
// convention: stdout's first line is the outcome, stderr's first line is
// the text (with the translate: convention resolved to a canonical
// message). Per spec.md §4.D / §4.C checker_step.
func ExtractOutcomeAndText(stdout, stderr string) (float64, []string, error) {
	outcomeStr := firstLine(stdout)
	outcome, err := strconv.ParseFloat(outcomeStr, 64)
	if err != nil {
		return 0, nil, &CheckerOutputError{Reason: "outcome is not a float"}
	}

	text, err := sanitizeMessage(firstLine(stderr))
	if err != nil {
		return 0, nil, err
	}

	if strings.HasPrefix(text, "translate:") {
		remaining := strings.TrimSpace(strings.TrimPrefix(text, "translate:"))
		if canonical, ok := translateMessages[remaining]; ok {
			text = canonical
		}
	}

	return outcome, []string{text}, nil
}
