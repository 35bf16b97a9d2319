package sandbox

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"

	"github.com/coderunr/gradecore/internal/stats"
)

// meta holds the parsed contents of one run.log.<n> meta file, plus the
// classification derived from it. Grounded on the key set documented in
// spec.md §6 "Meta file format" and the helper's status tokens described
// in §4.A.
type meta struct {
	cpuTime     float64
	hasCPUTime  bool
	wallTime    float64
	hasWallTime bool
	memoryBytes uint64
	hasMemory   bool
	exitCode    int
	hasExitCode bool
	exitSignal  int
	hasSignal   bool
	message     string
	statusList  []string
	cgOOMKilled bool
}

// parseMeta parses the text key:value lines written by the helper.
// Unknown keys are tolerated and ignored, per spec.md §6.
func parseMeta(raw []byte) meta {
	var m meta
	sc := bufio.NewScanner(bytes.NewReader(raw))
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		idx := strings.IndexByte(line, ':')
		if idx < 0 {
			continue
		}
		key := line[:idx]
		val := line[idx+1:]
		switch key {
		case "time":
			if v, err := strconv.ParseFloat(val, 64); err == nil {
				m.cpuTime = v
				m.hasCPUTime = true
			}
		case "time-wall":
			if v, err := strconv.ParseFloat(val, 64); err == nil {
				m.wallTime = v
				m.hasWallTime = true
			}
		case "max-rss", "cg-mem":
			if v, err := strconv.ParseUint(val, 10, 64); err == nil {
				m.memoryBytes = v * 1024
				m.hasMemory = true
			}
		case "exitcode":
			if v, err := strconv.Atoi(val); err == nil {
				m.exitCode = v
				m.hasExitCode = true
			}
		case "exitsig":
			if v, err := strconv.Atoi(val); err == nil {
				m.exitSignal = v
				m.hasSignal = true
			}
		case "status":
			m.statusList = append(m.statusList, val)
		case "message":
			m.message = val
		case "cg-oom-killed":
			m.cgOOMKilled = true
		}
	}
	return m
}

func hasStatus(list []string, tok string) bool {
	for _, s := range list {
		if s == tok {
			return true
		}
	}
	return false
}

// classify implements spec.md §4.A's exit-status classification rules.
func (m meta) classify() stats.ExitStatus {
	switch {
	case hasStatus(m.statusList, "XX"):
		return stats.SandboxError
	case hasStatus(m.statusList, "TO"):
		if strings.Contains(strings.ToLower(m.message), "wall") {
			return stats.TimeoutWall
		}
		return stats.Timeout
	case hasStatus(m.statusList, "SG"):
		if m.cgOOMKilled {
			return stats.MemoryLimit
		}
		return stats.Signal
	case hasStatus(m.statusList, "RE"):
		return stats.NonzeroReturn
	default:
		return stats.OK
	}
}

func (m meta) humanExitDescription() string {
	switch m.classify() {
	case stats.TimeoutWall:
		return "Execution timed out (wall clock limit)"
	case stats.Timeout:
		return "Execution timed out"
	case stats.MemoryLimit:
		return "Execution killed (memory limit exceeded)"
	case stats.Signal:
		return "Execution killed with signal " + strconv.Itoa(m.exitSignal)
	case stats.NonzeroReturn:
		return "Execution failed with non-zero return code " + strconv.Itoa(m.exitCode)
	case stats.SandboxError:
		return "Sandbox error: " + m.message
	default:
		return "Execution completed"
	}
}
