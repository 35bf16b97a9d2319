package sandbox

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/coderunr/gradecore/internal/stats"
)

func TestClassifyExitStatus(t *testing.T) {
	cases := []struct {
		name   string
		m      meta
		expect stats.ExitStatus
	}{
		{"ok", meta{}, stats.OK},
		{"xx-wins", meta{statusList: []string{"TO", "XX"}}, stats.SandboxError},
		{"timeout-wall", meta{statusList: []string{"TO"}, message: "wall clock exceeded"}, stats.TimeoutWall},
		{"timeout-plain", meta{statusList: []string{"TO"}, message: "cpu time exceeded"}, stats.Timeout},
		{"signal-plain", meta{statusList: []string{"SG"}}, stats.Signal},
		{"signal-oom", meta{statusList: []string{"SG"}, cgOOMKilled: true}, stats.MemoryLimit},
		{"nonzero", meta{statusList: []string{"RE"}}, stats.NonzeroReturn},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.expect, c.m.classify())
		})
	}
}

func TestParseMetaToleratesUnknownKeys(t *testing.T) {
	raw := []byte("time:1.50\ntime-wall:2.00\ncg-mem:4096\nexitcode:0\nsome-future-key:xyz\nstatus:RE\n")
	m := parseMeta(raw)
	assert.True(t, m.hasCPUTime)
	assert.InDelta(t, 1.5, m.cpuTime, 1e-9)
	assert.True(t, m.hasMemory)
	assert.Equal(t, uint64(4096*1024), m.memoryBytes)
	assert.Equal(t, stats.NonzeroReturn, m.classify())
}

func TestIDAllocatorRangePerShard(t *testing.T) {
	a := NewIDAllocator(2)
	for i := 0; i < 25; i++ {
		id := a.Next()
		assert.GreaterOrEqual(t, id, int32(30))
		assert.Less(t, id, int32(40))
	}
}

func TestIsSecureCommand(t *testing.T) {
	assert.True(t, isSecureCommand([]string{"/bin/cp", "-r", "a", "b"}))
	assert.True(t, isSecureCommand([]string{"/usr/bin/zip"}))
	assert.False(t, isSecureCommand([]string{"/bin/rm", "-rf", "/"}))
	assert.False(t, isSecureCommand(nil))
}
