package sandbox

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncatorReadsAtMostLimit(t *testing.T) {
	data := bytes.Repeat([]byte("x"), 1000)
	for _, chunk := range []int{1, 7, 64, 4096} {
		tr := NewTruncator(bytes.NewReader(data), 256)
		total := 0
		buf := make([]byte, chunk)
		for {
			n, err := tr.Read(buf)
			total += n
			if err == io.EOF {
				break
			}
			assert.NoError(t, err)
		}
		assert.Equal(t, 256, total)
	}
}

func TestTruncatorWriteUnsupported(t *testing.T) {
	tr := NewTruncator(bytes.NewReader([]byte("abc")), 3)
	_, err := tr.Write([]byte("x"))
	assert.ErrorIs(t, err, ErrUnsupportedOperation)
}

func TestTruncatorSeekEndClamped(t *testing.T) {
	data := bytes.Repeat([]byte("y"), 1000)
	tr := NewTruncator(bytes.NewReader(data), 100)
	pos, err := tr.Seek(0, io.SeekEnd)
	assert.NoError(t, err)
	assert.Equal(t, int64(100), pos)

	pos, err = tr.Seek(50, io.SeekEnd)
	assert.NoError(t, err)
	assert.Equal(t, int64(100), pos)
}
