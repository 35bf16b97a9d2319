package sandbox

import (
	"errors"
	"io"
)

// ErrUnsupportedOperation is returned by Truncator.Write: a Truncator is a
// read-only view, matching original_source's Truncator(io.RawIOBase)
// which raises io.UnsupportedOperation on writes.
var ErrUnsupportedOperation = errors.New("sandbox: unsupported operation on a Truncator")

// Truncator wraps an io.ReaderAt to expose at most N bytes starting at
// offset 0. It is used to cache user outputs without loading unbounded
// amounts of sandboxed program output into memory. Binary-only per
// spec.md §9's resolution of the original's text/binary ambiguity.
type Truncator struct {
	src  io.ReaderAt
	size int64
	pos  int64
}

// NewTruncator returns a Truncator exposing at most limit bytes of src.
func NewTruncator(src io.ReaderAt, limit int64) *Truncator {
	return &Truncator{src: src, size: limit}
}

func (t *Truncator) Read(p []byte) (int, error) {
	if t.pos >= t.size {
		return 0, io.EOF
	}
	remaining := t.size - t.pos
	if int64(len(p)) > remaining {
		p = p[:remaining]
	}
	n, err := t.src.ReadAt(p, t.pos)
	t.pos += int64(n)
	if err == io.EOF && n > 0 {
		err = nil
	}
	return n, err
}

// Seek implements io.Seeker. Seeks relative to the end are clamped into
// the truncated range, matching the original's behavior for SEEK_END.
func (t *Truncator) Seek(offset int64, whence int) (int64, error) {
	var newPos int64
	switch whence {
	case io.SeekStart:
		newPos = offset
	case io.SeekCurrent:
		newPos = t.pos + offset
	case io.SeekEnd:
		newPos = t.size + offset
		if newPos > t.size {
			newPos = t.size
		}
	default:
		return 0, errors.New("sandbox: invalid whence")
	}
	if newPos < 0 {
		newPos = 0
	}
	if newPos > t.size {
		newPos = t.size
	}
	t.pos = newPos
	return t.pos, nil
}

func (t *Truncator) Write(p []byte) (int, error) {
	return 0, ErrUnsupportedOperation
}
