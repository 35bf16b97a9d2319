package sandbox

import (
	"io"
	"time"
)

const drainChunkSize = 8 * 1024
const drainPollInterval = time.Second

// WaitAndDrain implements spec.md §5's "draining of co-running sandboxed
// processes": close every child's stdin first, then repeatedly read
// bounded chunks from whichever stdout/stderr streams are still open and
// discard them, until every child has terminated, then reap exit codes.
// This bounds memory regardless of how much a child writes, and avoids
// deadlocking on pipe back-pressure, without requiring a portable
// multi-fd select over *os.File (which Go does not expose) — each stream
// gets its own reader goroutine feeding a done channel, mirroring the
// same shape as the teacher's own streamOutput/readWithLimit pair.
func WaitAndDrain(handles []*ChildHandle) []error {
	for _, h := range handles {
		if h.stdin != nil {
			h.stdin.Close()
		}
	}

	type stream struct {
		handle *ChildHandle
		r      io.ReadCloser
		done   chan struct{}
	}

	var streams []*stream
	for _, h := range handles {
		if h.stdout != nil {
			streams = append(streams, &stream{handle: h, r: h.stdout, done: make(chan struct{})})
		}
		if h.stderr != nil {
			streams = append(streams, &stream{handle: h, r: h.stderr, done: make(chan struct{})})
		}
	}

	for _, st := range streams {
		go func(st *stream) {
			defer close(st.done)
			buf := make([]byte, drainChunkSize)
			for {
				_, err := st.r.Read(buf)
				if err != nil {
					return
				}
			}
		}(st)
	}

	for _, st := range streams {
		<-st.done
	}

	errs := make([]error, len(handles))
	for i, h := range handles {
		errs[i] = h.Wait()
	}
	return errs
}
