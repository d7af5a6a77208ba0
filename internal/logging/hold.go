package logging

import (
	"bytes"
	"fmt"
	"io"
	"sync"
)

const defaultHoldLimit = 1 << 20

// HoldWriter serialises writes to an underlying writer and can hold them back
// while something else owns that writer, such as a terminal UI. Held output
// is written in order on Release. Past the hold limit, further output is
// dropped and counted.
type HoldWriter struct {
	mu      sync.Mutex
	out     io.Writer
	limit   int
	held    bool
	buf     bytes.Buffer
	dropped int
}

func NewHoldWriter(out io.Writer) *HoldWriter {
	return &HoldWriter{out: out, limit: defaultHoldLimit}
}

func (w *HoldWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.held {
		return w.out.Write(p)
	}
	if w.buf.Len()+len(p) > w.limit {
		w.dropped += len(p)
		return len(p), nil
	}
	return w.buf.Write(p)
}

func (w *HoldWriter) Hold() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.held = true
}

// Release writes out everything held since Hold and resumes direct writes.
func (w *HoldWriter) Release() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.held {
		return nil
	}
	w.held = false

	_, err := w.buf.WriteTo(w.out)
	w.buf.Reset()
	if w.dropped > 0 && err == nil {
		_, err = fmt.Fprintf(w.out, "(%d bytes of log output dropped while held)\n", w.dropped)
	}
	w.dropped = 0
	return err
}
