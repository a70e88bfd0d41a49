package logging

import (
	"fmt"
	"io"
	"path/filepath"
	"sync/atomic"

	"gopkg.in/natefinch/lumberjack.v2"
)

// logFileName is the active file name inside a directory sink. Rotated
// copies get lumberjack's timestamp suffix.
const logFileName = "pushmon.log"

// NewRotatingWriter returns a size-rotated writer for dir. maxBytes is the
// rotation threshold, rounded to the nearest MiB because rotation works in
// whole mebibytes; thresholds under half a MiB are clamped to 1 MiB.
// maxBackups is how many rotated files to keep, 0 meaning keep everything
// (retention is the operator's responsibility).
func NewRotatingWriter(dir string, maxBytes int64, maxBackups int) io.WriteCloser {
	const miB = 1024 * 1024
	maxMB := int((maxBytes + miB/2) / miB)
	if maxMB < 1 {
		maxMB = 1
	}
	return &lumberjack.Logger{
		Filename:   filepath.Join(dir, logFileName),
		MaxSize:    maxMB,
		MaxBackups: maxBackups,
	}
}

// FailsafeWriter degrades to a no-op after the first write failure instead
// of propagating errors into the scheduler loop. The failure is reported
// once to stderr as a last resort.
type FailsafeWriter struct {
	out      io.WriteCloser
	stderr   io.Writer
	degraded atomic.Bool
}

// NewFailsafeWriter wraps out with the degrade-on-failure policy.
func NewFailsafeWriter(out io.WriteCloser, stderr io.Writer) *FailsafeWriter {
	return &FailsafeWriter{out: out, stderr: stderr}
}

func (w *FailsafeWriter) Write(p []byte) (int, error) {
	if w.degraded.Load() {
		return len(p), nil
	}
	n, err := w.out.Write(p)
	if err != nil {
		w.degraded.Store(true)
		fmt.Fprintf(w.stderr, "pushmon: disabling log writes after error: %v\n", err)
		return len(p), nil
	}
	return n, nil
}

// Close closes the wrapped writer. A degraded writer still closes cleanly.
func (w *FailsafeWriter) Close() error {
	return w.out.Close()
}

// Degraded reports whether a write failure has silenced this writer.
func (w *FailsafeWriter) Degraded() bool {
	return w.degraded.Load()
}
