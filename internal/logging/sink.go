// Package logging decides where log output goes, manages rotation, and
// builds the process-wide zerolog logger. Resolution never fails the
// process: heartbeats are the mission, logging is best effort.
package logging

import "io"

// Mode identifies the resolved log destination variant.
type Mode string

const (
	ModeDisabled Mode = "none"
	ModeStdout   Mode = "stdout"
	ModeStderr   Mode = "stderr"
	ModeFile     Mode = "file"
	ModeDir      Mode = "dir"
)

// Sink is the resolved log destination. It is resolved once at startup and
// immutable afterwards; only the rotating writer behind a directory sink
// mutates its own file handle, under its own lock.
type Sink struct {
	Mode Mode
	Path string // active file or directory for file/dir modes

	writer io.Writer
	closer io.Closer
}

// Writer returns the destination log records are written to.
func (s *Sink) Writer() io.Writer {
	return s.writer
}

// Close flushes and closes the underlying file handle, if any. Part of the
// graceful-shutdown guarantee: call after the last log record is written.
func (s *Sink) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
