package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger builds the process logger over the resolved sink. File and
// directory sinks duplicate warnings (everything from Info up when verbose)
// to stdout so an attached terminal still sees problems. runID tags every
// record with this process invocation.
func NewLogger(sink *Sink, verbose bool, runID string) zerolog.Logger {
	if sink.Mode == ModeDisabled {
		return zerolog.Nop()
	}

	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	out := sink.Writer()
	if sink.Mode == ModeFile || sink.Mode == ModeDir {
		echoLevel := zerolog.WarnLevel
		if verbose {
			echoLevel = zerolog.InfoLevel
		}
		echo := minLevelWriter{
			w:   zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339},
			min: echoLevel,
		}
		out = zerolog.MultiLevelWriter(out, echo)
	}

	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("run_id", runID).
		Logger()
}

// minLevelWriter passes through records at or above min and silently drops
// the rest, so the stdout echo is not flooded with per-tick records.
type minLevelWriter struct {
	w   io.Writer
	min zerolog.Level
}

func (lw minLevelWriter) Write(p []byte) (int, error) {
	return lw.w.Write(p)
}

func (lw minLevelWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level < lw.min {
		return len(p), nil
	}
	return lw.w.Write(p)
}
