package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pushmon/pushmon/pkg/file"
)

// Resolver decides where log output goes. It probes the filesystem through
// the injected file client and falls back to stdout rather than aborting.
type Resolver struct {
	files      file.FileOperations
	maxBytes   int64
	maxBackups int

	// overridable in tests
	execDir func() (string, error)
	workDir func() (string, error)
	stdout  io.Writer
	stderr  io.Writer
}

// NewResolver creates a resolver with the given rotation policy.
func NewResolver(files file.FileOperations, maxBytes int64, maxBackups int) *Resolver {
	return &Resolver{
		files:      files,
		maxBytes:   maxBytes,
		maxBackups: maxBackups,
		execDir:    executableDir,
		workDir:    os.Getwd,
		stdout:     os.Stdout,
		stderr:     os.Stderr,
	}
}

func executableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}

// Resolve maps a log destination string to a sink. It is total: every
// input produces a usable sink, degrading to stdout with a warning when
// the requested destination is unusable. Warnings are returned for the
// caller to log once the logger exists.
func (r *Resolver) Resolve(dest string) (*Sink, []string) {
	switch dest {
	case "none":
		return &Sink{Mode: ModeDisabled, writer: io.Discard}, nil
	case "stdout":
		return &Sink{Mode: ModeStdout, writer: r.stdout}, nil
	case "stderr":
		return &Sink{Mode: ModeStderr, writer: r.stderr}, nil
	case "":
		return r.resolveDefaultDir()
	}

	if isDir, err := r.files.IsDir(dest); err == nil && isDir {
		if r.files.IsDirWritable(dest) {
			return r.dirSink(dest), nil
		}
		return r.stdoutFallback(fmt.Sprintf("log directory %s is not writable", dest))
	}

	exists, _ := r.files.IsFileExists(dest)
	if exists || filepath.Ext(dest) != "" {
		return r.resolveFile(dest)
	}

	return r.stdoutFallback(fmt.Sprintf("log path %s does not exist", dest))
}

// resolveDefaultDir probes the executable's directory, then the working
// directory, and takes the first writable one.
func (r *Resolver) resolveDefaultDir() (*Sink, []string) {
	candidates := make([]string, 0, 2)
	if dir, err := r.execDir(); err == nil {
		candidates = append(candidates, dir)
	}
	if dir, err := r.workDir(); err == nil {
		candidates = append(candidates, dir)
	}

	for _, dir := range candidates {
		if r.files.IsDirWritable(dir) {
			return r.dirSink(dir), nil
		}
	}
	return r.stdoutFallback("no writable log directory found")
}

func (r *Resolver) resolveFile(path string) (*Sink, []string) {
	parent := filepath.Dir(path)
	if !r.files.IsDirWritable(parent) {
		return r.stdoutFallback(fmt.Sprintf("parent directory of log file %s is not writable", path))
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return r.stdoutFallback(fmt.Sprintf("cannot open log file %s: %v", path, err))
	}

	w := NewFailsafeWriter(f, r.stderr)
	return &Sink{Mode: ModeFile, Path: path, writer: w, closer: w}, nil
}

func (r *Resolver) dirSink(dir string) *Sink {
	w := NewFailsafeWriter(NewRotatingWriter(dir, r.maxBytes, r.maxBackups), r.stderr)
	return &Sink{Mode: ModeDir, Path: dir, writer: w, closer: w}
}

func (r *Resolver) stdoutFallback(reason string) (*Sink, []string) {
	warning := reason + ", logging to stdout instead"
	return &Sink{Mode: ModeStdout, writer: r.stdout}, []string{warning}
}
