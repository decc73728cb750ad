package preprocess

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"syscall"

	"github.com/rubiojr/spp/logging"
)

// Handled tells the line engine whether a directive consumed its line.
type Handled int

const (
	// Unrecognized directives fall back to plain-line handling.
	Unrecognized Handled = iota
	// Recognized directives have already produced their output, if any.
	Recognized
)

// Directive command names.
const (
	CmdInclude   = "include"
	CmdImport    = "import"
	CmdIgnore    = "ignore"
	CmdEndIgnore = "end-ignore"
)

// Session is the mutable state of one preprocessing run. It is owned by a
// single Process call and threaded through every line.
type Session struct {
	// Ignore suppresses non-directive lines while true.
	Ignore bool
	// BaseDir is what relative include paths are resolved against.
	BaseDir string

	log   *slog.Logger
	stats Stats
}

// NewSession creates the state for one run. An empty baseDir means the
// process working directory.
func NewSession(baseDir string) (*Session, error) {
	if baseDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolving base directory: %w", err)
		}
		baseDir = wd
	}
	return &Session{BaseDir: baseDir, log: logging.NewNop()}, nil
}

// Stats returns the counters accumulated so far.
func (s *Session) Stats() Stats { return s.stats }

// Execute performs directive d. Output produced by the directive goes to
// out. Unknown commands report Unrecognized and write nothing.
func (s *Session) Execute(d Directive, out io.Writer) (Handled, error) {
	switch d.Command {
	case CmdInclude:
		return s.include(d.Argument, out)
	case CmdImport:
		// Reserved: accepted and consumed, no semantics defined yet.
		s.log.Debug("import directive has no effect", "arg", d.Argument)
		return Recognized, nil
	case CmdIgnore:
		s.Ignore = true
		s.log.Debug("ignore on")
		return Recognized, nil
	case CmdEndIgnore:
		s.Ignore = false
		s.log.Debug("ignore off")
		return Recognized, nil
	}
	return Unrecognized, nil
}

// ResolvePath returns path unchanged when it is absolute, otherwise
// BaseDir and path joined with exactly one separator. The result is not
// cleaned.
func (s *Session) ResolvePath(path string) string {
	sep := string(os.PathSeparator)
	if strings.HasPrefix(path, sep) {
		return path
	}
	return strings.TrimRight(s.BaseDir, sep) + sep + path
}

// include pastes the target file verbatim into out. Missing targets are
// skipped without output.
func (s *Session) include(path string, out io.Writer) (Handled, error) {
	if path == "" {
		s.log.Debug("include without path skipped")
		return Recognized, nil
	}
	resolved := s.ResolvePath(path)

	info, err := os.Stat(resolved)
	if err != nil {
		if isSoftMiss(err) {
			s.log.Debug("include target missing", "path", resolved, "err", err)
			return Recognized, nil
		}
		return Recognized, &Error{Kind: ErrPathQuery, Path: resolved, Err: err}
	}
	if info.IsDir() {
		return Recognized, &Error{Kind: ErrFileOpen, Path: resolved, Err: syscall.EISDIR}
	}

	f, err := os.Open(resolved)
	if err != nil {
		return Recognized, &Error{Kind: ErrFileOpen, Path: resolved, Err: err}
	}
	defer f.Close()

	w := &sinkWriter{w: out}
	n, err := io.Copy(w, f)
	if err != nil {
		if w.err != nil {
			return Recognized, &Error{Kind: ErrOutputWrite, Err: w.err}
		}
		return Recognized, &Error{Kind: ErrFileOpen, Path: resolved, Err: err}
	}
	s.stats.Included++
	s.stats.IncludedBytes += n
	s.log.Debug("included", "path", resolved, "bytes", n)
	return Recognized, nil
}

// isSoftMiss reports whether a stat failure means "nothing to include"
// rather than a real I/O problem.
func isSoftMiss(err error) bool {
	return errors.Is(err, fs.ErrNotExist) ||
		errors.Is(err, syscall.ENOTDIR) ||
		errors.Is(err, syscall.ENAMETOOLONG)
}

// sinkWriter remembers the first write error so a failed copy can be
// blamed on the right side.
type sinkWriter struct {
	w   io.Writer
	err error
}

func (sw *sinkWriter) Write(p []byte) (int, error) {
	n, err := sw.w.Write(p)
	if err != nil && sw.err == nil {
		sw.err = err
	}
	return n, err
}
