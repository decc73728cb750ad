// Package preprocess implements the spp line preprocessor. It copies an
// input stream to an output sink line by line, executing the directives
// it finds on the way:
//
//	#include path   paste the file at path verbatim
//	#import path    reserved, consumed without effect
//	#ignore         drop plain lines until #end-ignore
//	#end-ignore     resume copying plain lines
//
// A directive is any line whose first non-whitespace character is '#'.
// Directives with other command names are copied through like plain lines.
// Included files are not preprocessed themselves.
package preprocess

import (
	"bufio"
	"errors"
	"io"
	"log/slog"

	"github.com/rubiojr/spp/logging"
)

// Stats counts what a run did.
type Stats struct {
	Lines         int   // input lines read
	Directives    int   // lines consumed by a recognized directive
	Suppressed    int   // lines dropped by ignore mode
	Included      int   // files pasted by include
	IncludedBytes int64 // bytes pasted by include
}

// Option configures an Engine.
type Option func(*Engine)

// WithBaseDir sets the directory relative includes are resolved against.
// Empty means the process working directory.
func WithBaseDir(dir string) Option {
	return func(e *Engine) { e.baseDir = dir }
}

// WithLogger sets the logger used for debug tracing. Nil keeps the
// default, which discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithStats makes every run store its counters in st.
func WithStats(st *Stats) Option {
	return func(e *Engine) { e.stats = st }
}

// Engine holds run settings. Every Process call starts from a fresh
// Session, so one Engine can process any number of streams in turn.
type Engine struct {
	baseDir string
	log     *slog.Logger
	stats   *Stats
}

// NewEngine creates an Engine with the given options applied.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{log: logging.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Process preprocesses in and writes the result to out. It is shorthand
// for NewEngine(opts...).Process(in, out).
func Process(in io.Reader, out io.Writer, opts ...Option) error {
	return NewEngine(opts...).Process(in, out)
}

// Process reads in until EOF, running each line through the directive
// tokenizer. out is written to but never flushed or closed. The first hard
// error aborts the run; whatever was written before it stays written.
func (e *Engine) Process(in io.Reader, out io.Writer) error {
	if in == nil || out == nil {
		return ErrInvalidArguments
	}
	sess, err := NewSession(e.baseDir)
	if err != nil {
		return err
	}
	sess.log = e.log
	if e.stats != nil {
		defer func() { *e.stats = sess.stats }()
	}

	br := bufio.NewReader(in)
	for {
		line, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return &Error{Kind: ErrInputRead, Line: sess.stats.Lines + 1, Err: err}
		}
		// A stream ending right after '\n' yields one empty read; it is
		// not a line.
		if line != "" {
			sess.stats.Lines++
			if err := sess.ProcessLine(line, out); err != nil {
				return withLine(err, sess.stats.Lines)
			}
		}
		if err != nil {
			return nil
		}
	}
}

// ProcessLine handles one line, including its trailing newline if it has
// one.
func (s *Session) ProcessLine(line string, out io.Writer) error {
	if res := Tokenize(line); res.Kind == IsDirective {
		h, err := s.Execute(res.Directive, out)
		if err != nil {
			return err
		}
		if h == Recognized {
			s.stats.Directives++
			return nil
		}
	}
	return s.emit(line, out)
}

// emit copies a plain line to out unless ignore mode is on.
func (s *Session) emit(line string, out io.Writer) error {
	if s.Ignore {
		s.stats.Suppressed++
		return nil
	}
	if _, err := io.WriteString(out, line); err != nil {
		return &Error{Kind: ErrOutputWrite, Err: err}
	}
	return nil
}
