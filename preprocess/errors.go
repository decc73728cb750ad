package preprocess

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArguments is returned when Process is called without an
	// input or an output.
	ErrInvalidArguments = errors.New("invalid arguments")
	// ErrInputRead means the main input stream failed mid-read.
	ErrInputRead = errors.New("reading input")
	// ErrPathQuery means an include target could not be queried for a
	// reason other than it not existing.
	ErrPathQuery = errors.New("querying include path")
	// ErrFileOpen means an include target exists but could not be opened
	// or read.
	ErrFileOpen = errors.New("opening include file")
	// ErrOutputWrite means the output sink rejected a write.
	ErrOutputWrite = errors.New("writing output")
)

// Error is a hard failure raised while processing a stream. It wraps both
// its Kind sentinel and the underlying system error, so errors.Is works
// against either.
type Error struct {
	Kind error  // one of the Err* sentinels above
	Line int    // 1-based input line, 0 when unknown
	Path string // include path, empty for stream errors
	Err  error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, msg)
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// withLine stamps the input line on err when it is an *Error that does not
// carry one yet.
func withLine(err error, line int) error {
	var pe *Error
	if errors.As(err, &pe) && pe.Line == 0 {
		pe.Line = line
	}
	return err
}
