package preprocess

import (
	"strings"

	"github.com/rubiojr/spp/scanner"
)

// Directive is a line of the form `#<command> [argument]`.
type Directive struct {
	Command  string
	Argument string
}

// ResultKind tells whether a tokenized line carries a directive.
type ResultKind int

const (
	NotADirective ResultKind = iota
	IsDirective
)

func (k ResultKind) String() string {
	if k == IsDirective {
		return "directive"
	}
	return "not a directive"
}

// Result is what Tokenize reports for one line. Directive is only
// meaningful when Kind is IsDirective.
type Result struct {
	Kind      ResultKind
	Directive Directive
}

// tokenizer states, in the order a directive line walks through them.
type step int

const (
	stepPreDirective step = iota // whitespace before '#'
	stepCommand                  // command name
	stepPreArgument              // whitespace between command and argument
	stepArgument                 // argument text
)

// Tokenize checks whether line is a preprocessor directive and splits it
// into command and argument.
//
// Leading whitespace is skipped. The first other character must be '#',
// otherwise scanning stops and the line is not a directive. The command is
// the first run of non-whitespace after '#', so "# include x" and
// "#include x" are the same directive. The argument starts at the
// next non-whitespace character and runs to the end of the line, keeping
// interior and trailing blanks but dropping a final '\n'.
func Tokenize(line string) Result {
	var cmd, arg strings.Builder
	st := stepPreDirective

	sc := scanner.New(line)
	for r, ok := sc.Next(); ok; r, ok = sc.Next() {
		switch st {
		case stepPreDirective:
			if scanner.IsSpace(r) {
				continue
			}
			if r != '#' {
				return Result{Kind: NotADirective}
			}
			st = stepCommand
		case stepCommand:
			if scanner.IsSpace(r) {
				// Blanks between '#' and the command name are skipped.
				if cmd.Len() > 0 {
					st = stepPreArgument
				}
				continue
			}
			cmd.WriteString(sc.Text())
		case stepPreArgument:
			if scanner.IsSpace(r) {
				continue
			}
			arg.WriteString(sc.Text())
			st = stepArgument
		case stepArgument:
			if r == '\n' && sc.AtEnd() {
				continue
			}
			arg.WriteString(sc.Text())
		}
	}

	// A blank line never left the leading whitespace.
	if st == stepPreDirective {
		return Result{Kind: NotADirective}
	}
	return Result{
		Kind:      IsDirective,
		Directive: Directive{Command: cmd.String(), Argument: arg.String()},
	}
}
