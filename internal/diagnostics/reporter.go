package diagnostics

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Reporter formats Errors for a terminal, bolding the kind and dimming
// the location the way a compiler's colorized diagnostic output does.
// When color.NoColor is set (non-TTY, e.g. piped into a harness) the
// same information renders as plain text.
type Reporter struct {
	out io.Writer
}

// NewReporter returns a Reporter writing to out.
func NewReporter(out io.Writer) *Reporter {
	return &Reporter{out: out}
}

// Report writes a single formatted diagnostic line.
func (r *Reporter) Report(e *Error) {
	bold := color.New(color.Bold, color.FgRed).SprintFunc()
	if !e.Kind.Fatal() {
		bold = color.New(color.Bold, color.FgYellow).SprintFunc()
	}
	dim := color.New(color.Faint).SprintFunc()

	loc := e.Function
	if e.Block != "" {
		loc += "/" + e.Block
		if e.Instr >= 0 {
			loc += fmt.Sprintf("#%d", e.Instr)
		}
	}
	fmt.Fprintf(r.out, "%s: %s %s\n", bold(string(e.Kind)), e.Message, dim("("+loc+")"))
}
