package pipeline

import (
	"fmt"
	"os"
	"time"
)

// Progress reports per-function pass progress to stderr, stamped with
// time elapsed since the pipeline run started.
type Progress struct {
	start   time.Time
	verbose bool
}

// NewProgress starts a progress clock. Log always writes; Verbose only
// writes when verbose is true.
func NewProgress(verbose bool) *Progress {
	return &Progress{start: time.Now(), verbose: verbose}
}

// Log writes a message prefixed with elapsed time since NewProgress.
func (p *Progress) Log(format string, args ...any) {
	elapsed := time.Since(p.start)
	mins := int(elapsed.Minutes())
	secs := int(elapsed.Seconds()) % 60
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(os.Stderr, "[%02d:%02d] %s\n", mins, secs, msg)
}

// Verbose writes like Log but only when verbose mode is enabled.
func (p *Progress) Verbose(format string, args ...any) {
	if p.verbose {
		p.Log(format, args...)
	}
}

// Stage announces one pass starting against one function, in verbose
// mode only — runFunction calls this before every optional pass it
// applies, so --debug traces the exact pass sequence a given run took.
func (p *Progress) Stage(function, verb string) {
	p.Verbose("%s: %s", function, verb)
}

// InstrDelta reports a function's instruction count before and after a
// full pipeline run, but only when the count actually changed — a run
// whose requested passes left every instruction in place (e.g. an
// already-clean function under dead-code elimination) stays silent even
// outside verbose mode.
func (p *Progress) InstrDelta(function string, before, after int) {
	if before != after {
		p.Log("%s: %d -> %d instructions", function, before, after)
	}
}
