package pipeline

import (
	"fmt"

	"github.com/briltools/brilopt/internal/deadstore"
	"github.com/briltools/brilopt/internal/ir"
	"github.com/briltools/brilopt/internal/licm"
	"github.com/briltools/brilopt/internal/liveness"
	"github.com/briltools/brilopt/internal/lvn"
	"github.com/briltools/brilopt/internal/ssa"
)

// Options selects which passes Run applies, mirroring the command-line
// flag surface one-for-one.
type Options struct {
	ToSSA                bool
	FromSSA              bool
	RoundTrip            bool // to-SSA followed immediately by from-SSA
	CheckSSA             bool // verify IsSSA after ToSSA, report via Progress rather than failing the run
	LocalValueNumbering  bool
	Liveness             bool // liveness-driven block elimination (internal/liveness.Eliminate)
	Global               bool // global DCE fixed point (internal/liveness.Global)
	DeadStoreElimination bool
	LICM                 bool
}

// Run applies the requested passes to every function in program, in a
// fixed order: SSA construction first (so later passes can assume
// single-assignment form when requested), then LVN, then LICM, then
// dead-store elimination, then the liveness/DCE family, then SSA
// destruction last. Each pass consumes its input and returns a new
// function; no pass observes another's partially transformed state.
func Run(program *ir.Program, opts Options, prog *Progress) (*ir.Program, error) {
	out := &ir.Program{Functions: make([]*ir.Function, len(program.Functions))}
	for i, fn := range program.Functions {
		transformed, err := runFunction(fn, opts, prog)
		if err != nil {
			return nil, fmt.Errorf("function %s: %w", fn.Name, err)
		}
		out.Functions[i] = transformed
	}
	return out, nil
}

func runFunction(fn *ir.Function, opts Options, prog *Progress) (*ir.Function, error) {
	cur := fn

	if opts.ToSSA || opts.RoundTrip {
		prog.Stage(cur.Name, "converting to SSA")
		next, err := ssa.ToSSA(cur)
		if err != nil {
			return nil, err
		}
		cur = next
		if opts.CheckSSA {
			if !ssa.IsSSA(cur) {
				prog.Log("%s: SSA check failed after to-ssa", cur.Name)
			} else {
				prog.Stage(cur.Name, "SSA check passed")
			}
		}
	}

	if opts.LocalValueNumbering {
		prog.Stage(cur.Name, "running local value numbering")
		cur = lvn.Run(cur)
	}

	if opts.LICM {
		prog.Stage(cur.Name, "running loop-invariant code motion")
		next, err := licm.Run(cur)
		if err != nil {
			return nil, err
		}
		cur = next
	}

	if opts.DeadStoreElimination {
		prog.Stage(cur.Name, "running dead-store elimination")
		next, err := deadstore.Eliminate(cur)
		if err != nil {
			return nil, err
		}
		cur = next
	}

	if opts.Liveness {
		prog.Stage(cur.Name, "running liveness-driven elimination")
		next, err := liveness.Eliminate(cur)
		if err != nil {
			return nil, err
		}
		cur = next
	}

	if opts.Global {
		prog.Stage(cur.Name, "running global dead-code elimination")
		cur = liveness.Global(cur)
	}

	if opts.FromSSA || opts.RoundTrip {
		prog.Stage(cur.Name, "converting from SSA")
		cur = ssa.FromSSA(cur)
	}

	prog.InstrDelta(cur.Name, len(fn.Instrs), len(cur.Instrs))
	return cur, nil
}
