// Package liveness computes backward may-liveness over a function's CFG
// and uses it to drive dead-code elimination: local (in-block
// reassignment), global (fixed-point unused-dest removal), and the
// liveness-driven block-splicing variant.
package liveness

import (
	"github.com/briltools/brilopt/internal/blocks"
	"github.com/briltools/brilopt/internal/cfg"
	"github.com/briltools/brilopt/internal/dataflow"
	"github.com/briltools/brilopt/internal/ir"
)

// Set is a set of live variable names.
type Set map[string]bool

func cloneSet(s Set) Set {
	out := make(Set, len(s))
	for k := range s {
		out[k] = true
	}
	return out
}

func setsEqual(a, b Set) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

func union(sets []Set) Set {
	out := Set{}
	for _, s := range sets {
		for k := range s {
			out[k] = true
		}
	}
	return out
}

// transfer walks a block's instructions in reverse from its live-out set,
// removing each dest and adding each arg.
func transfer(b *blocks.Block, liveOut Set) Set {
	live := cloneSet(liveOut)
	for i := len(b.Instrs) - 1; i >= 0; i-- {
		in := b.Instrs[i]
		if in.Dest != "" {
			delete(live, in.Dest)
		}
		for _, a := range in.Args {
			live[a] = true
		}
	}
	return live
}

// Result holds the fixed-point live-in and live-out sets per block label.
// Because liveness runs dataflow.Run over a Reverse-built graph, the
// engine's own In/Out naming is inverted with respect to liveness's: a
// block's predecessors in the reversed graph are its real CFG
// successors, so the engine's "in" state is live-out and its "out" state
// (after the backward transfer) is live-in. Result re-exposes both under
// their liveness-facing names so callers never have to reason about that
// inversion.
type Result struct {
	In  map[string]Set // live-in, per block label
	Out map[string]Set // live-out, per block label
}

// Analyze runs backward liveness over fn and returns, per block label, the
// live-in and live-out variable sets at fixed point.
func Analyze(fn *ir.Function) (*Result, error) {
	g, err := cfg.Build(fn, true)
	if err != nil {
		return nil, err
	}
	raw := dataflow.Run(g, union, transfer, setsEqual, Set{}, Set{}, false)
	return &Result{In: raw.Out, Out: raw.In}, nil
}

// LiveOut returns the live-out set for label, or an empty set if the
// label is unknown.
func (r *Result) LiveOut(label string) Set {
	if s, ok := r.Out[label]; ok {
		return s
	}
	return Set{}
}

// LiveIn returns the live-in set for label, or an empty set if the label
// is unknown.
func (r *Result) LiveIn(label string) Set {
	if s, ok := r.In[label]; ok {
		return s
	}
	return Set{}
}
