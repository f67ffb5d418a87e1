// Package dataflow implements the generic worklist engine every
// dataflow-based pass (liveness, alias analysis) is built on top of:
// parameterized by a lattice State, a merge (meet/join) function and a
// monotone transfer function, it is itself agnostic to direction —
// "backward" is realized by handing it a cfg.Graph built with Reverse
// set.
package dataflow

import (
	"github.com/briltools/brilopt/internal/blocks"
	"github.com/briltools/brilopt/internal/cfg"
)

// Merge combines the out-states of a block's known predecessors into its
// in-state. Must be commutative, associative and idempotent (it models
// the lattice's meet or join).
type Merge[S any] func(states []S) S

// Transfer computes a block's out-state from its in-state. Must be
// monotone with respect to the lattice order Merge induces.
type Transfer[S any] func(b *blocks.Block, in S) S

// Result holds the fixed-point in/out state for every node of the graph
// the engine ran over, keyed by block label.
type Result[S any] struct {
	In  map[string]S
	Out map[string]S
}

// Run executes the worklist algorithm to a fixed point. zero is the
// lattice's bottom, used to initialize every node's out-state and as the
// in-state of an entry node (a node with no predecessors in g) when no
// seed is supplied. seed, when hasSeed is true, replaces zero as the
// in-state fed directly to entry nodes — "the entry" in the forward case,
// or every real CFG exit in the backward case, since those become the
// predecessor-less nodes of the reversed graph. equal reports whether two
// states are identical, used to detect a node's out-state has stabilized.
//
// The synthetic end node cfg.Build introduces (no associated block) gets
// an identity transfer: its out-state is simply its in-state.
func Run[S any](g *cfg.Graph, merge Merge[S], transfer Transfer[S], equal func(a, b S) bool, zero S, seed S, hasSeed bool) Result[S] {
	labels := g.Labels()
	out := make(map[string]S, len(labels))
	in := make(map[string]S, len(labels))
	for _, l := range labels {
		out[l] = zero
	}

	queue := append([]string(nil), labels...)
	queued := make(map[string]bool, len(labels))
	for _, l := range labels {
		queued[l] = true
	}

	for len(queue) > 0 {
		label := queue[0]
		queue = queue[1:]
		queued[label] = false

		preds := g.Pred[label]
		var inState S
		if len(preds) == 0 {
			if hasSeed {
				inState = seed
			} else {
				inState = zero
			}
		} else {
			states := make([]S, len(preds))
			for i, p := range preds {
				states[i] = out[p]
			}
			inState = merge(states)
		}
		in[label] = inState

		var newOut S
		if b := g.Block(label); b != nil {
			newOut = transfer(b, inState)
		} else {
			newOut = inState
		}

		if !equal(newOut, out[label]) {
			out[label] = newOut
			for _, s := range g.Succ[label] {
				if !queued[s] {
					queue = append(queue, s)
					queued[s] = true
				}
			}
		}
	}

	return Result[S]{In: in, Out: out}
}
