// Package deadstore removes store instructions whose written value is
// never read before being overwritten, using the points-to state from
// internal/alias to decide when a load might be reading through an
// aliased pointer rather than the stored-to one directly.
package deadstore

import (
	"fmt"

	"github.com/briltools/brilopt/internal/alias"
	"github.com/briltools/brilopt/internal/blocks"
	"github.com/briltools/brilopt/internal/ir"
)

// Eliminate removes every store whose value is dead: a single linear
// forward scan over the function's whole instruction sequence (matching
// original_source/task4/aliasing.py's
// dead_store_elimination, which scans the flattened CFG instruction
// list rather than resetting at block boundaries) tracking "pending"
// stores not yet proven live, flushing the pending store through a
// pointer when that pointer is written through again (ptradd), marking
// it live when any tracked pointer that aliases it is read, and never
// removing a store to anything that may alias a function parameter
// (parameters seed to ALL, so this falls out of the alias check
// automatically). Because the scan doesn't fork at branches, it's only
// as precise as the Python original across divergent control-flow paths.
func Eliminate(fn *ir.Function) (*ir.Function, error) {
	pts, err := alias.Analyze(fn)
	if err != nil {
		return nil, err
	}
	entry := alias.State{}
	if bs := blocks.Build(fn.Instrs); len(bs) > 0 {
		if in, ok := pts.In[bs[0].Label]; ok {
			entry = in
		}
	}

	out := fn.Clone()
	out.Instrs = eliminateBlock(fn.Instrs, entry)
	return out, nil
}

// pendingStore is a store instruction not yet proven live, keyed by the
// pointer it targets.
type pendingStore struct {
	idx int
	ptr string
}

func eliminateBlock(instrs []ir.Instruction, state alias.State) []ir.Instruction {
	state = cloneState(state)
	remove := make([]bool, len(instrs))
	pending := map[string]pendingStore{}
	localAlloc := 0

	flushAliasesOf := func(p string) {
		delete(pending, p)
		for other := range alias.AliasesOf(state, p) {
			delete(pending, other)
		}
	}

	markLiveThrough := func(p string) {
		if state[p][alias.All] {
			for k := range pending {
				delete(pending, k)
			}
			return
		}
		flushAliasesOf(p)
	}

	for idx, in := range instrs {
		switch {
		case in.Kind == ir.KindEffectOp && in.Op == "store" && len(in.Args) == 2:
			p := in.Args[0]
			// A destination that may be ALL (which every pointer-typed
			// parameter is seeded with) is never eligible for removal,
			// even when nothing in this function reads it back — the
			// pointer could be observed through an alias this analysis
			// can't see past.
			if old, ok := pending[p]; ok && !state[p][alias.All] {
				remove[old.idx] = true
			}
			pending[p] = pendingStore{idx: idx, ptr: p}
			advanceState(state, in, &localAlloc)
			continue
		case in.Kind == ir.KindValueOp && in.Op == "load" && len(in.Args) == 1:
			markLiveThrough(in.Args[0])
		case in.Kind == ir.KindValueOp && in.Op == "ptradd" && len(in.Args) == 1:
			flushAliasesOf(in.Args[0])
		case in.Kind == ir.KindEffectOp && in.Op == "free" && len(in.Args) == 1:
			markLiveThrough(in.Args[0])
		case in.Kind == ir.KindValueOp && in.Op == "call":
			for k := range pending {
				delete(pending, k)
			}
		}
		for _, a := range in.Args {
			markLiveThrough(a)
		}
		advanceState(state, in, &localAlloc)
	}

	out := make([]ir.Instruction, 0, len(instrs))
	for i, in := range instrs {
		if !remove[i] {
			out = append(out, in)
		}
	}
	return out
}

func cloneState(s alias.State) alias.State {
	out := make(alias.State, len(s))
	for v, toks := range s {
		c := make(map[string]bool, len(toks))
		for t := range toks {
			c[t] = true
		}
		out[v] = c
	}
	return out
}

// advanceState applies the same points-to transfer semantics as
// internal/alias's dataflow transfer, keeping the local state in sync as
// the scan walks past alloc/id/ptradd/load instructions so later
// aliasing queries reflect every assignment seen so far in the block.
// Every alloc seen mid-scan mints its own fresh "local<N>" token — distinct
// from the "tN" tokens internal/alias assigns at block entry — so two
// allocs within the same block are never mistaken for the same location.
func advanceState(state alias.State, in ir.Instruction, localAlloc *int) {
	if in.Kind != ir.KindValueOp || in.Dest == "" {
		return
	}
	switch in.Op {
	case "alloc":
		tok := fmt.Sprintf("local%d", *localAlloc)
		*localAlloc++
		state[in.Dest] = map[string]bool{tok: true}
	case "id", "ptradd":
		if len(in.Args) == 0 {
			return
		}
		if src, ok := state[in.Args[0]]; ok {
			c := make(map[string]bool, len(src))
			for t := range src {
				c[t] = true
			}
			state[in.Dest] = c
		}
	case "load":
		state[in.Dest] = map[string]bool{alias.All: true}
	}
}
