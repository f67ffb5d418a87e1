// Package alias implements a forward points-to (may-alias) analysis:
// every variable is mapped to the set of memory-location tokens it might
// denote, and two variables may alias when their token sets intersect or
// either one is tainted by the catch-all ALL token.
package alias

import (
	"fmt"

	"github.com/briltools/brilopt/internal/blocks"
	"github.com/briltools/brilopt/internal/cfg"
	"github.com/briltools/brilopt/internal/dataflow"
	"github.com/briltools/brilopt/internal/ir"
)

// All is the sentinel token meaning "unknown / any location" — assigned
// to every value produced by a load (memory contents are not tracked), and seeded onto every
// pointer-typed parameter, since a caller's argument could point anywhere.
const All = "ALL"

// State maps a variable name to the set of memory-location tokens it may
// point to. A variable absent from State carries no information yet
// (conservatively untracked), distinct from being present with an empty
// set.
type State map[string]map[string]bool

func cloneState(s State) State {
	out := make(State, len(s))
	for v, toks := range s {
		c := make(map[string]bool, len(toks))
		for t := range toks {
			c[t] = true
		}
		out[v] = c
	}
	return out
}

func statesEqual(a, b State) bool {
	if len(a) != len(b) {
		return false
	}
	for v, toks := range a {
		other, ok := b[v]
		if !ok || len(toks) != len(other) {
			return false
		}
		for t := range toks {
			if !other[t] {
				return false
			}
		}
	}
	return true
}

func merge(states []State) State {
	out := State{}
	for _, s := range states {
		for v, toks := range s {
			dst, ok := out[v]
			if !ok {
				dst = map[string]bool{}
				out[v] = dst
			}
			for t := range toks {
				dst[t] = true
			}
		}
	}
	return out
}

// mintTokens assigns a fresh token to every alloc instruction in g,
// keyed by (block label, index within block) so the transfer function
// can look a token up deterministically on every fixed-point iteration
// without re-minting it. Each alloc SITE (not each alloc execution) gets
// exactly one token for the whole analysis run.
func mintTokens(g *cfg.Graph) map[string]string {
	tokens := make(map[string]string)
	n := 0
	for _, label := range g.Labels() {
		b := g.Block(label)
		if b == nil {
			continue
		}
		for idx, in := range b.Instrs {
			if in.Kind == ir.KindValueOp && in.Op == "alloc" {
				tokens[key(label, idx)] = fmt.Sprintf("t%d", n)
				n++
			}
		}
	}
	return tokens
}

func key(label string, idx int) string { return fmt.Sprintf("%s#%d", label, idx) }

func transferWith(tokens map[string]string) dataflow.Transfer[State] {
	return func(b *blocks.Block, in State) State {
		state := cloneState(in)
		for idx, instr := range b.Instrs {
			if instr.Kind != ir.KindValueOp || instr.Dest == "" {
				continue
			}
			switch instr.Op {
			case "alloc":
				state[instr.Dest] = map[string]bool{tokens[key(b.Label, idx)]: true}
			case "id", "ptradd":
				if len(instr.Args) == 0 {
					continue
				}
				if src, ok := state[instr.Args[0]]; ok {
					c := make(map[string]bool, len(src))
					for t := range src {
						c[t] = true
					}
					state[instr.Dest] = c
				}
			case "load":
				state[instr.Dest] = map[string]bool{All: true}
			}
		}
		return state
	}
}

// Result holds the points-to state at the start (In) and end (Out) of
// every block.
type Result struct {
	In  map[string]State
	Out map[string]State
}

// Analyze runs the points-to dataflow over fn and returns the per-block
// fixed-point state.
func Analyze(fn *ir.Function) (*Result, error) {
	g, err := cfg.Build(fn, false)
	if err != nil {
		return nil, err
	}
	tokens := mintTokens(g)

	seed := State{}
	for _, p := range fn.Params {
		if p.Type.IsPtr() {
			seed[p.Name] = map[string]bool{All: true}
		}
	}

	raw := dataflow.Run(g, merge, transferWith(tokens), statesEqual, State{}, seed, true)
	return &Result{In: raw.In, Out: raw.Out}, nil
}

// MayAlias reports whether a and b may denote the same memory location
// under state: their token sets intersect, or either carries the ALL
// sentinel. A variable with no entry in state is treated as untracked —
// conservatively presumed NOT to alias anything, since nothing is known
// about it (callers that need the opposite conservative default should
// check state membership themselves before calling MayAlias).
func MayAlias(state State, a, b string) bool {
	if a == b {
		return true
	}
	ta, aok := state[a]
	tb, bok := state[b]
	if !aok || !bok {
		return false
	}
	if ta[All] || tb[All] {
		return true
	}
	for t := range ta {
		if tb[t] {
			return true
		}
	}
	return false
}

// AliasesOf returns every other tracked variable in state that may alias
// v, per the derived alias relation (symmetric, self excluded).
func AliasesOf(state State, v string) map[string]bool {
	out := map[string]bool{}
	for other := range state {
		if other == v {
			continue
		}
		if MayAlias(state, v, other) {
			out[other] = true
		}
	}
	return out
}
