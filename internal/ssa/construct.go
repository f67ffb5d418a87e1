// Package ssa converts a function to and from static single assignment
// form: phi placement via dominance frontiers, renaming via a
// dominator-tree walk with per-variable name stacks, and destruction by
// replacing each phi with a copy in each predecessor.
package ssa

import (
	"fmt"
	"sort"

	"github.com/briltools/brilopt/internal/blocks"
	"github.com/briltools/brilopt/internal/cfg"
	"github.com/briltools/brilopt/internal/ir"
)

// phiInfo accumulates one phi instruction's operands as rename walks the
// dominator tree and appends one (arg, label) pair per predecessor visited.
type phiInfo struct {
	dest   string
	args   []string
	labels []string
}

// ToSSA rewrites fn into SSA form: every variable is assigned exactly
// once, and control-flow merge points get phi instructions. Function
// parameters are treated as pre-defined at the entry block and their
// names are never rewritten, per spec.
func ToSSA(fn *ir.Function) (*ir.Function, error) {
	g, err := cfg.Build(fn, false)
	if err != nil {
		return nil, err
	}
	d := cfg.Compute(g)

	defs, types := collectDefs(fn)
	needsPhi := placePhis(d, defs)

	isParam := make(map[string]bool, len(fn.Params))
	for _, p := range fn.Params {
		isParam[p.Name] = true
	}

	stacks := make(map[string][]string)
	for _, p := range fn.Params {
		stacks[p.Name] = []string{p.Name}
	}
	// next numbers each variable's new names across the whole walk, so
	// names minted in sibling dominator subtrees never collide.
	next := make(map[string]int)
	fresh := func(v string) string {
		name := fmt.Sprintf("%s.%d", v, next[v])
		next[v]++
		return name
	}

	phiOf := make(map[string]map[string]*phiInfo)
	for block, vars := range needsPhi {
		phiOf[block] = make(map[string]*phiInfo, len(vars))
		for v := range vars {
			phiOf[block][v] = &phiInfo{}
		}
	}

	var rename func(block string)
	rename = func(block string) {
		saved := snapshotStacks(stacks)

		if vars, ok := needsPhi[block]; ok {
			for _, v := range sortedKeys(vars) {
				newName := fresh(v)
				stacks[v] = append(stacks[v], newName)
				phiOf[block][v].dest = newName
			}
		}

		b := g.Block(block)
		if b != nil {
			out := make([]ir.Instruction, 0, len(b.Instrs))
			for _, in := range b.Instrs {
				rewritten := in.Clone()
				if rewritten.Kind == ir.KindLabel {
					out = append(out, rewritten)
					continue
				}
				for i, a := range rewritten.Args {
					if top, ok := topOf(stacks, a); ok {
						rewritten.Args[i] = top
					}
				}
				if rewritten.Dest != "" {
					if isParam[rewritten.Dest] {
						// Pre-defined at start; destination never rewritten.
					} else {
						newName := fresh(rewritten.Dest)
						stacks[rewritten.Dest] = append(stacks[rewritten.Dest], newName)
						rewritten.Dest = newName
					}
				}
				out = append(out, rewritten)
			}
			b.Instrs = out
		}

		for _, s := range g.Succ[block] {
			vars, ok := needsPhi[s]
			if !ok {
				continue
			}
			for _, v := range sortedKeys(vars) {
				val := "undef"
				if top, ok := topOf(stacks, v); ok {
					val = top
				}
				phiOf[s][v].args = append(phiOf[s][v].args, val)
				phiOf[s][v].labels = append(phiOf[s][v].labels, block)
			}
		}

		for _, child := range d.Kids[block] {
			rename(child)
		}

		restoreStacks(stacks, saved)
	}
	rename(g.Start)

	for _, label := range g.Order {
		vars, ok := needsPhi[label]
		if !ok {
			continue
		}
		b := g.Block(label)
		var phis []ir.Instruction
		for _, v := range sortedKeys(vars) {
			p := phiOf[label][v]
			phis = append(phis, ir.Instruction{
				Kind:   ir.KindValueOp,
				Op:     "phi",
				Dest:   p.dest,
				Type:   types[v],
				Args:   p.args,
				Labels: p.labels,
			})
		}
		b.Instrs = append(append([]ir.Instruction(nil), phis...), b.Instrs...)
	}

	out := fn.Clone()
	out.Instrs = flattenOrdered(g)
	return out, nil
}

func collectDefs(fn *ir.Function) (defs map[string]map[string]bool, types map[string]ir.Type) {
	defs = make(map[string]map[string]bool)
	types = make(map[string]ir.Type)
	bs := blocks.Build(fn.Instrs)
	for _, b := range bs {
		for _, in := range b.Instrs {
			if in.Dest == "" {
				continue
			}
			if defs[in.Dest] == nil {
				defs[in.Dest] = map[string]bool{}
			}
			defs[in.Dest][b.Label] = true
			if _, ok := types[in.Dest]; !ok {
				types[in.Dest] = in.Type
			}
		}
	}
	return defs, types
}

// placePhis computes, for each variable with more than one defining
// block, the set of blocks needing a phi for it — the dominance-frontier
// closure of its (growing) set of defining blocks, iterated to a fixed
// point.
func placePhis(d *cfg.Dominators, defs map[string]map[string]bool) map[string]map[string]bool {
	needsPhi := make(map[string]map[string]bool)
	for v, orig := range defs {
		if len(orig) <= 1 {
			continue
		}
		known := make(map[string]bool, len(orig))
		var worklist []string
		for b := range orig {
			known[b] = true
			worklist = append(worklist, b)
		}
		placed := make(map[string]bool)
		for len(worklist) > 0 {
			n := worklist[len(worklist)-1]
			worklist = worklist[:len(worklist)-1]
			for w := range d.Front[n] {
				if placed[w] {
					continue
				}
				placed[w] = true
				if needsPhi[w] == nil {
					needsPhi[w] = map[string]bool{}
				}
				needsPhi[w][v] = true
				if !known[w] {
					known[w] = true
					worklist = append(worklist, w)
				}
			}
		}
	}
	return needsPhi
}

func snapshotStacks(stacks map[string][]string) map[string]int {
	saved := make(map[string]int, len(stacks))
	for v, s := range stacks {
		saved[v] = len(s)
	}
	return saved
}

func restoreStacks(stacks map[string][]string, saved map[string]int) {
	for v, n := range saved {
		if len(stacks[v]) > n {
			stacks[v] = stacks[v][:n]
		}
	}
	for v, s := range stacks {
		if _, ok := saved[v]; !ok && len(s) > 0 {
			stacks[v] = s[:0]
		}
	}
}

func topOf(stacks map[string][]string, v string) (string, bool) {
	s := stacks[v]
	if len(s) == 0 {
		return "", false
	}
	return s[len(s)-1], true
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func flattenOrdered(g *cfg.Graph) []ir.Instruction {
	var out []ir.Instruction
	for _, label := range g.Order {
		out = append(out, g.Block(label).Instrs...)
	}
	return out
}
