package liveness

import (
	"github.com/briltools/brilopt/internal/blocks"
	"github.com/briltools/brilopt/internal/cfg"
	"github.com/briltools/brilopt/internal/ir"
)

// Local removes, within each block independently, a definition that is
// reassigned before any intervening use of its prior value: grounded on
// original_source/task3/dce.py's local_dead_code, which tracks the index
// of each variable's last definition and pops it the moment a later
// definition of the same variable is seen with no use in between.
func Local(fn *ir.Function) *ir.Function {
	bs := blocks.Build(fn.Instrs)
	for _, b := range bs {
		b.Instrs = localBlock(b.Instrs)
	}
	out := fn.Clone()
	out.Instrs = blocks.Flatten(bs)
	return out
}

func localBlock(instrs []ir.Instruction) []ir.Instruction {
	kept := make([]ir.Instruction, 0, len(instrs))
	removed := make([]bool, 0, len(instrs))
	lastDef := make(map[string]int)
	for _, in := range instrs {
		for _, a := range in.Args {
			delete(lastDef, a)
		}
		if in.Dest != "" {
			if prev, ok := lastDef[in.Dest]; ok {
				removed[prev] = true
			}
			lastDef[in.Dest] = len(kept)
		}
		kept = append(kept, in)
		removed = append(removed, false)
	}
	out := make([]ir.Instruction, 0, len(kept))
	for i, in := range kept {
		if !removed[i] {
			out = append(out, in)
		}
	}
	return out
}

// Global iterates to a fixed point, removing any instruction whose dest
// appears in no function-wide arg list. Effect-only instructions (no
// dest) are never touched.
func Global(fn *ir.Function) *ir.Function {
	instrs := append([]ir.Instruction(nil), fn.Instrs...)
	for {
		used := make(map[string]bool)
		for _, in := range instrs {
			for _, a := range in.Args {
				used[a] = true
			}
		}
		changed := false
		kept := make([]ir.Instruction, 0, len(instrs))
		for _, in := range instrs {
			if in.Dest != "" && !used[in.Dest] {
				changed = true
				continue
			}
			kept = append(kept, in)
		}
		instrs = kept
		if !changed {
			break
		}
	}
	out := fn.Clone()
	out.Instrs = instrs
	return out
}

// Eliminate runs a liveness-driven DCE pass: for each block, in source
// order, remove an instruction whose dest is not in the block's live-out
// set and has no later in-block use of that same definition. A block
// that becomes entirely empty is spliced out of the CFG: each of its
// predecessors is rewired to jmp/br directly to each of its successors,
// and the label is dropped. Effect-only ops are never removed.
func Eliminate(fn *ir.Function) (*ir.Function, error) {
	live, err := Analyze(fn)
	if err != nil {
		return nil, err
	}
	g, err := cfg.Build(fn, false)
	if err != nil {
		return nil, err
	}

	bs := blocks.Build(fn.Instrs)

	for _, b := range bs {
		b.Instrs = eliminateBlock(b.Instrs, live.LiveOut(b.Label))
	}

	var kept []*blocks.Block
	removed := make(map[string]bool)
	for _, b := range bs {
		if isPrunable(b) {
			removed[b.Label] = true
			continue
		}
		kept = append(kept, b)
	}

	if len(removed) > 0 {
		rewire(kept, g, removed)
	}

	out := fn.Clone()
	out.Instrs = blocks.Flatten(kept)
	return out, nil
}

// isPrunable reports whether b is entirely empty once its label is set
// aside: every instruction in its body died, leaving nothing but a
// fallthrough. A block that still ends in an explicit jmp is left in
// place — rewire only ever retargets a terminating predecessor's own
// jmp/br labels, so pruning a jmp-only block would silently strand any
// predecessor that reaches it by fallthrough instead of by an explicit
// branch.
func isPrunable(b *blocks.Block) bool {
	for _, in := range b.Instrs {
		if in.Kind != ir.KindLabel {
			return false
		}
	}
	return true
}

func eliminateBlock(instrs []ir.Instruction, liveOut Set) []ir.Instruction {
	live := cloneSet(liveOut)
	keep := make([]bool, len(instrs))
	for i := len(instrs) - 1; i >= 0; i-- {
		in := instrs[i]
		switch {
		case in.Kind == ir.KindLabel, in.Terminating(), in.Special():
			keep[i] = true
		case in.Dest != "" && !live[in.Dest]:
			keep[i] = false
		default:
			keep[i] = true
		}
		if keep[i] {
			if in.Dest != "" {
				delete(live, in.Dest)
			}
			for _, a := range in.Args {
				live[a] = true
			}
		}
	}
	out := make([]ir.Instruction, 0, len(instrs))
	for i, in := range instrs {
		if keep[i] {
			out = append(out, in)
		}
	}
	return out
}

// rewire relinks every predecessor of a removed (now-empty) block
// directly to each of its successors, retargeting jmp/br labels and
// dropping labels that name only removed blocks.
func rewire(kept []*blocks.Block, g *cfg.Graph, removed map[string]bool) {
	replacement := make(map[string][]string, len(removed))
	for label := range removed {
		replacement[label] = resolveSuccessors(g, label, removed)
	}

	for _, b := range kept {
		last := len(b.Instrs) - 1
		if last < 0 {
			continue
		}
		term := &b.Instrs[last]
		if !term.Terminating() || len(term.Labels) == 0 {
			continue
		}
		var newLabels []string
		for _, l := range term.Labels {
			if replacement[l] != nil {
				newLabels = append(newLabels, replacement[l]...)
				continue
			}
			newLabels = append(newLabels, l)
		}
		term.Labels = newLabels
		if term.Op == "jmp" && len(term.Labels) > 1 {
			// An empty block removed between a jmp and a multi-successor
			// chain can't happen (jmp has exactly one successor), so
			// this path is unreachable in practice; keep the first
			// target defensively rather than emit a malformed jmp.
			term.Labels = term.Labels[:1]
		}
	}
}

// resolveSuccessors follows a chain of removed blocks to the first
// surviving successor label(s).
func resolveSuccessors(g *cfg.Graph, label string, removed map[string]bool) []string {
	var out []string
	seen := map[string]bool{}
	var visit func(l string)
	visit = func(l string) {
		if seen[l] {
			return
		}
		seen[l] = true
		for _, s := range g.Succ[l] {
			if removed[s] {
				visit(s)
				continue
			}
			out = append(out, s)
		}
	}
	visit(label)
	return out
}
