package ssa

import (
	"github.com/briltools/brilopt/internal/blocks"
	"github.com/briltools/brilopt/internal/ir"
)

// FromSSA destroys SSA form: every phi `v = phi(a_i from L_i)` becomes,
// for each i with a_i != undef, a copy `v = id a_i` appended to block
// L_i just before its terminator (or at the end, if L_i doesn't end in
// one). All phi instructions are then removed.
func FromSSA(fn *ir.Function) *ir.Function {
	bs := blocks.Build(fn.Instrs)
	byLabel := make(map[string]*blocks.Block, len(bs))
	for _, b := range bs {
		byLabel[b.Label] = b
	}

	toAppend := make(map[string][]ir.Instruction)
	for _, b := range bs {
		for _, in := range b.Instrs {
			if in.Kind != ir.KindValueOp || in.Op != "phi" {
				continue
			}
			for i, label := range in.Labels {
				arg := in.Args[i]
				if arg == "undef" {
					continue
				}
				cp := ir.Instruction{Kind: ir.KindValueOp, Op: "id", Dest: in.Dest, Type: in.Type, Args: []string{arg}}
				toAppend[label] = append(toAppend[label], cp)
			}
		}
	}

	for _, b := range bs {
		filtered := make([]ir.Instruction, 0, len(b.Instrs))
		for _, in := range b.Instrs {
			if in.Kind == ir.KindValueOp && in.Op == "phi" {
				continue
			}
			filtered = append(filtered, in)
		}
		b.Instrs = filtered
	}

	for label, copies := range toAppend {
		b := byLabel[label]
		if b == nil {
			continue
		}
		if _, ok := b.Terminator(); ok {
			last := b.Instrs[len(b.Instrs)-1]
			merged := make([]ir.Instruction, 0, len(b.Instrs)+len(copies))
			merged = append(merged, b.Instrs[:len(b.Instrs)-1]...)
			merged = append(merged, copies...)
			merged = append(merged, last)
			b.Instrs = merged
		} else {
			b.Instrs = append(b.Instrs, copies...)
		}
	}

	out := fn.Clone()
	out.Instrs = blocks.Flatten(bs)
	return out
}
