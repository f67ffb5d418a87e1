// Package blocks partitions a function's flat instruction list into
// labeled basic blocks: a Label starts a new block, a terminating
// instruction ends one, and an empty trailing block is dropped.
package blocks

import (
	"fmt"

	"github.com/briltools/brilopt/internal/ir"
)

// StartLabel is the synthetic label assigned to a function's first block
// when its first instruction isn't already a Label.
const StartLabel = "start"

// Block is an ordered, owned slice of instructions with an assigned
// label. Predecessor/successor sets are attached later by the cfg package;
// Block itself only knows its own instructions.
type Block struct {
	Label  string
	Instrs []ir.Instruction
}

// Terminator returns the block's last instruction if it is terminating,
// and ok=true. A non-terminating last instruction means the block
// falls through to its successor in source order.
func (b *Block) Terminator() (in ir.Instruction, ok bool) {
	if len(b.Instrs) == 0 {
		return ir.Instruction{}, false
	}
	last := b.Instrs[len(b.Instrs)-1]
	if last.Terminating() {
		return last, true
	}
	return ir.Instruction{}, false
}

// Build partitions a function's instructions into blocks:
// a Label instruction starts a new block (flushing any accumulated one
// first); a terminating instruction ends the current block. Only the
// function's first block receives the synthetic label "start" when it has
// no leading Label; any other label-less block (dead code stranded after a
// terminator, never reached by a jump) gets a unique positional synthetic
// label instead, since block labels are later used as CFG map keys and must
// not collide. An empty trailing block (no instructions accumulated before
// the input ends) is dropped — including the case of zero input
// instructions, which yields zero blocks.
func Build(instrs []ir.Instruction) []*Block {
	var out []*Block
	var cur []ir.Instruction

	flush := func() {
		if len(cur) == 0 {
			return
		}
		label := cur[0].Label
		if cur[0].Kind != ir.KindLabel {
			if len(out) == 0 {
				label = StartLabel
			} else {
				label = fmt.Sprintf("__bb%d", len(out))
			}
		}
		out = append(out, &Block{Label: label, Instrs: cur})
		cur = nil
	}

	for _, in := range instrs {
		if in.Kind == ir.KindLabel {
			flush()
			cur = append(cur, in)
			continue
		}
		cur = append(cur, in)
		if in.Terminating() {
			flush()
		}
	}
	flush()
	return out
}

// Flatten concatenates block instruction lists back into a single
// function-level sequence, preserving block order.
func Flatten(bs []*Block) []ir.Instruction {
	var out []ir.Instruction
	for _, b := range bs {
		out = append(out, b.Instrs...)
	}
	return out
}
