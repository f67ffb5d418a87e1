// Package lvn implements local value numbering: per-block constant
// folding, common-subexpression elimination via value-tuple interning,
// and commutative-operator canonicalization.
package lvn

import (
	"fmt"
	"sort"

	"github.com/briltools/brilopt/internal/blocks"
	"github.com/briltools/brilopt/internal/ir"
)

// entry is one row of the value-numbering table: the canonical tuple a
// value number denotes, its representative variable name, and (when the
// tuple is a const) the literal it denotes.
type entry struct {
	tupleKey string
	name     string
	isConst  bool
	lit      ir.Literal
	typ      ir.Type
}

// state is one block's working value-numbering tables. A fresh state is
// used per block, matching LVN's block-local scope.
type state struct {
	env      map[string]int
	table    map[int]entry
	byTuple  map[string]int
	nextNum  int
	uniqueID int
}

func newState() *state {
	return &state{
		env:     map[string]int{},
		table:   map[int]entry{},
		byTuple: map[string]int{},
	}
}

// Run applies local value numbering to every basic block of fn
// independently and returns a new function with the result.
func Run(fn *ir.Function) *ir.Function {
	bs := blocks.Build(fn.Instrs)
	for _, b := range bs {
		b.Instrs = Block(b.Instrs)
	}
	out := fn.Clone()
	out.Instrs = blocks.Flatten(bs)
	return out
}

// Block runs local value numbering over one block's instructions in
// isolation (a fresh env/table).
func Block(instrs []ir.Instruction) []ir.Instruction {
	st := newState()
	out := make([]ir.Instruction, 0, len(instrs))

	for idx, original := range instrs {
		in := st.fold(original)

		if in.Kind == ir.KindLabel || in.Terminating() || in.Special() {
			out = append(out, in)
			continue
		}

		if in.Op == "id" && len(in.Args) == 1 && in.Args[0] == in.Dest {
			continue
		}

		// A plain id naming an already-known value is never a new value:
		// alias env[dest] straight to the same value number (propagating
		// the constant, if that's what it is) instead of interning a
		// fresh table row for it.
		if in.Op == "id" && len(in.Args) == 1 {
			if num, ok := st.env[in.Args[0]]; ok {
				e := st.table[num]
				if e.isConst {
					in = ir.Instruction{Kind: ir.KindConstant, Op: "const", Dest: in.Dest, Type: in.Type, Value: e.lit}
				} else {
					in = ir.Instruction{Kind: ir.KindValueOp, Op: "id", Dest: in.Dest, Type: in.Type, Args: []string{e.name}}
				}
				st.env[in.Dest] = num
				out = append(out, in)
				continue
			}
		}

		_, tupleKey := st.buildTuple(in)

		if num, ok := st.byTuple[tupleKey]; ok {
			e := st.table[num]
			if e.isConst {
				in = ir.Instruction{Kind: ir.KindConstant, Op: "const", Dest: in.Dest, Type: e.typ, Value: e.lit}
			} else {
				in = ir.Instruction{Kind: ir.KindValueOp, Op: "id", Dest: in.Dest, Type: in.Type, Args: []string{e.name}}
			}
			st.env[in.Dest] = num
			out = append(out, in)
			continue
		}

		num := st.nextNum
		st.nextNum++
		name := in.Dest
		var restoreCopy *ir.Instruction
		if in.Dest != "" && overwrittenLater(in.Dest, instrs[idx+1:]) {
			// dest gets reassigned later in this block, so the table's
			// representative name for this value number can't be dest —
			// it wouldn't survive the reassignment. Compute into a fresh
			// name instead and copy it back to dest for this use.
			orig := in.Dest
			name = fmt.Sprintf("lvn.%d", st.uniqueID)
			st.uniqueID++
			in.Dest = name
			cp := ir.Instruction{Kind: ir.KindValueOp, Op: "id", Dest: orig, Type: in.Type, Args: []string{name}}
			restoreCopy = &cp
		}
		e := entry{tupleKey: tupleKey, name: name}
		if in.Kind == ir.KindConstant {
			e.isConst = true
			e.lit = in.Value
			e.typ = in.Type
		}
		st.table[num] = e
		st.byTuple[tupleKey] = num
		if name != "" {
			st.env[name] = num
		}
		out = append(out, in)
		if restoreCopy != nil {
			st.env[restoreCopy.Dest] = num
			out = append(out, *restoreCopy)
		}
	}
	return out
}

// overwrittenLater reports whether dest is assigned again by any
// instruction in rest, the same block's remaining (not-yet-processed)
// instructions.
func overwrittenLater(dest string, rest []ir.Instruction) bool {
	for _, in := range rest {
		if in.Dest == dest {
			return true
		}
	}
	return false
}

// argToken is one resolved-or-raw operand of a value tuple: either a
// value number (when the argument names a known local value) or the raw
// operand name (a necessary concession for block-local analysis, since a
// variable defined outside the block has no local value number).
type argToken struct {
	isNum bool
	num   int
	raw   string
}

func (t argToken) key() string {
	if t.isNum {
		return fmt.Sprintf("#%d", t.num)
	}
	return "$" + t.raw
}

// buildTuple constructs I's value tuple: a constant's tuple is (const,
// literal); otherwise each argument is
// replaced by its value number from env, falling through to its raw name
// when unresolved, and for commutative ops the resulting token list is
// sorted (numeric tokens among themselves, then raw-name tokens among
// themselves) before the tuple key is formed.
func (st *state) buildTuple(in ir.Instruction) ([]argToken, string) {
	if in.Kind == ir.KindConstant {
		key := fmt.Sprintf("const:%s:%s", in.Type, in.Value)
		return nil, key
	}
	tokens := make([]argToken, len(in.Args))
	for i, a := range in.Args {
		if num, ok := st.env[a]; ok {
			tokens[i] = argToken{isNum: true, num: num}
		} else {
			tokens[i] = argToken{raw: a}
		}
	}
	if ir.Commutative[in.Op] {
		sort.Slice(tokens, func(i, j int) bool {
			a, b := tokens[i], tokens[j]
			if a.isNum != b.isNum {
				return a.isNum
			}
			if a.isNum {
				return a.num < b.num
			}
			return a.raw < b.raw
		})
	}
	key := in.Op
	for _, t := range tokens {
		key += "," + t.key()
	}
	return tokens, key
}
