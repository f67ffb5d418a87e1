package lvn

import "github.com/briltools/brilopt/internal/ir"

// constOf reports the literal bound to name, if name currently names a
// constant value in st's table.
func (st *state) constOf(name string) (ir.Literal, bool) {
	num, ok := st.env[name]
	if !ok {
		return ir.Literal{}, false
	}
	e, ok := st.table[num]
	if !ok || !e.isConst {
		return ir.Literal{}, false
	}
	return e.lit, true
}

// fold applies constant folding to in, returning a rewritten const
// instruction when every precondition below holds, or in unchanged
// otherwise. Three cases are tried in order, mirroring the
// reference implementation's mutually-exclusive elif chain:
//
//  1. every argument resolves to a known constant: evaluate the op using
//     the instruction's OWN argument order (not sorted by value number —
//     sorting first would silently swap operands of non-commutative ops
//     like sub, div, lt, le, gt, ge).
//  2. the op is "and"/"or" and at least one argument resolves to a
//     constant that alone determines the result (false for and, true for
//     or): fold without needing the other operand.
//  3. the op is an idempotent comparison (eq, ne, lt, le, gt, ge) and both
//     arguments are the same syntactic name: the result is statically
//     known regardless of either argument's runtime value.
func (st *state) fold(in ir.Instruction) ir.Instruction {
	if in.Kind != ir.KindValueOp {
		return in
	}
	if !ir.Arithmetic[in.Op] && !ir.Comparison[in.Op] && !ir.Logical[in.Op] {
		return in
	}

	if lit, ok := st.foldAllConst(in); ok {
		return ir.Instruction{Kind: ir.KindConstant, Op: "const", Dest: in.Dest, Type: in.Type, Value: lit}
	}

	if (in.Op == "and" || in.Op == "or") && len(in.Args) == 2 {
		if lit, ok := st.foldPartialLogical(in); ok {
			return ir.Instruction{Kind: ir.KindConstant, Op: "const", Dest: in.Dest, Type: in.Type, Value: lit}
		}
	}

	if len(in.Args) == 2 && in.Args[0] == in.Args[1] {
		if result, ok := ir.IdempotentCompareResult(in.Op); ok {
			return ir.Instruction{Kind: ir.KindConstant, Op: "const", Dest: in.Dest, Type: in.Type, Value: ir.BoolLiteral(result)}
		}
	}

	return in
}

func (st *state) foldAllConst(in ir.Instruction) (ir.Literal, bool) {
	lits := make([]ir.Literal, len(in.Args))
	for i, a := range in.Args {
		lit, ok := st.constOf(a)
		if !ok {
			return ir.Literal{}, false
		}
		lits[i] = lit
	}
	return evalConst(in.Op, lits)
}

// evalConst evaluates op over args in their given order. ok is false for
// an op this function doesn't fold (e.g. div by zero, or an unrecognized
// op), in which case the caller leaves the instruction unfolded.
func evalConst(op string, args []ir.Literal) (ir.Literal, bool) {
	switch op {
	case "add":
		return ir.IntLiteral(args[0].Int + args[1].Int), true
	case "sub":
		return ir.IntLiteral(args[0].Int - args[1].Int), true
	case "mul":
		return ir.IntLiteral(args[0].Int * args[1].Int), true
	case "div":
		if args[1].Int == 0 {
			return ir.Literal{}, false
		}
		return ir.IntLiteral(args[0].Int / args[1].Int), true
	case "eq":
		return ir.BoolLiteral(args[0].Int == args[1].Int), true
	case "ne":
		return ir.BoolLiteral(args[0].Int != args[1].Int), true
	case "lt":
		return ir.BoolLiteral(args[0].Int < args[1].Int), true
	case "le":
		return ir.BoolLiteral(args[0].Int <= args[1].Int), true
	case "gt":
		return ir.BoolLiteral(args[0].Int > args[1].Int), true
	case "ge":
		return ir.BoolLiteral(args[0].Int >= args[1].Int), true
	case "and":
		return ir.BoolLiteral(args[0].Bool && args[1].Bool), true
	case "or":
		return ir.BoolLiteral(args[0].Bool || args[1].Bool), true
	case "not":
		return ir.BoolLiteral(!args[0].Bool), true
	default:
		return ir.Literal{}, false
	}
}

// foldPartialLogical handles and/or when only one operand is a known
// constant but that value alone decides the result: `and` with a false
// operand is false regardless of the other; `or` with a true operand is
// true regardless of the other.
func (st *state) foldPartialLogical(in ir.Instruction) (ir.Literal, bool) {
	a, aOK := st.constOf(in.Args[0])
	b, bOK := st.constOf(in.Args[1])
	if !aOK && !bOK {
		return ir.Literal{}, false
	}
	if in.Op == "and" {
		if aOK && !a.Bool {
			return ir.BoolLiteral(false), true
		}
		if bOK && !b.Bool {
			return ir.BoolLiteral(false), true
		}
	}
	if in.Op == "or" {
		if aOK && a.Bool {
			return ir.BoolLiteral(true), true
		}
		if bOK && b.Bool {
			return ir.BoolLiteral(true), true
		}
	}
	return ir.Literal{}, false
}
