package lvn

import (
	"testing"

	"github.com/briltools/brilopt/internal/ir"
)

func constInt(dest string, n int64) ir.Instruction {
	return ir.Instruction{Kind: ir.KindConstant, Op: "const", Dest: dest, Type: ir.NamedType("int"), Value: ir.IntLiteral(n)}
}

func binop(op, dest, a, b string) ir.Instruction {
	return ir.Instruction{Kind: ir.KindValueOp, Op: op, Dest: dest, Type: ir.NamedType("int"), Args: []string{a, b}}
}

func idOp(dest, arg string) ir.Instruction {
	return ir.Instruction{Kind: ir.KindValueOp, Op: "id", Dest: dest, Type: ir.NamedType("int"), Args: []string{arg}}
}

func printOp(args ...string) ir.Instruction {
	return ir.Instruction{Kind: ir.KindEffectOp, Op: "print", Args: args}
}

func findDest(instrs []ir.Instruction, dest string) (ir.Instruction, bool) {
	for _, in := range instrs {
		if in.Dest == dest {
			return in, true
		}
	}
	return ir.Instruction{}, false
}

func TestConstantFoldingArithmetic(t *testing.T) {
	instrs := []ir.Instruction{
		constInt("a", 4),
		constInt("b", 2),
		binop("sub", "c", "a", "b"),
		printOp("c"),
	}
	out := Block(instrs)
	c, ok := findDest(out, "c")
	if !ok {
		t.Fatalf("want instruction assigning c, got %+v", out)
	}
	if c.Kind != ir.KindConstant || c.Value.Int != 2 {
		t.Errorf("want c folded to const 2, got %+v", c)
	}
}

func TestConstantFoldingPreservesOperandOrder(t *testing.T) {
	// sub is non-commutative: a - b must not be silently reordered to b - a.
	instrs := []ir.Instruction{
		constInt("a", 10),
		constInt("b", 3),
		binop("sub", "c", "a", "b"),
	}
	out := Block(instrs)
	c, _ := findDest(out, "c")
	if c.Value.Int != 7 {
		t.Errorf("want 10-3=7, got %d", c.Value.Int)
	}
}

func TestDivByZeroNotFolded(t *testing.T) {
	instrs := []ir.Instruction{
		constInt("a", 10),
		constInt("b", 0),
		binop("div", "c", "a", "b"),
	}
	out := Block(instrs)
	c, _ := findDest(out, "c")
	if c.Kind == ir.KindConstant {
		t.Errorf("want div by zero left unfolded, got %+v", c)
	}
	if c.Op != "div" {
		t.Errorf("want c still a div op, got %q", c.Op)
	}
}

func TestPartialEvaluationAndFalse(t *testing.T) {
	instrs := []ir.Instruction{
		{Kind: ir.KindConstant, Op: "const", Dest: "f", Type: ir.NamedType("bool"), Value: ir.BoolLiteral(false)},
		{Kind: ir.KindValueOp, Op: "and", Dest: "r", Type: ir.NamedType("bool"), Args: []string{"f", "unknown"}},
	}
	out := Block(instrs)
	r, _ := findDest(out, "r")
	if r.Kind != ir.KindConstant || r.Value.Bool != false {
		t.Errorf("want `and` with a false operand folded to false, got %+v", r)
	}
}

func TestPartialEvaluationOrTrue(t *testing.T) {
	instrs := []ir.Instruction{
		{Kind: ir.KindConstant, Op: "const", Dest: "tt", Type: ir.NamedType("bool"), Value: ir.BoolLiteral(true)},
		{Kind: ir.KindValueOp, Op: "or", Dest: "r", Type: ir.NamedType("bool"), Args: []string{"unknown", "tt"}},
	}
	out := Block(instrs)
	r, _ := findDest(out, "r")
	if r.Kind != ir.KindConstant || r.Value.Bool != true {
		t.Errorf("want `or` with a true operand folded to true, got %+v", r)
	}
}

func TestIdempotentComparison(t *testing.T) {
	instrs := []ir.Instruction{
		{Kind: ir.KindValueOp, Op: "lt", Dest: "r", Type: ir.NamedType("bool"), Args: []string{"x", "x"}},
	}
	out := Block(instrs)
	r, _ := findDest(out, "r")
	if r.Kind != ir.KindConstant || r.Value.Bool != false {
		t.Errorf("want `lt x x` folded to false, got %+v", r)
	}
}

func TestCommonSubexpressionElimination(t *testing.T) {
	instrs := []ir.Instruction{
		{Kind: ir.KindValueOp, Op: "add", Dest: "a", Type: ir.NamedType("int"), Args: []string{"x", "y"}},
		{Kind: ir.KindValueOp, Op: "add", Dest: "b", Type: ir.NamedType("int"), Args: []string{"x", "y"}},
		printOp("a", "b"),
	}
	out := Block(instrs)
	b, ok := findDest(out, "b")
	if !ok {
		t.Fatalf("want instruction assigning b, got %+v", out)
	}
	if b.Op != "id" || len(b.Args) != 1 || b.Args[0] != "a" {
		t.Errorf("want b rewritten to `id a`, got %+v", b)
	}
}

func TestCommutativeCanonicalization(t *testing.T) {
	instrs := []ir.Instruction{
		{Kind: ir.KindValueOp, Op: "add", Dest: "a", Type: ir.NamedType("int"), Args: []string{"x", "y"}},
		{Kind: ir.KindValueOp, Op: "add", Dest: "b", Type: ir.NamedType("int"), Args: []string{"y", "x"}},
	}
	out := Block(instrs)
	b, ok := findDest(out, "b")
	if !ok {
		t.Fatalf("want instruction assigning b, got %+v", out)
	}
	if b.Op != "id" || len(b.Args) != 1 || b.Args[0] != "a" {
		t.Errorf("want commutative add x+y and y+x to unify, got %+v", b)
	}
}

func TestSelfCopyDiscarded(t *testing.T) {
	instrs := []ir.Instruction{
		printOp("x"),
		idOp("x", "x"),
		printOp("x"),
	}
	out := Block(instrs)
	for _, in := range out {
		if in.Op == "id" {
			t.Errorf("want self-copy `x = id x` discarded, found %+v", in)
		}
	}
}

func TestReassignmentGetsFreshRepresentative(t *testing.T) {
	instrs := []ir.Instruction{
		{Kind: ir.KindValueOp, Op: "add", Dest: "x", Type: ir.NamedType("int"), Args: []string{"a", "b"}},
		printOp("x"),
		constInt("x", 9),
		{Kind: ir.KindValueOp, Op: "add", Dest: "y", Type: ir.NamedType("int"), Args: []string{"a", "b"}},
	}
	out := Block(instrs)
	y, ok := findDest(out, "y")
	if !ok {
		t.Fatalf("want instruction assigning y, got %+v", out)
	}
	if y.Op != "id" {
		t.Errorf("want y's recomputation of a+b reused via CSE against the renamed first add, got %+v", y)
	}
	if y.Args[0] == "x" {
		t.Errorf("want y's CSE target to be the renamed representative, not the reassigned x, got %+v", y)
	}
}

func TestIdPropagatesConstant(t *testing.T) {
	instrs := []ir.Instruction{
		constInt("a", 5),
		idOp("b", "a"),
	}
	out := Block(instrs)
	b, ok := findDest(out, "b")
	if !ok {
		t.Fatalf("want instruction assigning b, got %+v", out)
	}
	if b.Kind != ir.KindConstant || b.Value.Int != 5 {
		t.Errorf("want b = id a to propagate a's constant 5, got %+v", b)
	}
}
