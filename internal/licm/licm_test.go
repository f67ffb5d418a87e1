package licm

import (
	"testing"

	"github.com/briltools/brilopt/internal/ir"
)

func lbl(name string) ir.Instruction { return ir.Instruction{Kind: ir.KindLabel, Label: name} }
func ret() ir.Instruction            { return ir.Instruction{Kind: ir.KindEffectOp, Op: "ret"} }

func jmp(target string) ir.Instruction {
	return ir.Instruction{Kind: ir.KindEffectOp, Op: "jmp", Labels: []string{target}}
}

func br(cond, t, f string) ir.Instruction {
	return ir.Instruction{Kind: ir.KindEffectOp, Op: "br", Args: []string{cond}, Labels: []string{t, f}}
}

func constInt(dest string, n int64) ir.Instruction {
	return ir.Instruction{Kind: ir.KindConstant, Op: "const", Dest: dest, Type: ir.NamedType("int"), Value: ir.IntLiteral(n)}
}

func binop(op, dest, a, b string) ir.Instruction {
	return ir.Instruction{Kind: ir.KindValueOp, Op: op, Dest: dest, Type: ir.NamedType("int"), Args: []string{a, b}}
}

func phi(dest string, args, labels []string) ir.Instruction {
	return ir.Instruction{Kind: ir.KindValueOp, Op: "phi", Dest: dest, Type: ir.NamedType("int"), Args: args, Labels: labels}
}

func printI(args ...string) ir.Instruction {
	return ir.Instruction{Kind: ir.KindEffectOp, Op: "print", Args: args}
}

func findBlock(instrs []ir.Instruction, label string) []ir.Instruction {
	var out []ir.Instruction
	inBlock := false
	for _, in := range instrs {
		if in.Kind == ir.KindLabel {
			inBlock = in.Label == label
			if inBlock {
				out = append(out, in)
			}
			continue
		}
		if inBlock {
			out = append(out, in)
		}
	}
	return out
}

func hasOp(instrs []ir.Instruction, op, dest string) bool {
	for _, in := range instrs {
		if in.Op == op && in.Dest == dest {
			return true
		}
	}
	return false
}

// loopFunction builds:
//
//	start:  p = const 5; q = const 7; jmp header
//	header: i = phi i0 i2 [start, body]; cond = id flag; br cond body end
//	body:   x = add p q; i2 = add i one; y = add i x; jmp header
//	end:    ret
//
// x is invariant (p, q defined in start, outside the loop). i2 and y both
// depend on i, which is defined in the loop by the phi, so neither is
// invariant.
func loopFunction() *ir.Function {
	return &ir.Function{
		Name:   "f",
		Params: []ir.Parameter{{Name: "flag", Type: ir.NamedType("bool")}},
		Instrs: []ir.Instruction{
			lbl("start"),
			constInt("p", 5),
			constInt("q", 7),
			constInt("one", 1),
			constInt("i0", 0),
			jmp("header"),
			lbl("header"),
			phi("i", []string{"i0", "i2"}, []string{"start", "body"}),
			ir.Instruction{Kind: ir.KindValueOp, Op: "id", Dest: "cond", Type: ir.NamedType("bool"), Args: []string{"flag"}},
			br("cond", "body", "end"),
			lbl("body"),
			binop("add", "x", "p", "q"),
			binop("add", "i2", "i", "one"),
			binop("add", "y", "i", "x"),
			printI("x", "y"),
			jmp("header"),
			lbl("end"),
			ret(),
		},
	}
}

func TestSimpleLoopHoistsInvariantComputation(t *testing.T) {
	out, err := Run(loopFunction())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	start := findBlock(out.Instrs, "start")
	body := findBlock(out.Instrs, "body")
	if !hasOp(start, "add", "x") {
		t.Errorf("want `x = add p q` hoisted into start, got %+v", start)
	}
	if hasOp(body, "add", "x") {
		t.Errorf("want `x = add p q` removed from body, got %+v", body)
	}
}

func TestLoopVaryingValueNotHoisted(t *testing.T) {
	out, err := Run(loopFunction())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	body := findBlock(out.Instrs, "body")
	if !hasOp(body, "add", "i2") {
		t.Errorf("want `i2 = add i one` to stay in body (depends on loop-carried i), got %+v", body)
	}
	if !hasOp(body, "add", "y") {
		t.Errorf("want `y = add i x` to stay in body (depends on loop-carried i), got %+v", body)
	}
}

// divFunction builds a loop where the divisor of a div is itself
// invariant by its own arguments, but is DEFINED inside the loop body —
// the case that's unsafe to hoist regardless of invariance, since
// hoisting would divide exactly once even if the loop never runs.
//
//	start:  p = const 10; c = const 3; one = const 1; jmp header
//	header: br flag body end
//	body:   p2 = add p one   (invariant: p, one both defined in start)
//	        z = div c p2     (invariant by args, but p2's def site is in body)
//	        jmp header
//	end:    ret
func divFunction() *ir.Function {
	return &ir.Function{
		Name:   "f",
		Params: []ir.Parameter{{Name: "flag", Type: ir.NamedType("bool")}},
		Instrs: []ir.Instruction{
			lbl("start"),
			constInt("p", 10),
			constInt("c", 3),
			constInt("one", 1),
			jmp("header"),
			lbl("header"),
			br("flag", "body", "end"),
			lbl("body"),
			binop("add", "p2", "p", "one"),
			binop("div", "z", "c", "p2"),
			jmp("header"),
			lbl("end"),
			ret(),
		},
	}
}

func TestDivByLoopDefinedDivisorNotHoisted(t *testing.T) {
	out, err := Run(divFunction())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	body := findBlock(out.Instrs, "body")
	if !hasOp(body, "div", "z") {
		t.Errorf("want div with loop-defined divisor to stay in body, got %+v", body)
	}
}

func TestDivByLoopDefinedDivisorInvariantOperandStillHoisted(t *testing.T) {
	out, err := Run(divFunction())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	start := findBlock(out.Instrs, "start")
	body := findBlock(out.Instrs, "body")
	if !hasOp(start, "add", "p2") {
		t.Errorf("want `p2 = add p one` hoisted (its own args are outside the loop), got start=%+v", start)
	}
	if hasOp(body, "add", "p2") {
		t.Errorf("want `p2 = add p one` removed from body, got %+v", body)
	}
}

func TestNonReducibleCFGReturnsUnchanged(t *testing.T) {
	// entry reaches b2 both directly and through b1, and b1/b2 form a
	// cycle with neither dominating the other: irreducible.
	fn := &ir.Function{
		Name: "f",
		Instrs: []ir.Instruction{
			lbl("entry"),
			br("flag", "b1", "b2"),
			lbl("b1"),
			jmp("b2"),
			lbl("b2"),
			br("flag2", "b1", "end"),
			lbl("end"),
			ret(),
		},
	}
	out, err := Run(fn)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(out.Instrs) != len(fn.Instrs) {
		t.Fatalf("want irreducible CFG returned unchanged, got %d instrs want %d", len(out.Instrs), len(fn.Instrs))
	}
	for i := range fn.Instrs {
		if out.Instrs[i].Op != fn.Instrs[i].Op || out.Instrs[i].Dest != fn.Instrs[i].Dest {
			t.Fatalf("want instruction %d unchanged, got %+v want %+v", i, out.Instrs[i], fn.Instrs[i])
		}
	}
}

// joinFunction builds a loop where x's defining block ("body") does not
// dominate a later use in "join", since "header" can reach "join"
// directly without passing through "body":
//
//	start:  p = const 5; q = const 7; jmp header
//	header: br cond body join
//	body:   x = add p q; jmp join
//	join:   print x; br cond2 header end
//	end:    ret
//
// join -> header is the back edge (header dominates join via both paths),
// so header/body/join are all in the loop. x is invariant (p, q outside
// the loop) but its only use, in join, isn't dominated by body — header
// reaches join directly, bypassing body — so hoisting is unsafe.
func joinFunction() *ir.Function {
	return &ir.Function{
		Name: "f",
		Instrs: []ir.Instruction{
			lbl("start"),
			constInt("p", 5),
			constInt("q", 7),
			jmp("header"),
			lbl("header"),
			br("cond", "body", "join"),
			lbl("body"),
			binop("add", "x", "p", "q"),
			jmp("join"),
			lbl("join"),
			printI("x"),
			br("cond2", "header", "end"),
			lbl("end"),
			ret(),
		},
	}
}

func TestNonDominatedUseBlocksHoist(t *testing.T) {
	out, err := Run(joinFunction())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	body := findBlock(out.Instrs, "body")
	if !hasOp(body, "add", "x") {
		t.Errorf("want `x = add p q` to stay in body (non-dominated non-phi use in join), got %+v", body)
	}
}

// joinPhiFunction is joinFunction's use of x replaced by a phi whose
// incoming labels (body, header) are both inside the loop, which is
// treated as safe despite the non-dominated use.
func joinPhiFunction() *ir.Function {
	return &ir.Function{
		Name: "f",
		Instrs: []ir.Instruction{
			lbl("start"),
			constInt("p", 5),
			constInt("q", 7),
			jmp("header"),
			lbl("header"),
			constInt("x0", 0),
			br("cond", "body", "join"),
			lbl("body"),
			binop("add", "x", "p", "q"),
			jmp("join"),
			lbl("join"),
			phi("z", []string{"x", "x0"}, []string{"body", "header"}),
			printI("z"),
			br("cond2", "header", "end"),
			lbl("end"),
			ret(),
		},
	}
}

// phiFeedingInvariantFunction builds a loop where the phi's back-edge
// argument is itself invariant (defined entirely from values outside the
// loop), so the phi satisfies computeInvariant's per-argument disjunction
// on both incoming values despite varying every iteration. y reads the
// phi result and is used only inside the loop, so hoistSafe alone would
// let it move if invariance ever leaked through the phi.
//
//	start:  i0 = const 0; one = const 1; ten = const 10; jmp header
//	header: i = phi i0 i2 [start, body]; cond = id flag; br cond body end
//	body:   i2 = add i0 one   (invariant: i0, one both outside the loop)
//	        y = add i ten     (depends on the phi; must stay in body)
//	        jmp header
//	end:    ret
func phiFeedingInvariantFunction() *ir.Function {
	return &ir.Function{
		Name:   "f",
		Params: []ir.Parameter{{Name: "flag", Type: ir.NamedType("bool")}},
		Instrs: []ir.Instruction{
			lbl("start"),
			constInt("i0", 0),
			constInt("one", 1),
			constInt("ten", 10),
			jmp("header"),
			lbl("header"),
			phi("i", []string{"i0", "i2"}, []string{"start", "body"}),
			ir.Instruction{Kind: ir.KindValueOp, Op: "id", Dest: "cond", Type: ir.NamedType("bool"), Args: []string{"flag"}},
			br("cond", "body", "end"),
			lbl("body"),
			binop("add", "i2", "i0", "one"),
			binop("add", "y", "i", "ten"),
			printI("y"),
			jmp("header"),
			lbl("end"),
			ret(),
		},
	}
}

func TestValueDependingOnInvariantPhiNotHoisted(t *testing.T) {
	out, err := Run(phiFeedingInvariantFunction())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	body := findBlock(out.Instrs, "body")
	if !hasOp(body, "add", "y") {
		t.Errorf("want `y = add i ten` to stay in body (i is a phi, never physically hoisted, even though both its incoming values satisfy the invariance disjunction), got %+v", body)
	}
}

func TestPhiWithInLoopLabelsAllowsHoist(t *testing.T) {
	out, err := Run(joinPhiFunction())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	start := findBlock(out.Instrs, "start")
	body := findBlock(out.Instrs, "body")
	if !hasOp(start, "add", "x") {
		t.Errorf("want `x = add p q` hoisted to start (its only use is a phi whose incoming labels are all in-loop), got start=%+v", start)
	}
	if hasOp(body, "add", "x") {
		t.Errorf("want `x = add p q` removed from body, got %+v", body)
	}
}
