package blocks

import (
	"testing"

	"github.com/briltools/brilopt/internal/ir"
)

func label(name string) ir.Instruction {
	return ir.Instruction{Kind: ir.KindLabel, Label: name}
}

func constInstr(dest string, n int64) ir.Instruction {
	return ir.Instruction{Kind: ir.KindConstant, Op: "const", Dest: dest, Type: ir.NamedType("int"), Value: ir.IntLiteral(n)}
}

func jmp(target string) ir.Instruction {
	return ir.Instruction{Kind: ir.KindEffectOp, Op: "jmp", Labels: []string{target}}
}

func ret() ir.Instruction {
	return ir.Instruction{Kind: ir.KindEffectOp, Op: "ret"}
}

func TestBuildNoLeadingLabel(t *testing.T) {
	in := []ir.Instruction{constInstr("a", 1), ret()}
	bs := Build(in)
	if len(bs) != 1 {
		t.Fatalf("want 1 block, got %d", len(bs))
	}
	if bs[0].Label != StartLabel {
		t.Errorf("want label %q, got %q", StartLabel, bs[0].Label)
	}
	if len(bs[0].Instrs) != 2 {
		t.Errorf("want 2 instructions in block, got %d", len(bs[0].Instrs))
	}
}

func TestBuildAllExplicitLabels(t *testing.T) {
	in := []ir.Instruction{
		label("entry"),
		constInstr("a", 1),
		jmp("exit"),
		label("exit"),
		ret(),
	}
	bs := Build(in)
	if len(bs) != 2 {
		t.Fatalf("want 2 blocks, got %d", len(bs))
	}
	if bs[0].Label != "entry" || bs[1].Label != "exit" {
		t.Errorf("want labels entry/exit, got %s/%s", bs[0].Label, bs[1].Label)
	}
}

func TestBuildZeroInstructions(t *testing.T) {
	if bs := Build(nil); len(bs) != 0 {
		t.Errorf("want 0 blocks for empty input, got %d", len(bs))
	}
}

func TestBuildUnreachableLabelLessBlockGetsUniqueName(t *testing.T) {
	// A ret followed by unreachable, unlabeled code: the second block has
	// no leading Label and isn't the function's first block, so it must
	// not collide with "start".
	in := []ir.Instruction{
		constInstr("a", 1),
		ret(),
		constInstr("b", 2),
		ret(),
	}
	bs := Build(in)
	if len(bs) != 2 {
		t.Fatalf("want 2 blocks, got %d", len(bs))
	}
	if bs[0].Label != StartLabel {
		t.Errorf("want first block labeled %q, got %q", StartLabel, bs[0].Label)
	}
	if bs[1].Label == StartLabel || bs[1].Label == "" {
		t.Errorf("want second label-less block to get a unique non-empty name, got %q", bs[1].Label)
	}
}

func TestTerminatorFallThrough(t *testing.T) {
	in := []ir.Instruction{label("l"), constInstr("a", 1)}
	bs := Build(in)
	if len(bs) != 1 {
		t.Fatalf("want 1 block, got %d", len(bs))
	}
	if _, ok := bs[0].Terminator(); ok {
		t.Errorf("want no terminator for a fall-through block")
	}
}

func TestFlattenRoundTrip(t *testing.T) {
	in := []ir.Instruction{label("l"), constInstr("a", 1), ret()}
	bs := Build(in)
	out := Flatten(bs)
	if len(out) != len(in) {
		t.Fatalf("want %d instructions after flatten, got %d", len(in), len(out))
	}
}
