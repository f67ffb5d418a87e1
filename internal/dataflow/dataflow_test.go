package dataflow

import (
	"testing"

	"github.com/briltools/brilopt/internal/blocks"
	"github.com/briltools/brilopt/internal/cfg"
	"github.com/briltools/brilopt/internal/ir"
)

func unionMerge(states []map[string]bool) map[string]bool {
	out := map[string]bool{}
	for _, s := range states {
		for k := range s {
			out[k] = true
		}
	}
	return out
}

func setsEq(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

// A reaching-"tag" transfer: each block adds its own label to the
// incoming set, letting a test assert which blocks can reach which.
func tagTransfer(b *blocks.Block, in map[string]bool) map[string]bool {
	out := map[string]bool{}
	for k := range in {
		out[k] = true
	}
	out[b.Label] = true
	return out
}

func TestRunForwardDiamondReachesJoinFromBoth(t *testing.T) {
	fn := &ir.Function{
		Name: "diamond",
		Instrs: []ir.Instruction{
			{Kind: ir.KindLabel, Label: "start"},
			{Kind: ir.KindEffectOp, Op: "br", Args: []string{"c"}, Labels: []string{"left", "right"}},
			{Kind: ir.KindLabel, Label: "left"},
			{Kind: ir.KindEffectOp, Op: "jmp", Labels: []string{"join"}},
			{Kind: ir.KindLabel, Label: "right"},
			{Kind: ir.KindEffectOp, Op: "jmp", Labels: []string{"join"}},
			{Kind: ir.KindLabel, Label: "join"},
			{Kind: ir.KindEffectOp, Op: "ret"},
		},
	}
	g, err := cfg.Build(fn, false)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	res := Run(g, unionMerge, tagTransfer, setsEq, map[string]bool{}, map[string]bool{}, true)
	if !res.Out["join"]["left"] || !res.Out["join"]["right"] {
		t.Errorf("want join's out-state to include tags from both branches: %v", res.Out["join"])
	}
	// start has no predecessors; with hasSeed=true and seed={} its
	// in-state should be empty, not carry any tag.
	if len(res.In["start"]) != 0 {
		t.Errorf("want start's in-state empty, got %v", res.In["start"])
	}
}

func TestRunBackwardUsesReversedGraph(t *testing.T) {
	fn := &ir.Function{
		Name: "chain",
		Instrs: []ir.Instruction{
			{Kind: ir.KindLabel, Label: "a"},
			{Kind: ir.KindEffectOp, Op: "jmp", Labels: []string{"b"}},
			{Kind: ir.KindLabel, Label: "b"},
			{Kind: ir.KindEffectOp, Op: "ret"},
		},
	}
	rev, err := cfg.Build(fn, true)
	if err != nil {
		t.Fatalf("Build reverse: %v", err)
	}
	res := Run(rev, unionMerge, tagTransfer, setsEq, map[string]bool{}, map[string]bool{}, true)
	// Traveling backward from b, a's out-state should include b's tag.
	if !res.Out["a"]["b"] {
		t.Errorf("want a's backward out-state to include b, got %v", res.Out["a"])
	}
}

func TestRunStabilizesOnLoop(t *testing.T) {
	fn := &ir.Function{
		Name: "loop",
		Instrs: []ir.Instruction{
			{Kind: ir.KindLabel, Label: "start"},
			{Kind: ir.KindEffectOp, Op: "jmp", Labels: []string{"header"}},
			{Kind: ir.KindLabel, Label: "header"},
			{Kind: ir.KindEffectOp, Op: "br", Args: []string{"c"}, Labels: []string{"body", "exit"}},
			{Kind: ir.KindLabel, Label: "body"},
			{Kind: ir.KindEffectOp, Op: "jmp", Labels: []string{"header"}},
			{Kind: ir.KindLabel, Label: "exit"},
			{Kind: ir.KindEffectOp, Op: "ret"},
		},
	}
	g, err := cfg.Build(fn, false)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	res := Run(g, unionMerge, tagTransfer, setsEq, map[string]bool{}, nil, false)
	if !res.Out["exit"]["body"] {
		t.Errorf("want exit's reaching set to include body (via header), got %v", res.Out["exit"])
	}
}
