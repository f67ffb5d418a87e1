// Package cfg builds the control-flow graph over a function's basic
// blocks and the family of static analyses that sit directly on top of
// it: dominators, dominance frontiers, the dominator tree, back edges,
// natural loops, reducibility and reachability.
package cfg

import (
	"github.com/briltools/brilopt/internal/blocks"
	"github.com/briltools/brilopt/internal/diagnostics"
	"github.com/briltools/brilopt/internal/ir"
)

// EndLabel is the synthetic sink a fall-through successor resolves to
// when it falls off the end of the function's last block.
const EndLabel = "end"

// Graph is a function's control-flow graph: blocks keyed by label, plus
// successor/predecessor adjacency. Built with Reverse=true, Succ and
// Pred are swapped relative to the function's actual control flow — the
// reverse CFG that backward dataflow analyses run on.
type Graph struct {
	Function string
	Reverse  bool
	Start    string
	Order    []string // block labels in source order (excludes the synthetic end)
	hasEnd   bool
	blockOf  map[string]*blocks.Block
	Succ     map[string][]string
	Pred     map[string][]string
}

// Block returns the block for label, or nil if label names the
// synthetic end node or is unknown.
func (g *Graph) Block(label string) *blocks.Block {
	return g.blockOf[label]
}

// Has reports whether label names a node of the graph (a real block or
// the synthetic end node).
func (g *Graph) Has(label string) bool {
	if label == EndLabel {
		return true
	}
	_, ok := g.blockOf[label]
	return ok
}

// Labels returns every node label in the graph, including the synthetic
// end node if one was created.
func (g *Graph) Labels() []string {
	out := append([]string(nil), g.Order...)
	if g.hasEnd {
		out = append(out, EndLabel)
	}
	return out
}

// Build constructs the control-flow graph for a function's instructions
// per spec: a block ending in jmp/br gets that instruction's targets as
// successors; ret gets none; anything else falls through to the next
// block in source order, or to the synthetic end node if it's last.
// reverse swaps successor and predecessor roles during construction,
// producing the graph backward analyses run over. Build fails with a
// MalformedIR diagnostics.Error if a jump or branch targets an undefined
// label.
func Build(fn *ir.Function, reverse bool) (*Graph, error) {
	bs := blocks.Build(fn.Instrs)
	g := &Graph{
		Function: fn.Name,
		Reverse:  reverse,
		blockOf:  make(map[string]*blocks.Block, len(bs)),
		Succ:     make(map[string][]string, len(bs)),
		Pred:     make(map[string][]string, len(bs)),
	}
	if len(bs) == 0 {
		return g, nil
	}
	g.Start = bs[0].Label
	for _, b := range bs {
		g.blockOf[b.Label] = b
		g.Order = append(g.Order, b.Label)
	}

	addEdge := func(from, to string) {
		if reverse {
			g.Pred[from] = append(g.Pred[from], to)
			g.Succ[to] = append(g.Succ[to], from)
		} else {
			g.Succ[from] = append(g.Succ[from], to)
			g.Pred[to] = append(g.Pred[to], from)
		}
	}

	for i, b := range bs {
		term, hasTerm := b.Terminator()
		switch {
		case hasTerm && term.Op == "jmp":
			target := term.Labels[0]
			if !g.knownLabel(target) {
				return nil, diagnostics.Malformed(fn.Name, b.Label, len(b.Instrs)-1, "jmp targets undefined label %q", target)
			}
			addEdge(b.Label, target)
		case hasTerm && term.Op == "br":
			for _, target := range term.Labels {
				if !g.knownLabel(target) {
					return nil, diagnostics.Malformed(fn.Name, b.Label, len(b.Instrs)-1, "br targets undefined label %q", target)
				}
				addEdge(b.Label, target)
			}
		case hasTerm && term.Op == "ret":
			// No successors.
		case hasTerm:
			return nil, diagnostics.Malformed(fn.Name, b.Label, len(b.Instrs)-1, "unrecognized terminating op %q", term.Op)
		default:
			// Fall-through: the next block in source order, or the
			// synthetic end node if this is the last block.
			if i+1 < len(bs) {
				addEdge(b.Label, bs[i+1].Label)
			} else {
				g.hasEnd = true
				addEdge(b.Label, EndLabel)
			}
		}
	}
	return g, nil
}

func (g *Graph) knownLabel(label string) bool {
	if label == EndLabel {
		return true
	}
	_, ok := g.blockOf[label]
	return ok
}
