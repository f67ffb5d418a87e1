// Package licm hoists loop-invariant computations out of natural loops
// and into their preheader: a reducible-CFG precondition, a fixed-point
// invariance test over (block, instruction) sites, and a hoist-safety
// check guarding against moving anything whose result could be observed
// from a point the hoisted definition doesn't dominate.
package licm

import (
	"sort"

	"github.com/briltools/brilopt/internal/cfg"
	"github.com/briltools/brilopt/internal/ir"
)

// site identifies one instruction by its block and position within that
// block's current (possibly already-hoisted-from) instruction list.
type site struct {
	block string
	idx   int
}

// workingSet is the function's instructions grouped by block, mutated in
// place as back edges are processed. Block membership in the CFG never
// changes during a run — only the instructions a block holds — so the
// same cfg.Graph and cfg.Dominators computed up front stay valid across
// every back edge.
type workingSet struct {
	order  []string
	instrs map[string][]ir.Instruction
}

func newWorkingSet(g *cfg.Graph) *workingSet {
	w := &workingSet{
		order:  append([]string(nil), g.Order...),
		instrs: make(map[string][]ir.Instruction, len(g.Order)),
	}
	for _, label := range g.Order {
		b := g.Block(label)
		w.instrs[label] = append([]ir.Instruction(nil), b.Instrs...)
	}
	return w
}

func (w *workingSet) toFunction(fn *ir.Function) *ir.Function {
	out := fn.Clone()
	flat := make([]ir.Instruction, 0, len(fn.Instrs))
	for _, label := range w.order {
		flat = append(flat, w.instrs[label]...)
	}
	out.Instrs = flat
	return out
}

// Run hoists every safely-movable loop-invariant instruction to its
// loop's preheader. CFG topology (block labels, successors, terminators)
// never changes; only instruction placement within blocks does.
func Run(fn *ir.Function) (*ir.Function, error) {
	g, err := cfg.Build(fn, false)
	if err != nil {
		return nil, err
	}
	// With zero or one block there is no preheader outside a loop to hoist into.
	if len(g.Order) <= 1 {
		return fn.Clone(), nil
	}
	dom := cfg.Compute(g)
	backEdges := cfg.BackEdges(g, dom)
	if !cfg.Reducible(g, backEdges) {
		return fn.Clone(), nil
	}

	w := newWorkingSet(g)
	for _, be := range orderOutermostFirst(dom, backEdges) {
		if !cfg.Reachable(g, be.Tail) {
			continue
		}
		hoistLoop(w, g, dom, be)
	}
	return w.toFunction(fn), nil
}

// orderOutermostFirst sorts back edges so a loop header that dominates
// another loop's header is processed first — an instruction invariant in
// both the inner and outer loop then migrates all the way out to the
// outer preheader in this single pass, rather than stopping at the inner
// one. A node's dominator set size is a valid proxy for depth in the
// dominator tree: a dominator's own dom set is always a strict subset of
// anything it dominates.
func orderOutermostFirst(dom *cfg.Dominators, edges []cfg.BackEdge) []cfg.BackEdge {
	out := append([]cfg.BackEdge(nil), edges...)
	sort.SliceStable(out, func(i, j int) bool {
		di, dj := len(dom.Dom[out[i].Head]), len(dom.Dom[out[j].Head])
		if di != dj {
			return di < dj
		}
		if out[i].Head != out[j].Head {
			return out[i].Head < out[j].Head
		}
		return out[i].Tail < out[j].Tail
	})
	return out
}

// preheaderBlocks returns pred(head) \ loopNodes: every block outside the
// loop that flows directly into head. When this set has more than one
// member, every member receives a copy of each hoisted instruction
// rather than forcing a synthetic unique preheader into existence.
func preheaderBlocks(g *cfg.Graph, head string, loopNodes map[string]bool) []string {
	seen := map[string]bool{}
	var out []string
	for _, p := range g.Pred[head] {
		if loopNodes[p] || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// useDefSites scans the whole function's current instructions (not just
// the loop body — invariance depends on definitions anywhere, including
// outside the loop) and records, for every variable, its single
// definition site and every site where it's read as an argument.
func useDefSites(w *workingSet) (useSites map[string][]site, defSite map[string]site) {
	useSites = map[string][]site{}
	defSite = map[string]site{}
	for _, label := range w.order {
		for idx, in := range w.instrs[label] {
			for _, a := range in.Args {
				useSites[a] = append(useSites[a], site{label, idx})
			}
			if in.Dest != "" {
				defSite[in.Dest] = site{label, idx}
			}
		}
	}
	return useSites, defSite
}

// computeInvariant finds the fixed point of loop-invariant (block, idx)
// sites within loopNodes: an instruction with arguments is invariant if
// EVERY argument, independently, is either undefined anywhere in the
// function (a parameter), defined outside the loop, or defined by an
// instruction already known invariant AND not a Special op (hoistLoop
// separately keeps any instruction whose in-loop operand stayed behind) — a
// per-argument disjunction, not (as original_source/task3/licm.py
// computes it) two separate all-args-outside / all-args-already-
// invariant passes. The Python's coarser version misses exactly the
// case a per-argument scan is meant to catch: an instruction with one
// argument defined outside the loop and another defined by an
// already-invariant in-loop instruction. Instructions with no arguments
// (const, label, ret) are never candidates — there's nothing for them to
// inherit invariance from, and nothing to gain by moving them.
func computeInvariant(w *workingSet, loopNodes map[string]bool, defSite map[string]site) map[site]bool {
	invariant := map[site]bool{}
	for changed := true; changed; {
		changed = false
		for label := range loopNodes {
			for idx, in := range w.instrs[label] {
				if len(in.Args) == 0 {
					continue
				}
				s := site{label, idx}
				if invariant[s] {
					continue
				}
				if isInvariantInstr(w, in, loopNodes, invariant, defSite) {
					invariant[s] = true
					changed = true
				}
			}
		}
	}
	return invariant
}

// isInvariantInstr reports whether in qualifies as invariant given the
// current invariant set. Condition (b) — "defined by an already-
// invariant instruction" — additionally requires that defining
// instruction be non-Special: a Special op (phi, alloc, load, ...) is
// never physically relocated by hoistLoop regardless of its own
// invariance, so a downstream instruction that depends on one must not
// inherit invariance through it — doing so would hoist a value whose
// actual producer stays behind in the loop body, reading a definition
// that doesn't exist yet at the hoisted site.
func isInvariantInstr(w *workingSet, in ir.Instruction, loopNodes map[string]bool, invariant map[site]bool, defSite map[string]site) bool {
	for _, a := range in.Args {
		ds, ok := defSite[a]
		if !ok {
			continue // no definition anywhere: a parameter, outside by construction
		}
		if !loopNodes[ds.block] {
			continue // (a) defined outside the loop
		}
		if invariant[ds] && !w.instrs[ds.block][ds.idx].Special() {
			continue // (b) defined by an already-invariant, non-Special instruction
		}
		return false
	}
	return true
}

// isDivByLoopVariantDivisor reports the one possibly-erroring case worth
// guarding beyond Special ops: a div whose divisor is defined inside the
// loop. Hoisting it would evaluate the division exactly once
// before the loop runs at all, which can introduce a divide-by-zero that
// the original program would never have hit had the loop executed zero
// times. A divisor defined outside the loop carries no such risk — its
// value is already fixed before the loop is ever entered.
func isDivByLoopVariantDivisor(in ir.Instruction, loopNodes map[string]bool, defSite map[string]site) bool {
	if in.Op != "div" || len(in.Args) < 2 {
		return false
	}
	ds, ok := defSite[in.Args[1]]
	return ok && loopNodes[ds.block]
}

// hoistSafe reports whether every use of d outside its defining block b
// that isn't dominated by b is either a phi whose incoming labels are
// all inside the loop (the merge is itself loop-internal, so the value
// reaching it from outside b is never observed before b runs), or
// simply doesn't exist.
func hoistSafe(w *workingSet, defBlock string, dom *cfg.Dominators, loopNodes map[string]bool, uses []site) bool {
	for _, u := range uses {
		if dom.Dominates(defBlock, u.block) {
			continue
		}
		useInstr := w.instrs[u.block][u.idx]
		if useInstr.Op == "phi" && allLabelsIn(useInstr.Labels, loopNodes) {
			continue
		}
		return false
	}
	return true
}

func allLabelsIn(labels []string, loopNodes map[string]bool) bool {
	for _, l := range labels {
		if !loopNodes[l] {
			return false
		}
	}
	return true
}

// hoistLoop processes one back edge: it recomputes use/def sites and the
// invariant fixed point from the working set's CURRENT contents (rather
// than reusing a single snapshot across every back edge, as
// original_source/task3/licm.py's cfg_copy does), so an earlier back
// edge's hoists are fully reflected before the next back edge's
// invariance and dominance checks run.
func hoistLoop(w *workingSet, g *cfg.Graph, dom *cfg.Dominators, be cfg.BackEdge) {
	loopNodes := cfg.NaturalLoop(g, be)
	preheaders := preheaderBlocks(g, be.Head, loopNodes)
	if len(preheaders) == 0 {
		return
	}

	useSites, defSite := useDefSites(w)
	invariant := computeInvariant(w, loopNodes, defSite)
	hoisted := map[string]bool{}

	for _, label := range w.order {
		if !loopNodes[label] {
			continue
		}
		original := w.instrs[label]
		kept := make([]ir.Instruction, 0, len(original))
		for idx, in := range original {
			s := site{label, idx}
			if !invariant[s] || in.Dest == "" {
				kept = append(kept, in)
				continue
			}
			uses, hasUses := useSites[in.Dest]
			if !hasUses {
				kept = append(kept, in)
				continue
			}
			if in.Special() || isDivByLoopVariantDivisor(in, loopNodes, defSite) {
				kept = append(kept, in)
				continue
			}
			if !hoistSafe(w, label, dom, loopNodes, uses) {
				kept = append(kept, in)
				continue
			}
			// An operand defined in the loop by an instruction that was not
			// moved would not exist yet at the preheader.
			operandStays := false
			for _, a := range in.Args {
				if ds, ok := defSite[a]; ok && loopNodes[ds.block] && !hoisted[a] {
					operandStays = true
				}
			}
			if operandStays {
				kept = append(kept, in)
				continue
			}
			for _, ph := range preheaders {
				w.instrs[ph] = insertBeforeTerminator(w.instrs[ph], in)
			}
			hoisted[in.Dest] = true
		}
		w.instrs[label] = kept
	}
}

func insertBeforeTerminator(instrs []ir.Instruction, in ir.Instruction) []ir.Instruction {
	if len(instrs) > 0 && instrs[len(instrs)-1].Terminating() {
		term := instrs[len(instrs)-1]
		out := append([]ir.Instruction(nil), instrs[:len(instrs)-1]...)
		return append(out, in, term)
	}
	return append(instrs, in)
}
