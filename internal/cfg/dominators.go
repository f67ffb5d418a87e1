package cfg

import "sort"

// Dominators holds the full dom-set relation plus the derived immediate
// dominator and dominance frontier for every node of a Graph. Unreachable
// nodes (no path from Start) keep an empty Dom set, per spec: dominator
// computation is total on the reachable subgraph only.
type Dominators struct {
	Dom    map[string]map[string]bool // Dom[v] = set of nodes dominating v, including v itself
	Idom   map[string]string          // immediate dominator; absent for Start and unreachable nodes
	Front  map[string]map[string]bool // dominance frontier
	Kids   map[string][]string        // dominator-tree children of each node
}

// Compute runs the dominator fixed point, derives the immediate
// dominator and dominator tree from it, and computes the dominance
// frontier via the classic Cytron-style walk. It operates over every
// node Labels() reports, including the synthetic end node.
func Compute(g *Graph) *Dominators {
	labels := g.Labels()

	dom := make(map[string]map[string]bool, len(labels))
	dom[g.Start] = map[string]bool{g.Start: true}

	changed := true
	for changed {
		changed = false
		for _, v := range labels {
			if v == g.Start {
				continue
			}
			var merged map[string]bool
			for _, p := range g.Pred[v] {
				pd, known := dom[p]
				if !known {
					continue
				}
				if merged == nil {
					merged = cloneSet(pd)
					continue
				}
				merged = intersectSets(merged, pd)
			}
			if merged == nil {
				// No predecessor has a known dom set yet (v is not yet
				// provably reachable); leave it unset.
				continue
			}
			merged[v] = true
			if !setsEqual(merged, dom[v]) {
				dom[v] = merged
				changed = true
			}
		}
	}

	d := &Dominators{
		Dom:   dom,
		Idom:  make(map[string]string),
		Front: make(map[string]map[string]bool, len(labels)),
		Kids:  make(map[string][]string),
	}
	for _, v := range labels {
		d.Front[v] = map[string]bool{}
	}

	// Immediate dominator: among dom(v)\{v}, the element whose own dom
	// set is largest. Proper dominators of a node form a chain ordered
	// by set inclusion, so the largest is the closest (the idom).
	for _, v := range labels {
		if v == g.Start {
			continue
		}
		dv, ok := dom[v]
		if !ok {
			continue // unreachable
		}
		var best string
		for cand := range dv {
			if cand == v {
				continue
			}
			if best == "" || len(dom[cand]) > len(dom[best]) {
				best = cand
			}
		}
		if best != "" {
			d.Idom[v] = best
			d.Kids[best] = append(d.Kids[best], v)
		}
	}
	for k := range d.Kids {
		sort.Strings(d.Kids[k])
	}

	// Dominance frontier: for every node b with >=2 predecessors, walk
	// up from each predecessor along the dominator tree until reaching
	// idom(b), adding b to the frontier of every node visited along the
	// way (Cytron et al.).
	for _, b := range labels {
		if _, ok := dom[b]; !ok {
			continue // unreachable, no frontier
		}
		preds := g.Pred[b]
		if len(preds) < 2 {
			continue
		}
		ib := d.Idom[b]
		for _, p := range preds {
			if _, ok := dom[p]; !ok {
				continue
			}
			runner := p
			for runner != "" && runner != ib {
				d.Front[runner][b] = true
				runner = d.Idom[runner]
			}
		}
	}

	return d
}

// Dominates reports whether a dominates b (non-strict: a dominates a).
func (d *Dominators) Dominates(a, b string) bool {
	return d.Dom[b][a]
}

// StrictlyDominates reports whether a dominates b and a != b.
func (d *Dominators) StrictlyDominates(a, b string) bool {
	return a != b && d.Dominates(a, b)
}

func cloneSet(s map[string]bool) map[string]bool {
	out := make(map[string]bool, len(s))
	for k := range s {
		out[k] = true
	}
	return out
}

func intersectSets(a, b map[string]bool) map[string]bool {
	out := make(map[string]bool)
	for k := range a {
		if b[k] {
			out[k] = true
		}
	}
	return out
}

func setsEqual(a, b map[string]bool) bool {
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
