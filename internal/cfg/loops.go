package cfg

// BackEdge is a CFG edge (Tail -> Head) where Head dominates Tail,
// identifying Head as a natural loop header.
type BackEdge struct {
	Tail string
	Head string
}

// BackEdges returns every back edge in the graph: CFG edges (tail, head)
// where head dominates tail.
func BackEdges(g *Graph, d *Dominators) []BackEdge {
	var out []BackEdge
	for _, tail := range g.Labels() {
		for _, head := range g.Succ[tail] {
			if d.Dominates(head, tail) {
				out = append(out, BackEdge{Tail: tail, Head: head})
			}
		}
	}
	return out
}

// NaturalLoop computes the natural loop body of a back edge (tail, head):
// the smallest node set containing tail and head that is closed under
// predecessors without passing through head — a reverse reachability
// walk from tail that stops at head.
func NaturalLoop(g *Graph, be BackEdge) map[string]bool {
	body := map[string]bool{be.Head: true, be.Tail: true}
	worklist := []string{be.Tail}
	for len(worklist) > 0 {
		n := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		for _, p := range g.Pred[n] {
			if !body[p] {
				body[p] = true
				worklist = append(worklist, p)
			}
		}
	}
	return body
}

// Reducible reports whether the CFG is reducible: removing every back
// edge must leave an acyclic residual graph, tested by DFS with an
// explicit recursion stack.
func Reducible(g *Graph, backEdges []BackEdge) bool {
	removed := make(map[BackEdge]bool, len(backEdges))
	for _, be := range backEdges {
		removed[be] = true
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(g.Order))

	var visit func(n string) bool
	visit = func(n string) bool {
		color[n] = gray
		for _, s := range g.Succ[n] {
			if removed[BackEdge{Tail: n, Head: s}] {
				continue
			}
			switch color[s] {
			case gray:
				return false // cycle in the residual graph
			case white:
				if !visit(s) {
					return false
				}
			}
		}
		color[n] = black
		return true
	}

	for _, n := range g.Labels() {
		if color[n] == white {
			if !visit(n) {
				return false
			}
		}
	}
	return true
}

// Reachable reports whether target is reachable from g.Start via
// successor edges.
func Reachable(g *Graph, target string) bool {
	seen := map[string]bool{g.Start: true}
	worklist := []string{g.Start}
	for len(worklist) > 0 {
		n := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		if n == target {
			return true
		}
		for _, s := range g.Succ[n] {
			if !seen[s] {
				seen[s] = true
				worklist = append(worklist, s)
			}
		}
	}
	return seen[target]
}
