package ssa

import "github.com/briltools/brilopt/internal/ir"

// IsSSA reports whether every dest in fn is assigned at most once.
func IsSSA(fn *ir.Function) bool {
	assigned := make(map[string]bool)
	for _, in := range fn.Instrs {
		if in.Dest == "" {
			continue
		}
		if assigned[in.Dest] {
			return false
		}
		assigned[in.Dest] = true
	}
	return true
}
