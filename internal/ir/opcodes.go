package ir

// Terminating is the set of ops that close a basic block.
var Terminating = map[string]bool{
	"jmp": true,
	"br":  true,
	"ret": true,
}

// Commutative is the set of ops whose argument list LVN may canonicalize
// by sorting, since swapping arguments doesn't change the result.
var Commutative = map[string]bool{
	"add": true,
	"mul": true,
	"and": true,
	"or":  true,
	"eq":  true,
	"ne":  true,
}

// Special is the set of ops with side effects or non-pure semantics that
// LVN and LICM must never fold or move. LICM additionally forbids
// divide-by-zero and any phi, handled separately by its callers.
var Special = map[string]bool{
	"call":  true,
	"alloc": true,
	"load":  true,
	"store": true,
	"free":  true,
	"print": true,
	"phi":   true,
}

// Comparison is the set of ops producing a bool from two int args.
var Comparison = map[string]bool{
	"eq": true, "ne": true, "lt": true, "le": true, "gt": true, "ge": true,
}

// Logical is the set of boolean-producing logic ops (excluding comparisons).
var Logical = map[string]bool{
	"and": true, "or": true, "not": true,
}

// Arithmetic is the set of int-producing arithmetic ops.
var Arithmetic = map[string]bool{
	"add": true, "sub": true, "mul": true, "div": true,
}

// IdempotentCompareResult reports the statically-known result of a
// comparison op applied to two syntactically identical operands, before
// any SSA renaming has occurred. ok is false for ops with no such identity.
func IdempotentCompareResult(op string) (result bool, ok bool) {
	switch op {
	case "eq", "le", "ge":
		return true, true
	case "ne", "lt", "gt":
		return false, true
	default:
		return false, false
	}
}
