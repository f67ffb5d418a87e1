// Package ir defines the three-address intermediate representation that
// every pass in this repository reads and produces: a Program is an
// ordered list of Functions, a Function is an ordered list of
// Instructions, and an Instruction is a tagged union over the variants the
// wire format supports (label, constant, value operation, effect
// operation). Passes own their working copy of a Function's instruction
// list; nothing here mutates state shared across functions.
package ir

import "fmt"

// Kind discriminates the Instruction tagged union. Pattern-matching on
// Kind (instead of probing for optional JSON keys) is what lets malformed
// input surface as a diagnosed error at decode time rather than as a
// missing-key panic deep in a pass.
type Kind int

const (
	// KindLabel introduces a new basic-block boundary.
	KindLabel Kind = iota
	// KindConstant assigns a literal to Dest.
	KindConstant
	// KindValueOp computes a value into Dest from Args (and, for phi, Labels).
	KindValueOp
	// KindEffectOp performs a side effect or control transfer with no Dest.
	KindEffectOp
)

func (k Kind) String() string {
	switch k {
	case KindLabel:
		return "label"
	case KindConstant:
		return "const"
	case KindValueOp:
		return "value"
	case KindEffectOp:
		return "effect"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Type is a Bril type tag: either a simple name ("int", "bool", ...) or a
// pointer wrapping another Type ({"ptr": T}). The core never interprets
// pointer target types beyond this opaque wrapping, per spec.
type Type struct {
	Name string // "" when Ptr != nil
	Ptr  *Type  // non-nil for {"ptr": T}
}

// NamedType constructs a simple named type such as "int" or "bool".
func NamedType(name string) Type { return Type{Name: name} }

// PtrType constructs a pointer-to-elem type.
func PtrType(elem Type) Type {
	e := elem
	return Type{Ptr: &e}
}

// IsPtr reports whether t is a pointer type, regardless of its element.
func (t Type) IsPtr() bool { return t.Ptr != nil }

// Equal compares two types structurally.
func (t Type) Equal(o Type) bool {
	if t.IsPtr() != o.IsPtr() {
		return false
	}
	if t.IsPtr() {
		return t.Ptr.Equal(*o.Ptr)
	}
	return t.Name == o.Name
}

func (t Type) String() string {
	if t.IsPtr() {
		return "ptr<" + t.Ptr.String() + ">"
	}
	if t.Name == "" {
		return "<untyped>"
	}
	return t.Name
}

// Literal is a Constant instruction's value: an integer or a boolean.
// Keying const tuples by (Type, Literal) rather than Literal alone avoids
// the classic bug where a bool `true` and an int `1` collide.
type Literal struct {
	IsBool bool
	Bool   bool
	Int    int64
}

func IntLiteral(n int64) Literal { return Literal{Int: n} }
func BoolLiteral(b bool) Literal { return Literal{IsBool: true, Bool: b} }

func (l Literal) Equal(o Literal) bool {
	if l.IsBool != o.IsBool {
		return false
	}
	if l.IsBool {
		return l.Bool == o.Bool
	}
	return l.Int == o.Int
}

func (l Literal) String() string {
	if l.IsBool {
		if l.Bool {
			return "true"
		}
		return "false"
	}
	return fmt.Sprintf("%d", l.Int)
}

// Instruction is the tagged union described in spec: a Label, a Constant,
// a ValueOp or an EffectOp. Every field is valid only for the Kinds noted
// in its comment; passes should branch on Kind rather than probe fields.
type Instruction struct {
	Kind Kind

	// Label is valid for KindLabel: the block name this instruction introduces.
	Label string

	// Op is valid for KindConstant ("const"), KindValueOp and KindEffectOp.
	Op string

	// Dest and Type are valid for KindConstant and KindValueOp.
	Dest string
	Type Type

	// Value is valid for KindConstant.
	Value Literal

	// Args is valid for KindValueOp and KindEffectOp.
	Args []string

	// Labels is valid for KindValueOp (phi only) and KindEffectOp (jmp/br).
	Labels []string

	// Funcs is valid for call instructions (KindValueOp or KindEffectOp).
	Funcs []string
}

// Terminating reports whether this instruction ends a basic block.
func (in Instruction) Terminating() bool {
	return in.Kind == KindEffectOp && Terminating[in.Op]
}

// Commutative reports whether this instruction's op may have its
// argument list canonicalized by sorting.
func (in Instruction) Commutative() bool {
	return Commutative[in.Op]
}

// Special reports whether this instruction's op has side effects or
// otherwise non-pure semantics that LVN and LICM must never fold or move.
func (in Instruction) Special() bool {
	return Special[in.Op]
}

// Clone returns a deep-enough copy: slices are copied so a pass can mutate
// its own working copy without aliasing the input.
func (in Instruction) Clone() Instruction {
	out := in
	out.Args = append([]string(nil), in.Args...)
	out.Labels = append([]string(nil), in.Labels...)
	out.Funcs = append([]string(nil), in.Funcs...)
	return out
}

// Parameter is a function formal argument.
type Parameter struct {
	Name string
	Type Type
}

// Function is a named, ordered sequence of instructions with a typed
// parameter list and an optional return type.
type Function struct {
	Name       string
	Params     []Parameter
	ReturnType *Type // nil for void
	Instrs     []Instruction
}

// Clone deep-copies the instruction list so a pass can own its working copy.
func (f *Function) Clone() *Function {
	out := &Function{
		Name:   f.Name,
		Params: append([]Parameter(nil), f.Params...),
		Instrs: make([]Instruction, len(f.Instrs)),
	}
	if f.ReturnType != nil {
		rt := *f.ReturnType
		out.ReturnType = &rt
	}
	for i, in := range f.Instrs {
		out.Instrs[i] = in.Clone()
	}
	return out
}

// Program is an ordered list of Functions — the unit a pass runs over and
// the unit the CLI reads and writes as JSON.
type Program struct {
	Functions []*Function
}

// InstructionCount totals instructions across every function, used for
// the reduction metrics the benchmark aggregator reports.
func (p *Program) InstructionCount() int {
	n := 0
	for _, fn := range p.Functions {
		n += len(fn.Instrs)
	}
	return n
}
