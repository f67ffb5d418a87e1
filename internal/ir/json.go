package ir

import (
	"encoding/json"
	"fmt"
)

// wire* types mirror the program's on-disk JSON shape exactly: a Program
// is {"functions": [...]}, a Function is {"name", "args"?, "type"?,
// "instrs"}, and an Instruction is either {"label"} or an object
// carrying "op" plus a subset of {dest, type, value, args, labels, funcs}.

type wireProgram struct {
	Functions []wireFunction `json:"functions"`
}

type wireArg struct {
	Name string  `json:"name"`
	Type wireType `json:"type"`
}

type wireFunction struct {
	Name   string        `json:"name"`
	Args   []wireArg     `json:"args,omitempty"`
	Type   *wireType     `json:"type,omitempty"`
	Instrs []wireInstr   `json:"instrs"`
}

type wireInstr struct {
	Label  *string   `json:"label,omitempty"`
	Op     string    `json:"op,omitempty"`
	Dest   string    `json:"dest,omitempty"`
	Type   *wireType `json:"type,omitempty"`
	Value  any       `json:"value,omitempty"`
	Args   []string  `json:"args,omitempty"`
	Labels []string  `json:"labels,omitempty"`
	Funcs  []string  `json:"funcs,omitempty"`
}

// wireType marshals as either a bare string tag or a {"ptr": T} object.
type wireType struct {
	Type
}

func (t wireType) MarshalJSON() ([]byte, error) {
	if t.IsPtr() {
		return json.Marshal(map[string]wireType{"ptr": {Type: *t.Ptr}})
	}
	return json.Marshal(t.Name)
}

func (t *wireType) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		t.Type = Type{Name: name}
		return nil
	}
	var obj map[string]wireType
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("ir: malformed type literal %s: %w", string(data), err)
	}
	elem, ok := obj["ptr"]
	if !ok {
		return fmt.Errorf("ir: malformed type object %s: expected \"ptr\" key", string(data))
	}
	t.Type = Type{Ptr: &elem.Type}
	return nil
}

// Decode parses a Program from its JSON wire form.
func Decode(data []byte) (*Program, error) {
	var wp wireProgram
	if err := json.Unmarshal(data, &wp); err != nil {
		return nil, fmt.Errorf("ir: decode program: %w", err)
	}
	prog := &Program{Functions: make([]*Function, 0, len(wp.Functions))}
	for _, wf := range wp.Functions {
		fn, err := fromWireFunction(wf)
		if err != nil {
			return nil, err
		}
		prog.Functions = append(prog.Functions, fn)
	}
	return prog, nil
}

func fromWireFunction(wf wireFunction) (*Function, error) {
	fn := &Function{
		Name:   wf.Name,
		Params: make([]Parameter, len(wf.Args)),
		Instrs: make([]Instruction, 0, len(wf.Instrs)),
	}
	for i, a := range wf.Args {
		fn.Params[i] = Parameter{Name: a.Name, Type: a.Type.Type}
	}
	if wf.Type != nil {
		rt := wf.Type.Type
		fn.ReturnType = &rt
	}
	for idx, wi := range wf.Instrs {
		in, err := fromWireInstr(wi)
		if err != nil {
			return nil, fmt.Errorf("ir: function %q instruction %d: %w", wf.Name, idx, err)
		}
		fn.Instrs = append(fn.Instrs, in)
	}
	return fn, nil
}

func fromWireInstr(wi wireInstr) (Instruction, error) {
	if wi.Label != nil {
		return Instruction{Kind: KindLabel, Label: *wi.Label}, nil
	}
	if wi.Op == "" {
		return Instruction{}, fmt.Errorf("ir: instruction has neither \"label\" nor \"op\"")
	}
	in := Instruction{
		Op:     wi.Op,
		Dest:   wi.Dest,
		Args:   append([]string(nil), wi.Args...),
		Labels: append([]string(nil), wi.Labels...),
		Funcs:  append([]string(nil), wi.Funcs...),
	}
	if wi.Type != nil {
		in.Type = wi.Type.Type
	}
	if wi.Op == "const" {
		in.Kind = KindConstant
		lit, err := literalFromWire(wi.Value)
		if err != nil {
			return Instruction{}, fmt.Errorf("const %s: %w", wi.Dest, err)
		}
		in.Value = lit
		return in, nil
	}
	if wi.Dest != "" {
		in.Kind = KindValueOp
		return in, nil
	}
	in.Kind = KindEffectOp
	return in, nil
}

func literalFromWire(v any) (Literal, error) {
	switch val := v.(type) {
	case bool:
		return BoolLiteral(val), nil
	case float64:
		return IntLiteral(int64(val)), nil
	default:
		return Literal{}, fmt.Errorf("unsupported const value %v (%T)", v, v)
	}
}

// Encode renders a Program back to its JSON wire form, pretty-printed with
// a two-space indent the way the reference CLI tools do.
func Encode(prog *Program) ([]byte, error) {
	wp := wireProgram{Functions: make([]wireFunction, len(prog.Functions))}
	for i, fn := range prog.Functions {
		wp.Functions[i] = toWireFunction(fn)
	}
	out, err := json.MarshalIndent(wp, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("ir: encode program: %w", err)
	}
	return out, nil
}

func toWireFunction(fn *Function) wireFunction {
	wf := wireFunction{
		Name:   fn.Name,
		Instrs: make([]wireInstr, len(fn.Instrs)),
	}
	if len(fn.Params) > 0 {
		wf.Args = make([]wireArg, len(fn.Params))
		for i, p := range fn.Params {
			wf.Args[i] = wireArg{Name: p.Name, Type: wireType{Type: p.Type}}
		}
	}
	if fn.ReturnType != nil {
		wf.Type = &wireType{Type: *fn.ReturnType}
	}
	for i, in := range fn.Instrs {
		wf.Instrs[i] = toWireInstr(in)
	}
	return wf
}

func toWireInstr(in Instruction) wireInstr {
	if in.Kind == KindLabel {
		label := in.Label
		return wireInstr{Label: &label}
	}
	wi := wireInstr{
		Op:     in.Op,
		Dest:   in.Dest,
		Args:   in.Args,
		Labels: in.Labels,
		Funcs:  in.Funcs,
	}
	if in.Kind == KindConstant || in.Dest != "" {
		wi.Type = &wireType{Type: in.Type}
	}
	if in.Kind == KindConstant {
		if in.Value.IsBool {
			wi.Value = in.Value.Bool
		} else {
			wi.Value = in.Value.Int
		}
	}
	return wi
}
