package ir

import (
	"strings"
	"testing"
)

const sampleProgram = `{
  "functions": [
    {
      "name": "main",
      "instrs": [
        {"op": "const", "dest": "a", "type": "int", "value": 2},
        {"op": "const", "dest": "b", "type": "int", "value": 3},
        {"op": "add", "dest": "c", "type": "int", "args": ["a", "b"]},
        {"op": "print", "args": ["c"]},
        {"op": "ret"}
      ]
    }
  ]
}`

func TestDecodeBasic(t *testing.T) {
	prog, err := Decode([]byte(sampleProgram))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(prog.Functions) != 1 {
		t.Fatalf("want 1 function, got %d", len(prog.Functions))
	}
	fn := prog.Functions[0]
	if fn.Name != "main" {
		t.Errorf("want name main, got %q", fn.Name)
	}
	if len(fn.Instrs) != 5 {
		t.Fatalf("want 5 instructions, got %d", len(fn.Instrs))
	}
	if fn.Instrs[0].Kind != KindConstant || fn.Instrs[0].Value.Int != 2 {
		t.Errorf("instr 0: want const 2, got %+v", fn.Instrs[0])
	}
	if fn.Instrs[2].Kind != KindValueOp || fn.Instrs[2].Op != "add" {
		t.Errorf("instr 2: want value op add, got %+v", fn.Instrs[2])
	}
	if fn.Instrs[3].Kind != KindEffectOp || fn.Instrs[3].Op != "print" {
		t.Errorf("instr 3: want effect op print, got %+v", fn.Instrs[3])
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	prog, err := Decode([]byte(sampleProgram))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	out, err := Encode(prog)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	prog2, err := Decode(out)
	if err != nil {
		t.Fatalf("Decode round-trip: %v\n%s", err, out)
	}
	if prog2.InstructionCount() != prog.InstructionCount() {
		t.Errorf("round-trip instruction count changed: %d vs %d", prog.InstructionCount(), prog2.InstructionCount())
	}
}

func TestPointerType(t *testing.T) {
	const src = `{"functions":[{"name":"f","args":[{"name":"p","type":{"ptr":"int"}}],"instrs":[{"op":"ret"}]}]}`
	prog, err := Decode([]byte(src))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	p := prog.Functions[0].Params[0]
	if !p.Type.IsPtr() || p.Type.Ptr.Name != "int" {
		t.Errorf("want ptr<int>, got %s", p.Type)
	}
	out, err := Encode(prog)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.Contains(string(out), `"ptr"`) {
		t.Errorf("encoded output lost pointer type:\n%s", out)
	}
}

func TestDecodeAcceptsUnrecognizedOp(t *testing.T) {
	const src = `{"functions":[{"name":"f","instrs":[{"op":"not-a-real-kind-marker"}]}]}`
	if _, err := Decode([]byte(src)); err != nil {
		t.Fatalf("Decode should accept an unrecognized op (op names are not validated at decode time): %v", err)
	}
}
