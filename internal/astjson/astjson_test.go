package astjson

import (
	"encoding/json"
	"testing"

	"github.com/wholemars/minicc/internal/parser"
)

func TestMarshalProducesValidJSONWithTypeFields(t *testing.T) {
	prog, err := parser.ParseFile(`int main() { int x; x = 1 + 2; return x; }`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	out, err := Marshal(prog)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded["type"] != "Program" {
		t.Fatalf("expected root type Program, got %v", decoded["type"])
	}
	funcs, ok := decoded["functions"].([]any)
	if !ok || len(funcs) != 1 {
		t.Fatalf("expected one function, got %v", decoded["functions"])
	}
	fn := funcs[0].(map[string]any)
	if fn["type"] != "Function" || fn["name"] != "main" {
		t.Fatalf("expected Function main, got %v", fn)
	}
}

func TestStringLiteralWithEscapeSequenceIsValidJSON(t *testing.T) {
	prog, err := parser.ParseFile(`int main() { printf("a\nb"); return 0; }`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	out, err := Marshal(prog)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	var decoded any
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
}

func TestBinaryOpCarriesHumanReadableOperator(t *testing.T) {
	prog, err := parser.ParseFile(`int main() { return 1 + 2; }`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	out, err := Marshal(prog)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	var decoded map[string]any
	json.Unmarshal(out, &decoded)
	fn := decoded["functions"].([]any)[0].(map[string]any)
	body := fn["body"].(map[string]any)
	ret := body["statements"].([]any)[0].(map[string]any)
	bin := ret["value"].(map[string]any)
	if bin["type"] != "BinaryOp" || bin["operator"] != "+" {
		t.Fatalf("expected BinaryOp with operator +, got %v", bin)
	}
}
