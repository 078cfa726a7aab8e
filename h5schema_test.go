package h5schema

import (
	goerrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

const scanSchemaYAML = `
type: group
attrs:
  - name: version
    dtype: int32
    required: true
members:
  required: [data]
  data:
    type: dataset
    dtype: float32
    shape: [-1]
  metadata:
    type: group
`

func TestParseYAML(t *testing.T) {
	s, err := Parse([]byte(scanSchemaYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	root := NewMemGroup("/").
		SetAttr("version", ArrayValue(i32, nil, int32(1))).
		Put(NewMemLeaf("data", f32, []int{128}))
	if !s.IsValid(root) {
		t.Fatalf("errors: %v", mustErrors(t, s, root))
	}

	if s.IsValid(NewMemGroup("/")) {
		t.Fatal("empty tree should not validate")
	}
}

func TestParseJSON(t *testing.T) {
	data := []byte(`{
		"type": "group",
		"members": {
			"data": {"type": "dataset", "dtype": "float64"}
		}
	}`)

	s, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	root := NewMemGroup("/").Put(NewMemLeaf("data", dtypeOf(t, "float64"), []int{2}))
	if !s.IsValid(root) {
		t.Fatalf("errors: %v", mustErrors(t, s, root))
	}
}

func TestParseMalformed(t *testing.T) {
	if _, err := Parse([]byte("{unbalanced")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestNewRejectsBadSchema(t *testing.T) {
	_, err := New(map[string]any{"type": "dataset"})
	if !goerrors.Is(err, ErrSchema) {
		t.Fatalf("error = %v, want ErrSchema", err)
	}
}

func TestNewRejectsBadDtype(t *testing.T) {
	_, err := New(map[string]any{
		"type": "group",
		"members": map[string]any{
			"x": map[string]any{"type": "dataset", "dtype": "int7"},
		},
	})
	if !goerrors.Is(err, ErrMalformedDtype) {
		t.Fatalf("error = %v, want ErrMalformedDtype", err)
	}
}

func TestWithDocumentValidator(t *testing.T) {
	called := false
	_, err := New(map[string]any{"type": "group"},
		WithDocumentValidator(func(doc map[string]any) error {
			called = true
			if doc["type"] != "group" {
				t.Errorf("doc = %v", doc)
			}
			return nil
		}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !called {
		t.Fatal("document validator was not invoked")
	}

	wantErr := fmt.Errorf("rejected")
	_, err = New(map[string]any{"type": "group"},
		WithDocumentValidator(func(map[string]any) error { return wantErr }))
	if !goerrors.Is(err, wantErr) {
		t.Fatalf("error = %v, want the validator's error", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.yaml")
	if err := os.WriteFile(path, []byte(scanSchemaYAML), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	s, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	root := NewMemGroup("/").
		SetAttr("version", ArrayValue(i32, nil, int32(1))).
		Put(NewMemLeaf("data", f32, []int{4}))
	if !s.IsValid(root) {
		t.Fatalf("errors: %v", mustErrors(t, s, root))
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestWithMaxRefDepth(t *testing.T) {
	s := compile(t, map[string]any{
		"type": "group",
		"members": map[string]any{
			"child": map[string]any{"$ref": "#/$defs/alias"},
		},
		"$defs": map[string]any{
			"alias": map[string]any{"$ref": "#/$defs/node"},
			"node": map[string]any{
				"type":     "group",
				"required": []any{"leaf"},
				"members": map[string]any{
					"leaf": map[string]any{"type": "dataset"},
				},
			},
		},
	})

	empty := NewMemGroup("/").Put(NewMemGroup("child"))
	// A depth of 1 cuts the alias chain off at a permissive stub. Stubs are
	// never memoized, so the full resolution below is unaffected.
	if !s.IsValid(empty, WithMaxRefDepth(1)) {
		t.Fatal("stubbed validation should accept anything")
	}
	if s.IsValid(empty) {
		t.Fatal("missing leaf should fail at the default depth")
	}
}

func TestConcurrentValidation(t *testing.T) {
	s := compile(t, map[string]any{
		"type": "group",
		"members": map[string]any{
			"data": map[string]any{"$ref": "#/$defs/channel"},
		},
		"$defs": map[string]any{
			"channel": map[string]any{"type": "dataset", "dtype": "float32"},
		},
	})

	root := NewMemGroup("/").Put(NewMemLeaf("data", f32, []int{8}))
	done := make(chan bool)
	for i := 0; i < 8; i++ {
		go func() {
			done <- s.IsValid(root)
		}()
	}
	for i := 0; i < 8; i++ {
		if !<-done {
			t.Fatal("concurrent run reported invalid")
		}
	}
}
