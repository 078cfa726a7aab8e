package h5schema

import (
	"testing"

	"github.com/jacoelho/h5schema/errors"
)

func TestValidateGroupConditional(t *testing.T) {
	s := compile(t, map[string]any{
		"type": "group",
		"members": map[string]any{
			"detector": map[string]any{
				"type": "group",
				"attrs": []any{
					map[string]any{"name": "mode"},
				},
				"if": map[string]any{
					"attrs": []any{
						map[string]any{"name": "mode", "const": "calibrated"},
					},
				},
				"then": map[string]any{
					"required": []any{"calibration"},
					"members": map[string]any{
						"calibration": map[string]any{"type": "dataset", "dtype": "float64"},
					},
				},
			},
		},
	})

	calibrated := NewMemGroup("/").Put(
		NewMemGroup("detector").
			SetAttr("mode", ScalarValue("calibrated")).
			Put(NewMemLeaf("calibration", dtypeOf(t, "float64"), []int{2})))
	if !s.IsValid(calibrated) {
		t.Fatalf("errors: %v", mustErrors(t, s, calibrated))
	}

	missing := NewMemGroup("/").Put(
		NewMemGroup("detector").SetAttr("mode", ScalarValue("calibrated")))
	list := mustErrors(t, s, missing)
	if len(list) != 1 || list[0].Code != string(errors.ErrMissingRequiredMember) {
		t.Fatalf("errors = %v", list)
	}

	// Condition does not hold and there is no else branch: nothing applies.
	raw := NewMemGroup("/").Put(
		NewMemGroup("detector").SetAttr("mode", ScalarValue("raw")))
	if !s.IsValid(raw) {
		t.Fatalf("errors: %v", mustErrors(t, s, raw))
	}
}

func TestValidateGroupConditionalElse(t *testing.T) {
	s := compile(t, map[string]any{
		"type": "group",
		"if": map[string]any{
			"members": map[string]any{
				"raw": map[string]any{"type": "dataset"},
			},
		},
		"then": map[string]any{
			"members": map[string]any{
				"raw": map[string]any{"type": "dataset"},
			},
		},
		"else": map[string]any{
			"required": []any{"processed"},
			"members": map[string]any{
				"processed": map[string]any{"type": "dataset"},
			},
		},
	})

	withRaw := NewMemGroup("/").Put(NewMemLeaf("raw", f32, []int{2}))
	if !s.IsValid(withRaw) {
		t.Fatalf("errors: %v", mustErrors(t, s, withRaw))
	}

	neither := NewMemGroup("/")
	list := mustErrors(t, s, neither)
	if len(list) != 1 || list[0].Code != string(errors.ErrMissingRequiredMember) {
		t.Fatalf("errors = %v", list)
	}
}

func TestValidateDatasetConditional(t *testing.T) {
	s := compile(t, map[string]any{
		"type": "group",
		"members": map[string]any{
			"temp": map[string]any{
				"type":  "dataset",
				"dtype": "float32",
				"if":    map[string]any{"dtype": "float32"},
				"then": map[string]any{
					"attrs": []any{
						map[string]any{"name": "units", "required": true},
					},
				},
			},
		},
	})

	withUnits := NewMemGroup("/").Put(
		NewMemLeaf("temp", f32, []int{3}).
			SetAttr("units", ScalarValue("degC")))
	if !s.IsValid(withUnits) {
		t.Fatalf("errors: %v", mustErrors(t, s, withUnits))
	}

	bare := NewMemGroup("/").Put(NewMemLeaf("temp", f32, []int{3}))
	list := mustErrors(t, s, bare)
	if len(list) != 1 || list[0].Code != string(errors.ErrMissingRequiredAttribute) {
		t.Fatalf("errors = %v", list)
	}
}

func TestValidateDatasetConditionalElse(t *testing.T) {
	s := compile(t, map[string]any{
		"type": "group",
		"members": map[string]any{
			"signal": map[string]any{
				"type": "dataset",
				"attrs": []any{
					map[string]any{"name": "kind"},
				},
				"if": map[string]any{
					"attrs": []any{
						map[string]any{"name": "kind", "const": "voltage"},
					},
				},
				"then": map[string]any{
					"attrs": []any{
						map[string]any{"name": "gain", "required": true},
					},
				},
				"else": map[string]any{
					"attrs": []any{
						map[string]any{"name": "reference", "required": true},
					},
				},
			},
		},
	})

	voltage := NewMemGroup("/").Put(
		NewMemLeaf("signal", f32, nil, float32(1)).
			SetAttr("kind", ScalarValue("voltage")).
			SetAttr("gain", ScalarValue(2.0)))
	if !s.IsValid(voltage) {
		t.Fatalf("errors: %v", mustErrors(t, s, voltage))
	}

	other := NewMemGroup("/").Put(
		NewMemLeaf("signal", f32, nil, float32(1)).
			SetAttr("kind", ScalarValue("current")))
	list := mustErrors(t, s, other)
	if !hasCode(list, errors.ErrMissingRequiredAttribute) {
		t.Fatalf("errors = %v, want the else branch applied", list)
	}
}

func TestValidateDatasetNestedConditional(t *testing.T) {
	s := compile(t, map[string]any{
		"type": "group",
		"members": map[string]any{
			"data": map[string]any{
				"type": "dataset",
				"attrs": []any{
					map[string]any{"name": "calibrated"},
				},
				"if": map[string]any{
					"attrs": []any{map[string]any{"name": "calibrated"}},
				},
				"then": map[string]any{
					"if": map[string]any{
						"attrs": []any{map[string]any{"name": "calibrated", "const": true}},
					},
					"then": map[string]any{
						"attrs": []any{
							map[string]any{"name": "coefficients", "required": true},
						},
					},
				},
			},
		},
	})

	needsCoeffs := NewMemGroup("/").Put(
		NewMemLeaf("data", f32, []int{2}).
			SetAttr("calibrated", ScalarValue(true)))
	list := mustErrors(t, s, needsCoeffs)
	if !hasCode(list, errors.ErrMissingRequiredAttribute) {
		t.Fatalf("errors = %v, want the nested conditional applied", list)
	}

	uncalibrated := NewMemGroup("/").Put(
		NewMemLeaf("data", f32, []int{2}).
			SetAttr("calibrated", ScalarValue(false)))
	if !s.IsValid(uncalibrated) {
		t.Fatalf("errors: %v", mustErrors(t, s, uncalibrated))
	}
}

func TestValidateDatasetConditionalShape(t *testing.T) {
	s := compile(t, map[string]any{
		"type": "group",
		"members": map[string]any{
			"image": map[string]any{
				"type": "dataset",
				"attrs": []any{
					map[string]any{"name": "colorspace"},
				},
				"if": map[string]any{
					"attrs": []any{
						map[string]any{"name": "colorspace", "const": "rgb"},
					},
				},
				"then": map[string]any{"shape": []any{10, 256, 256, 3}},
				"else": map[string]any{"shape": []any{10, 256, 256}},
			},
		},
	})

	gray := NewMemGroup("/").Put(
		NewMemLeaf("image", dtypeOf(t, "uint8"), []int{10, 256, 256}).
			SetAttr("colorspace", ScalarValue("grayscale")))
	if !s.IsValid(gray) {
		t.Fatalf("errors: %v", mustErrors(t, s, gray))
	}

	rgbShaped := NewMemGroup("/").Put(
		NewMemLeaf("image", dtypeOf(t, "uint8"), []int{10, 256, 256, 3}).
			SetAttr("colorspace", ScalarValue("rgb")))
	if !s.IsValid(rgbShaped) {
		t.Fatalf("errors: %v", mustErrors(t, s, rgbShaped))
	}

	mismatched := NewMemGroup("/").Put(
		NewMemLeaf("image", dtypeOf(t, "uint8"), []int{10, 256, 256}).
			SetAttr("colorspace", ScalarValue("rgb")))
	list := mustErrors(t, s, mismatched)
	if len(list) != 1 || list[0].Code != string(errors.ErrShapeMismatch) {
		t.Fatalf("errors = %v", list)
	}
}

func TestValidateDatasetConditionalWildcardShape(t *testing.T) {
	// An if condition reads a wildcard shape with strict rank: [-1] means
	// "any rank-1 dataset", not "any dataset".
	s := compile(t, map[string]any{
		"type": "group",
		"members": map[string]any{
			"data": map[string]any{
				"type": "dataset",
				"if":   map[string]any{"shape": []any{-1}},
				"then": map[string]any{"dtype": "int32"},
				"else": map[string]any{"dtype": "float32"},
			},
		},
	})

	matrix := NewMemGroup("/").Put(NewMemLeaf("data", f32, []int{2, 3}))
	if !s.IsValid(matrix) {
		t.Fatalf("errors: %v", mustErrors(t, s, matrix))
	}

	vector := NewMemGroup("/").Put(NewMemLeaf("data", f32, []int{4}))
	list := mustErrors(t, s, vector)
	if len(list) != 1 || list[0].Code != string(errors.ErrDtypeMismatch) {
		t.Fatalf("errors = %v", list)
	}

	intVector := NewMemGroup("/").Put(NewMemLeaf("data", i32, []int{4}))
	if !s.IsValid(intVector) {
		t.Fatalf("errors: %v", mustErrors(t, s, intVector))
	}
}

func TestValidateDatasetConditionalOverridesDtype(t *testing.T) {
	// The consequence replaces scalar fields of the base document, so the
	// dtype requirement itself can be conditional.
	s := compile(t, map[string]any{
		"type": "group",
		"members": map[string]any{
			"frame": map[string]any{
				"type":  "dataset",
				"dtype": "uint8",
				"attrs": []any{
					map[string]any{"name": "depth"},
				},
				"if": map[string]any{
					"attrs": []any{map[string]any{"name": "depth", "const": 16}},
				},
				"then": map[string]any{"dtype": "uint16"},
			},
		},
	})

	deep := NewMemGroup("/").Put(
		NewMemLeaf("frame", dtypeOf(t, "uint16"), []int{4}).
			SetAttr("depth", ScalarValue(16)))
	if !s.IsValid(deep) {
		t.Fatalf("errors: %v", mustErrors(t, s, deep))
	}

	shallow := NewMemGroup("/").Put(
		NewMemLeaf("frame", dtypeOf(t, "uint8"), []int{4}))
	if !s.IsValid(shallow) {
		t.Fatalf("errors: %v", mustErrors(t, s, shallow))
	}
}
