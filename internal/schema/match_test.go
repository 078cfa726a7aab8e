package schema

import "testing"

func mustRoot(t *testing.T, doc map[string]any) *Group {
	t.Helper()
	root, err := NewRoot(doc)
	if err != nil {
		t.Fatalf("NewRoot: %v", err)
	}
	return root
}

func TestMatchExactBeatsPattern(t *testing.T) {
	root := mustRoot(t, map[string]any{
		"type": "group",
		"members": map[string]any{
			"metadata": map[string]any{"type": "group"},
		},
		"patternMembers": map[string]any{
			"^meta": map[string]any{"type": "dataset"},
		},
	})

	matches := root.Match("metadata")
	if len(matches) != 1 {
		t.Fatalf("matches = %d, want 1", len(matches))
	}
	if _, ok := matches[0].(*Group); !ok {
		t.Fatalf("matched %T, want the literal group member", matches[0])
	}
}

func TestMatchAnchoredBeatsBareWildcard(t *testing.T) {
	root := mustRoot(t, map[string]any{
		"type": "group",
		"patternMembers": map[string]any{
			".*":          map[string]any{"type": "group"},
			`^chan_\d+$`:  map[string]any{"type": "dataset"},
			`^chan_\d+x$`: map[string]any{"type": "group"},
		},
	})

	matches := root.Match("chan_7")
	if len(matches) != 1 {
		t.Fatalf("matches = %d, want 1", len(matches))
	}
	ds, ok := matches[0].(*Dataset)
	if !ok {
		t.Fatalf("matched %T, want the anchored dataset pattern", matches[0])
	}
	if ds.Sel.String() != `^chan_\d+$` {
		t.Fatalf("selector = %q", ds.Sel.String())
	}
}

func TestMatchNoCandidate(t *testing.T) {
	root := mustRoot(t, map[string]any{
		"type": "group",
		"members": map[string]any{
			"known": map[string]any{"type": "group"},
		},
	})

	if matches := root.Match("unknown"); len(matches) != 0 {
		t.Fatalf("matches = %v, want none", matches)
	}
}

func TestMatchAlternativesShareSelector(t *testing.T) {
	root := mustRoot(t, map[string]any{
		"type": "group",
		"patternMembers": map[string]any{
			"^item_": map[string]any{
				"anyOf": []any{
					map[string]any{"type": "dataset"},
					map[string]any{"type": "group"},
				},
			},
		},
	})

	matches := root.Match("item_1")
	if len(matches) != 2 {
		t.Fatalf("matches = %d, want both alternatives", len(matches))
	}
}

func TestSpecificity(t *testing.T) {
	tests := []struct {
		name string
		low  string
		high string
	}{
		{name: "anchors raise score", low: `chan_\d+`, high: `^chan_\d+$`},
		{name: "literals raise score", low: `^.\d+$`, high: `^chan_\d+$`},
		{name: "bare wildcard sinks", low: ".*", high: `^c`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			lowSel, err := PatternSelector(tc.low)
			if err != nil {
				t.Fatalf("PatternSelector(%q): %v", tc.low, err)
			}
			highSel, err := PatternSelector(tc.high)
			if err != nil {
				t.Fatalf("PatternSelector(%q): %v", tc.high, err)
			}
			lowScore := specificity(lowSel, "chan_7")
			highScore := specificity(highSel, "chan_7")
			if lowScore >= highScore {
				t.Fatalf("specificity(%q)=%d should be below specificity(%q)=%d", tc.low, lowScore, tc.high, highScore)
			}
		})
	}
}

func TestSpecificityExactMatch(t *testing.T) {
	if got := specificity(LiteralSelector("data"), "data"); got != exactMatchScore {
		t.Fatalf("score = %d, want %d", got, exactMatchScore)
	}
}
