package schema

import "strings"

const exactMatchScore = 1000

// regexp metacharacters; anything else in a pattern counts as a literal
// character when scoring specificity.
const metaChars = `.\*+?[](){}|^$`

// bareWildcards are penalized: they match everything and should lose every
// tie against a more intentional pattern.
var bareWildcards = map[string]struct{}{
	".*": {}, ".+": {}, ".*?": {}, ".+?": {},
}

// specificity scores how precisely a selector pins down name. An exact
// textual match dominates everything; otherwise longer patterns, anchors,
// and literal characters raise the score and bare wildcards lower it.
func specificity(sel Selector, name string) int {
	source := sel.String()
	if source == name {
		return exactMatchScore
	}

	score := len(source)
	if strings.HasPrefix(source, "^") {
		score += 50
	}
	if strings.HasSuffix(source, "$") {
		score += 50
	}
	for _, c := range source {
		if !strings.ContainsRune(metaChars, c) {
			score += 10
		}
	}
	if _, bare := bareWildcards[source]; bare {
		score -= 100
	}
	return score
}

// Match returns the members whose selector matches name, reduced to the
// highest-specificity candidates. A single survivor is the member to
// validate against; several survivors (pattern-member anyOf alternatives
// sharing one selector) must each be tried until one validates. An empty
// result means the name has no schema match.
func (g *Group) Match(name string) []Node {
	var matched []Node
	for _, m := range g.Members {
		if m.Base().Sel.Matches(name) {
			matched = append(matched, m)
		}
	}
	if len(matched) <= 1 {
		return matched
	}

	best := make([]Node, 0, len(matched))
	bestScore := 0
	for _, m := range matched {
		score := specificity(m.Base().Sel, name)
		switch {
		case len(best) == 0 || score > bestScore:
			best = append(best[:0], m)
			bestScore = score
		case score == bestScore:
			best = append(best, m)
		}
	}
	return best
}

// Member returns the literal member with the given name, if declared.
func (g *Group) Member(name string) (Node, bool) {
	for _, m := range g.Members {
		if !m.Base().Sel.IsPattern() && m.Base().Name() == name {
			return m, true
		}
	}
	return nil, false
}
