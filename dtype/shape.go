package dtype

// Wildcard matches any extent at its rank position in an expected shape.
const Wildcard = -1

// MatchShape reports whether an actual shape satisfies an expected one.
// Ranks must be equal; each expected extent must equal the actual extent or
// be the Wildcard sentinel. An empty shape denotes a scalar.
func MatchShape(actual, expected []int) bool {
	if len(actual) != len(expected) {
		return false
	}
	for i, want := range expected {
		if want != Wildcard && actual[i] != want {
			return false
		}
	}
	return true
}
