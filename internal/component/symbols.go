package component

// symbolAlphabet is the fixed, curated alphabet symbols are drawn from.
// Greek letters first, then a handful of unambiguous math operators.
// Deliberately excludes characters that collide with common identifiers
// or path punctuation.
var symbolAlphabet = []rune(
	"αβγδεζηθικλμνξοπρστυφχψω" +
		"ΓΔΘΛΞΠΣΦΨΩ" +
		"∀∂∃∇∈∉∋∑∏∐√∝∞∠∧∨∩∪∫≈≡⊂⊃⊕⊗⊥")

// AssignSymbols gives every component a short unique token drawn from the
// fixed alphabet, in discovery order. The assignment is deterministic for a
// fixed ordered component list: the i-th component always receives the i-th
// token. When single characters run out the assigner moves to two-character
// combinations, then three, and so on, so it never errors.
//
// Components that already carry a symbol keep it; their token is reserved so
// it is never handed out again within the same index generation.
func AssignSymbols(components []*Component) {
	used := make(map[string]bool, len(components))
	for _, c := range components {
		if c.Symbol != "" {
			used[c.Symbol] = true
		}
	}

	next := symbolSequence()
	for _, c := range components {
		if c.Symbol != "" {
			continue
		}
		for {
			s := next()
			if !used[s] {
				c.Symbol = s
				used[s] = true
				break
			}
		}
	}
}

// symbolSequence returns a generator producing the alphabet in order, then
// all two-character combinations, then three, without repetition.
func symbolSequence() func() string {
	n := len(symbolAlphabet)
	length := 1
	// counters holds the current index per position, little-endian.
	counters := make([]int, 1)
	counters[0] = -1

	return func() string {
		// Increment the multi-digit counter in base n.
		pos := 0
		for {
			counters[pos]++
			if counters[pos] < n {
				break
			}
			counters[pos] = 0
			pos++
			if pos == length {
				length++
				counters = make([]int, length)
				pos = 0
				// All positions reset to zero is the first token of
				// the new length.
				break
			}
		}
		token := make([]rune, length)
		for i := 0; i < length; i++ {
			// counters is little-endian; render most significant first.
			token[i] = symbolAlphabet[counters[length-1-i]]
		}
		return string(token)
	}
}
