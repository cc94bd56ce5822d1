package index

import "strconv"

// numericLess compares two index keys numerically when both carry a
// leading digit run, falling back to lexicographic order. "9" sorts
// before "39", and "39A" before "39B".
func numericLess(a, b string) bool {
	na, resta, aok := leadingNumber(a)
	nb, restb, bok := leadingNumber(b)

	switch {
	case aok && bok:
		if na != nb {
			return na < nb
		}
		return resta < restb
	case aok:
		// Numeric-prefixed keys sort ahead of purely textual ones.
		return true
	case bok:
		return false
	default:
		return a < b
	}
}

// leadingNumber extracts the leading digit run of s, returning its value,
// the remainder, and whether a digit run exists.
func leadingNumber(s string) (int64, string, bool) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0, s, false
	}
	n, err := strconv.ParseInt(s[:i], 10, 64)
	if err != nil {
		// Digit run too long for int64; fall back to lexicographic.
		return 0, s, false
	}
	return n, s[i:], true
}
