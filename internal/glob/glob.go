// Package glob matches keys against anchored glob patterns where '*'
// matches any run of bytes and '?' matches exactly one byte. Any
// other byte matches itself. Matching is case-sensitive.
package glob

// Match reports whether name matches pattern in full.
//
// Iterative two-pointer scan with single-star backtracking: on a
// mismatch past a '*', the star re-expands by one byte and the scan
// resumes after it. O(len(name) * len(pattern)) worst case, O(n) for
// patterns with at most one '*'.
func Match(pattern, name string) bool {
	var p, n int
	star, mark := -1, 0

	for n < len(name) {
		switch {
		case p < len(pattern) && (pattern[p] == '?' || pattern[p] == name[n]):
			p++
			n++
		case p < len(pattern) && pattern[p] == '*':
			star, mark = p, n
			p++
		case star >= 0:
			mark++
			p, n = star+1, mark
		default:
			return false
		}
	}
	for p < len(pattern) && pattern[p] == '*' {
		p++
	}
	return p == len(pattern)
}

// Literal reports whether pattern contains no glob metacharacters,
// i.e. it can only match itself.
func Literal(pattern string) bool {
	for i := 0; i < len(pattern); i++ {
		if pattern[i] == '*' || pattern[i] == '?' {
			return false
		}
	}
	return true
}
