package glob

import "testing"

func TestMatch(t *testing.T) {
	cases := []struct {
		pattern string
		name    string
		want    bool
	}{
		// literals
		{"user:1", "user:1", true},
		{"user:1", "user:2", false},
		{"", "", true},
		{"", "x", false},

		// star
		{"*", "", true},
		{"*", "anything", true},
		{"user:*", "user:1", true},
		{"user:*", "user:", true},
		{"user:*", "session:a", false},
		{"*:1", "user:1", true},
		{"*:1", "user:10", false},
		{"a*b*c", "aXbYc", true},
		{"a*b*c", "abc", true},
		{"a*b*c", "aXbY", false},
		{"*suffix", "has-suffix", true},

		// question mark
		{"user:?", "user:1", true},
		{"user:?", "user:12", false},
		{"user:?", "user:", false},
		{"???", "abc", true},
		{"??", "abc", false},

		// mixed and backtracking
		{"a*?c", "abc", true},
		{"a*?c", "ac", false},
		{"*a*a*a", "aaaa", true},
		{"*a*a*a", "aa", false},

		// anchored, case-sensitive
		{"user", "user:1", false},
		{"User:*", "user:1", false},
	}
	for _, tc := range cases {
		if got := Match(tc.pattern, tc.name); got != tc.want {
			t.Errorf("Match(%q, %q) = %v, want %v", tc.pattern, tc.name, got, tc.want)
		}
	}
}

func TestLiteral(t *testing.T) {
	for pattern, want := range map[string]bool{
		"user:1": true,
		"":       true,
		"user:*": false,
		"user:?": false,
		"a[b]c":  true, // brackets are ordinary bytes here
	} {
		if got := Literal(pattern); got != want {
			t.Errorf("Literal(%q) = %v, want %v", pattern, got, want)
		}
	}
}
