package cache

import "strings"

// matchKind tags which of the five matcher variants a matcher value holds.
// A tagged variant avoids allocating a polymorphic matcher object per Get
// call; the matcher's lifetime never outlives the enclosing Get.
type matchKind int

const (
	matchEquals matchKind = iota
	matchPrefix
	matchSuffix
	matchSubstring
	matchGlob
)

type matcher struct {
	kind    matchKind
	literal string // operand for equals/prefix/suffix/substring
	pattern string // raw pattern for the glob fallback
}

// Matches reports whether key satisfies the matcher.
func (m matcher) Matches(key string) bool {
	switch m.kind {
	case matchEquals:
		return key == m.literal
	case matchPrefix:
		return strings.HasPrefix(key, m.literal)
	case matchSuffix:
		return strings.HasSuffix(key, m.literal)
	case matchSubstring:
		return strings.Contains(key, m.literal)
	default:
		return globMatch(m.pattern, key)
	}
}

// newMatcher classifies pattern and returns the cheapest matcher variant
// that is equivalent to the full glob engine for that pattern.
func newMatcher(pattern string) matcher {
	if !isOptimizedPattern(pattern) {
		return matcher{kind: matchGlob, pattern: pattern}
	}

	n := len(pattern)
	switch {
	case n > 1 && pattern[0] == '*' && pattern[n-1] == '*':
		return matcher{kind: matchSubstring, literal: pattern[1 : n-1]}
	case n >= 1 && pattern[0] == '*':
		return matcher{kind: matchSuffix, literal: pattern[1:]}
	case n >= 1 && pattern[n-1] == '*':
		return matcher{kind: matchPrefix, literal: pattern[:n-1]}
	default:
		return matcher{kind: matchEquals, literal: pattern}
	}
}

// isOptimizedPattern reports whether pattern qualifies for a fast-path
// matcher: the only glob metacharacter it may contain is '*' at the very
// first byte, the very last byte, or both. Any '*', '?', '[' or '\' in an interior
// byte, or as the first/last byte other than '*', forces the full glob
// engine.
func isOptimizedPattern(pattern string) bool {
	n := len(pattern)
	if n == 0 {
		return true
	}
	for i := 1; i+1 < n; i++ {
		switch pattern[i] {
		case '*', '?', '[', '\\':
			return false
		}
	}
	switch pattern[0] {
	case '?', '[', '\\':
		return false
	}
	switch pattern[n-1] {
	case '?', '[', '\\':
		return false
	}
	return true
}

// globMatch is a byte-oriented backtracking matcher for the Redis glob
// dialect: '*' matches zero or more bytes, '?' matches exactly one byte,
// '[...]' matches a character class (with '^' negation and 'a-z' ranges),
// and '\' escapes the following byte to a literal. Malformed constructs
// (unterminated class, dangling escape) never panic: the offending byte is
// treated as a literal and matching continues.
func globMatch(pattern, key string) bool {
	p := []byte(pattern)
	s := []byte(key)
	pn, sn := len(p), len(s)
	pi, si := 0, 0
	starPi, starSi := -1, -1

	for si < sn {
		matched := false
		nextPi := pi

		if pi < pn {
			switch p[pi] {
			case '*':
				starPi = pi
				starSi = si
				pi++
				continue
			case '?':
				matched = true
				nextPi = pi + 1
			case '[':
				if end, ok := classEnd(p, pi); ok {
					if matchClass(p[pi+1:end], s[si]) {
						matched = true
						nextPi = end + 1
					}
				} else if p[pi] == s[si] {
					matched = true
					nextPi = pi + 1
				}
			case '\\':
				if pi+1 < pn {
					if p[pi+1] == s[si] {
						matched = true
						nextPi = pi + 2
					}
				} else if p[pi] == s[si] {
					matched = true
					nextPi = pi + 1
				}
			default:
				if p[pi] == s[si] {
					matched = true
					nextPi = pi + 1
				}
			}
		}

		if matched {
			pi = nextPi
			si++
			continue
		}

		if starPi >= 0 {
			starSi++
			pi = starPi + 1
			si = starSi
			continue
		}
		return false
	}

	for pi < pn && p[pi] == '*' {
		pi++
	}
	return pi == pn
}

// classEnd finds the ']' closing the class that opens at p[openIdx],
// honoring a leading '^' negation marker and '\' escapes inside the
// class. It reports ok=false if the class is never closed.
func classEnd(p []byte, openIdx int) (end int, ok bool) {
	n := len(p)
	i := openIdx + 1
	if i < n && p[i] == '^' {
		i++
	}
	for i < n {
		if p[i] == '\\' && i+1 < n {
			i += 2
			continue
		}
		if p[i] == ']' {
			return i, true
		}
		i++
	}
	return 0, false
}

// matchClass evaluates a character class body (the bytes strictly between
// '[' and ']', including a leading '^' if present) against c.
func matchClass(body []byte, c byte) bool {
	negate := false
	i := 0
	if len(body) > 0 && body[0] == '^' {
		negate = true
		i = 1
	}

	found := false
	n := len(body)
	for i < n {
		switch {
		case body[i] == '\\' && i+1 < n:
			if body[i+1] == c {
				found = true
			}
			i += 2
		case i+2 < n && body[i+1] == '-':
			lo, hi := body[i], body[i+2]
			if lo <= hi && c >= lo && c <= hi {
				found = true
			}
			i += 3
		default:
			if body[i] == c {
				found = true
			}
			i++
		}
	}

	if negate {
		return !found
	}
	return found
}
