// Package quotes rewrites import paths whose opening and closing quote
// characters disagree, so that both delimiters become single quotes.
//
// Only paths that follow the literal token "from " are touched:
//
//	import x from "./a'   ->  import x from './a'
//	import x from '../b"  ->  import x from '../b'
//
// A path quoted with two double quotes is left alone.
package quotes

import "regexp"

// A Rule is a single global substitution.
type Rule struct {
	Name        string
	Pattern     *regexp.Regexp
	Replacement string
}

// Apply replaces every leftmost, non-overlapping match of r in s.
func (r Rule) Apply(s string) string {
	return r.Pattern.ReplaceAllString(s, r.Replacement)
}

// Rules are applied in order; the second rule sees the output of the first.
var Rules = []Rule{
	{
		Name:        "double-open",
		Pattern:     regexp.MustCompile(`from "([^"]+)'`),
		Replacement: `from '${1}'`,
	},
	{
		Name:        "single-open",
		Pattern:     regexp.MustCompile(`from '([^']+)"`),
		Replacement: `from '${1}'`,
	},
}

// Normalize applies Rules to src and returns the result.
func Normalize(src string) string {
	for _, r := range Rules {
		src = r.Apply(src)
	}
	return src
}
