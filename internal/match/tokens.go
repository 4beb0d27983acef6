package match

import (
	"strings"
)

// stopwords removed before comparing merchant text across sources.
var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "ltd": {}, "limited": {}, "plc": {},
	"payment": {}, "card": {},
}

// Tokenize lowercases text, strips everything but letters, digits and
// spaces, and returns the remaining words minus stopwords.
func Tokenize(text string) []string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}

	var tokens []string
	for _, word := range strings.Fields(b.String()) {
		if _, skip := stopwords[word]; skip {
			continue
		}
		tokens = append(tokens, word)
	}
	return tokens
}

// Jaccard computes set similarity of two token lists. Two empty sets
// score zero, not one: no shared evidence is not a match signal.
func Jaccard(a, b []string) float64 {
	aSet := make(map[string]struct{}, len(a))
	for _, tok := range a {
		aSet[tok] = struct{}{}
	}
	bSet := make(map[string]struct{}, len(b))
	for _, tok := range b {
		bSet[tok] = struct{}{}
	}
	if len(aSet) == 0 && len(bSet) == 0 {
		return 0
	}

	inter := 0
	for tok := range aSet {
		if _, ok := bSet[tok]; ok {
			inter++
		}
	}
	union := len(aSet) + len(bSet) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
