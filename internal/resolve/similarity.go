package resolve

import (
	"sort"
	"strings"
	"unicode"
)

// TokenSetRatio scores two strings in [0,100] using an order-independent
// token-set comparison: both inputs are case-folded and tokenized, then the
// shared-token core is compared against each full token set. Reordered words
// ("Coldplay Live" vs "Live: Coldplay") and one-sided boilerplate ("... in
// Stockholm") score far higher than plain edit distance would allow.
func TokenSetRatio(left, right string) float64 {
	leftTokens := tokenize(left)
	rightTokens := tokenize(right)
	if len(leftTokens) == 0 || len(rightTokens) == 0 {
		return 0
	}

	leftSet := toSet(leftTokens)
	rightSet := toSet(rightTokens)

	var intersection, leftOnly, rightOnly []string
	for token := range leftSet {
		if _, ok := rightSet[token]; ok {
			intersection = append(intersection, token)
		} else {
			leftOnly = append(leftOnly, token)
		}
	}
	for token := range rightSet {
		if _, ok := leftSet[token]; !ok {
			rightOnly = append(rightOnly, token)
		}
	}
	sort.Strings(intersection)
	sort.Strings(leftOnly)
	sort.Strings(rightOnly)

	core := strings.Join(intersection, " ")
	combinedLeft := strings.TrimSpace(core + " " + strings.Join(leftOnly, " "))
	combinedRight := strings.TrimSpace(core + " " + strings.Join(rightOnly, " "))

	best := levenshteinRatio(core, combinedLeft)
	if score := levenshteinRatio(core, combinedRight); score > best {
		best = score
	}
	if score := levenshteinRatio(combinedLeft, combinedRight); score > best {
		best = score
	}
	return best
}

func tokenize(text string) []string {
	lowered := strings.ToLower(strings.TrimSpace(text))
	if lowered == "" {
		return nil
	}
	parts := strings.FieldsFunc(lowered, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		tokens = append(tokens, p)
	}
	return tokens
}

func toSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		set[token] = struct{}{}
	}
	return set
}

// levenshteinRatio is a normalized similarity in [0,100]: 100 for identical
// strings, scaled down by the edit distance relative to the combined length.
func levenshteinRatio(left, right string) float64 {
	if left == right {
		return 100
	}
	leftRunes := []rune(left)
	rightRunes := []rune(right)
	lenSum := len(leftRunes) + len(rightRunes)
	if lenSum == 0 {
		return 100
	}
	distance := levenshtein(leftRunes, rightRunes)
	return 100 * float64(lenSum-distance) / float64(lenSum)
}

func levenshtein(left, right []rune) int {
	if len(left) == 0 {
		return len(right)
	}
	if len(right) == 0 {
		return len(left)
	}

	previous := make([]int, len(right)+1)
	current := make([]int, len(right)+1)
	for j := range previous {
		previous[j] = j
	}

	for i := 1; i <= len(left); i++ {
		current[0] = i
		for j := 1; j <= len(right); j++ {
			cost := 1
			if left[i-1] == right[j-1] {
				cost = 0
			}
			current[j] = min(
				previous[j]+1,
				min(current[j-1]+1, previous[j-1]+cost),
			)
		}
		previous, current = current, previous
	}
	return previous[len(right)]
}
