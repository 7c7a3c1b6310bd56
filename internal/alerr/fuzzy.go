package alerr

import (
	"fmt"
	"strings"
)

// editDistance is the Levenshtein distance between a and b, counted in runes.
func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	row := make([]int, len(rb)+1)
	for j := range row {
		row[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		diag := row[0]
		row[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			diag, row[j] = row[j], min(row[j]+1, row[j-1]+1, diag+cost)
		}
	}
	return row[len(rb)]
}

// maxEdits scales the accepted distance with the input: one edit per three
// runes, at least one and at most three.
func maxEdits(input string) int {
	return min(3, max(1, len([]rune(input))/3))
}

// FindClosestMatch returns the option closest to input, ignoring case.
// Ties keep the earlier option.
func FindClosestMatch(input string, options []string) (string, bool) {
	limit := maxEdits(input)
	needle := strings.ToLower(input)

	best, bestDist := "", limit+1
	for _, opt := range options {
		if d := editDistance(needle, strings.ToLower(opt)); d < bestDist {
			best, bestDist = opt, d
		}
	}
	return best, bestDist <= limit
}

// SuggestSimilar returns "did you mean 'X'?" for a close match, or "".
func SuggestSimilar(input string, options []string) string {
	if match, ok := FindClosestMatch(input, options); ok {
		return fmt.Sprintf("did you mean '%s'?", match)
	}
	return ""
}
