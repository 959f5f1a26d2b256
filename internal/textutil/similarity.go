package textutil

import (
	"strings"
	"unicode/utf8"
)

const (
	containmentBase  = 0.8
	containmentRange = 0.2
)

// Similarity scores two titles in [0,1] after normalizing both.
func Similarity(a, b string) float64 {
	na := Normalize(a)
	nb := Normalize(b)
	if na == nb {
		return 1.0
	}

	la := utf8.RuneCountInString(na)
	lb := utf8.RuneCountInString(nb)
	if la > 0 && lb > 0 {
		shorter, longer := na, nb
		ls, ll := la, lb
		if la > lb {
			shorter, longer = nb, na
			ls, ll = lb, la
		}
		if strings.Contains(longer, shorter) {
			return containmentBase + (float64(ls)/float64(ll))*containmentRange
		}
	}

	maxLen := max(la, lb)
	if maxLen == 0 {
		return 1.0
	}
	score := 1 - float64(Levenshtein(na, nb))/float64(maxLen)
	if score < 0 {
		return 0
	}
	return score
}

// Levenshtein returns the edit distance between a and b counted in runes.
func Levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
