// Package similarity scores how alike two pieces of text are.
//
// All scores are in [0,1] with 1 meaning identical. The functions are pure.
// Empty input never panics: a side that is empty after trimming scores 0,
// and LevenshteinDistance is defined for every pair of strings.
package similarity

import (
	"strings"
	"unicode/utf8"
)

const (
	titleSubstringWeight = 0.8
	bodySampleParagraphs = 3
	jaccardMinTokenLen   = 4
)

// TitleSimilarity compares two titles case-insensitively.
// A title contained in the other scores 0.8 scaled by the length ratio,
// anything else falls back to normalized edit distance.
func TitleSimilarity(a, b string) float64 {
	a = normalize(a)
	b = normalize(b)
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return titleSubstringWeight * float64(min(la, lb)) / float64(max(la, lb))
	}
	return 1 - float64(LevenshteinDistance(a, b))/float64(max(la, lb))
}

// BodySimilarity compares up to three leading paragraphs pairwise and
// penalizes documents whose paragraph counts differ.
func BodySimilarity(a, b string) float64 {
	if strings.TrimSpace(a) == "" || strings.TrimSpace(b) == "" {
		return 0
	}
	if a == b {
		return 1
	}
	pa, pb := Paragraphs(a), Paragraphs(b)
	if len(pa) == 0 || len(pb) == 0 {
		return 0
	}
	samples := min(bodySampleParagraphs, min(len(pa), len(pb)))
	var total float64
	for i := 0; i < samples; i++ {
		total += normalizedEditSimilarity(pa[i], pb[i])
	}
	avg := total / float64(samples)
	structure := float64(min(len(pa), len(pb))) / float64(max(len(pa), len(pb)))
	return avg * structure
}

// JaccardWordSimilarity is the word-set overlap of a and b, ignoring words of
// three characters or fewer. Either set being empty scores 0.
func JaccardWordSimilarity(a, b string) float64 {
	return JaccardSets(Tokens(a), Tokens(b))
}

// JaccardSets is JaccardWordSimilarity over token sets built with Tokens.
func JaccardSets(ta, tb map[string]struct{}) float64 {
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	inter := 0
	for tok := range ta {
		if _, ok := tb[tok]; ok {
			inter++
		}
	}
	union := len(ta) + len(tb) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// LevenshteinDistance is the classic edit distance over runes.
func LevenshteinDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
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

// Paragraphs splits text into trimmed, non-empty lines.
func Paragraphs(s string) []string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

// Tokens returns the lowercased whitespace-separated words longer than three characters.
func Tokens(s string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, f := range strings.Fields(strings.ToLower(s)) {
		if utf8.RuneCountInString(f) >= jaccardMinTokenLen {
			out[f] = struct{}{}
		}
	}
	return out
}

func normalizedEditSimilarity(a, b string) float64 {
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b), 1)
	return 1 - float64(LevenshteinDistance(a, b))/float64(longest)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
