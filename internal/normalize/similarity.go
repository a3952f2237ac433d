package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// fold lowercases, strips accents and collapses whitespace.
func fold(s string) string {
	stripAccents := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(stripAccents, strings.ToLower(s))
	if err != nil {
		out = strings.ToLower(s)
	}
	return strings.Join(strings.Fields(out), " ")
}

// Similarity returns the Ratcliff/Obershelp ratio 2*M/T of the folded
// strings, where M counts matching characters and T is the total length.
// The result is in [0, 1]; two empty strings are identical.
func Similarity(a, b string) float64 {
	ra := []rune(fold(a))
	rb := []rune(fold(b))
	total := len(ra) + len(rb)
	if total == 0 {
		return 1
	}
	return 2 * float64(matchingChars(ra, rb)) / float64(total)
}

// matchingChars sums the longest common block and, recursively, the matches
// to its left and right.
func matchingChars(a, b []rune) int {
	i, j, k := longestBlock(a, b)
	if k == 0 {
		return 0
	}
	return k + matchingChars(a[:i], b[:j]) + matchingChars(a[i+k:], b[j+k:])
}

func longestBlock(a, b []rune) (int, int, int) {
	best, bi, bj := 0, 0, 0
	prev := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		cur := make([]int, len(b)+1)
		for j := 1; j <= len(b); j++ {
			if a[i-1] != b[j-1] {
				continue
			}
			cur[j] = prev[j-1] + 1
			if cur[j] > best {
				best, bi, bj = cur[j], i-cur[j], j-cur[j]
			}
		}
		prev = cur
	}
	return bi, bj, best
}

// Closest returns the candidate most similar to term, provided its score is
// at least cutoff. Earlier candidates win ties.
func Closest(term string, candidates []string, cutoff float64) (string, float64, bool) {
	return closestBy(Similarity, term, candidates, cutoff)
}

func closestBy(sim func(a, b string) float64, term string, candidates []string, cutoff float64) (string, float64, bool) {
	best, bestScore := "", -1.0
	for _, c := range candidates {
		if s := sim(term, c); s > bestScore {
			best, bestScore = c, s
		}
	}
	if best == "" || bestScore < cutoff {
		return "", 0, false
	}
	return best, bestScore, true
}
