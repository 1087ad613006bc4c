package matching

import (
	"sort"
	"strings"

	"github.com/agext/levenshtein"
)

// Scorer rates the similarity of two already-normalized strings on 0..100.
type Scorer func(a, b string) float64

const (
	unbaseScale = 0.95
	// insertions and deletions only; a substitution costs one of each
	indelSubCost = 2
)

var indelParams = levenshtein.NewParams().SubCost(indelSubCost)

// Ratio is the normalized indel similarity of a and b.
func Ratio(a, b string) float64 {
	if a == "" && b == "" {
		return 100
	}
	return 100 * levenshtein.Similarity(a, b, indelParams)
}

// PartialRatio scores the shorter string against its best-aligned window in
// the longer one.
func PartialRatio(a, b string) float64 {
	short, long := []rune(a), []rune(b)
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) == 0 {
		if len(long) == 0 {
			return 100
		}
		return 0
	}

	s := string(short)
	best := 0.0
	consider := func(window []rune) bool {
		if r := Ratio(s, string(window)); r > best {
			best = r
		}
		return best == 100
	}

	n := len(short)
	for i := 0; i+n <= len(long); i++ {
		if consider(long[i : i+n]) {
			return best
		}
	}
	// windows hanging off either end of the longer string
	for k := 1; k < n; k++ {
		if consider(long[:k]) || consider(long[len(long)-k:]) {
			return best
		}
	}
	return best
}

func sortedTokens(s string) []string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return tokens
}

func TokenSortRatio(a, b string) float64 {
	return Ratio(strings.Join(sortedTokens(a), " "), strings.Join(sortedTokens(b), " "))
}

type tokenSets struct {
	intersection []string
	onlyA        []string
	onlyB        []string
}

func splitTokenSets(a, b string) (tokenSets, bool) {
	setA := map[string]struct{}{}
	for _, t := range strings.Fields(a) {
		setA[t] = struct{}{}
	}
	setB := map[string]struct{}{}
	for _, t := range strings.Fields(b) {
		setB[t] = struct{}{}
	}
	if len(setA) == 0 || len(setB) == 0 {
		return tokenSets{}, false
	}

	var ts tokenSets
	for t := range setA {
		if _, ok := setB[t]; ok {
			ts.intersection = append(ts.intersection, t)
		} else {
			ts.onlyA = append(ts.onlyA, t)
		}
	}
	for t := range setB {
		if _, ok := setA[t]; !ok {
			ts.onlyB = append(ts.onlyB, t)
		}
	}
	sort.Strings(ts.intersection)
	sort.Strings(ts.onlyA)
	sort.Strings(ts.onlyB)
	return ts, true
}

func joinNonEmpty(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}

// TokenSetRatio compares the shared tokens against each side's full token set,
// so a name that is a word subset of another scores 100.
func TokenSetRatio(a, b string) float64 {
	ts, ok := splitTokenSets(a, b)
	if !ok {
		return 0
	}
	if len(ts.intersection) > 0 && (len(ts.onlyA) == 0 || len(ts.onlyB) == 0) {
		return 100
	}

	sect := strings.Join(ts.intersection, " ")
	combinedA := joinNonEmpty(sect, strings.Join(ts.onlyA, " "))
	combinedB := joinNonEmpty(sect, strings.Join(ts.onlyB, " "))

	best := Ratio(combinedA, combinedB)
	if sect != "" {
		best = max(best, Ratio(sect, combinedA), Ratio(sect, combinedB))
	}
	return best
}

func PartialTokenRatio(a, b string) float64 {
	ts, ok := splitTokenSets(a, b)
	if !ok {
		return 0
	}
	if len(ts.intersection) > 0 {
		return 100
	}
	best := PartialRatio(strings.Join(sortedTokens(a), " "), strings.Join(sortedTokens(b), " "))
	return max(best, PartialRatio(strings.Join(ts.onlyA, " "), strings.Join(ts.onlyB, " ")))
}

// WRatio picks the most favourable of the plain, token and partial scores,
// discounting the looser ones depending on how different the lengths are.
func WRatio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}

	la, lb := float64(len([]rune(a))), float64(len([]rune(b)))
	lenRatio := max(la, lb) / min(la, lb)

	score := Ratio(a, b)
	if lenRatio < 1.5 {
		return max(score, max(TokenSortRatio(a, b), TokenSetRatio(a, b))*unbaseScale)
	}

	partialScale := 0.9
	if lenRatio >= 8 {
		partialScale = 0.6
	}
	score = max(score, PartialRatio(a, b)*partialScale)
	return max(score, PartialTokenRatio(a, b)*unbaseScale*partialScale)
}
