package resolve

// TokenOverlap is |A∩B| / min(|A|, |B|) over the distinct tokens of a and b.
// A name contained in another ("biden" in "joe biden") scores 1.
func TokenOverlap(a, b []string) float64 {
	setA := toSet(a)
	setB := toSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	shared := 0
	for tok := range setA {
		if _, ok := setB[tok]; ok {
			shared++
		}
	}
	return float64(shared) / float64(min(len(setA), len(setB)))
}

// TokenJaccard is |A∩B| / |A∪B| over the distinct tokens of a and b
func TokenJaccard(a, b []string) float64 {
	setA := toSet(a)
	setB := toSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 0
	}

	shared := 0
	for tok := range setA {
		if _, ok := setB[tok]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(setA)+len(setB)-shared)
}

// EditSimilarity is 1 - levenshtein(a, b) / max(len(a), len(b)) over runes
func EditSimilarity(a, b string) float64 {
	ra := []rune(a)
	rb := []rune(b)
	maxLen := max(len(ra), len(rb))
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(levenshteinDistance(ra, rb))/float64(maxLen)
}

// Similarity is the resolver score: the better of token overlap and edit similarity
func Similarity(a, b Name) float64 {
	return max(TokenOverlap(a.Tokens, b.Tokens), EditSimilarity(a.Text, b.Text))
}

// MergeSimilarity is the stricter score used by the merge pass.
// Containment does not count, so "biden" and "hunter biden" stay apart.
func MergeSimilarity(a, b Name) float64 {
	return max(TokenJaccard(a.Tokens, b.Tokens), EditSimilarity(a.Text, b.Text))
}

func levenshteinDistance(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	row := make([]int, len(b)+1)
	prevRow := make([]int, len(b)+1)
	for j := range prevRow {
		prevRow[j] = j
	}

	for i := 1; i <= len(a); i++ {
		row[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			row[j] = min(row[j-1]+1, prevRow[j]+1, prevRow[j-1]+cost)
		}
		row, prevRow = prevRow, row
	}

	return prevRow[len(b)]
}

func toSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		set[tok] = struct{}{}
	}
	return set
}
