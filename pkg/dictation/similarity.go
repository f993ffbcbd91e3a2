package dictation

// ratio computes a Ratcliff/Obershelp-style similarity score in [0, 1],
// matching Python's difflib.SequenceMatcher.ratio() closely enough for the
// fuzzy wake-word and voice-command thresholds this daemon relies on:
// ratio = 2 * M / T, where M is the total length of matching blocks found by
// recursively taking the longest common substring and T is the combined
// length of both strings.
func ratio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 && len(rb) == 0 {
		return 1.0
	}
	matches := matchingBlockLength(ra, rb)
	return 2.0 * float64(matches) / float64(len(ra)+len(rb))
}

func matchingBlockLength(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	ai, bi, size := longestMatch(a, b)
	if size == 0 {
		return 0
	}
	total := size
	total += matchingBlockLength(a[:ai], b[:bi])
	total += matchingBlockLength(a[ai+size:], b[bi+size:])
	return total
}

// longestMatch finds the longest common contiguous run between a and b.
func longestMatch(a, b []rune) (aStart, bStart, length int) {
	bIndex := make(map[rune][]int, len(b))
	for i, r := range b {
		bIndex[r] = append(bIndex[r], i)
	}

	// j2len[j] = length of the match ending at a[i-1] and b[j] (previous row)
	j2len := make(map[int]int)
	bestI, bestJ, bestSize := 0, 0, 0

	for i, ra := range a {
		newJ2len := make(map[int]int)
		for _, j := range bIndex[ra] {
			k := j2len[j-1] + 1
			newJ2len[j] = k
			if k > bestSize {
				bestI, bestJ, bestSize = i-k+1, j-k+1, k
			}
		}
		j2len = newJ2len
	}
	return bestI, bestJ, bestSize
}
