package complete

import (
	"sort"
	"strings"

	"github.com/bastiangx/typeflow/internal/utils"
)

// Match scoring constants.
// preference: `exact prefix > case-folded prefix > fuzzy subsequence`
const (
	exactPrefixScore    = 100
	foldedPrefixScore   = 60
	firstCharMatchBonus = 15
	adjacentMatchBonus  = 10
	gapPenalty          = -3
)

// filterByInput keeps the items still matching input, best matches first.
// Items tied on match score keep their stored order (which already encodes
// priority and frequency).
func filterByInput(items []Item, input string) []Item {
	if input == "" {
		return items
	}

	type scored struct {
		item  Item
		score int
	}
	var kept []scored
	for _, item := range items {
		score, ok := matchScore(item.Word, input)
		if !ok {
			continue
		}
		kept = append(kept, scored{item: item, score: score})
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].score > kept[j].score
	})

	out := make([]Item, len(kept))
	for i, s := range kept {
		out[i] = s.item
	}
	return out
}

// matchScore rates how well word matches the typed input.
func matchScore(word, input string) (int, bool) {
	if strings.HasPrefix(word, input) {
		return exactPrefixScore, true
	}
	if utils.HasPrefixFold(word, input) {
		return foldedPrefixScore, true
	}
	return subsequenceScore(word, input)
}

// subsequenceScore checks that every input rune appears in order inside word.
// Adjacent matches score higher, gaps cost a little, a first-char match gets
// a bonus.
func subsequenceScore(word, input string) (int, bool) {
	wr := []rune(strings.ToLower(word))
	ir := []rune(strings.ToLower(input))
	if len(ir) == 0 || len(ir) > len(wr) {
		return 0, false
	}

	score := 0
	last := -1
	wi := 0
	for _, r := range ir {
		found := false
		for ; wi < len(wr); wi++ {
			if wr[wi] == r {
				if last == -1 && wi == 0 {
					score += firstCharMatchBonus
				}
				if last != -1 {
					if wi == last+1 {
						score += adjacentMatchBonus
					} else {
						score += gapPenalty * (wi - last - 1)
					}
				}
				last = wi
				wi++
				found = true
				break
			}
		}
		if !found {
			return 0, false
		}
	}
	return score, true
}
