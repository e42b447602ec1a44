package utils

// CapitalPositions records which byte positions of prefix are uppercase
// ASCII letters, so dictionary words can be re-capitalized to match what the
// user actually typed.
func CapitalPositions(prefix string) []bool {
	positions := make([]bool, len(prefix))
	any := false
	for i := 0; i < len(prefix); i++ {
		if prefix[i] >= 'A' && prefix[i] <= 'Z' {
			positions[i] = true
			any = true
		}
	}
	if !any {
		return nil
	}
	return positions
}

// ApplyCapitalization applies the recorded capitalization pattern to word.
func ApplyCapitalization(word string, capitalPositions []bool) string {
	if len(capitalPositions) == 0 {
		return word
	}

	wordRunes := []rune(word)
	for i := 0; i < len(wordRunes) && i < len(capitalPositions); i++ {
		if capitalPositions[i] && wordRunes[i] >= 'a' && wordRunes[i] <= 'z' {
			wordRunes[i] = wordRunes[i] - 'a' + 'A'
		}
	}
	return string(wordRunes)
}
