package complete

import "testing"

// Tests the match preference order:
// `exact prefix > case-folded prefix > fuzzy subsequence > no match`
func TestMatchScore(t *testing.T) {
	testCases := []struct {
		word    string
		input   string
		matches bool
	}{
		{"function", "fun", true},
		{"Function", "fun", true},
		{"filename", "fname", true}, // subsequence
		{"banana", "fun", false},
		{"fo", "fooo", false}, // input longer than word
		{"under_score", "u_s", true},
	}

	for _, tc := range testCases {
		_, ok := matchScore(tc.word, tc.input)
		if ok != tc.matches {
			t.Errorf("matchScore(%q, %q) matched=%v, want %v", tc.word, tc.input, ok, tc.matches)
		}
	}

	exact, _ := matchScore("function", "fun")
	folded, _ := matchScore("Function", "fun")
	fuzzy, _ := matchScore("filename", "fname")

	if !(exact > folded) {
		t.Errorf("exact prefix (%d) should outrank case-folded prefix (%d)", exact, folded)
	}
	if !(folded > fuzzy) {
		t.Errorf("case-folded prefix (%d) should outrank subsequence (%d)", folded, fuzzy)
	}
}

// Adjacent subsequence matches should beat the same letters spread out.
func TestSubsequenceScorePrefersTightMatches(t *testing.T) {
	tight, ok := subsequenceScore("filename", "fil")
	if !ok {
		t.Fatal("fil should match filename")
	}
	spread, ok := subsequenceScore("formidable", "fil")
	if !ok {
		t.Fatal("fil should match formidable")
	}
	if !(tight > spread) {
		t.Errorf("tight match (%d) should outrank spread match (%d)", tight, spread)
	}
}

func TestFilterByInput(t *testing.T) {
	items := []Item{
		{Word: "grape"},
		{Word: "Grapefruit"},
		{Word: "orange"},
		{Word: "garden_path"},
	}

	t.Run("empty input keeps everything", func(t *testing.T) {
		if got := filterByInput(items, ""); len(got) != len(items) {
			t.Fatalf("got %d items, want %d", len(got), len(items))
		}
	})

	t.Run("prefix input drops non-matches", func(t *testing.T) {
		got := filterByInput(items, "gra")
		// garden_path survives as a subsequence match, orange does not
		if len(got) != 3 {
			t.Fatalf("items = %v, want 3 matches", words(got))
		}
		if got[0].Word != "grape" || got[1].Word != "Grapefruit" || got[2].Word != "garden_path" {
			t.Fatalf("items = %v, want exact prefix first, fuzzy last", words(got))
		}
	})
}
