package eightball

import "testing"

func TestAnswersTable(t *testing.T) {
	if len(Answers) != 20 {
		t.Fatalf("answer table has %d entries, want 20", len(Answers))
	}
	seen := make(map[string]bool, len(Answers))
	for _, a := range Answers {
		if a == "" {
			t.Error("empty answer in table")
		}
		if seen[a] {
			t.Errorf("duplicate answer %q", a)
		}
		seen[a] = true
	}
}

func TestRandomAnswerIsCanonical(t *testing.T) {
	canon := make(map[string]bool, len(Answers))
	for _, a := range Answers {
		canon[a] = true
	}
	for i := 0; i < 50; i++ {
		if a := RandomAnswer(); !canon[a] {
			t.Fatalf("RandomAnswer returned %q, not in the canonical table", a)
		}
	}
}
