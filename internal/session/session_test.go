package session

import (
	"errors"
	"testing"

	"github.com/conorfennell/flashdeck/internal/domain"
	"github.com/conorfennell/flashdeck/internal/stats"
)

// fakeSource is an in-memory CardSource recording outcome calls.
type fakeSource struct {
	cards   []domain.Card
	answers []bool
	skips   int
}

func (f *fakeSource) Cards() []domain.Card {
	out := make([]domain.Card, len(f.cards))
	copy(out, f.cards)
	return out
}

func (f *fakeSource) Unmastered() []domain.Card {
	var out []domain.Card
	for _, c := range f.cards {
		if !c.Mastered {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeSource) Get(id string) (domain.Card, bool) {
	for _, c := range f.cards {
		if c.ID == id {
			return c, true
		}
	}
	return domain.Card{}, false
}

func (f *fakeSource) RecordAnswer(correct bool) { f.answers = append(f.answers, correct) }
func (f *fakeSource) RecordSkip()               { f.skips++ }

func (f *fakeSource) remove(id string) {
	for i, c := range f.cards {
		if c.ID == id {
			f.cards = append(f.cards[:i], f.cards[i+1:]...)
			return
		}
	}
}

func card(t *testing.T, q, a string, mastered bool) domain.Card {
	t.Helper()
	c, err := domain.NewCard(q, a, domain.Medium, "")
	if err != nil {
		t.Fatal(err)
	}
	c.Mastered = mastered
	return c
}

func TestStart(t *testing.T) {
	t.Run("quiz with no cards", func(t *testing.T) {
		_, err := Start(Quiz, &fakeSource{})
		if !errors.Is(err, ErrNoCards) {
			t.Fatalf("Expected ErrNoCards, got %v", err)
		}
	})

	t.Run("practice with all mastered is a distinct outcome", func(t *testing.T) {
		src := &fakeSource{cards: []domain.Card{
			card(t, "q1", "a1", true),
			card(t, "q2", "a2", true),
		}}
		_, err := Start(Practice, src)
		if !errors.Is(err, ErrAllMastered) {
			t.Fatalf("Expected ErrAllMastered, got %v", err)
		}
	})

	t.Run("practice with no cards at all", func(t *testing.T) {
		_, err := Start(Practice, &fakeSource{})
		if !errors.Is(err, ErrNoCards) {
			t.Fatalf("Expected ErrNoCards, got %v", err)
		}
	})

	t.Run("practice draws only unmastered cards", func(t *testing.T) {
		unmastered := card(t, "keep", "studying", false)
		src := &fakeSource{cards: []domain.Card{
			card(t, "done", "mastered", true),
			unmastered,
		}}
		sess, err := Start(Practice, src)
		if err != nil {
			t.Fatalf("Start() returned an unexpected error: %v", err)
		}
		defer sess.Cancel()

		if _, total := sess.Progress(); total != 1 {
			t.Errorf("Expected a 1-card practice session, got %d", total)
		}
		current, ok := sess.Current()
		if !ok || current.ID != unmastered.ID {
			t.Errorf("Expected the unmastered card, got %+v", current)
		}
	})

	t.Run("ordering covers the whole source", func(t *testing.T) {
		src := &fakeSource{cards: []domain.Card{
			card(t, "q1", "a1", false),
			card(t, "q2", "a2", false),
			card(t, "q3", "a3", false),
		}}
		sess, err := Start(Quiz, src)
		if err != nil {
			t.Fatal(err)
		}
		defer sess.Cancel()

		seen := make(map[string]bool)
		for {
			c, ok := sess.Current()
			if !ok {
				break
			}
			seen[c.ID] = true
			if err := sess.Skip(); err != nil {
				t.Fatal(err)
			}
		}
		if len(seen) != 3 {
			t.Errorf("Expected to see all 3 cards exactly once, saw %d", len(seen))
		}
	})
}

func TestSubmit(t *testing.T) {
	newSession := func(t *testing.T, answer string) (*Session, *fakeSource) {
		src := &fakeSource{cards: []domain.Card{card(t, "question", answer, false)}}
		sess, err := Start(Quiz, src)
		if err != nil {
			t.Fatal(err)
		}
		t.Cleanup(sess.Cancel)
		return sess, src
	}

	t.Run("blank submission changes nothing", func(t *testing.T) {
		sess, src := newSession(t, "answer")
		if _, err := sess.Submit("   "); !errors.Is(err, ErrEmptyAnswer) {
			t.Fatalf("Expected ErrEmptyAnswer, got %v", err)
		}
		if len(src.answers) != 0 {
			t.Error("Blank submission must not record an outcome")
		}
		if _, ok := sess.Current(); !ok {
			t.Error("Blank submission must not advance the session")
		}
	})

	judging := []struct {
		name    string
		stored  string
		given   string
		correct bool
	}{
		{"exact match", "Paris", "Paris", true},
		{"case-insensitive exact", "HyperText Markup Language.", "hypertext markup language.", true},
		{"normalized exact without period", "HyperText Markup Language.", "hypertext markup language", true},
		{"abbreviation is not contained", "HyperText Markup Language.", "html", false},
		{"substring of stored answer", "HyperText Markup Language.", "markup", true},
		{"whitespace trimmed", "Paris", "  paris  ", true},
		{"wrong answer", "Paris", "London", false},
		{"user text longer than stored", "Paris", "Paris, France", false},
	}
	for _, tc := range judging {
		t.Run(tc.name, func(t *testing.T) {
			sess, src := newSession(t, tc.stored)
			result, err := sess.Submit(tc.given)
			if err != nil {
				t.Fatalf("Submit() returned an unexpected error: %v", err)
			}
			if result.Correct != tc.correct {
				t.Errorf("Submit(%q) vs %q: correct=%v, expected %v", tc.given, tc.stored, result.Correct, tc.correct)
			}
			if result.CorrectAnswer != tc.stored {
				t.Errorf("Expected the stored answer back, got %q", result.CorrectAnswer)
			}
			if len(src.answers) != 1 || src.answers[0] != tc.correct {
				t.Errorf("Expected outcome %v recorded through the store, got %v", tc.correct, src.answers)
			}
		})
	}

	t.Run("submit does not advance until Advance", func(t *testing.T) {
		sess, _ := newSession(t, "answer")
		if _, err := sess.Submit("answer"); err != nil {
			t.Fatal(err)
		}
		if _, ok := sess.Current(); !ok {
			t.Error("Expected the same question to still be current after Submit")
		}
	})
}

func TestSubstringRuleIsLiteral(t *testing.T) {
	// "html" is not a substring of the expansion, so it is judged wrong
	// even though a human would accept it. The rule is containment, not
	// abbreviation matching.
	src := &fakeSource{cards: []domain.Card{card(t, "q", "HyperText Markup Language.", false)}}
	sess, err := Start(Quiz, src)
	if err != nil {
		t.Fatal(err)
	}
	defer sess.Cancel()

	result, err := sess.Submit("hypertext")
	if err != nil {
		t.Fatal(err)
	}
	if !result.Correct {
		t.Error("Expected contained substring to be judged correct")
	}
}

func TestSkip(t *testing.T) {
	src := &fakeSource{cards: []domain.Card{
		card(t, "q1", "a1", false),
		card(t, "q2", "a2", false),
	}}
	sess, err := Start(Quiz, src)
	if err != nil {
		t.Fatal(err)
	}
	defer sess.Cancel()

	first, _ := sess.Current()
	if err := sess.Skip(); err != nil {
		t.Fatalf("Skip() returned an unexpected error: %v", err)
	}
	if src.skips != 1 {
		t.Errorf("Expected 1 skip recorded, got %d", src.skips)
	}
	second, ok := sess.Current()
	if !ok {
		t.Fatal("Expected a next question after skip")
	}
	if second.ID == first.ID {
		t.Error("Expected skip to advance immediately")
	}
}

func TestHint(t *testing.T) {
	testCases := []struct {
		answer   string
		expected string
	}{
		{"Paris", "Pa..."},
		{"abc", "a..."},
		{"ab", "a..."},
		{"a", "a..."},
		{"abcdef", "ab..."},
		{"日本語です", "日本..."},
	}
	for _, tc := range testCases {
		c := domain.Card{Answer: tc.answer}
		if got := Hint(c); got != tc.expected {
			t.Errorf("Hint(%q) = %q, expected %q", tc.answer, got, tc.expected)
		}
	}
}

func TestCompletion(t *testing.T) {
	src := &fakeSource{cards: []domain.Card{
		card(t, "q1", "right", false),
		card(t, "q2", "right", false),
	}}
	sess, err := Start(Quiz, src)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := sess.Submit("right"); err != nil {
		t.Fatal(err)
	}
	if summary, done := sess.Advance(); done {
		t.Fatalf("Session completed early: %+v", summary)
	}
	if _, err := sess.Submit("wrong"); err != nil {
		t.Fatal(err)
	}
	summary, done := sess.Advance()
	if !done {
		t.Fatal("Expected the session to complete")
	}
	if sess.State() != Complete {
		t.Errorf("Expected state Complete, got %v", sess.State())
	}
	if summary.Score != 1 || summary.Answered != 2 || summary.Percentage != 50 {
		t.Errorf("Unexpected summary: %+v", summary)
	}
	if summary.Tier != stats.TierMid {
		t.Errorf("Expected mid tier at 50%%, got %v", summary.Tier)
	}

	if _, ok := sess.Current(); ok {
		t.Error("A complete session has no current question")
	}
}

func TestCancel(t *testing.T) {
	src := &fakeSource{cards: []domain.Card{
		card(t, "q1", "a1", false),
		card(t, "q2", "a2", false),
	}}
	sess, err := Start(Quiz, src)
	if err != nil {
		t.Fatal(err)
	}

	sess.Cancel()
	if sess.State() != Cancelled {
		t.Fatalf("Expected state Cancelled, got %v", sess.State())
	}

	// A deferred advance that fires after cancellation is a no-op.
	if _, done := sess.Advance(); done {
		t.Error("Advance after cancel must not complete the session")
	}
	if sess.State() != Cancelled {
		t.Error("Advance after cancel must not change state")
	}
	if _, err := sess.Submit("a1"); !errors.Is(err, ErrNotActive) {
		t.Errorf("Expected ErrNotActive after cancel, got %v", err)
	}
	if err := sess.Skip(); !errors.Is(err, ErrNotActive) {
		t.Errorf("Expected ErrNotActive after cancel, got %v", err)
	}

	// Cancelling twice is harmless.
	sess.Cancel()
}

func TestDeletedCardIsPassedOver(t *testing.T) {
	c1 := card(t, "q1", "a1", false)
	c2 := card(t, "q2", "a2", false)
	src := &fakeSource{cards: []domain.Card{c1, c2}}
	sess, err := Start(Quiz, src)
	if err != nil {
		t.Fatal(err)
	}
	defer sess.Cancel()

	current, _ := sess.Current()
	var other domain.Card
	if current.ID == c1.ID {
		other = c2
	} else {
		other = c1
	}
	src.remove(other.ID)

	seen := 0
	for {
		if _, ok := sess.Current(); !ok {
			break
		}
		seen++
		if err := sess.Skip(); err != nil {
			t.Fatal(err)
		}
	}
	if seen != 1 {
		t.Errorf("Expected the deleted card to be passed over, saw %d cards", seen)
	}
}

func TestSessionReadsThroughTheStore(t *testing.T) {
	// Mutations to a card between questions must be visible: the session
	// holds IDs, not copies.
	c := card(t, "q", "old answer", false)
	src := &fakeSource{cards: []domain.Card{c}}
	sess, err := Start(Quiz, src)
	if err != nil {
		t.Fatal(err)
	}
	defer sess.Cancel()

	src.cards[0].Answer = "new answer"
	current, ok := sess.Current()
	if !ok {
		t.Fatal("Expected a current card")
	}
	if current.Answer != "new answer" {
		t.Error("Expected the session to read card state through the source")
	}
}
