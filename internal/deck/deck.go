// Package deck encodes and decodes the JSON deck interchange format used
// for file import and export.
package deck

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/conorfennell/flashdeck/internal/domain"
)

// ErrNotADeck is returned when the import document is not a JSON array of
// card entries. Malformed individual entries are skipped, not fatal.
var ErrNotADeck = errors.New("import document is not a deck: expected a JSON array of cards")

// Entry is the wire shape of one card in a deck document. Only question
// and answer are required; the rest default on import.
type Entry struct {
	Question   string `json:"question"`
	Answer     string `json:"answer"`
	Difficulty string `json:"difficulty,omitempty"`
	Category   string `json:"category,omitempty"`
	Mastered   bool   `json:"mastered,omitempty"`
}

// Result reports the outcome of a decode pass. Attempted is the raw entry
// count in the document; Added only counts the entries that survived
// validation.
type Result struct {
	Attempted int
	Added     int
}

// Decode parses a raw deck document and returns the well-formed cards in
// document order. Entries missing a question or answer are skipped
// silently. A document that is not a JSON array fails as a whole.
func Decode(raw []byte) ([]domain.Card, Result, error) {
	var entries []Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, Result{}, fmt.Errorf("%w: %v", ErrNotADeck, err)
	}
	// A null document unmarshals as a no-op, leaving the slice nil; an
	// empty array replaces it with an empty slice. Only arrays are decks.
	if entries == nil {
		return nil, Result{}, fmt.Errorf("%w: document is null", ErrNotADeck)
	}

	res := Result{Attempted: len(entries)}
	cards := make([]domain.Card, 0, len(entries))
	for _, e := range entries {
		if strings.TrimSpace(e.Question) == "" || strings.TrimSpace(e.Answer) == "" {
			continue
		}
		card, err := domain.NewCard(e.Question, e.Answer, domain.ParseDifficulty(e.Difficulty), e.Category)
		if err != nil {
			continue
		}
		card.Mastered = e.Mastered
		cards = append(cards, card)
		res.Added++
	}
	return cards, res, nil
}

// Encode serializes a collection as a pretty-printed deck document with a
// stable field order, suitable for re-import.
func Encode(cards []domain.Card) ([]byte, error) {
	entries := make([]Entry, 0, len(cards))
	for _, c := range cards {
		entries = append(entries, Entry{
			Question:   c.Question,
			Answer:     c.Answer,
			Difficulty: string(c.Difficulty),
			Category:   c.Category,
			Mastered:   c.Mastered,
		})
	}
	out, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode deck: %w", err)
	}
	return out, nil
}
