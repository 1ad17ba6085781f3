package domain

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// Validation errors for card content.
var (
	ErrEmptyQuestion = errors.New("card question cannot be empty")
	ErrEmptyAnswer   = errors.New("card answer cannot be empty")
)

// Difficulty is the self-assessed difficulty of a card.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// ParseDifficulty maps a raw string onto a known difficulty.
// Unknown values fall back to Medium, the import default.
func ParseDifficulty(s string) Difficulty {
	switch Difficulty(strings.ToLower(strings.TrimSpace(s))) {
	case Easy:
		return Easy
	case Hard:
		return Hard
	default:
		return Medium
	}
}

// DefaultCategory is assigned to cards that arrive without a category.
const DefaultCategory = "general"

// Card is a single question-answer study unit.
// IDs are stable for the card's lifetime; every mutation addresses a card
// by ID, never by position in the deck.
type Card struct {
	ID         string     `json:"id"`
	Question   string     `json:"question"`
	Answer     string     `json:"answer"`
	Difficulty Difficulty `json:"difficulty"`
	Category   string     `json:"category"`
	Mastered   bool       `json:"mastered"`
}

// NewCard validates and builds a card. Question and answer are trimmed
// and must be non-empty after trimming.
func NewCard(question, answer string, difficulty Difficulty, category string) (Card, error) {
	question = strings.TrimSpace(question)
	answer = strings.TrimSpace(answer)
	if question == "" {
		return Card{}, ErrEmptyQuestion
	}
	if answer == "" {
		return Card{}, ErrEmptyAnswer
	}
	category = strings.TrimSpace(category)
	if category == "" {
		category = DefaultCategory
	}
	return Card{
		ID:         uuid.NewString(),
		Question:   question,
		Answer:     answer,
		Difficulty: difficulty,
		Category:   category,
	}, nil
}

// SeedDeck is the starter collection used when no saved deck exists.
func SeedDeck() []Card {
	seed := []struct {
		q, a, cat string
		d         Difficulty
	}{
		{"What is Java?", "A high-level, object-oriented programming language.", "java", Easy},
		{"What does HTML stand for?", "HyperText Markup Language.", "programming", Easy},
		{"What is the purpose of CSS?", "To style and layout web pages.", "programming", Medium},
		{"What does JS stand for?", "JavaScript.", "programming", Easy},
		{"What is an array?", "A collection of elements stored under a single variable.", "theory", Medium},
	}

	cards := make([]Card, 0, len(seed))
	for _, s := range seed {
		card, err := NewCard(s.q, s.a, s.d, s.cat)
		if err != nil {
			panic(err) // seed literals are static and valid
		}
		cards = append(cards, card)
	}
	return cards
}
