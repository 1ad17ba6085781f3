package cardhash

import (
	"testing"

	"github.com/conorfennell/flashdeck/internal/domain"
)

func TestNormalize(t *testing.T) {
	card := domain.Card{
		Question: "  What is HTMX? \r\n",
		Answer:   "A library for AJAX.",
	}
	expected := "what is htmx?\na library for ajax."
	normalized := Normalize(card)

	if normalized != expected {
		t.Errorf("Expected normalized string to be '%s', but got '%s'", expected, normalized)
	}
}

func TestHash(t *testing.T) {
	t.Run("generates correct hash", func(t *testing.T) {
		card := domain.Card{Question: "Q", Answer: "A"}
		// Hash for "q\na"
		expectedHash := "27d2d5c8276a1f606af38834a9294ae5d3bfc6c5097c03e3fdd6e8c5c37e2ba7"
		hash := Hash(card)

		if hash != expectedHash {
			t.Errorf("Expected hash '%s', but got '%s'", expectedHash, hash)
		}
	})

	t.Run("hash is deterministic", func(t *testing.T) {
		card1 := domain.Card{Question: "Test"}
		card2 := domain.Card{Question: "Test"}
		if Hash(card1) != Hash(card2) {
			t.Error("Expected hashes for identical cards to be the same")
		}
	})

	t.Run("normalization produces same hash", func(t *testing.T) {
		card1 := domain.Card{
			Question: "  what is go? ",
			Answer:   "A programming language.",
		}
		card2 := domain.Card{
			Question: "What Is Go?",
			Answer:   "A programming language.",
		}
		if Hash(card1) != Hash(card2) {
			t.Error("Expected hashes to be the same after normalization, but they were different.")
		}
	})

	t.Run("identity fields do not affect the hash", func(t *testing.T) {
		card1 := domain.Card{ID: "a", Question: "Q", Answer: "A", Category: "x", Mastered: true}
		card2 := domain.Card{ID: "b", Question: "Q", Answer: "A", Category: "y"}
		if Hash(card1) != Hash(card2) {
			t.Error("Expected hash to depend on content only")
		}
	})

	t.Run("different cards have different hashes", func(t *testing.T) {
		card1 := domain.Card{Question: "Card 1"}
		card2 := domain.Card{Question: "Card 2"}
		if Hash(card1) == Hash(card2) {
			t.Error("Expected hashes for different cards to be different")
		}
	})
}
