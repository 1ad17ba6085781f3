package cardhash

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/conorfennell/flashdeck/internal/domain"
)

// Normalize concatenates the card's content after cleaning each part.
// It trims whitespace, lowercases, and normalizes line endings for each
// field before joining them.
func Normalize(card domain.Card) string {
	normalizePart := func(part string) string {
		p := strings.ToLower(part)
		p = strings.TrimSpace(p)
		p = strings.ReplaceAll(p, "\r\n", "\n")
		return p
	}

	q := normalizePart(card.Question)
	a := normalizePart(card.Answer)

	// Joined with a newline so adjacent fields can never run together
	// and collide, e.g. "question"+"answer" vs "questionanswer".
	return strings.Join([]string{q, a}, "\n")
}

// Hash normalizes a card's content and returns its SHA-256 hash as a hex
// string. Cards that differ only in whitespace, casing, or line endings
// hash identically, which is what source de-duplication wants.
func Hash(card domain.Card) string {
	normalized := Normalize(card)
	hashBytes := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", hashBytes)
}
