// Package store owns the card collection and the aggregate study
// counters. All mutations go through the Store, which flushes to the
// persistence adapter after every change.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/conorfennell/flashdeck/internal/cardhash"
	"github.com/conorfennell/flashdeck/internal/deck"
	"github.com/conorfennell/flashdeck/internal/domain"
	"github.com/conorfennell/flashdeck/internal/stats"
	"github.com/conorfennell/flashdeck/internal/storage"
)

// ErrCardNotFound is returned when a mutation references an ID that is no
// longer in the collection.
var ErrCardNotFound = errors.New("card not found")

// streakMilestone is how many consecutive correct answers trigger the
// streak achievement event.
const streakMilestone = 5

// KV is the persistence adapter contract: durable string key/value
// storage. *storage.DB satisfies it.
type KV interface {
	Load(key string) (string, bool, error)
	Save(key, value string) error
}

// Events receives achievement notifications from the store. Fields are
// optional; nil callbacks are skipped. Display is the caller's concern.
type Events struct {
	CardMastered    func(card domain.Card)
	StreakMilestone func(streak int)
}

// Store is the owned card collection plus aggregate study statistics.
type Store struct {
	mu     sync.Mutex
	db     KV
	log    *slog.Logger
	events Events

	cards        []domain.Card
	score        int
	answered     int
	studyMinutes int
	streak       int

	lastSaveErr error
}

// Load builds a Store from the persistence adapter, falling back to the
// seed deck when no saved collection exists. Counters missing from
// storage start at zero.
func Load(db KV, log *slog.Logger, events Events) (*Store, error) {
	s := &Store{db: db, log: log, events: events}

	raw, ok, err := db.Load(storage.KeyCards)
	if err != nil {
		return nil, fmt.Errorf("loading cards: %w", err)
	}
	if ok {
		if err := json.Unmarshal([]byte(raw), &s.cards); err != nil {
			return nil, fmt.Errorf("decoding saved cards: %w", err)
		}
		for i := range s.cards {
			if s.cards[i].ID == "" {
				// Collections saved before stable IDs existed.
				s.cards[i].ID = uuid.NewString()
			}
		}
	} else {
		s.cards = domain.SeedDeck()
		s.persist()
	}

	s.score = s.loadCounter(storage.KeyScore)
	s.answered = s.loadCounter(storage.KeyQuestionsAnswered)
	s.studyMinutes = s.loadCounter(storage.KeyStudyTime)
	s.streak = s.loadCounter(storage.KeyStreak)

	return s, nil
}

func (s *Store) loadCounter(key string) int {
	raw, ok, err := s.db.Load(key)
	if err != nil || !ok {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// persist flushes the collection and all counters. Failures are
// non-fatal: the in-memory state stays authoritative, the error is
// logged and kept for the UI to surface, and the next mutation retries.
// Callers must hold s.mu.
func (s *Store) persist() {
	raw, err := json.Marshal(s.cards)
	if err == nil {
		err = s.db.Save(storage.KeyCards, string(raw))
	}
	if err == nil {
		err = s.db.Save(storage.KeyScore, strconv.Itoa(s.score))
	}
	if err == nil {
		err = s.db.Save(storage.KeyQuestionsAnswered, strconv.Itoa(s.answered))
	}
	if err == nil {
		err = s.db.Save(storage.KeyStudyTime, strconv.Itoa(s.studyMinutes))
	}
	if err == nil {
		err = s.db.Save(storage.KeyStreak, strconv.Itoa(s.streak))
	}

	s.lastSaveErr = err
	if err != nil {
		s.log.Warn("failed to persist state; keeping in-memory state", "error", err)
	}
}

// SetEvents installs the achievement callbacks. The presentation layer
// calls this once at wiring time, after both sides exist.
func (s *Store) SetEvents(events Events) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = events
}

// LastSaveError reports the most recent persistence failure, or nil once
// a flush has succeeded again.
func (s *Store) LastSaveError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSaveErr
}

// Add validates and appends a new card.
func (s *Store) Add(question, answer string, difficulty domain.Difficulty, category string) (domain.Card, error) {
	card, err := domain.NewCard(question, answer, difficulty, category)
	if err != nil {
		return domain.Card{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cards = append(s.cards, card)
	s.persist()
	return card, nil
}

// Delete removes the card with the given ID. Confirmation of intent is
// the caller's concern.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.cards {
		if s.cards[i].ID == id {
			s.cards = append(s.cards[:i], s.cards[i+1:]...)
			s.persist()
			return nil
		}
	}
	return ErrCardNotFound
}

// ToggleMastered flips the card's mastered flag and returns the new
// state. The mastered event fires only on the false-to-true transition.
func (s *Store) ToggleMastered(id string) (bool, error) {
	s.mu.Lock()

	for i := range s.cards {
		if s.cards[i].ID == id {
			s.cards[i].Mastered = !s.cards[i].Mastered
			card := s.cards[i]
			s.persist()
			onMastered := s.events.CardMastered
			s.mu.Unlock()

			if card.Mastered && onMastered != nil {
				onMastered(card)
			}
			return card.Mastered, nil
		}
	}
	s.mu.Unlock()
	return false, ErrCardNotFound
}

// ClearAll empties the collection. Counters are untouched.
func (s *Store) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cards = nil
	s.persist()
}

// Shuffle produces a uniformly random permutation of the collection.
func (s *Store) Shuffle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	rand.Shuffle(len(s.cards), func(i, j int) {
		s.cards[i], s.cards[j] = s.cards[j], s.cards[i]
	})
	s.persist()
}

// Scope selects which part of the collection Filter returns.
type Scope string

const (
	ScopeAll      Scope = "all"
	ScopeMastered Scope = "mastered"
	ScopeEasy     Scope = Scope(domain.Easy)
	ScopeMedium   Scope = Scope(domain.Medium)
	ScopeHard     Scope = Scope(domain.Hard)
)

// Filter returns cards matching the scope and, when search is non-empty,
// a case-insensitive substring match on question or answer. Collection
// order is preserved.
func (s *Store) Filter(scope Scope, search string) []domain.Card {
	s.mu.Lock()
	defer s.mu.Unlock()

	search = strings.ToLower(strings.TrimSpace(search))
	var out []domain.Card
	for _, c := range s.cards {
		switch scope {
		case ScopeAll, "":
		case ScopeMastered:
			if !c.Mastered {
				continue
			}
		default:
			if c.Difficulty != domain.Difficulty(scope) {
				continue
			}
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(c.Question), search) &&
			!strings.Contains(strings.ToLower(c.Answer), search) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Cards returns a copy of the full collection in order.
func (s *Store) Cards() []domain.Card {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Card, len(s.cards))
	copy(out, s.cards)
	return out
}

// Unmastered returns the cards still being studied, in order.
func (s *Store) Unmastered() []domain.Card {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Card
	for _, c := range s.cards {
		if !c.Mastered {
			out = append(out, c)
		}
	}
	return out
}

// Get looks up a card by ID.
func (s *Store) Get(id string) (domain.Card, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.cards {
		if c.ID == id {
			return c, true
		}
	}
	return domain.Card{}, false
}

// Import parses a JSON deck document and appends its well-formed cards.
// A document that is not a JSON array fails as a whole and leaves the
// collection unchanged; malformed entries are skipped. The result
// reports both the raw entry count and the count actually added.
func (s *Store) Import(raw []byte) (deck.Result, error) {
	cards, res, err := deck.Decode(raw)
	if err != nil {
		return deck.Result{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cards = append(s.cards, cards...)
	s.persist()
	return res, nil
}

// Adopt appends cards whose normalized content is not already in the
// collection, returning how many were new. Deck sources re-import the
// same files on every sync; the content hash keeps that idempotent.
func (s *Store) Adopt(cards []domain.Card) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool, len(s.cards))
	for _, c := range s.cards {
		seen[cardhash.Hash(c)] = true
	}

	added := 0
	for _, c := range cards {
		h := cardhash.Hash(c)
		if seen[h] {
			continue
		}
		seen[h] = true
		s.cards = append(s.cards, c)
		added++
	}
	if added > 0 {
		s.persist()
	}
	return added
}

// Export serializes the collection as a pretty-printed deck document.
func (s *Store) Export() ([]byte, error) {
	return deck.Encode(s.Cards())
}

// RecordAnswer accounts one answered question. A correct answer bumps the
// score and streak, firing the streak event on every fifth consecutive
// correct answer; an incorrect answer resets the streak.
func (s *Store) RecordAnswer(correct bool) {
	s.mu.Lock()

	s.answered++
	milestone := 0
	if correct {
		s.score++
		s.streak++
		if s.streak%streakMilestone == 0 {
			milestone = s.streak
		}
	} else {
		s.streak = 0
	}
	s.persist()
	onMilestone := s.events.StreakMilestone
	s.mu.Unlock()

	if milestone > 0 && onMilestone != nil {
		onMilestone(milestone)
	}
}

// RecordSkip accounts a skipped question. Skipping is neutral: it counts
// as answered but leaves the streak alone.
func (s *Store) RecordSkip() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answered++
	s.persist()
}

// TickStudyTime accumulates elapsed wall-clock study minutes.
func (s *Store) TickStudyTime(minutes int) {
	if minutes <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.studyMinutes += minutes
	s.persist()
}

// Restart zeroes every aggregate counter and unmasters every card. Card
// content is untouched.
func (s *Store) Restart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.score = 0
	s.answered = 0
	s.studyMinutes = 0
	s.streak = 0
	for i := range s.cards {
		s.cards[i].Mastered = false
	}
	s.persist()
}

// Snapshot is the derived statistics view, computed fresh on each call.
type Snapshot struct {
	TotalCards        int
	MasteredCards     int
	Score             int
	QuestionsAnswered int
	AccuracyPercent   int
	Level             int
	StudyMinutes      int
	Streak            int
}

// Stats computes the current derived statistics.
func (s *Store) Stats() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	mastered := 0
	for _, c := range s.cards {
		if c.Mastered {
			mastered++
		}
	}
	return Snapshot{
		TotalCards:        len(s.cards),
		MasteredCards:     mastered,
		Score:             s.score,
		QuestionsAnswered: s.answered,
		AccuracyPercent:   stats.Accuracy(s.score, s.answered),
		Level:             stats.Level(s.score),
		StudyMinutes:      s.studyMinutes,
		Streak:            s.streak,
	}
}
