// Package session runs one quiz or practice pass over a shuffled
// snapshot of the deck. A session owns only its sequencing state; every
// answer and skip is recorded back through the card store, and cards are
// always read through the store so a session never holds stale copies.
package session

import (
	"errors"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/conorfennell/flashdeck/internal/domain"
	"github.com/conorfennell/flashdeck/internal/stats"
)

var (
	// ErrNoCards means there is nothing to quiz on.
	ErrNoCards = errors.New("no cards available to start a session")
	// ErrAllMastered is the distinct practice-mode outcome when every
	// card is already mastered. It is a reason to celebrate, not an error
	// state, but it still starts no session.
	ErrAllMastered = errors.New("all cards are mastered")
	// ErrEmptyAnswer rejects a blank submission without advancing.
	ErrEmptyAnswer = errors.New("answer cannot be empty")
	// ErrNotActive guards operations on a finished or cancelled session.
	ErrNotActive = errors.New("session is not active")
)

// Mode selects which cards a session draws from.
type Mode string

const (
	// Quiz runs over the full collection.
	Quiz Mode = "quiz"
	// Practice runs over unmastered cards only.
	Practice Mode = "practice"
)

// State is the session lifecycle phase.
type State int

const (
	Active State = iota
	Complete
	Cancelled
)

// CardSource is the slice of the card store a session depends on.
type CardSource interface {
	Cards() []domain.Card
	Unmastered() []domain.Card
	Get(id string) (domain.Card, bool)
	RecordAnswer(correct bool)
	RecordSkip()
}

// AnswerResult reports how a submission was judged.
type AnswerResult struct {
	Correct       bool
	CorrectAnswer string
}

// Summary is the final report when a session completes.
type Summary struct {
	Score      int
	Answered   int
	Percentage int
	Tier       stats.Tier
}

// Session is one run of quiz or practice mode. Methods are safe for use
// from concurrent HTTP handlers.
type Session struct {
	mu    sync.Mutex
	src   CardSource
	mode  Mode
	state State

	ordering []string // shuffled card IDs, fixed for the session
	cursor   int

	score    int
	answered int

	started time.Time
	elapsed int
	done    chan struct{}
}

// Start begins a new session. Quiz mode draws from the full collection,
// practice mode from unmastered cards only. The ordering is a fresh
// uniform shuffle taken once at start; it is never reshuffled
// mid-session.
func Start(mode Mode, src CardSource) (*Session, error) {
	var source []domain.Card
	switch mode {
	case Practice:
		source = src.Unmastered()
		if len(source) == 0 {
			if len(src.Cards()) > 0 {
				return nil, ErrAllMastered
			}
			return nil, ErrNoCards
		}
	default:
		source = src.Cards()
		if len(source) == 0 {
			return nil, ErrNoCards
		}
	}

	ordering := make([]string, len(source))
	for i, c := range source {
		ordering[i] = c.ID
	}
	rand.Shuffle(len(ordering), func(i, j int) {
		ordering[i], ordering[j] = ordering[j], ordering[i]
	})

	s := &Session{
		src:      src,
		mode:     mode,
		state:    Active,
		ordering: ordering,
		started:  time.Now(),
		done:     make(chan struct{}),
	}
	go s.runTicker()
	return s, nil
}

// runTicker advances the elapsed-seconds counter once a second while the
// session is active. The counter feeds the timer display only.
func (s *Session) runTicker() {
	t := time.NewTicker(time.Second)
	defer t.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-t.C:
			s.mu.Lock()
			if s.state == Active {
				s.elapsed++
			}
			s.mu.Unlock()
		}
	}
}

// Mode reports which mode the session was started in.
func (s *Session) Mode() Mode {
	return s.mode
}

// State reports the session lifecycle phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Elapsed returns the ticked session duration in seconds.
func (s *Session) Elapsed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elapsed
}

// Progress reports the 1-based position of the current question and the
// session length.
func (s *Session) Progress() (current, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor + 1, len(s.ordering)
}

// Current returns the card under the cursor, or false when the session is
// exhausted or no longer active. Cards deleted from the deck mid-session
// are passed over.
func (s *Session) Current() (domain.Card, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentLocked()
}

func (s *Session) currentLocked() (domain.Card, bool) {
	if s.state != Active {
		return domain.Card{}, false
	}
	for s.cursor < len(s.ordering) {
		if card, ok := s.src.Get(s.ordering[s.cursor]); ok {
			return card, true
		}
		s.cursor++
	}
	return domain.Card{}, false
}

// Submit judges the user's answer against the current card and records
// the outcome through the card store. A blank submission is rejected with
// no state change. Judging is permissive on purpose: after lowercasing
// and trimming both sides, an answer is correct on exact match or when
// the stored answer contains the submission as a substring, so partial
// and paraphrased answers count. Submit does not advance the cursor; the
// presentation layer owns the feedback delay and calls Advance after it.
func (s *Session) Submit(userText string) (AnswerResult, error) {
	user := strings.ToLower(strings.TrimSpace(userText))
	if user == "" {
		return AnswerResult{}, ErrEmptyAnswer
	}

	s.mu.Lock()
	card, ok := s.currentLocked()
	if !ok {
		s.mu.Unlock()
		return AnswerResult{}, ErrNotActive
	}

	stored := strings.ToLower(strings.TrimSpace(card.Answer))
	correct := user == stored || strings.Contains(stored, user)

	s.answered++
	if correct {
		s.score++
	}
	s.mu.Unlock()

	s.src.RecordAnswer(correct)
	return AnswerResult{Correct: correct, CorrectAnswer: card.Answer}, nil
}

// Skip records the current question as answered-without-credit and moves
// on immediately, bypassing the feedback delay. The streak is untouched.
func (s *Session) Skip() error {
	s.mu.Lock()
	if _, ok := s.currentLocked(); !ok {
		s.mu.Unlock()
		return ErrNotActive
	}
	s.answered++
	s.cursor++
	s.mu.Unlock()

	s.src.RecordSkip()
	return nil
}

// Hint returns the first third of the answer, rounded up, with an
// ellipsis. Pure; asking for hints costs nothing.
func Hint(card domain.Card) string {
	runes := []rune(card.Answer)
	n := (len(runes) + 2) / 3
	return string(runes[:n]) + "..."
}

// Advance moves to the next question after the presentation layer's
// feedback delay. If the session was cancelled while the delay ran, this
// is a no-op. When the ordering is exhausted the session completes, the
// ticker stops, and the summary is returned.
func (s *Session) Advance() (Summary, bool) {
	s.mu.Lock()
	if s.state != Active {
		s.mu.Unlock()
		return Summary{}, false
	}
	s.cursor++
	if _, ok := s.currentLocked(); ok {
		s.mu.Unlock()
		return Summary{}, false
	}

	s.state = Complete
	close(s.done)
	summary := s.summaryLocked()
	s.mu.Unlock()
	return summary, true
}

func (s *Session) summaryLocked() Summary {
	pct := stats.Accuracy(s.score, s.answered)
	return Summary{
		Score:      s.score,
		Answered:   s.answered,
		Percentage: pct,
		Tier:       stats.CompletionTier(pct),
	}
}

// SessionScore reports the session-local correct and answered counts for
// the in-session scoreboard.
func (s *Session) SessionScore() (score, answered int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.score, s.answered
}

// Cancel abandons the session, stopping the ticker and discarding the
// sequencing state. Outcomes already recorded through the card store
// stand.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Active {
		return
	}
	s.state = Cancelled
	close(s.done)
}
