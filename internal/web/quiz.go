package web

import (
	"errors"
	"net/http"

	"github.com/conorfennell/flashdeck/internal/session"
	"github.com/conorfennell/flashdeck/internal/stats"
)

// activeSession returns the current session, if any.
func (s *Server) activeSession() *session.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// swapSession installs a new session, cancelling any previous one so its
// ticker stops and any in-flight deferred advance becomes a no-op.
func (s *Server) swapSession(next *session.Session) {
	s.mu.Lock()
	prev := s.session
	s.session = next
	s.mu.Unlock()
	if prev != nil {
		prev.Cancel()
	}
}

type questionView struct {
	Question       string
	Number         int
	Total          int
	Score          int
	Answered       int
	ProgressPct    int
	Elapsed        string
	FeedbackDelay  int64
	SessionRunning bool
}

func (s *Server) questionView(sess *session.Session) (questionView, bool) {
	card, ok := sess.Current()
	if !ok {
		return questionView{}, false
	}
	num, total := sess.Progress()
	score, answered := sess.SessionScore()
	return questionView{
		Question:       card.Question,
		Number:         num,
		Total:          total,
		Score:          score,
		Answered:       answered,
		ProgressPct:    (num - 1) * 100 / total,
		Elapsed:        stats.FormatClock(sess.Elapsed()),
		FeedbackDelay:  s.feedbackDelay.Milliseconds(),
		SessionRunning: true,
	}, true
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	mode := session.Quiz
	if r.PostFormValue("mode") == string(session.Practice) {
		mode = session.Practice
	}

	sess, err := session.Start(mode, s.store)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrAllMastered):
			s.flash(Flash{Kind: "success", Message: "You've mastered all cards! Add more to practice."})
		default:
			s.flash(Flash{Kind: "error", Message: "Add some cards first!"})
		}
		s.renderToasts(w)
		return
	}
	s.swapSession(sess)

	view, _ := s.questionView(sess)
	s.render(w, "quiz_modal", view)
}

func (s *Server) handleQuestion(w http.ResponseWriter, r *http.Request) {
	sess := s.activeSession()
	if sess == nil {
		http.Error(w, "No active session", http.StatusBadRequest)
		return
	}
	view, ok := s.questionView(sess)
	if !ok {
		s.finishSession(w, sess)
		return
	}
	s.render(w, "quiz_question", view)
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	sess := s.activeSession()
	if sess == nil {
		http.Error(w, "No active session", http.StatusBadRequest)
		return
	}

	result, err := sess.Submit(r.PostFormValue("answer"))
	if err != nil {
		switch {
		case errors.Is(err, session.ErrEmptyAnswer):
			s.flash(Flash{Kind: "error", Message: "Please enter an answer!"})
			s.renderToasts(w)
		default:
			http.Error(w, "Session is not active", http.StatusConflict)
		}
		return
	}

	score, answered := sess.SessionScore()
	// The feedback fragment advances itself after the configured delay
	// (hx-trigger load delay); the engine never blocks on it.
	s.render(w, "quiz_feedback", map[string]interface{}{
		"Correct":       result.Correct,
		"CorrectAnswer": result.CorrectAnswer,
		"Score":         score,
		"Answered":      answered,
		"FeedbackDelay": s.feedbackDelay.Milliseconds(),
	})
	s.render(w, "stats_oob", s.statsView())
	s.renderToasts(w)
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	sess := s.activeSession()
	if sess == nil {
		http.Error(w, "No active session", http.StatusBadRequest)
		return
	}

	if summary, done := sess.Advance(); done {
		s.renderSummary(w, summary)
		return
	}
	view, ok := s.questionView(sess)
	if !ok {
		// Cancelled while the feedback delay ran; leave the page alone.
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.render(w, "quiz_question", view)
}

func (s *Server) handleSkip(w http.ResponseWriter, r *http.Request) {
	sess := s.activeSession()
	if sess == nil {
		http.Error(w, "No active session", http.StatusBadRequest)
		return
	}
	if err := sess.Skip(); err != nil {
		http.Error(w, "Session is not active", http.StatusConflict)
		return
	}

	view, ok := s.questionView(sess)
	if !ok {
		s.finishSession(w, sess)
		return
	}
	s.render(w, "quiz_question", view)
	s.render(w, "stats_oob", s.statsView())
}

func (s *Server) handleHint(w http.ResponseWriter, r *http.Request) {
	sess := s.activeSession()
	if sess == nil {
		http.Error(w, "No active session", http.StatusBadRequest)
		return
	}
	card, ok := sess.Current()
	if !ok {
		http.Error(w, "No current question", http.StatusBadRequest)
		return
	}
	s.flash(Flash{Kind: "info", Message: "Hint: " + session.Hint(card)})
	s.renderToasts(w)
}

func (s *Server) handleTimer(w http.ResponseWriter, r *http.Request) {
	sess := s.activeSession()
	if sess == nil || sess.State() != session.Active {
		return
	}
	w.Write([]byte(stats.FormatClock(sess.Elapsed())))
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	sess := s.activeSession()
	if sess != nil {
		sess.Cancel()
	}
	s.render(w, "quiz_closed", nil)
	s.render(w, "stats_oob", s.statsView())
	s.renderToasts(w)
}

// finishSession completes an exhausted session and renders the summary.
func (s *Server) finishSession(w http.ResponseWriter, sess *session.Session) {
	if summary, done := sess.Advance(); done {
		s.renderSummary(w, summary)
		return
	}
	s.render(w, "quiz_closed", nil)
}

func (s *Server) renderSummary(w http.ResponseWriter, summary session.Summary) {
	s.flash(Flash{Kind: "achievement", Message: "Quiz Complete!", Detail: summary.Tier.Message()})
	s.render(w, "quiz_summary", map[string]interface{}{
		"Score":      summary.Score,
		"Answered":   summary.Answered,
		"Percentage": summary.Percentage,
		"Message":    summary.Tier.Message(),
	})
	s.render(w, "stats_oob", s.statsView())
	s.renderToasts(w)
}
