// Package web serves the browser UI. It is a thin htmx layer over the
// card store and session engine: handlers call into the core and render
// template fragments, and hold no business logic of their own.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/conorfennell/flashdeck/internal/domain"
	"github.com/conorfennell/flashdeck/internal/session"
	"github.com/conorfennell/flashdeck/internal/stats"
	"github.com/conorfennell/flashdeck/internal/storage"
	"github.com/conorfennell/flashdeck/internal/store"
	appsync "github.com/conorfennell/flashdeck/internal/sync"
)

//go:embed all:static
var staticFiles embed.FS

//go:embed all:templates
var templateFiles embed.FS

// maxImportSize caps uploaded deck files at 5 MiB.
const maxImportSize = 5 << 20

// Server holds the dependencies for the HTTP server.
type Server struct {
	store         *store.Store
	db            *storage.DB
	router        *http.ServeMux
	templates     *template.Template
	feedbackDelay time.Duration
	reposDir      string

	mu      sync.Mutex
	session *session.Session
	flashes []Flash
}

// Flash is a one-shot notification queued for the next render.
type Flash struct {
	Message string
	Kind    string // "success", "error", "info", "achievement"
	Detail  string
}

// NewServer creates and configures a new server. Store achievement
// events are routed into the flash queue here, so the store itself never
// knows about the UI.
func NewServer(st *store.Store, db *storage.DB, feedbackDelay time.Duration, reposDir string) *Server {
	tpl, err := template.ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		log.Fatalf("Failed to parse templates: %v", err)
	}

	s := &Server{
		store:         st,
		db:            db,
		router:        http.NewServeMux(),
		templates:     tpl,
		feedbackDelay: feedbackDelay,
		reposDir:      reposDir,
	}
	s.routes()
	return s
}

// Events returns the store event hooks that surface achievements in the
// UI. Wire these into store.Load.
func (s *Server) Events() store.Events {
	return store.Events{
		CardMastered: func(card domain.Card) {
			s.flash(Flash{Kind: "achievement", Message: "Card Mastered!", Detail: "You've mastered this card!"})
		},
		StreakMilestone: func(streak int) {
			s.flash(Flash{
				Kind:    "achievement",
				Message: "Streak Master!",
				Detail:  fmt.Sprintf("You've answered %d questions correctly in a row!", streak),
			})
		},
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// routes sets up the routing for the server.
func (s *Server) routes() {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		log.Fatalf("Failed to create sub-filesystem for static assets: %v", err)
	}
	s.router.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	s.router.HandleFunc("GET /{$}", s.handleIndex)

	// Card collection
	s.router.HandleFunc("GET /cards", s.handleCardGrid)
	s.router.HandleFunc("POST /cards", s.handleAddCard)
	s.router.HandleFunc("DELETE /cards/{id}", s.handleDeleteCard)
	s.router.HandleFunc("POST /cards/{id}/mastered", s.handleToggleMastered)
	s.router.HandleFunc("POST /cards/shuffle", s.handleShuffle)
	s.router.HandleFunc("POST /cards/clear", s.handleClearAll)
	s.router.HandleFunc("POST /restart", s.handleRestart)
	s.router.HandleFunc("GET /stats", s.handleStats)

	// Import / export
	s.router.HandleFunc("POST /import", s.handleImport)
	s.router.HandleFunc("GET /export", s.handleExport)

	// Study sessions
	s.router.HandleFunc("POST /quiz/start", s.handleStartSession)
	s.router.HandleFunc("GET /quiz/question", s.handleQuestion)
	s.router.HandleFunc("POST /quiz/answer", s.handleAnswer)
	s.router.HandleFunc("GET /quiz/next", s.handleNext)
	s.router.HandleFunc("POST /quiz/skip", s.handleSkip)
	s.router.HandleFunc("GET /quiz/hint", s.handleHint)
	s.router.HandleFunc("GET /quiz/timer", s.handleTimer)
	s.router.HandleFunc("POST /quiz/cancel", s.handleCancel)

	// Deck sources
	s.router.HandleFunc("GET /sources", s.handleGetSources)
	s.router.HandleFunc("POST /sources", s.handlePostSource)
	s.router.HandleFunc("DELETE /sources/{id}", s.handleDeleteSource)
	s.router.HandleFunc("POST /sync", s.handleSync)
}

func (s *Server) flash(f Flash) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flashes = append(s.flashes, f)
}

func (s *Server) takeFlashes() []Flash {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.flashes
	s.flashes = nil
	return out
}

// render executes a template fragment, logging rather than failing the
// response on error since partial fragment output may already be written.
func (s *Server) render(w io.Writer, name string, data interface{}) {
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		slog.Error("failed to render template", "template", name, "error", err)
	}
}

// renderToasts appends the queued notifications as an htmx out-of-band
// swap so any fragment response can carry them.
func (s *Server) renderToasts(w io.Writer) {
	flashes := s.takeFlashes()
	if len(flashes) > 0 {
		s.render(w, "toasts", flashes)
	}
}

type statsView struct {
	store.Snapshot
	StudyTime   string
	SaveWarning bool
}

func (s *Server) statsView() statsView {
	snap := s.store.Stats()
	return statsView{
		Snapshot:    snap,
		StudyTime:   stats.FormatStudyTime(snap.StudyMinutes),
		SaveWarning: s.store.LastSaveError() != nil,
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, "index", map[string]interface{}{
		"Stats": s.statsView(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.render(w, "stats", s.statsView())
	s.renderToasts(w)
}

func (s *Server) handleCardGrid(w http.ResponseWriter, r *http.Request) {
	scope := store.Scope(r.URL.Query().Get("filter"))
	search := r.URL.Query().Get("q")
	cards := s.store.Filter(scope, search)
	s.render(w, "card_grid", map[string]interface{}{
		"Cards":  cards,
		"Filter": scope,
		"Search": search,
	})
}

func (s *Server) handleAddCard(w http.ResponseWriter, r *http.Request) {
	_, err := s.store.Add(
		r.PostFormValue("question"),
		r.PostFormValue("answer"),
		domain.ParseDifficulty(r.PostFormValue("difficulty")),
		r.PostFormValue("category"),
	)
	if err != nil {
		s.flash(Flash{Kind: "error", Message: "Please enter both question and answer!"})
	} else {
		s.flash(Flash{Kind: "success", Message: "Card added successfully!"})
	}
	s.renderCardGridWithStats(w)
}

func (s *Server) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	// The confirm dialog lives client-side (hx-confirm); by the time the
	// request lands the intent is confirmed.
	if err := s.store.Delete(r.PathValue("id")); err != nil {
		s.flash(Flash{Kind: "error", Message: "Card no longer exists."})
	} else {
		s.flash(Flash{Kind: "success", Message: "Card deleted!"})
	}
	s.renderCardGridWithStats(w)
}

func (s *Server) handleToggleMastered(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.ToggleMastered(r.PathValue("id")); err != nil {
		s.flash(Flash{Kind: "error", Message: "Card no longer exists."})
	}
	s.renderCardGridWithStats(w)
}

func (s *Server) handleShuffle(w http.ResponseWriter, r *http.Request) {
	s.store.Shuffle()
	s.flash(Flash{Kind: "success", Message: "Cards shuffled!"})
	s.renderCardGridWithStats(w)
}

func (s *Server) handleClearAll(w http.ResponseWriter, r *http.Request) {
	s.store.ClearAll()
	s.flash(Flash{Kind: "success", Message: "All cards cleared!"})
	s.renderCardGridWithStats(w)
}

func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	s.store.Restart()
	s.flash(Flash{Kind: "success", Message: "Progress restarted!"})
	s.renderCardGridWithStats(w)
}

// renderCardGridWithStats re-renders the grid and swaps the stats bar and
// toasts out of band, the standard response to any collection mutation.
func (s *Server) renderCardGridWithStats(w io.Writer) {
	cards := s.store.Filter(store.ScopeAll, "")
	s.render(w, "card_grid", map[string]interface{}{
		"Cards":  cards,
		"Filter": store.ScopeAll,
	})
	s.render(w, "stats_oob", s.statsView())
	s.renderToasts(w)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportSize)
	file, _, err := r.FormFile("deck")
	if err != nil {
		http.Error(w, "No file uploaded", http.StatusBadRequest)
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "Failed to read upload", http.StatusBadRequest)
		return
	}

	res, err := s.store.Import(raw)
	if err != nil {
		s.flash(Flash{Kind: "error", Message: "Invalid file format! Please upload a valid JSON deck."})
	} else {
		msg := fmt.Sprintf("Imported %d cards successfully!", res.Added)
		if res.Added < res.Attempted {
			msg = fmt.Sprintf("Imported %d of %d cards; the rest were malformed.", res.Added, res.Attempted)
		}
		s.flash(Flash{Kind: "success", Message: msg})
	}
	s.renderCardGridWithStats(w)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	out, err := s.store.Export()
	if err != nil {
		slog.Error("failed to export deck", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	name := fmt.Sprintf("flashcards_%d.json", time.Now().Unix())
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Write(out)
}

func (s *Server) handleGetSources(w http.ResponseWriter, r *http.Request) {
	s.renderSourceList(w, "sources")
}

func (s *Server) handlePostSource(w http.ResponseWriter, r *http.Request) {
	path := r.PostFormValue("path")
	if path == "" {
		http.Error(w, "Path cannot be empty", http.StatusBadRequest)
		return
	}
	if _, err := s.db.InsertSource(path, appsync.DetectType(path)); err != nil {
		slog.Error("failed to insert source", "path", path, "error", err)
		http.Error(w, "Failed to add source", http.StatusInternalServerError)
		return
	}
	s.renderSourceList(w, "source_list")
}

func (s *Server) handleDeleteSource(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid source ID", http.StatusBadRequest)
		return
	}
	if err := s.db.DeleteSource(id); err != nil {
		slog.Error("failed to delete source", "id", id, "error", err)
		http.Error(w, "Failed to delete source", http.StatusInternalServerError)
		return
	}
	s.renderSourceList(w, "source_list")
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	// Run in the foreground to make the user wait; sync is quick.
	added := appsync.Run(r.Context(), s.db, s.store, s.reposDir)
	s.flash(Flash{Kind: "success", Message: fmt.Sprintf("Sync complete: %d new cards.", added)})
	s.renderSourceList(w, "source_list")
	s.render(w, "stats_oob", s.statsView())
	s.renderToasts(w)
}

func (s *Server) renderSourceList(w io.Writer, tmpl string) {
	sources, err := s.db.GetAllSources()
	if err != nil {
		slog.Error("failed to get sources", "error", err)
		if rw, ok := w.(http.ResponseWriter); ok {
			http.Error(rw, "Internal Server Error", http.StatusInternalServerError)
		}
		return
	}
	s.render(w, tmpl, map[string]interface{}{"Sources": sources})
}
