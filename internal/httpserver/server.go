// internal/httpserver/server.go
//
// HTTP server wiring for the word game suite.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health", "/api/status", "/api/validate-words".
//   - Room endpoints under /api/rooms; in-game actions require a room session
//     token (Authorization: Bearer, or ?token=).
//   - Realtime endpoint: GET /ws (WebSocket, not subject to the request timeout).
//   - Wordle endpoints under /wordle.
//
// Notes:
//   - CORS is origin-aware and credentials-enabled for the configured client.
//   - Errors are JSON bodies {"error": "..."}; see errors.go for the mapping.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordgames/internal/dictionary"
	"github.com/robalobadob/wordgames/internal/realtime"
	"github.com/robalobadob/wordgames/internal/rooms"
	"github.com/robalobadob/wordgames/internal/store"
)

// Deps are the collaborators the server routes to.
type Deps struct {
	Rooms   *rooms.Service
	Hub     *realtime.Hub
	Store   store.RoomStore // pinged by /api/status
	Games   store.GameStore
	Board   *dictionary.Dictionary // scrabble / word chain list
	Wordle  *dictionary.Dictionary // every acceptable wordle guess
	Answers *dictionary.Dictionary // wordle answer pool, stable order
}

// Options tunes the HTTP layer.
type Options struct {
	ClientOrigin   string
	RequestTimeout time.Duration
	DailySalt      string
}

// Server bundles the router and its collaborators.
type Server struct {
	r    *chi.Mux
	deps Deps
	opts Options
	http *http.Server
}

// New constructs a Server, installs middleware, and registers routes.
func New(d Deps, o Options) *Server {
	if o.ClientOrigin == "" {
		o.ClientOrigin = "http://localhost:5173"
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 10 * time.Second
	}
	if d.Games == nil {
		d.Games = store.NewMemoryGames()
	}
	s := &Server{r: chi.NewRouter(), deps: d, opts: o}

	// --- middleware ---
	s.r.Use(chimw.RequestID)      // add X-Request-ID
	s.r.Use(chimw.RealIP)         // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(chimw.Recoverer)      // recover from panics
	s.r.Use(cors(o.ClientOrigin)) // credentials-friendly CORS

	// --- realtime (long-lived, no timeout) ---
	s.r.Get("/ws", s.handleWS)

	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(o.RequestTimeout)) // bound handler time
		r.Use(jsonContentType)                 // default JSON responses

		// --- diagnostics ---
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"service":"wordgames","endpoints":["/health","/api/status","POST /api/validate-words","/api/rooms/*","/ws","/wordle/*"]}`))
		})
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"ok":true}`))
		})
		r.Get("/api/status", s.handleStatus)
		r.Post("/api/validate-words", s.handleValidate)

		s.mountRooms(r)
		s.mountWordle(r)

		// JSON 404 for easier debugging
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "path": r.URL.Path})
		})
	})

	return s
}

// Start begins serving HTTP on addr. It returns nil after Shutdown.
func (s *Server) Start(addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.Info().Str("addr", addr).Msg("http server listening")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for a single origin.
func cors(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ---------------------------- diagnostics ----------------------------------

// handleStatus reports store reachability and the size of the dictionary the
// calling client uses (?origin=wordle|scrabble|wordchain).
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	available := true
	if s.deps.Store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		available = s.deps.Store.Ping(ctx) == nil
	}
	res := map[string]any{
		"storeAvailable": available,
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	}
	if r.URL.Query().Get("origin") == "wordle" {
		res["wordleDictionarySize"] = size(s.deps.Wordle)
	} else {
		res["dictionarySize"] = size(s.deps.Board)
	}
	_ = json.NewEncoder(w).Encode(res)
}

func size(d *dictionary.Dictionary) int {
	if d == nil {
		return 0
	}
	return d.Size()
}

type validateReq struct {
	Words     []string `json:"words"`
	UsedWords []string `json:"usedWords"`
	Wordle    bool     `json:"wordle"`
}

type validateRes struct {
	ValidWords   []dictionary.Verdict `json:"validWords"`
	LongestValid string               `json:"longestValid,omitempty"`
}

// handleValidate checks a batch of words against the board or wordle list.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if len(req.Words) == 0 {
		writeError(w, http.StatusBadRequest, "Words array is required")
		return
	}
	d := s.deps.Board
	if req.Wordle {
		d = s.deps.Wordle
	}
	if d == nil {
		writeError(w, http.StatusServiceUnavailable, "dictionary not loaded")
		return
	}
	verdicts, err := d.Validate(r.Context(), req.Words, req.UsedWords)
	if err != nil {
		fail(w, err)
		return
	}
	longest, _ := dictionary.Longest(verdicts)
	_ = json.NewEncoder(w).Encode(validateRes{ValidWords: verdicts, LongestValid: longest})
}
