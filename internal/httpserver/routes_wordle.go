// internal/httpserver/routes_wordle.go
//
// HTTP routes for single-player Wordle.
//   - POST /wordle/new      → start a game (random answer unless one is given)
//   - POST /wordle/daily    → start today's game (same answer for everyone)
//   - POST /wordle/guess    → submit a guess
//   - GET  /wordle/{gameId} → current board (answer withheld until finished)
//
// Daily answers come from HMAC(salt, date) over the answer list, so every
// server node agrees without coordination.

package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordgames/internal/store"
	"github.com/robalobadob/wordgames/internal/wordle"
)

func (s *Server) mountWordle(r chi.Router) {
	r.Route("/wordle", func(r chi.Router) {
		r.Post("/new", s.handleNewGame)
		r.Post("/daily", s.handleDaily)
		r.Post("/guess", s.handleGuess)
		r.Get("/{gameId}", s.handleGetGame)
	})
}

// newGameReq/Res payloads for POST /wordle/new.
type newGameReq struct {
	Answer string `json:"answer"` // optional fixed answer (testing)
}
type newGameRes struct {
	GameID string `json:"gameId"`
	Date   string `json:"date,omitempty"`
	Rows   int    `json:"rows"`
	Cols   int    `json:"cols"`
}

func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var req newGameReq
	_ = json.NewDecoder(r.Body).Decode(&req)

	answer := req.Answer
	if answer == "" {
		var ok bool
		if s.deps.Answers == nil {
			writeError(w, http.StatusServiceUnavailable, "dictionary not loaded")
			return
		}
		if answer, ok = s.deps.Answers.Random(wordle.DefaultCols); !ok {
			writeError(w, http.StatusServiceUnavailable, "no answers available")
			return
		}
	}
	g := wordle.New(answer)
	s.saveGame(w, r, g)
}

func (s *Server) handleDaily(w http.ResponseWriter, r *http.Request) {
	if s.deps.Answers == nil {
		writeError(w, http.StatusServiceUnavailable, "dictionary not loaded")
		return
	}
	g, ok := wordle.NewDaily(time.Now(), s.opts.DailySalt, s.deps.Answers.Words())
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "no answers available")
		return
	}
	s.saveGame(w, r, g)
}

func (s *Server) saveGame(w http.ResponseWriter, r *http.Request, g *wordle.Game) {
	if err := s.deps.Games.Save(r.Context(), g); err != nil {
		log.Error().Err(err).Msg("save game")
		writeError(w, http.StatusInternalServerError, "save_failed")
		return
	}
	log.Debug().Str("gameId", g.ID).Str("daily", g.Daily).Msg("wordle game started")
	_ = json.NewEncoder(w).Encode(newGameRes{GameID: g.ID, Date: g.Daily, Rows: g.Rows, Cols: g.Cols})
}

// guessReq/Res payloads for POST /wordle/guess.
type guessReq struct {
	GameID string `json:"gameId"`
	Guess  string `json:"guess"`
}
type guessRes struct {
	Marks  []wordle.Mark `json:"marks"`
	State  wordle.State  `json:"state"` // "playing" | "won" | "lost"
	Answer string        `json:"answer,omitempty"`
}

func (s *Server) handleGuess(w http.ResponseWriter, r *http.Request) {
	var req guessReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	g, ok := s.game(w, r, req.GameID)
	if !ok {
		return
	}
	var lex wordle.Lexicon
	if s.deps.Wordle != nil {
		lex = s.deps.Wordle
	}
	marks, state, err := g.ApplyGuess(req.Guess, lex)
	if err != nil {
		fail(w, err)
		return
	}
	if err := s.deps.Games.Save(r.Context(), g); err != nil {
		writeError(w, http.StatusInternalServerError, "save_failed")
		return
	}
	res := guessRes{Marks: marks, State: state}
	if state == wordle.StateLost {
		res.Answer = g.Answer
	}
	_ = json.NewEncoder(w).Encode(res)
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	g, ok := s.game(w, r, chi.URLParam(r, "gameId"))
	if !ok {
		return
	}
	res := map[string]any{"game": g, "state": g.State()}
	if g.Finished {
		res["answer"] = g.Answer
	}
	_ = json.NewEncoder(w).Encode(res)
}

func (s *Server) game(w http.ResponseWriter, r *http.Request, id string) (*wordle.Game, bool) {
	g, err := s.deps.Games.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found")
		return nil, false
	}
	if err != nil {
		fail(w, err)
		return nil, false
	}
	return g, true
}
