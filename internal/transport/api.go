package transport

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pongd/pongd/internal/ai"
	"github.com/pongd/pongd/internal/game"
	"github.com/pongd/pongd/internal/session"
)

const maxBody = 1 << 14

type createMatchReq struct {
	Mode       string `json:"mode"`
	Difficulty string `json:"difficulty,omitempty"`
	Custom     bool   `json:"isCustomOn"`
	Username   string `json:"username"`
}

type seat struct {
	MatchID  string    `json:"matchId"`
	PlayerID string    `json:"playerId"`
	Token    string    `json:"token"`
	Side     game.Side `json:"side"`
	Username string    `json:"username,omitempty"`
}

type tournamentReq struct {
	MatchID string `json:"matchId"`
	Left    struct {
		Username string `json:"username"`
	} `json:"left"`
	Right struct {
		Username string `json:"username"`
	} `json:"right"`
	Custom bool `json:"isCustomOn"`
}

type tournamentResp struct {
	MatchID string  `json:"matchId"`
	Players [2]seat `json:"players"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	return dec.Decode(v)
}

func (s *Server) handleCreateMatch(w http.ResponseWriter, r *http.Request) {
	var req createMatchReq
	if err := decodeBody(w, r, &req); err != nil {
		http.Error(w, "malformed body", http.StatusBadRequest)
		return
	}
	ref, err := s.ident.Resolve(r.Context(), req.Username)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var (
		m    *session.Match
		side = game.Left
	)
	switch req.Mode {
	case "ai":
		d, err := ai.ParseDifficulty(req.Difficulty)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		m, err = s.reg.CreateAI(r.Context(), ref, d, req.Custom)
		if err != nil {
			s.log.Errorf("create ai match for %s: %v", ref.DBID, err)
			http.Error(w, "could not create match", http.StatusBadGateway)
			return
		}
	case "pvp":
		m, side, err = s.reg.RequestPvP(r.Context(), ref, req.Custom)
		if err != nil {
			s.log.Errorf("pvp request for %s: %v", ref.DBID, err)
			http.Error(w, "could not create match", http.StatusBadGateway)
			return
		}
	default:
		http.Error(w, "unknown mode", http.StatusBadRequest)
		return
	}

	tok, err := s.signer.Issue(m.ID(), ref.ID)
	if err != nil {
		s.log.Errorf("match %s: issue token: %v", m.ID(), err)
		http.Error(w, "could not issue token", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, seat{MatchID: m.ID(), PlayerID: ref.ID, Token: tok, Side: side})
}

func (s *Server) handleGetMatch(w http.ResponseWriter, r *http.Request) {
	m, ok := s.reg.Get(r.PathValue("id"))
	if !ok {
		http.Error(w, "match not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, m.Game.State())
}

func (s *Server) handleCreateTournament(w http.ResponseWriter, r *http.Request) {
	var req tournamentReq
	if err := decodeBody(w, r, &req); err != nil {
		http.Error(w, "malformed body", http.StatusBadRequest)
		return
	}
	left, err := s.ident.Resolve(r.Context(), req.Left.Username)
	if err != nil {
		http.Error(w, "left: "+err.Error(), http.StatusBadRequest)
		return
	}
	right, err := s.ident.Resolve(r.Context(), req.Right.Username)
	if err != nil {
		http.Error(w, "right: "+err.Error(), http.StatusBadRequest)
		return
	}

	m, err := s.reg.CreateTournament(req.MatchID, left, right, req.Custom)
	switch {
	case errors.Is(err, session.ErrExists):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp := tournamentResp{MatchID: m.ID()}
	for i, ref := range []game.PlayerRef{left, right} {
		tok, err := s.signer.Issue(m.ID(), ref.ID)
		if err != nil {
			s.log.Errorf("match %s: issue token: %v", m.ID(), err)
			http.Error(w, "could not issue token", http.StatusInternalServerError)
			return
		}
		side := game.Left
		if i == 1 {
			side = game.Right
		}
		resp.Players[i] = seat{MatchID: m.ID(), PlayerID: ref.ID, Token: tok, Side: side, Username: ref.DBID}
	}
	writeJSON(w, http.StatusCreated, resp)
}
