package collab

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/pongd/pongd/internal/game"
)

// MatchRecord is what Memory keeps per match.
type MatchRecord struct {
	ID           string
	Kind         game.Kind
	Scores       map[game.Side]int
	WinnerDBID   string
	LoserDBID    string
	Forfeit      bool
	Ended        bool
	WinnerIsLeft bool
}

// Memory is an in-process stand-in for the persistence and notification
// services. It is used when no persistence URL is configured.
type Memory struct {
	mu      sync.Mutex
	matches map[string]*MatchRecord
}

func NewMemory() *Memory {
	return &Memory{matches: make(map[string]*MatchRecord)}
}

func (m *Memory) CreateMatch(_ context.Context, req MatchRequest) (string, error) {
	id := uuid.NewString()
	m.mu.Lock()
	m.matches[id] = &MatchRecord{ID: id, Kind: req.Kind, Scores: make(map[game.Side]int)}
	m.mu.Unlock()
	return id, nil
}

func (m *Memory) CommitScore(_ context.Context, u game.ScoreUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(u.MatchID).Scores[u.Side] = u.Score
	return nil
}

func (m *Memory) CommitWin(_ context.Context, w game.WinResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.record(w.MatchID)
	r.WinnerDBID = w.WinnerDBID
	r.LoserDBID = w.LoserDBID
	r.Forfeit = w.Forfeit
	return nil
}

func (m *Memory) MatchEnded(_ context.Context, e game.MatchEnd) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.record(e.MatchID)
	r.Ended = true
	r.WinnerIsLeft = e.WinnerIsLeft
	return nil
}

// Match returns a copy of the record for id.
func (m *Memory) Match(id string) (MatchRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.matches[id]
	if !ok {
		return MatchRecord{}, false
	}
	cp := *r
	cp.Scores = make(map[game.Side]int, len(r.Scores))
	for k, v := range r.Scores {
		cp.Scores[k] = v
	}
	return cp, true
}

// record returns the entry for id, creating it for matches opened
// elsewhere (tournament matches carry external ids). Must hold m.mu.
func (m *Memory) record(id string) *MatchRecord {
	r, ok := m.matches[id]
	if !ok {
		r = &MatchRecord{ID: id, Scores: make(map[game.Side]int)}
		m.matches[id] = r
	}
	return r
}
