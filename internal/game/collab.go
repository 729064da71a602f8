package game

import "context"

// Recorder persists score changes and forfeits. Implementations live
// outside the simulation; the in-memory match stays authoritative if a
// call fails.
type Recorder interface {
	CommitScore(ctx context.Context, u ScoreUpdate) error
	CommitWin(ctx context.Context, w WinResult) error
}

// Notifier is told once when a match ends.
type Notifier interface {
	MatchEnded(ctx context.Context, e MatchEnd) error
}

type ScoreUpdate struct {
	MatchID    string `json:"matchId"`
	Side       Side   `json:"side"`
	PlayerDBID string `json:"playerId,omitempty"`
	Score      int    `json:"score"`
}

type WinResult struct {
	MatchID    string `json:"matchId"`
	WinnerDBID string `json:"winnerId,omitempty"`
	LoserDBID  string `json:"loserId,omitempty"`
	Forfeit    bool   `json:"forfeit"`
}

type MatchEnd struct {
	MatchID      string `json:"matchId"`
	Kind         Kind   `json:"-"`
	WinnerIsLeft bool   `json:"winnerIsLeftSide"`
}

// effects collects collaborator calls produced while the match lock is
// held; they run after it is released.
type effects struct {
	scores []ScoreUpdate
	win    *WinResult
	end    *MatchEnd
}

func (fx *effects) empty() bool {
	return len(fx.scores) == 0 && fx.win == nil && fx.end == nil
}

// dispatch runs every collected call in order and waits for each one.
// Failures are logged and never retried here.
func (g *Game) dispatch(ctx context.Context, fx effects) {
	if fx.empty() {
		return
	}
	for _, u := range fx.scores {
		if g.rec == nil {
			break
		}
		if err := g.rec.CommitScore(ctx, u); err != nil {
			g.log.Errorf("match %s: commit score for %s: %v", g.id, u.Side, err)
		}
	}
	if fx.win != nil && g.rec != nil {
		if err := g.rec.CommitWin(ctx, *fx.win); err != nil {
			g.log.Errorf("match %s: commit win: %v", g.id, err)
		}
	}
	if fx.end != nil && g.ntf != nil {
		if err := g.ntf.MatchEnded(ctx, *fx.end); err != nil {
			g.log.Errorf("match %s: end notification: %v", g.id, err)
		}
	}
}
