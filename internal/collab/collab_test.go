package collab

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/pongd/pongd/internal/game"
)

type recorded struct {
	path string
	body map[string]any
}

func newPersistServer(t *testing.T, status int) (*httptest.Server, func() []recorded) {
	t.Helper()
	var (
		mu   sync.Mutex
		seen []recorded
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		seen = append(seen, recorded{path: r.URL.Path, body: body})
		mu.Unlock()
		if status != http.StatusOK {
			http.Error(w, "boom", status)
			return
		}
		if r.URL.Path == "/matches" {
			_ = json.NewEncoder(w).Encode(map[string]string{"matchId": "m-42"})
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []recorded {
		mu.Lock()
		defer mu.Unlock()
		return append([]recorded(nil), seen...)
	}
}

func TestHTTPClientRoutes(t *testing.T) {
	srv, seen := newPersistServer(t, http.StatusOK)
	c, err := NewHTTPClient(srv.URL+"/", time.Second, nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	id, err := c.CreateMatch(ctx, MatchRequest{Kind: game.KindAI})
	if err != nil || id != "m-42" {
		t.Fatalf("CreateMatch = %q, %v", id, err)
	}
	if err := c.CommitScore(ctx, game.ScoreUpdate{MatchID: id, Side: game.Left, Score: 2}); err != nil {
		t.Fatal(err)
	}
	if err := c.CommitWin(ctx, game.WinResult{MatchID: id, Forfeit: true}); err != nil {
		t.Fatal(err)
	}
	if err := c.MatchEnded(ctx, game.MatchEnd{MatchID: id, Kind: game.KindTournament, WinnerIsLeft: true}); err != nil {
		t.Fatal(err)
	}
	if err := c.MatchEnded(ctx, game.MatchEnd{MatchID: id, Kind: game.KindPVP}); err != nil {
		t.Fatal(err)
	}

	want := []string{"/matches", "/matches/m-42/score", "/matches/m-42/win", "/tournament/match-end", "/games/end"}
	got := seen()
	if len(got) != len(want) {
		t.Fatalf("got %d requests, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].path != w {
			t.Errorf("request %d path = %q, want %q", i, got[i].path, w)
		}
	}
	if got[3].body["winnerIsLeftSide"] != true || got[3].body["matchId"] != "m-42" {
		t.Errorf("match-end body = %v", got[3].body)
	}
}

func TestHTTPClientStatusError(t *testing.T) {
	srv, _ := newPersistServer(t, http.StatusInternalServerError)
	c, _ := NewHTTPClient(srv.URL, time.Second, nil)
	if err := c.CommitScore(context.Background(), game.ScoreUpdate{MatchID: "m"}); err == nil {
		t.Fatal("expected error on 500")
	}
}

func TestNewHTTPClientRejectsBadURL(t *testing.T) {
	if _, err := NewHTTPClient("not a url", time.Second, nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestMemory(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	id, _ := m.CreateMatch(ctx, MatchRequest{Kind: game.KindPVP})

	_ = m.CommitScore(ctx, game.ScoreUpdate{MatchID: id, Side: game.Right, Score: 3})
	_ = m.CommitWin(ctx, game.WinResult{MatchID: id, WinnerDBID: "bob", LoserDBID: "alice", Forfeit: true})
	_ = m.MatchEnded(ctx, game.MatchEnd{MatchID: id})

	r, ok := m.Match(id)
	if !ok {
		t.Fatal("match missing")
	}
	if r.Kind != game.KindPVP || r.Scores[game.Right] != 3 || !r.Forfeit || !r.Ended || r.WinnerIsLeft {
		t.Fatalf("record = %+v", r)
	}
}

func TestIdentity(t *testing.T) {
	ref, err := Identity{}.Resolve(context.Background(), "  alice ")
	if err != nil {
		t.Fatal(err)
	}
	if ref.DBID != "alice" || ref.ID == "" {
		t.Fatalf("ref = %+v", ref)
	}
	if _, err := (Identity{}).Resolve(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty username")
	}
}
