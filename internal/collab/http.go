// Package collab talks to the services around the game server: the
// persistence API that owns match records and the tournament service that
// wants to know when a match ends.
package collab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/decred/slog"

	"github.com/pongd/pongd/internal/game"
)

// MatchRequest describes a match the persistence service should open.
type MatchRequest struct {
	Kind       game.Kind `json:"kind"`
	Difficulty string    `json:"difficulty,omitempty"`
	Custom     bool      `json:"isCustomOn"`
	LeftDBID   string    `json:"leftPlayerId,omitempty"`
}

// HTTPClient implements the persistence and notification calls over a
// pooled http.Client. Every call is a single request; nothing is retried.
type HTTPClient struct {
	base string
	hc   *http.Client
	log  slog.Logger
}

func NewHTTPClient(base string, timeout time.Duration, log slog.Logger) (*HTTPClient, error) {
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid persistence url %q", base)
	}
	if log == nil {
		log = slog.Disabled
	}
	return &HTTPClient{
		base: strings.TrimRight(base, "/"),
		hc:   &http.Client{Timeout: timeout},
		log:  log,
	}, nil
}

func (c *HTTPClient) CreateMatch(ctx context.Context, req MatchRequest) (string, error) {
	var out struct {
		MatchID string `json:"matchId"`
	}
	if err := c.post(ctx, "/matches", req, &out); err != nil {
		return "", err
	}
	if out.MatchID == "" {
		return "", fmt.Errorf("create match: empty match id in response")
	}
	return out.MatchID, nil
}

func (c *HTTPClient) CommitScore(ctx context.Context, u game.ScoreUpdate) error {
	return c.post(ctx, "/matches/"+url.PathEscape(u.MatchID)+"/score", u, nil)
}

func (c *HTTPClient) CommitWin(ctx context.Context, w game.WinResult) error {
	return c.post(ctx, "/matches/"+url.PathEscape(w.MatchID)+"/win", w, nil)
}

// MatchEnded reports to the tournament service for tournament matches and
// to the standalone game endpoint otherwise.
func (c *HTTPClient) MatchEnded(ctx context.Context, e game.MatchEnd) error {
	path := "/games/end"
	if e.Kind == game.KindTournament {
		path = "/tournament/match-end"
	}
	return c.post(ctx, path, e, nil)
}

func (c *HTTPClient) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("post %s: status %d: %s", path, resp.StatusCode, bytes.TrimSpace(msg))
	}
	c.log.Tracef("POST %s -> %d", path, resp.StatusCode)
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
