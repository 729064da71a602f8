// Package transport exposes matches over HTTP and websockets. The HTTP
// API opens matches; a websocket per client carries control messages in
// and state snapshots out.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/decred/slog"
	"github.com/gorilla/websocket"

	"github.com/pongd/pongd/internal/game"
	"github.com/pongd/pongd/internal/matchtoken"
	"github.com/pongd/pongd/internal/session"
)

// Resolver maps a username to a player identity.
type Resolver interface {
	Resolve(ctx context.Context, username string) (game.PlayerRef, error)
}

type Options struct {
	Registry *session.Registry
	Signer   *matchtoken.Signer
	Identity Resolver
	// AllowedOrigins lists browser origins allowed to open a websocket.
	// Requests without an Origin header are always accepted.
	AllowedOrigins []string
	// DisconnectForfeit forfeits a player whose last channel closed and who
	// did not come back in time. Zero disables it.
	DisconnectForfeit time.Duration
	Log               slog.Logger
}

type Server struct {
	reg          *session.Registry
	signer       *matchtoken.Signer
	ident        Resolver
	upgrader     websocket.Upgrader
	forfeitAfter time.Duration
	log          slog.Logger

	nextClientID atomic.Int64
}

func NewServer(o Options) *Server {
	if o.Log == nil {
		o.Log = slog.Disabled
	}
	origins := make(map[string]struct{}, len(o.AllowedOrigins))
	for _, origin := range o.AllowedOrigins {
		origins[origin] = struct{}{}
	}
	return &Server{
		reg:          o.Registry,
		signer:       o.Signer,
		ident:        o.Identity,
		forfeitAfter: o.DisconnectForfeit,
		log:          o.Log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				_, ok := origins[origin]
				return ok
			},
		},
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.HandleFunc("POST /api/matches", s.handleCreateMatch)
	mux.HandleFunc("GET /api/matches/{id}", s.handleGetMatch)
	mux.HandleFunc("POST /api/tournament/matches", s.handleCreateTournament)
	return mux
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	matchID := q.Get("matchId")
	if _, ok := s.reg.Get(matchID); !ok {
		http.Error(w, "match not found", http.StatusNotFound)
		return
	}
	enc, err := codecFor(q.Get("enc"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	// A bad or missing token leaves the channel as a spectator.
	playerID := ""
	if pid := q.Get("playerId"); pid != "" && s.signer.Valid(q.Get("token"), matchID, pid) {
		playerID = pid
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debugf("upgrade: %v", err)
		return
	}

	c := newClient(fmt.Sprintf("c-%d", s.nextClientID.Add(1)), matchID, playerID, conn, enc, s.log)
	m, err := s.reg.Bind(matchID, c)
	if err != nil {
		// The match ended between the lookup and the upgrade.
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "match not found"))
		_ = conn.Close()
		return
	}
	s.log.Debugf("client %s bound to match %s (player %q)", c.id, matchID, playerID)
	c.Send(session.NewFrame(session.MsgState, m.Game.State()))

	go c.writePump()
	s.readPump(r.Context(), c)
}

func (s *Server) readPump(ctx context.Context, c *client) {
	defer func() {
		s.reg.Unbind(c.matchID, c)
		c.closeSend()
		_ = c.conn.Close()
		s.watch(c.matchID, c.PlayerID())
		s.log.Debugf("client %s left match %s", c.id, c.matchID)
	}()

	c.conn.SetReadLimit(readLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// The request context is canceled once the handler returns, which is
	// after this loop; inputs run on a context detached from it.
	ctx = context.WithoutCancel(ctx)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		s.dispatch(ctx, c, data)
	}
}

// dispatch handles one inbound message. Malformed messages, bad tokens and
// inputs for unknown matches are dropped without a reply.
func (s *Server) dispatch(ctx context.Context, c *client, data []byte) {
	var msg wsIn
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}

	if in, ok := controlInput(msg.Type); ok {
		pid := c.PlayerID()
		if pid == "" {
			return
		}
		_ = s.reg.Input(ctx, c.matchID, pid, in)
		return
	}

	switch msg.Type {
	case inGameInput:
		var gi wsInGameInput
		if err := json.Unmarshal(msg.Payload, &gi); err != nil {
			return
		}
		in, ok := controlInput(gi.Type)
		if !ok || !s.signer.Valid(gi.Token, c.matchID, gi.PlayerID) {
			return
		}
		_ = s.reg.Input(ctx, c.matchID, gi.PlayerID, in)

	case inJoinPvP:
		var j wsInJoin
		if err := json.Unmarshal(msg.Payload, &j); err != nil {
			return
		}
		s.joinPvP(ctx, c, j.Username)
	}
}

// joinPvP seats a spectator channel on the pending right slot. Channels
// that already control a paddle cannot take a second one.
func (s *Server) joinPvP(ctx context.Context, c *client, username string) {
	if c.PlayerID() != "" {
		return
	}
	ref, err := s.ident.Resolve(ctx, username)
	if err != nil {
		c.push(wsOut{Type: outError, Data: err.Error()})
		return
	}
	if _, err := s.reg.Join(c.matchID, ref); err != nil {
		msg := "slot taken"
		if errors.Is(err, session.ErrNotFound) {
			msg = "match not found"
		}
		c.push(wsOut{Type: outError, Data: msg})
		return
	}
	tok, err := s.signer.Issue(c.matchID, ref.ID)
	if err != nil {
		s.log.Errorf("match %s: issue token: %v", c.matchID, err)
		return
	}
	c.setPlayer(ref.ID)
	c.push(wsOut{Type: outJoined, Data: wsOutJoined{MatchID: c.matchID, PlayerID: ref.ID, Token: tok}})
}

// watch starts the disconnect timer for a player whose last channel just
// closed. When it fires and the player is still gone, it forfeits for them.
func (s *Server) watch(matchID, playerID string) {
	if s.forfeitAfter <= 0 || playerID == "" {
		return
	}
	m, ok := s.reg.Get(matchID)
	if !ok || m.Game.Over() || m.Controlled(playerID) {
		return
	}
	time.AfterFunc(s.forfeitAfter, func() {
		m, ok := s.reg.Get(matchID)
		if !ok || m.Game.Over() || m.Controlled(playerID) {
			return
		}
		s.log.Infof("match %s: player %s gone for %v, forfeiting", matchID, playerID, s.forfeitAfter)
		_ = s.reg.Input(context.Background(), matchID, playerID, game.Forfeit)
	})
}
