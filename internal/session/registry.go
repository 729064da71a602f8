// Package session keeps the live matches of the server. It maps match ids
// to simulations and their bound channels, runs one ticker per match and
// pairs PvP players through a single pending slot.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/decred/slog"

	"github.com/pongd/pongd/internal/ai"
	"github.com/pongd/pongd/internal/collab"
	"github.com/pongd/pongd/internal/game"
)

var (
	ErrNotFound  = errors.New("match not found")
	ErrSlotTaken = errors.New("pvp slot already taken")
	ErrExists    = errors.New("match already exists")
)

// Outbound frame types.
const (
	MsgTick     = "game_state_update"
	MsgState    = "state"
	MsgGameOver = "gameOver"
)

// Store is the persistence service as the registry sees it.
type Store interface {
	game.Recorder
	game.Notifier
	CreateMatch(ctx context.Context, req collab.MatchRequest) (string, error)
}

// Subscriber is a channel bound to a match.
type Subscriber interface {
	// Send queues a frame without blocking. The frame is shared with the
	// other subscribers and must not be modified.
	Send(f *Frame)
	Open() bool
	// PlayerID is the paddle this channel controls, or "" for spectators.
	PlayerID() string
	// Release is called once the match has been torn down.
	Release()
}

type Options struct {
	Store Store
	Game  game.Config
	// Tick is the scheduler interval. Zero derives it from Game.TickRate.
	Tick  time.Duration
	Grace time.Duration

	Log     slog.Logger
	GameLog slog.Logger
}

type Registry struct {
	store   Store
	gameCfg game.Config
	tick    time.Duration
	grace   time.Duration
	log     slog.Logger
	gameLog slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// pvpMu serializes PvP requests so that only one pending match exists.
	pvpMu sync.Mutex

	mu      sync.Mutex
	matches map[string]*Match
	pending string
}

func NewRegistry(o Options) *Registry {
	if o.Game.TickRate <= 0 {
		o.Game = game.DefaultConfig()
	}
	if o.Tick <= 0 {
		o.Tick = time.Second / time.Duration(o.Game.TickRate)
	}
	if o.Log == nil {
		o.Log = slog.Disabled
	}
	if o.GameLog == nil {
		o.GameLog = o.Log
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		store:   o.Store,
		gameCfg: o.Game,
		tick:    o.Tick,
		grace:   o.Grace,
		log:     o.Log,
		gameLog: o.GameLog,
		ctx:     ctx,
		cancel:  cancel,
		matches: make(map[string]*Match),
	}
}

// Close stops every scheduler and waits for them to return.
func (r *Registry) Close() {
	r.cancel()
	r.wg.Wait()
}

func (r *Registry) Get(id string) (*Match, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[id]
	return m, ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.matches)
}

func (r *Registry) newGame(id string, kind game.Kind, left, right game.PlayerRef, d ai.Difficulty, custom bool) *Match {
	g := game.New(game.Options{
		MatchID:    id,
		Kind:       kind,
		Left:       left,
		Right:      right,
		Difficulty: d,
		Custom:     custom,
		Config:     r.gameCfg,
		Recorder:   r.store,
		Notifier:   r.store,
		Log:        r.gameLog,
	})
	return newMatch(g)
}

func (r *Registry) add(m *Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.matches[m.ID()]; ok {
		return fmt.Errorf("%w: %s", ErrExists, m.ID())
	}
	r.matches[m.ID()] = m
	return nil
}

// CreateAI opens a match against the computer and starts it.
func (r *Registry) CreateAI(ctx context.Context, p game.PlayerRef, d ai.Difficulty, custom bool) (*Match, error) {
	id, err := r.store.CreateMatch(ctx, collab.MatchRequest{
		Kind:       game.KindAI,
		Difficulty: string(d),
		Custom:     custom,
		LeftDBID:   p.DBID,
	})
	if err != nil {
		return nil, fmt.Errorf("create ai match: %w", err)
	}
	m := r.newGame(id, game.KindAI, p, game.PlayerRef{}, d, custom)
	if err := r.add(m); err != nil {
		return nil, err
	}
	r.log.Infof("match %s: ai (%s) for %s", id, d, p.DBID)
	r.start(m)
	return m, nil
}

// CreateTournament registers a match whose id and players come from the
// tournament service.
func (r *Registry) CreateTournament(id string, left, right game.PlayerRef, custom bool) (*Match, error) {
	if id == "" {
		return nil, fmt.Errorf("tournament match id is required")
	}
	m := r.newGame(id, game.KindTournament, left, right, "", custom)
	if err := r.add(m); err != nil {
		return nil, err
	}
	r.log.Infof("match %s: tournament %s vs %s", id, left.DBID, right.DBID)
	r.start(m)
	return m, nil
}

// RequestPvP attaches p to the pending match when one exists, otherwise
// opens a new match with p on the left and makes it the pending one.
func (r *Registry) RequestPvP(ctx context.Context, p game.PlayerRef, custom bool) (*Match, game.Side, error) {
	r.pvpMu.Lock()
	defer r.pvpMu.Unlock()

	r.mu.Lock()
	if m, ok := r.matches[r.pending]; ok && m.Game.Pending() && !m.Game.Over() {
		r.joinLocked(m, p)
		r.mu.Unlock()
		r.start(m)
		return m, game.Right, nil
	}
	r.pending = ""
	r.mu.Unlock()

	id, err := r.store.CreateMatch(ctx, collab.MatchRequest{
		Kind:     game.KindPVP,
		Custom:   custom,
		LeftDBID: p.DBID,
	})
	if err != nil {
		return nil, "", fmt.Errorf("create pvp match: %w", err)
	}
	m := r.newGame(id, game.KindPVP, p, game.PlayerRef{ID: game.PendingPlayerID}, "", custom)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.matches[id]; ok {
		return nil, "", fmt.Errorf("%w: %s", ErrExists, id)
	}
	r.matches[id] = m
	r.pending = id
	r.log.Infof("match %s: pvp waiting for opponent of %s", id, p.DBID)
	return m, game.Left, nil
}

// Join fills the pending right slot of match id with p.
func (r *Registry) Join(id string, p game.PlayerRef) (*Match, error) {
	r.mu.Lock()
	m, ok := r.matches[id]
	if !ok {
		r.mu.Unlock()
		return nil, ErrNotFound
	}
	if !m.Game.Pending() || m.Game.Over() {
		r.mu.Unlock()
		return nil, ErrSlotTaken
	}
	r.joinLocked(m, p)
	r.mu.Unlock()

	r.start(m)
	return m, nil
}

func (r *Registry) joinLocked(m *Match, p game.PlayerRef) {
	m.Game.JoinPlayer(p.ID, p.DBID)
	if r.pending == m.ID() {
		r.pending = ""
	}
	r.log.Infof("match %s: %s joined", m.ID(), p.DBID)
}

// Bind attaches sub to match id's broadcast set.
func (r *Registry) Bind(id string, sub Subscriber) (*Match, error) {
	m, ok := r.Get(id)
	if !ok || !m.bind(sub) {
		return nil, ErrNotFound
	}
	return m, nil
}

func (r *Registry) Unbind(id string, sub Subscriber) {
	if m, ok := r.Get(id); ok {
		m.unbind(sub)
	}
}

// Input forwards a control message and settles the match if it ended.
func (r *Registry) Input(ctx context.Context, id, playerID string, in game.Input) error {
	m, ok := r.Get(id)
	if !ok {
		return ErrNotFound
	}
	m.Game.HandleInput(ctx, playerID, in)
	if m.Game.Over() {
		r.settle(m, m.Game.State())
	}
	return nil
}

// remove drops m after its grace period and releases its channels.
func (r *Registry) remove(m *Match) {
	r.mu.Lock()
	if cur, ok := r.matches[m.ID()]; ok && cur == m {
		delete(r.matches, m.ID())
	}
	if r.pending == m.ID() {
		r.pending = ""
	}
	r.mu.Unlock()

	for _, s := range m.close() {
		s.Release()
	}
	r.log.Debugf("match %s: removed", m.ID())
}
