// Package game is the authoritative simulation of a single Pong match.
//
// A Game owns the ball, both players, power-ups, score and timer. It is
// advanced by Step at a fixed rate and steered by HandleInput. All state is
// guarded by one mutex which is never held while a collaborator is called.
package game

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/decred/slog"

	"github.com/pongd/pongd/internal/ai"
	"github.com/pongd/pongd/internal/court"
)

type Side string

const (
	Left  Side = "left"
	Right Side = "right"
)

type Kind string

const (
	KindAI         Kind = "AI"
	KindPVP        Kind = "PVP"
	KindTournament Kind = "TOURNAMENT"
)

const (
	// AIPlayerID occupies the right slot of an AI match.
	AIPlayerID = "AI"
	// PendingPlayerID holds the right slot of a PvP match until someone joins.
	PendingPlayerID = "PENDING"
)

const (
	rallyFactor   = 1.05
	maxRally      = 3.0
	speedUpFactor = 3.0
	biggerFactor  = 1.5
)

type Input string

const (
	MoveUp   Input = "move_up"
	MoveDown Input = "move_down"
	Stop     Input = "stop"
	Forfeit  Input = "forfeit"
)

// Config holds the tunables of a match.
type Config struct {
	TickRate         int
	WinScore         int
	CountdownSeconds int
	BonusChance      float64
	PowerTicks       int
	AIRetargetTicks  int
}

func DefaultConfig() Config {
	return Config{
		TickRate:         60,
		WinScore:         7,
		CountdownSeconds: 5,
		BonusChance:      0.002,
		PowerTicks:       480,
		AIRetargetTicks:  60,
	}
}

type PlayerRef struct {
	ID   string
	DBID string
}

type Options struct {
	MatchID    string
	Kind       Kind
	Left       PlayerRef
	Right      PlayerRef
	Difficulty ai.Difficulty
	Custom     bool
	Config     Config

	Recorder Recorder
	Notifier Notifier
	Log      slog.Logger
	Rand     *rand.Rand
}

type Ball struct {
	X float64   `json:"x"`
	Y float64   `json:"y"`
	V court.Vec `json:"v"`
}

func (b Ball) pos() court.Vec {
	return court.Vec{X: b.X, Y: b.Y}
}

type Paddle struct {
	Y  float64 `json:"y"`
	DY float64 `json:"dy"`
	W  float64 `json:"w"`
	H  float64 `json:"h"`
}

type Player struct {
	ID              string
	DBID            string
	Side            Side
	Paddle          Paddle
	Score           int
	SpeedMultiplier float64
	Powers          []Power
	TouchCount      int
}

// stats are tracked beside the player record and merged into snapshots.
type stats struct {
	powerUpsUsed int
	distance     float64
	streak       int
}

type Game struct {
	mu sync.Mutex

	id     string
	kind   Kind
	custom bool
	aiOn   bool
	aiSet  ai.Settings
	cfg    Config
	rec    Recorder
	ntf    Notifier
	log    slog.Logger
	rnd    *rand.Rand

	ball       Ball
	speedMul   float64
	players    [2]*Player
	stats      [2]stats
	bonus      []*BonusBall
	phantoms   []*PhantomBall
	timer      int
	countdown  int
	over       bool
	winner     Side
	lastScorer int

	aiTarget     float64
	aiNextTarget int
}

// New builds a match ready to count down. Missing options fall back to
// defaults.
func New(o Options) *Game {
	if o.Config.TickRate <= 0 {
		o.Config = DefaultConfig()
	}
	if o.Log == nil {
		o.Log = slog.Disabled
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if o.Kind == "" {
		o.Kind = KindPVP
	}
	g := &Game{
		id:         o.MatchID,
		kind:       o.Kind,
		custom:     o.Custom,
		aiOn:       o.Kind == KindAI,
		aiSet:      o.Difficulty.Settings(),
		cfg:        o.Config,
		rec:        o.Recorder,
		ntf:        o.Notifier,
		log:        o.Log,
		rnd:        o.Rand,
		speedMul:   1,
		countdown:  o.Config.CountdownSeconds * o.Config.TickRate,
		lastScorer: -1,
		ball: Ball{
			X: court.Width / 2,
			Y: court.Height / 2,
			V: court.Vec{X: court.BallSpeed, Y: court.BallSpeed * 0.5},
		},
	}
	right := o.Right
	if g.aiOn {
		right = PlayerRef{ID: AIPlayerID}
	}
	g.players[0] = newPlayer(o.Left, Left)
	g.players[1] = newPlayer(right, Right)
	g.aiTarget = g.players[1].Paddle.Y
	return g
}

func newPlayer(ref PlayerRef, side Side) *Player {
	return &Player{
		ID:   ref.ID,
		DBID: ref.DBID,
		Side: side,
		Paddle: Paddle{
			Y: (court.Height - court.PaddleH) / 2,
			W: court.PaddleW,
			H: court.PaddleH,
		},
		SpeedMultiplier: 1,
	}
}

func (g *Game) ID() string { return g.id }

func (g *Game) Kind() Kind { return g.kind }

func (g *Game) Over() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.over
}

// Pending reports whether the right slot still waits for a second player.
func (g *Game) Pending() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.players[1].ID == PendingPlayerID
}

// HasPlayer reports whether id controls one of the paddles.
func (g *Game) HasPlayer(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.indexOf(id) >= 0
}

func (g *Game) indexOf(id string) int {
	if id == "" || id == AIPlayerID || id == PendingPlayerID {
		return -1
	}
	for i, p := range g.players {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// JoinPlayer puts a real player in the right slot. Callers must check
// Pending first.
func (g *Game) JoinPlayer(id, dbID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.players[1].ID = id
	g.players[1].DBID = dbID
}

// HandleInput applies a control message for playerID. Unknown players and
// inputs for a finished match are ignored.
func (g *Game) HandleInput(ctx context.Context, playerID string, in Input) {
	g.mu.Lock()
	i := g.indexOf(playerID)
	if i < 0 || g.over {
		g.mu.Unlock()
		return
	}
	p := g.players[i]
	if g.aiOn && i == 1 {
		g.mu.Unlock()
		return
	}

	var fx effects
	switch in {
	case MoveUp:
		p.Paddle.DY = -court.PaddleSpeed * p.SpeedMultiplier
	case MoveDown:
		p.Paddle.DY = court.PaddleSpeed * p.SpeedMultiplier
	case Stop:
		p.Paddle.DY = 0
	case Forfeit:
		w := g.players[1-i]
		p.Score = -1
		w.Score = 0
		g.finish(w.Side, &fx)
		fx.win = &WinResult{
			MatchID:    g.id,
			WinnerDBID: w.DBID,
			LoserDBID:  p.DBID,
			Forfeit:    true,
		}
		g.log.Infof("match %s: %s forfeited", g.id, p.Side)
	}
	g.mu.Unlock()

	g.dispatch(ctx, fx)
}

// finish marks the match over. Must be called with g.mu held.
func (g *Game) finish(winner Side, fx *effects) {
	g.over = true
	g.winner = winner
	for _, p := range g.players {
		p.Paddle.DY = 0
	}
	fx.end = &MatchEnd{MatchID: g.id, Kind: g.kind, WinnerIsLeft: winner == Left}
}
