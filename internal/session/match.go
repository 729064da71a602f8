package session

import (
	"context"
	"sync"
	"time"

	"github.com/pongd/pongd/internal/game"
)

// Match is a registered simulation plus the channels watching it.
type Match struct {
	Game *game.Game

	mu      sync.Mutex
	subs    map[Subscriber]struct{}
	started bool
	removed bool
	cancel  context.CancelFunc

	endOnce sync.Once
}

func newMatch(g *game.Game) *Match {
	return &Match{Game: g, subs: make(map[Subscriber]struct{})}
}

func (m *Match) ID() string { return m.Game.ID() }

// bind adds s unless the match has already been removed.
func (m *Match) bind(s Subscriber) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removed {
		return false
	}
	m.subs[s] = struct{}{}
	return true
}

func (m *Match) unbind(s Subscriber) {
	m.mu.Lock()
	delete(m.subs, s)
	m.mu.Unlock()
}

func (m *Match) subscribers() []Subscriber {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.subscribersLocked()
}

func (m *Match) subscribersLocked() []Subscriber {
	out := make([]Subscriber, 0, len(m.subs))
	for s := range m.subs {
		out = append(out, s)
	}
	return out
}

// close marks m removed and returns the channels bound at that moment.
// Later binds are refused.
func (m *Match) close() []Subscriber {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = true
	return m.subscribersLocked()
}

// Controlled reports whether playerID still has an open channel bound.
func (m *Match) Controlled(playerID string) bool {
	for _, s := range m.subscribers() {
		if s.PlayerID() == playerID && s.Open() {
			return true
		}
	}
	return false
}

// Running reports whether the scheduler has been started.
func (m *Match) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started
}

// broadcast sends one shared frame to every open channel. Closed ones are
// skipped and left for their close handler to unbind.
func (m *Match) broadcast(msgType string, st game.State) {
	f := NewFrame(msgType, st)
	for _, s := range m.subscribers() {
		if !s.Open() {
			continue
		}
		s.Send(f)
	}
}

// start launches the match's ticker once.
func (r *Registry) start(m *Match) {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	ctx, cancel := context.WithCancel(r.ctx)
	m.cancel = cancel
	m.mu.Unlock()

	r.wg.Add(1)
	go r.run(ctx, m)
}

func (r *Registry) run(ctx context.Context, m *Match) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.tick)
	defer ticker.Stop()

	dt := 1.0 / float64(r.gameCfg.TickRate)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		m.Game.Step(ctx, dt)
		st := m.Game.State()
		if st.IsGameOver {
			r.settle(m, st)
			return
		}
		m.broadcast(MsgTick, st)
	}
}

// settle runs once per match at the first sighting of game over: it stops
// the ticker, sends the final snapshot and schedules removal.
func (r *Registry) settle(m *Match, st game.State) {
	m.endOnce.Do(func() {
		m.mu.Lock()
		if m.cancel != nil {
			m.cancel()
		}
		m.mu.Unlock()

		m.broadcast(MsgGameOver, st)
		r.log.Infof("match %s: over, winner %s (%d-%d)", m.ID(), st.Winner, st.Players[0].Score, st.Players[1].Score)
		time.AfterFunc(r.grace, func() { r.remove(m) })
	})
}
