package game

type PlayerState struct {
	ID              string  `json:"id"`
	Side            Side    `json:"side"`
	Paddle          Paddle  `json:"paddle"`
	Score           int     `json:"score"`
	SpeedMultiplier float64 `json:"speedMultiplier"`
	Power           string  `json:"power"`
	PowerUpsUsed    int     `json:"powerUpsUsed"`
	DistanceMoved   float64 `json:"distanceMoved"`
	Streak          int     `json:"streak"`
	TouchCount      int     `json:"touchCount"`
}

// State is an immutable snapshot of a match. Players[0] is always left.
type State struct {
	MatchID         string         `json:"matchId"`
	Mode            Kind           `json:"mode"`
	Ball            Ball           `json:"ball"`
	Players         [2]PlayerState `json:"players"`
	BonusBalls      []BonusBall    `json:"bonusBalls"`
	PhantomBalls    []PhantomBall  `json:"phantomBalls"`
	BallSpeedFactor float64        `json:"ballSpeedMultiplier"`
	IsGameOver      bool           `json:"isGameOver"`
	Winner          Side           `json:"winner,omitempty"`
	Countdown       int            `json:"countdown"`
	Timer           int            `json:"timer"`
}

func (g *Game) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()

	s := State{
		MatchID:         g.id,
		Mode:            g.kind,
		Ball:            g.ball,
		BonusBalls:      make([]BonusBall, 0, len(g.bonus)),
		PhantomBalls:    make([]PhantomBall, 0, len(g.phantoms)),
		BallSpeedFactor: g.speedMul,
		IsGameOver:      g.over,
		Winner:          g.winner,
		Countdown:       (g.countdown + g.cfg.TickRate - 1) / g.cfg.TickRate,
		Timer:           g.timer,
	}
	for i, p := range g.players {
		st := g.stats[i]
		s.Players[i] = PlayerState{
			ID:              p.ID,
			Side:            p.Side,
			Paddle:          p.Paddle,
			Score:           p.Score,
			SpeedMultiplier: p.SpeedMultiplier,
			Power:           powerCodes(p.Powers),
			PowerUpsUsed:    st.powerUpsUsed,
			DistanceMoved:   st.distance,
			Streak:          st.streak,
			TouchCount:      p.TouchCount,
		}
	}
	for _, bb := range g.bonus {
		s.BonusBalls = append(s.BonusBalls, *bb)
	}
	for _, ph := range g.phantoms {
		s.PhantomBalls = append(s.PhantomBalls, *ph)
	}
	return s
}
