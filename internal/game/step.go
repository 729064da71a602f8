package game

import (
	"context"
	"math"

	"github.com/pongd/pongd/internal/ai"
	"github.com/pongd/pongd/internal/court"
)

// Step advances the match by dt seconds. While the start countdown runs it
// only decrements the countdown. Score commits and end notifications
// produced by the tick are awaited before Step returns. They run detached
// from ctx's cancellation, so stopping the ticker never aborts a write
// already owed to the recorder.
func (g *Game) Step(ctx context.Context, dt float64) {
	g.mu.Lock()
	if g.over {
		g.mu.Unlock()
		return
	}
	if g.countdown > 0 {
		g.countdown--
		g.mu.Unlock()
		return
	}
	g.timer++

	var fx effects
	g.movePaddles(dt)
	if g.aiOn {
		g.driveAI(dt)
	}
	if g.custom {
		g.maybeSpawnBonus()
	}
	prev := g.ball.pos()
	raw := g.moveBall(dt)
	g.moveBonusBalls(dt)
	g.expirePowers()
	g.movePhantoms(dt)
	g.dropSpentBonus()
	g.collide(prev, raw)
	g.checkGoal(&fx)
	g.mu.Unlock()

	g.dispatch(context.WithoutCancel(ctx), fx)
}

func (g *Game) movePaddles(dt float64) {
	for i, p := range g.players {
		if g.aiOn && i == 1 {
			continue
		}
		old := p.Paddle.Y
		p.Paddle.Y = court.ClampPaddle(p.Paddle.Y+p.Paddle.DY*dt, p.Paddle.H)
		g.stats[i].distance += math.Abs(p.Paddle.Y - old)
	}
}

// driveAI retargets at most once per AIRetargetTicks and homes the right
// paddle toward the current target every tick.
func (g *Game) driveAI(dt float64) {
	p := g.players[1]
	if g.timer >= g.aiNextTarget {
		g.aiTarget = ai.Target(g.ball.pos(), g.ball.V, court.RightPlane, p.Paddle.H, p.Paddle.Y, g.aiSet, g.rnd)
		g.aiNextTarget = g.timer + g.cfg.AIRetargetTicks
	}
	old := p.Paddle.Y
	p.Paddle.Y = ai.Home(old, g.aiTarget, court.PaddleSpeed*p.SpeedMultiplier, dt, p.Paddle.H)
	if dt > 0 {
		p.Paddle.DY = (p.Paddle.Y - old) / dt
	}
	g.stats[1].distance += math.Abs(p.Paddle.Y - old)
}

// moveBall advances the ball and returns where it would be without the
// wall bounce, for the goal-line crossing test.
func (g *Game) moveBall(dt float64) court.Vec {
	b := &g.ball
	raw := b.pos().Add(b.V.Scale(g.speedMul * dt))
	b.X, b.Y = raw.X, raw.Y
	bounceY(&b.Y, &b.V)
	return raw
}

// bounceY reflects off the top and bottom walls, mirroring the overshoot.
func bounceY(y *float64, v *court.Vec) {
	if *y < 0 {
		*y = -*y
		v.Y = -v.Y
	} else if *y > court.Height {
		*y = 2*court.Height - *y
		v.Y = -v.Y
	}
}

// foldY maps a y past the top or bottom wall back onto the table.
func foldY(y float64) float64 {
	var v court.Vec
	bounceY(&y, &v)
	return y
}

func bounceX(x *float64, v *court.Vec) {
	if *x < 0 {
		*x = -*x
		v.X = -v.X
	} else if *x > court.Width {
		*x = 2*court.Width - *x
		v.X = -v.X
	}
}

// collide checks whether the ball crossed a goal-line plane between prev
// and raw, so fast balls cannot tunnel through a paddle. raw is the end
// point before any wall bounce; the crossing is folded back afterwards.
func (g *Game) collide(prev, raw court.Vec) {
	b := &g.ball
	switch {
	case b.V.X < 0 && prev.X >= court.LeftPlane && raw.X <= court.LeftPlane:
		g.defend(0, prev, raw, court.LeftPlane)
	case b.V.X > 0 && prev.X <= court.RightPlane && raw.X >= court.RightPlane:
		g.defend(1, prev, raw, court.RightPlane)
	}
}

func (g *Game) defend(i int, prev, raw court.Vec, plane float64) {
	b := &g.ball
	p := g.players[i]

	crossY := raw.Y
	if dx := prev.X - raw.X; dx != 0 {
		t := (prev.X - plane) / dx
		crossY = prev.Y + t*(raw.Y-prev.Y)
	}
	crossY = foldY(crossY)
	dir := 1.0
	if i == 1 {
		dir = -1
	}
	speed := b.V.Len()

	top := p.Paddle.Y
	if crossY >= top && crossY <= top+p.Paddle.H {
		half := p.Paddle.H / 2
		off := court.Clamp((crossY-(top+half))/half, -1, 1)
		angle := off * court.MaxBounceRad
		b.V = court.Vec{X: dir * speed * math.Cos(angle), Y: speed * math.Sin(angle)}
		b.X, b.Y = plane, crossY
		g.speedMul = math.Min(g.speedMul*rallyFactor, maxRally)
		p.TouchCount++
		return
	}
	if g.consumePower(p, Shield) {
		b.V = court.Vec{X: dir * speed, Y: 0}
		b.X, b.Y = plane, crossY
		g.log.Debugf("match %s: %s shield absorbed a miss", g.id, p.Side)
	}
}

func (g *Game) checkGoal(fx *effects) {
	switch {
	case g.ball.X < 0:
		g.goal(1, fx)
	case g.ball.X > court.Width:
		g.goal(0, fx)
	}
}

func (g *Game) goal(scorer int, fx *effects) {
	p := g.players[scorer]
	p.Score++

	if g.lastScorer == scorer {
		g.stats[scorer].streak++
	} else {
		g.stats[scorer].streak = 1
	}
	g.stats[1-scorer].streak = 0
	g.lastScorer = scorer

	g.serve(1 - scorer)
	g.speedMul = 1

	fx.scores = append(fx.scores, ScoreUpdate{
		MatchID:    g.id,
		Side:       p.Side,
		PlayerDBID: p.DBID,
		Score:      p.Score,
	})

	if p.Score >= g.cfg.WinScore {
		g.finish(g.leader(), fx)
		g.log.Infof("match %s: %s wins %d-%d", g.id, g.winner, g.players[0].Score, g.players[1].Score)
	}
}

// serve recenters the ball heading toward the side that conceded.
func (g *Game) serve(toward int) {
	dir := -1.0
	if toward == 1 {
		dir = 1
	}
	vy := court.BallSpeed * (0.25 + g.rnd.Float64()*0.5)
	if g.rnd.IntN(2) == 0 {
		vy = -vy
	}
	g.ball = Ball{
		X: court.Width / 2,
		Y: court.Height / 2,
		V: court.Vec{X: dir * court.BallSpeed, Y: vy},
	}
}

func (g *Game) leader() Side {
	if g.players[1].Score > g.players[0].Score {
		return Right
	}
	return Left
}
