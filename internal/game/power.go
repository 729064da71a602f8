package game

import (
	"strings"

	"github.com/pongd/pongd/internal/court"
)

type BonusType string

const (
	BonusSpeedUp BonusType = "speedUp"
	BonusShield  BonusType = "shield"
	BonusBigger  BonusType = "bigger"
	BonusFake    BonusType = "fake"
)

// PowerKind is the single-letter code shown to clients.
type PowerKind byte

const (
	SpeedUp PowerKind = 'v'
	Bigger  PowerKind = 'b'
	Shield  PowerKind = 's'
	Fake    PowerKind = 'f'
)

func (t BonusType) power() PowerKind {
	switch t {
	case BonusShield:
		return Shield
	case BonusBigger:
		return Bigger
	case BonusFake:
		return Fake
	default:
		return SpeedUp
	}
}

// Power is an active timed modifier. Since is the tick it was collected.
type Power struct {
	Kind  PowerKind
	Since int
	Until int
}

type BonusBall struct {
	X      float64   `json:"x"`
	Y      float64   `json:"y"`
	V      court.Vec `json:"v"`
	Type   BonusType `json:"type"`
	Active bool      `json:"active"`
}

type PhantomBall struct {
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	V         court.Vec `json:"v"`
	OwnerID   string    `json:"ownerId"`
	CreatedAt int       `json:"createdAt"`
}

func powerCodes(ps []Power) string {
	var sb strings.Builder
	for _, p := range ps {
		sb.WriteByte(byte(p.Kind))
	}
	return sb.String()
}

func (g *Game) rollBonusType() BonusType {
	r := g.rnd.Float64()
	switch {
	case r > 0.8:
		return BonusFake
	case r > 0.6:
		return BonusShield
	case r > 0.4:
		return BonusBigger
	default:
		return BonusSpeedUp
	}
}

func (g *Game) maybeSpawnBonus() {
	if g.rnd.Float64() >= g.cfg.BonusChance {
		return
	}
	damp := 0.5 + g.rnd.Float64()*0.4
	g.bonus = append(g.bonus, &BonusBall{
		X:      court.Width / 2,
		Y:      court.Height / 2,
		V:      court.Vec{X: g.ball.V.X * damp, Y: -g.ball.V.Y * damp},
		Type:   g.rollBonusType(),
		Active: true,
	})
}

func (g *Game) moveBonusBalls(dt float64) {
	for _, bb := range g.bonus {
		if !bb.Active {
			continue
		}
		bb.X += bb.V.X * dt
		bb.Y += bb.V.Y * dt
		bounceY(&bb.Y, &bb.V)
		if bb.X < 0 || bb.X > court.Width {
			bb.Active = false
			continue
		}
		for i, p := range g.players {
			if overlapsPaddle(bb.X, bb.Y, i, p.Paddle) {
				g.collect(i, bb)
				break
			}
		}
	}
}

func paddleX(i int) float64 {
	if i == 0 {
		return court.PaddleInset
	}
	return court.Width - court.PaddleInset - court.PaddleW
}

// overlapsPaddle tests a bonus-ball circle against the paddle rectangle.
func overlapsPaddle(x, y float64, i int, pd Paddle) bool {
	left := paddleX(i)
	nx := court.Clamp(x, left, left+pd.W)
	ny := court.Clamp(y, pd.Y, pd.Y+pd.H)
	dx, dy := x-nx, y-ny
	return dx*dx+dy*dy <= court.BonusRadius*court.BonusRadius
}

// collect applies a bonus ball's effect to the player on side i.
func (g *Game) collect(i int, bb *BonusBall) {
	bb.Active = false
	p := g.players[i]
	g.stats[i].powerUpsUsed++

	kind := bb.Type.power()
	switch kind {
	case SpeedUp:
		p.SpeedMultiplier *= speedUpFactor
		p.Paddle.DY *= speedUpFactor
	case Bigger:
		p.Paddle.H *= biggerFactor
		p.Paddle.Y = court.ClampPaddle(p.Paddle.Y, p.Paddle.H)
	case Fake:
		g.phantoms = append(g.phantoms, &PhantomBall{
			X:         g.ball.X,
			Y:         g.ball.Y,
			V:         court.Vec{X: g.ball.V.X, Y: -g.ball.V.Y},
			OwnerID:   p.ID,
			CreatedAt: g.timer,
		})
	}
	p.Powers = append(p.Powers, Power{Kind: kind, Since: g.timer, Until: g.timer + g.cfg.PowerTicks})
	g.log.Debugf("match %s: %s picked up %s", g.id, p.Side, bb.Type)
}

// expirePowers drops codes that ran out and reverts what they changed.
func (g *Game) expirePowers() {
	for _, p := range g.players {
		kept := p.Powers[:0]
		for _, pw := range p.Powers {
			if g.timer < pw.Until {
				kept = append(kept, pw)
				continue
			}
			g.revert(p, pw)
		}
		p.Powers = kept
	}
}

func (g *Game) revert(p *Player, pw Power) {
	switch pw.Kind {
	case SpeedUp:
		p.SpeedMultiplier /= speedUpFactor
		p.Paddle.DY /= speedUpFactor
	case Bigger:
		p.Paddle.H /= biggerFactor
		p.Paddle.Y = court.ClampPaddle(p.Paddle.Y, p.Paddle.H)
	case Fake:
		kept := g.phantoms[:0]
		for _, ph := range g.phantoms {
			if ph.OwnerID == p.ID && ph.CreatedAt == pw.Since {
				continue
			}
			kept = append(kept, ph)
		}
		g.phantoms = kept
	}
}

// consumePower removes the oldest active code of kind k.
func (g *Game) consumePower(p *Player, k PowerKind) bool {
	for i, pw := range p.Powers {
		if pw.Kind == k {
			p.Powers = append(p.Powers[:i], p.Powers[i+1:]...)
			return true
		}
	}
	return false
}

// movePhantoms moves decoys, which bounce off all four walls.
func (g *Game) movePhantoms(dt float64) {
	for _, ph := range g.phantoms {
		ph.X += ph.V.X * dt
		ph.Y += ph.V.Y * dt
		bounceX(&ph.X, &ph.V)
		bounceY(&ph.Y, &ph.V)
	}
}

func (g *Game) dropSpentBonus() {
	kept := g.bonus[:0]
	for _, bb := range g.bonus {
		if bb.Active {
			kept = append(kept, bb)
		}
	}
	g.bonus = kept
}
