package game

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/pongd/pongd/internal/court"
)

// placeBonus parks a stationary bonus ball on the left paddle's face.
func placeBonus(g *Game, typ BonusType) {
	p := g.players[0].Paddle
	g.bonus = append(g.bonus, &BonusBall{
		X:      court.PaddleInset + court.PaddleW/2,
		Y:      p.Y + p.H/2,
		Type:   typ,
		Active: true,
	})
}

func TestSpeedUpExpires(t *testing.T) {
	g, _, _ := newTestGame(KindPVP, false)
	g.cfg.WinScore = 1000
	ctx := context.Background()
	placeBonus(g, BonusSpeedUp)

	g.Step(ctx, dt)

	s := g.State()
	if s.Players[0].SpeedMultiplier != 3 || s.Players[0].Power != "v" {
		t.Fatalf("after pickup: mult=%v power=%q", s.Players[0].SpeedMultiplier, s.Players[0].Power)
	}
	if s.Players[0].PowerUpsUsed != 1 {
		t.Fatalf("powerUpsUsed = %d", s.Players[0].PowerUpsUsed)
	}
	if len(s.BonusBalls) != 0 {
		t.Fatalf("consumed bonus ball still listed")
	}

	for i := 0; i < 479; i++ {
		g.Step(ctx, dt)
	}
	if got := g.State().Players[0].Power; got != "v" {
		t.Fatalf("power expired early: %q", got)
	}

	g.Step(ctx, dt)
	s = g.State()
	if s.Players[0].SpeedMultiplier != 1 || s.Players[0].Power != "" {
		t.Fatalf("after expiry: mult=%v power=%q", s.Players[0].SpeedMultiplier, s.Players[0].Power)
	}
}

func TestBiggerPaddle(t *testing.T) {
	g, _, _ := newTestGame(KindPVP, false)
	g.cfg.PowerTicks = 10
	g.cfg.WinScore = 1000
	placeBonus(g, BonusBigger)

	g.Step(context.Background(), dt)
	if h := g.players[0].Paddle.H; h != court.PaddleH*biggerFactor {
		t.Fatalf("height = %v", h)
	}
	for i := 0; i < 10; i++ {
		g.Step(context.Background(), dt)
	}
	if h := g.players[0].Paddle.H; h != court.PaddleH {
		t.Fatalf("height after expiry = %v", h)
	}
}

func TestFakeSpawnsPhantom(t *testing.T) {
	g, _, _ := newTestGame(KindPVP, false)
	g.cfg.PowerTicks = 30
	g.cfg.WinScore = 1000
	placeBonus(g, BonusFake)

	g.Step(context.Background(), dt)
	s := g.State()
	if len(s.PhantomBalls) != 1 || s.PhantomBalls[0].OwnerID != "alice" {
		t.Fatalf("phantoms = %+v", s.PhantomBalls)
	}

	for i := 0; i < 29; i++ {
		g.Step(context.Background(), dt)
		for _, ph := range g.State().PhantomBalls {
			if ph.X < 0 || ph.X > court.Width || ph.Y < 0 || ph.Y > court.Height {
				t.Fatalf("phantom left the table: %+v", ph)
			}
		}
	}
	if n := len(g.State().PhantomBalls); n != 1 {
		t.Fatalf("phantom expired early, have %d", n)
	}
	g.Step(context.Background(), dt)
	if n := len(g.State().PhantomBalls); n != 0 {
		t.Fatalf("phantom outlived its power, have %d", n)
	}
}

func TestBonusSpawnOnlyInCustomMode(t *testing.T) {
	g, _, _ := newTestGame(KindPVP, false)
	g.cfg.BonusChance = 1
	g.Step(context.Background(), dt)
	if len(g.bonus) != 0 {
		t.Fatal("bonus spawned with custom mode off")
	}

	g.custom = true
	g.Step(context.Background(), dt)
	if len(g.bonus) != 1 {
		t.Fatalf("bonus balls = %d, want 1", len(g.bonus))
	}
	bb := g.bonus[0]
	if bb.V.X*g.ball.V.X < 0 || bb.V.Y*g.ball.V.Y > 0 {
		t.Fatalf("bonus velocity %+v not derived from ball %+v", bb.V, g.ball.V)
	}
}

func TestRollBonusType(t *testing.T) {
	g, _, _ := newTestGame(KindPVP, false)
	g.rnd = rand.New(rand.NewPCG(9, 9))
	seen := map[BonusType]int{}
	for i := 0; i < 2000; i++ {
		seen[g.rollBonusType()]++
	}
	for _, typ := range []BonusType{BonusSpeedUp, BonusShield, BonusBigger, BonusFake} {
		if seen[typ] == 0 {
			t.Errorf("never rolled %s", typ)
		}
	}
	if seen[BonusSpeedUp] < seen[BonusFake] {
		t.Errorf("speedUp should be the most common type: %v", seen)
	}
}
