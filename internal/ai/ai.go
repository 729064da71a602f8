// Package ai drives the computer-controlled paddle. Everything here is a
// pure function of the ball, the paddle and the difficulty settings.
package ai

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/pongd/pongd/internal/court"
)

type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// Settings is fixed per difficulty.
type Settings struct {
	// PredictionError is the half-width of the uniform error added to the
	// predicted intercept, in px.
	PredictionError float64
	// ReturnToCenter recenters the paddle while the ball travels away.
	ReturnToCenter bool
}

var presets = map[Difficulty]Settings{
	Easy:   {PredictionError: 90, ReturnToCenter: false},
	Medium: {PredictionError: 40, ReturnToCenter: true},
	Hard:   {PredictionError: 0, ReturnToCenter: true},
}

// ParseDifficulty maps a client string to a preset. Empty means medium.
func ParseDifficulty(s string) (Difficulty, error) {
	if s == "" {
		return Medium, nil
	}
	d := Difficulty(s)
	if _, ok := presets[d]; !ok {
		return "", fmt.Errorf("unknown difficulty %q", s)
	}
	return d, nil
}

func (d Difficulty) Settings() Settings {
	if s, ok := presets[d]; ok {
		return s
	}
	return presets[Medium]
}

// Fold reflects y into [0, h] as if it had bounced between two walls.
func Fold(y, h float64) float64 {
	period := 2 * h
	m := math.Mod(y, period)
	if m < 0 {
		m += period
	}
	if m > h {
		m = period - m
	}
	return m
}

// Approaching reports whether the ball is travelling toward the plane at planeX.
func Approaching(pos, vel court.Vec, planeX float64) bool {
	if vel.X == 0 {
		return false
	}
	return (planeX-pos.X)*vel.X > 0
}

// PredictY estimates the ball's Y when it reaches planeX. Wall bounces are
// folded in analytically rather than simulated.
func PredictY(pos, vel court.Vec, planeX float64, s Settings, rnd *rand.Rand) float64 {
	if !Approaching(pos, vel, planeX) {
		return pos.Y
	}
	t := (planeX - pos.X) / vel.X
	y := Fold(pos.Y+vel.Y*t, court.Height)
	if s.PredictionError > 0 && rnd != nil {
		y += (rnd.Float64()*2 - 1) * s.PredictionError
	}
	return y
}

// Target picks the paddle top the AI should aim for. current is returned
// unchanged when the ball moves away and the preset holds position.
func Target(pos, vel court.Vec, planeX, paddleH, current float64, s Settings, rnd *rand.Rand) float64 {
	if Approaching(pos, vel, planeX) {
		y := PredictY(pos, vel, planeX, s, rnd)
		return court.ClampPaddle(y-paddleH/2, paddleH)
	}
	if s.ReturnToCenter {
		return (court.Height - paddleH) / 2
	}
	return current
}

// Home moves y toward target by at most speed*dt and keeps the paddle on
// the table.
func Home(y, target, speed, dt, paddleH float64) float64 {
	step := speed * dt
	switch d := target - y; {
	case d > step:
		y += step
	case d < -step:
		y -= step
	default:
		y = target
	}
	return court.ClampPaddle(y, paddleH)
}
