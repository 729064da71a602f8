// Package court holds the table dimensions and the 2D vector math shared by
// the simulation and the AI.
package court

import "math"

const (
	Width  = 800
	Height = 450

	PaddleW      = 10
	PaddleH      = 80
	PaddleInset  = 10
	PaddleSpeed  = 400 // px/s
	BallRadius   = 6
	BallSpeed    = 400 // px/s
	BonusRadius  = 10
	MaxBounceRad = math.Pi / 4

	// Goal-line planes the ball must cross to reach a paddle.
	LeftPlane  = PaddleInset + PaddleW
	RightPlane = Width - PaddleInset - PaddleW
)

type Vec struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (v Vec) Add(w Vec) Vec {
	return Vec{v.X + w.X, v.Y + w.Y}
}

func (v Vec) Scale(s float64) Vec {
	return Vec{v.X * s, v.Y * s}
}

func (v Vec) Len() float64 {
	return math.Hypot(v.X, v.Y)
}

func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampPaddle keeps a paddle of height h fully on the table.
func ClampPaddle(y, h float64) float64 {
	return Clamp(y, 0, Height-h)
}
