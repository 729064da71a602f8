package ai

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/pongd/pongd/internal/court"
)

func TestFold(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{100, 100},
		{450, 450},
		{590, 310},
		{-40, 40},
		{900, 0},
		{1000, 100},
	}
	for _, tt := range tests {
		if got := Fold(tt.in, court.Height); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Fold(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPredictYHardMirrorsOneBounce(t *testing.T) {
	pos := court.Vec{X: 400, Y: 400}
	vel := court.Vec{X: 400, Y: 200}

	got := PredictY(pos, vel, court.RightPlane, Hard.Settings(), rand.New(rand.NewPCG(1, 2)))

	// Travel time 380/400 s gives a raw Y of 590; the bottom wall mirrors it
	// to 2*450 - 590.
	want := 2*float64(court.Height) - (400 + 200*380.0/400)
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("PredictY = %v, want %v", got, want)
	}
}

func TestPredictYErrorBounded(t *testing.T) {
	rnd := rand.New(rand.NewPCG(7, 7))
	pos := court.Vec{X: 400, Y: 225}
	vel := court.Vec{X: 400, Y: 0}
	s := Easy.Settings()
	for i := 0; i < 200; i++ {
		y := PredictY(pos, vel, court.RightPlane, s, rnd)
		if math.Abs(y-225) > s.PredictionError {
			t.Fatalf("error %v exceeds %v", y-225, s.PredictionError)
		}
	}
}

func TestTarget(t *testing.T) {
	pos := court.Vec{X: 400, Y: 225}
	away := court.Vec{X: -400, Y: 0}

	if got := Target(pos, away, court.RightPlane, court.PaddleH, 10, Easy.Settings(), nil); got != 10 {
		t.Errorf("easy should hold position, got %v", got)
	}
	center := float64(court.Height-court.PaddleH) / 2
	if got := Target(pos, away, court.RightPlane, court.PaddleH, 10, Hard.Settings(), nil); got != center {
		t.Errorf("hard should recenter to %v, got %v", center, got)
	}

	toward := court.Vec{X: 400, Y: 0}
	if got := Target(pos, toward, court.RightPlane, court.PaddleH, 10, Hard.Settings(), nil); got != center {
		t.Errorf("straight shot should aim at %v, got %v", center, got)
	}
}

func TestHome(t *testing.T) {
	tests := []struct {
		name           string
		y, target, exp float64
	}{
		{"capped down", 100, 200, 110},
		{"capped up", 100, 0, 90},
		{"snaps when close", 100, 105, 105},
		{"clamped", 365, 400, court.Height - court.PaddleH},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Home(tt.y, tt.target, 600, 1.0/60, court.PaddleH); math.Abs(got-tt.exp) > 1e-9 {
				t.Errorf("Home = %v, want %v", got, tt.exp)
			}
		})
	}
}

func TestParseDifficulty(t *testing.T) {
	if d, err := ParseDifficulty(""); err != nil || d != Medium {
		t.Fatalf("empty: got %v, %v", d, err)
	}
	if d, err := ParseDifficulty("hard"); err != nil || d != Hard {
		t.Fatalf("hard: got %v, %v", d, err)
	}
	if _, err := ParseDifficulty("nightmare"); err == nil {
		t.Fatal("expected error for unknown difficulty")
	}
}
