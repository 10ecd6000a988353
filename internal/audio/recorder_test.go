package audio

import (
	"math"
	"testing"
)

func TestFrameRMS(t *testing.T) {
	cases := []struct {
		name  string
		frame []float32
		want  float64
	}{
		{name: "silence", frame: []float32{0, 0, 0, 0}, want: 0},
		{name: "constant amplitude", frame: []float32{0.5, 0.5, 0.5, 0.5}, want: 0.5},
		{name: "sign does not matter", frame: []float32{-0.5, 0.5, -0.5, 0.5}, want: 0.5},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := frameRMS(tc.frame)
			if math.Abs(got-tc.want) > 1e-6 {
				t.Fatalf("frameRMS = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCalibratedThresholdNeverDropsBelowBase(t *testing.T) {
	r := NewRecorder()
	// A dead-quiet room must keep the base threshold, not lower it.
	ambient := 0.0001
	got := math.Max(baseThreshRMS, ambient*ambientFactor)
	if got != baseThreshRMS {
		t.Fatalf("threshold = %v, want base %v", got, baseThreshRMS)
	}
	if r.thresholdRMS != baseThreshRMS {
		t.Fatalf("initial threshold = %v, want %v", r.thresholdRMS, baseThreshRMS)
	}
}
