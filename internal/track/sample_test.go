package track

import "testing"

func TestSignificantORSemantics(t *testing.T) {
	th := DefaultThresholds()

	tests := []struct {
		name         string
		distance     float64
		headingDelta float64
		want         bool
	}{
		{"distance-only trigger", 11, 0, true},
		{"heading-only trigger", 0, 16, true},
		{"neither crossed", 5, 5, false},
		{"both at threshold exactly", 10, 15, false},
		{"both crossed", 50, 90, true},
		{"zero delta", 0, 0, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Significant(tc.distance, tc.headingDelta, th); got != tc.want {
				t.Errorf("Significant(%v, %v) = %v, want %v", tc.distance, tc.headingDelta, got, tc.want)
			}
		})
	}
}

func TestSignificantCustomThresholds(t *testing.T) {
	th := Thresholds{DistanceMeters: 50, HeadingDegrees: 45}

	if Significant(20, 20, th) {
		t.Error("below both custom thresholds should be insignificant")
	}
	if !Significant(51, 0, th) {
		t.Error("above custom distance threshold should be significant")
	}
}
