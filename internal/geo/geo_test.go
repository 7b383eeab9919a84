package geo

import (
	"math"
	"testing"
)

// Guatemala City plaza and a point roughly one block north, used across the
// tracking tests as well.
const (
	plazaLat = 14.6349
	plazaLon = -90.5069
	blockLat = 14.6358
	blockLon = -90.5069
)

func TestDistanceMetersZero(t *testing.T) {
	coords := [][2]float64{
		{0, 0},
		{plazaLat, plazaLon},
		{-89.9, 179.9},
		{45.0, -122.5},
	}
	for _, c := range coords {
		if d := DistanceMeters(c[0], c[1], c[0], c[1]); d != 0 {
			t.Errorf("DistanceMeters(%v, %v, same) = %v, want 0", c[0], c[1], d)
		}
	}
}

func TestDistanceMetersSymmetry(t *testing.T) {
	pairs := [][4]float64{
		{plazaLat, plazaLon, blockLat, blockLon},
		{51.5074, -0.1278, 48.8566, 2.3522}, // London <-> Paris
		{-33.8688, 151.2093, 35.6762, 139.6503},
		{0.001, 0.001, -0.001, -0.001},
	}
	for _, p := range pairs {
		ab := DistanceMeters(p[0], p[1], p[2], p[3])
		ba := DistanceMeters(p[2], p[3], p[0], p[1])
		if math.Abs(ab-ba) > 1e-9 {
			t.Errorf("distance not symmetric: %v vs %v", ab, ba)
		}
	}
}

func TestDistanceMetersKnownValues(t *testing.T) {
	// One degree of latitude at the equator is ~111.19 km with R=6371km.
	d := DistanceMeters(0, 0, 1, 0)
	if math.Abs(d-111195) > 50 {
		t.Errorf("one degree latitude = %v m, want ~111195", d)
	}

	// ~100m north of the plaza.
	d = DistanceMeters(plazaLat, plazaLon, blockLat, blockLon)
	if d < 90 || d > 110 {
		t.Errorf("plaza block distance = %v m, want ~100", d)
	}
}

func TestDistanceMetersPropagatesNaN(t *testing.T) {
	if d := DistanceMeters(math.NaN(), 0, 1, 1); !math.IsNaN(d) {
		t.Errorf("expected NaN propagation, got %v", d)
	}
}

func TestBearingDegreesCardinal(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		want                   float64
	}{
		{"due north", 0, 0, 1, 0, 0},
		{"due east", 0, 0, 0, 1, 90},
		{"due south", 1, 0, 0, 0, 180},
		{"due west", 0, 1, 0, 0, 270},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := BearingDegrees(tc.lat1, tc.lon1, tc.lat2, tc.lon2)
			if math.Abs(got-tc.want) > 1e-6 {
				t.Errorf("bearing = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestBearingDegreesRange(t *testing.T) {
	points := [][4]float64{
		{10, 10, -10, -10},
		{-45, 120, -46, 119},
		{80, 0, 79, 1},
	}
	for _, p := range points {
		b := BearingDegrees(p[0], p[1], p[2], p[3])
		if b < 0 || b >= 360 {
			t.Errorf("bearing %v out of [0,360)", b)
		}
	}
}

func TestBearingNotSymmetric(t *testing.T) {
	ab := BearingDegrees(10, 10, 20, 30)
	ba := BearingDegrees(20, 30, 10, 10)
	if math.Abs(ab-ba) < 1 {
		t.Errorf("expected asymmetric bearings, got %v and %v", ab, ba)
	}
}

func TestHeadingDelta(t *testing.T) {
	tests := []struct {
		a, b, want float64
	}{
		{0, 0, 0},
		{0, 15, 15},
		{15, 0, 15},
		{359, 1, 2},
		{1, 359, 2},
		{0, 180, 180},
		{90, 275, 175},
		{720, 10, 10},
	}
	for _, tc := range tests {
		if got := HeadingDelta(tc.a, tc.b); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("HeadingDelta(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}
