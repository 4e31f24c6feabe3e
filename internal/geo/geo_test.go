package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceSamePointIsZero(t *testing.T) {
	assert.Equal(t, 0.0, Distance(&Point{0, 0}, &Point{0, 0}))
}

func TestDistanceNilIsInfinite(t *testing.T) {
	p := &Point{Lat: 12.97, Lng: 77.59}
	assert.True(t, math.IsInf(Distance(nil, p), 1))
	assert.True(t, math.IsInf(Distance(p, nil), 1))
	assert.True(t, math.IsInf(Distance(nil, nil), 1))
	assert.False(t, Within(p, nil, 50))
}

func TestDistanceSymmetric(t *testing.T) {
	cases := []struct {
		a, b Point
	}{
		{Point{12.9716, 77.5946}, Point{13.0827, 80.2707}},
		{Point{-33.8688, 151.2093}, Point{51.5074, -0.1278}},
		{Point{0, 179.9}, Point{0, -179.9}},
	}
	for _, tc := range cases {
		assert.InDelta(t, Distance(&tc.a, &tc.b), Distance(&tc.b, &tc.a), 1e-9)
	}
}

func TestDistanceKnownValue(t *testing.T) {
	// one degree of latitude on the mean sphere
	d := Distance(&Point{0, 0}, &Point{1, 0})
	assert.InDelta(t, 111.195, d, 0.01)

	// Bengaluru to Chennai, roughly 290 km
	d = Distance(&Point{12.9716, 77.5946}, &Point{13.0827, 80.2707})
	assert.InDelta(t, 290, d, 5)
}

func TestWithin(t *testing.T) {
	center := &Point{Lat: 28.6139, Lng: 77.2090}
	near := &Point{Lat: 28.7041, Lng: 77.1025}
	far := &Point{Lat: 27.1767, Lng: 78.0081}

	assert.True(t, Within(center, near, 50))
	assert.False(t, Within(center, far, 50))
}

func TestPointValid(t *testing.T) {
	assert.True(t, Point{Lat: 90, Lng: -180}.Valid())
	assert.False(t, Point{Lat: 91, Lng: 0}.Valid())
	assert.False(t, Point{Lat: 0, Lng: 180.5}.Valid())
}
