package geo_test

import (
	"math"
	"testing"

	"github.com/UnknownOlympus/meridian/internal/geo"
	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToUnitSphere(t *testing.T) {
	t.Run("norm is one over the whole globe", func(t *testing.T) {
		for lat := -90.0; lat <= 90; lat += 7.5 {
			for lng := -180.0; lng <= 180; lng += 11.25 {
				p := geo.ToUnitSphere(lat, lng)
				norm := math.Sqrt(p[0]*p[0] + p[1]*p[1] + p[2]*p[2])
				assert.InDelta(t, 1.0, norm, 1e-12, "lat=%v lng=%v", lat, lng)
			}
		}
	})

	t.Run("axes", func(t *testing.T) {
		p := geo.ToUnitSphere(0, 0)
		assert.InDelta(t, 1.0, p[0], 1e-12)
		assert.InDelta(t, 0.0, p[1], 1e-12)
		assert.InDelta(t, 0.0, p[2], 1e-12)

		p = geo.ToUnitSphere(0, 90)
		assert.InDelta(t, 1.0, p[1], 1e-12)

		p = geo.ToUnitSphere(90, 0)
		assert.InDelta(t, 1.0, p[2], 1e-12)
	})

	t.Run("nan propagates", func(t *testing.T) {
		assert.True(t, geo.ToUnitSphere(math.NaN(), 10).IsNaN())
		assert.True(t, geo.ToUnitSphere(10, math.NaN()).IsNaN())
		assert.False(t, geo.ToUnitSphere(10, 10).IsNaN())
	})
}

func TestSquaredChordToDistance(t *testing.T) {
	t.Run("matches haversine at city scale", func(t *testing.T) {
		a := geo.ToUnitSphere(51.0, 6.0)
		b := geo.ToUnitSphere(50.88, 6.92)

		km := geo.SquaredChordToDistance(geo.SquaredDistance(a, b), geo.EarthRadiusKm)
		haversineKm := orbgeo.DistanceHaversine(orb.Point{6.0, 51.0}, orb.Point{6.92, 50.88}) / 1000

		assert.InEpsilon(t, haversineKm, km, 0.01)
		assert.Greater(t, km, 10.0)
		assert.Less(t, km, 100.0)
	})

	t.Run("zero distance", func(t *testing.T) {
		p := geo.ToUnitSphere(-33.86, 151.21)

		assert.Zero(t, geo.SquaredChordToDistance(geo.SquaredDistance(p, p), geo.EarthRadiusKm))
	})

	t.Run("antipodes are one diameter apart", func(t *testing.T) {
		a := geo.ToUnitSphere(0, 0)
		b := geo.ToUnitSphere(0, 180)

		assert.InDelta(t, 2*geo.EarthRadiusKm, geo.SquaredChordToDistance(geo.SquaredDistance(a, b), geo.EarthRadiusKm), 1e-6)
	})

	t.Run("metres", func(t *testing.T) {
		a := geo.ToUnitSphere(48.8566, 2.3522)
		b := geo.ToUnitSphere(48.8606, 2.3376)
		sq := geo.SquaredDistance(a, b)

		km := geo.SquaredChordToDistance(sq, geo.Kilometres.EarthRadius())
		m := geo.SquaredChordToDistance(sq, geo.Metres.EarthRadius())
		assert.InDelta(t, km*1000, m, 1e-6)
	})
}

func TestParseUnit(t *testing.T) {
	unit, err := geo.ParseUnit("KM")
	require.NoError(t, err)
	assert.Equal(t, geo.Kilometres, unit)

	unit, err = geo.ParseUnit(" m ")
	require.NoError(t, err)
	assert.Equal(t, geo.Metres, unit)

	_, err = geo.ParseUnit("miles")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported distance unit")
}
