package memstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	monica "github.com/NicholasRalph243/open-monica"
	"github.com/NicholasRalph243/open-monica/bat"
)

func newFixture(t *testing.T) *Store {
	t.Helper()
	s := New()
	s.AddPoint(monica.PointDetail{
		Name:        "site.env.temperature",
		Units:       "C",
		Description: "Outside air temperature",
		Period:      10 * time.Second,
	})
	s.AddPoint(monica.PointDetail{Name: "site.env.wind", Units: "km/h"})
	for i, v := range []float64{20.1, 20.5, 21.0} {
		require.NoError(t, s.Ingest("site.env.temperature", monica.Sample{
			Time:  bat.Time(1000 + 100*i),
			Value: v,
		}))
	}
	return s
}

func TestPointCatalogue(t *testing.T) {
	s := newFixture(t)

	assert.Equal(t, []string{"site.env.temperature", "site.env.wind"}, s.PointNames())
	assert.True(t, s.Exists("site.env.wind"))
	assert.False(t, s.Exists("site.env.unknown"))

	detail, ok := s.Details("site.env.temperature")
	require.True(t, ok)
	assert.Equal(t, "C", detail.Units)
	assert.Equal(t, 10*time.Second, detail.Period)

	_, ok = s.Details("site.env.unknown")
	assert.False(t, ok)
}

func TestLatest(t *testing.T) {
	s := newFixture(t)

	sample, ok := s.Latest("site.env.temperature")
	require.True(t, ok)
	assert.Equal(t, bat.Time(1200), sample.Time)
	assert.Equal(t, 21.0, sample.Value)

	t.Run("no data", func(t *testing.T) {
		_, ok := s.Latest("site.env.wind")
		assert.False(t, ok)
	})

	t.Run("unknown point", func(t *testing.T) {
		_, ok := s.Latest("site.env.unknown")
		assert.False(t, ok)
	})
}

func TestRange(t *testing.T) {
	s := newFixture(t)

	t.Run("inclusive endpoints", func(t *testing.T) {
		samples, err := s.Range("site.env.temperature", 1000, 1200)
		require.NoError(t, err)
		require.Len(t, samples, 3)
	})

	t.Run("interior window", func(t *testing.T) {
		samples, err := s.Range("site.env.temperature", 1050, 1150)
		require.NoError(t, err)
		require.Len(t, samples, 1)
		assert.Equal(t, bat.Time(1100), samples[0].Time)
	})

	t.Run("unknown point", func(t *testing.T) {
		_, err := s.Range("site.env.unknown", 0, 9999)
		assert.ErrorIs(t, err, monica.ErrPointNotFound)
	})
}

func TestNearestNeighbours(t *testing.T) {
	s := newFixture(t)

	t.Run("preceding", func(t *testing.T) {
		sample, ok := s.Preceding("site.env.temperature", 1150)
		require.True(t, ok)
		assert.Equal(t, bat.Time(1100), sample.Time)

		// Exact hit counts as "at or before".
		sample, ok = s.Preceding("site.env.temperature", 1100)
		require.True(t, ok)
		assert.Equal(t, bat.Time(1100), sample.Time)

		_, ok = s.Preceding("site.env.temperature", 999)
		assert.False(t, ok)
	})

	t.Run("following", func(t *testing.T) {
		sample, ok := s.Following("site.env.temperature", 1150)
		require.True(t, ok)
		assert.Equal(t, bat.Time(1200), sample.Time)

		_, ok = s.Following("site.env.temperature", 1201)
		assert.False(t, ok)
	})
}

func TestIngestOutOfOrder(t *testing.T) {
	s := newFixture(t)
	require.NoError(t, s.Ingest("site.env.temperature", monica.Sample{Time: 1050, Value: 20.3}))

	samples, err := s.Range("site.env.temperature", 1000, 1200)
	require.NoError(t, err)
	require.Len(t, samples, 4)
	assert.Equal(t, bat.Time(1050), samples[1].Time)
}

func TestSet(t *testing.T) {
	s := newFixture(t)

	require.NoError(t, s.Set("site.env.wind", monica.Sample{Time: 5000, Value: 12}))
	sample, ok := s.Latest("site.env.wind")
	require.True(t, ok)
	assert.Equal(t, 12, sample.Value)

	assert.ErrorIs(t, s.Set("site.env.unknown", monica.Sample{}), monica.ErrPointNotFound)
}

func TestAlarms(t *testing.T) {
	s := New()
	s.AddAlarm(monica.Alarm{Point: "site.power.ups", Priority: 2, Guidance: "Check UPS"})
	s.AddAlarm(monica.Alarm{Point: "site.env.fire", Priority: 3})

	t.Run("all vs current", func(t *testing.T) {
		assert.Len(t, s.All(), 2)
		assert.Empty(t, s.Current())

		require.NoError(t, s.Raise("site.power.ups", true))
		current := s.Current()
		require.Len(t, current, 1)
		assert.Equal(t, "site.power.ups", current[0].Point)
	})

	t.Run("acknowledge", func(t *testing.T) {
		require.NoError(t, s.SetAcknowledged("site.env.fire", true, "observer", 7000))
		var fire monica.Alarm
		for _, a := range s.All() {
			if a.Point == "site.env.fire" {
				fire = a
			}
		}
		assert.True(t, fire.Acknowledged)
		assert.Equal(t, "observer", fire.AckedBy)
		assert.Equal(t, bat.Time(7000), fire.AckedAt)

		// Acknowledged alarms are visible in the current set.
		assert.Len(t, s.Current(), 2)
	})

	t.Run("shelve", func(t *testing.T) {
		require.NoError(t, s.SetShelved("site.env.fire", true, "observer", 8000))
		for _, a := range s.Current() {
			if a.Point == "site.env.fire" {
				assert.True(t, a.Shelved)
				assert.Equal(t, "observer", a.ShelvedBy)
			}
		}
	})

	t.Run("unknown alarm", func(t *testing.T) {
		assert.ErrorIs(t, s.SetAcknowledged("nope", true, "observer", 0), monica.ErrPointNotFound)
		assert.ErrorIs(t, s.SetShelved("nope", true, "observer", 0), monica.ErrPointNotFound)
		assert.ErrorIs(t, s.Raise("nope", true), monica.ErrPointNotFound)
	})
}
