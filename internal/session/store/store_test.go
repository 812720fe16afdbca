package store

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/raceline.report/internal/geom"
	"github.com/banshee-data/raceline.report/internal/grip"
	"github.com/banshee-data/raceline.report/internal/session"
	"github.com/banshee-data/raceline.report/internal/track"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "snapshots.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func solvedSnapshot(t *testing.T) *session.Snapshot {
	t.Helper()
	const centerLat, centerLon = 45.0, 7.0
	t0 := time.Date(2026, 5, 2, 9, 30, 0, 0, time.UTC)
	samples := make([]track.RawGpsSample, 200)
	for i := range samples {
		theta := 2 * math.Pi * float64(i) / 200
		p := geom.Point{X: 50 * math.Cos(theta), Y: 50 * math.Sin(theta)}
		lat, lon := geom.UnprojectLocal(p, centerLat, centerLon)
		samples[i] = track.RawGpsSample{
			Timestamp: t0.Add(time.Duration(i) * time.Second),
			Lat:       lat,
			Lon:       lon,
		}
	}
	sess := session.New()
	require.NoError(t, sess.BuildTrack(samples))
	require.NoError(t, sess.RunSolver(context.Background()))
	return sess.Snapshot()
}

func TestStoreRoundTrip(t *testing.T) {
	s := openTestStore(t)
	snap := solvedSnapshot(t)

	rowID, err := s.SaveSnapshot(snap)
	require.NoError(t, err)
	require.Greater(t, rowID, int64(0))

	loaded, err := s.LoadLatest(snap.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(snap, loaded); diff != "" {
		t.Fatalf("snapshot round trip differs (-saved +loaded):\n%s", diff)
	}
}

func TestStoreLoadLatestPicksNewest(t *testing.T) {
	s := openTestStore(t)
	snap := solvedSnapshot(t)

	_, err := s.SaveSnapshot(snap)
	require.NoError(t, err)

	newer := *snap
	newer.TakenAt = snap.TakenAt.Add(time.Minute)
	newer.GeometryVersion = snap.GeometryVersion + 1
	_, err = s.SaveSnapshot(&newer)
	require.NoError(t, err)

	loaded, err := s.LoadLatest(snap.ID)
	require.NoError(t, err)
	require.Equal(t, newer.GeometryVersion, loaded.GeometryVersion)

	metas, err := s.List(snap.ID)
	require.NoError(t, err)
	require.Len(t, metas, 2)
	require.True(t, metas[0].TakenAt.After(metas[1].TakenAt))
}

func TestStoreNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.LoadLatest(uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestStoreUnreportedTrackTemp(t *testing.T) {
	s := openTestStore(t)
	snap := solvedSnapshot(t)
	snap.Weather = grip.WeatherCondition{
		AirTemp:   20,
		TrackTemp: math.NaN(),
		Category:  grip.CategoryDry,
	}

	_, err := s.SaveSnapshot(snap)
	require.NoError(t, err)

	loaded, err := s.LoadLatest(snap.ID)
	require.NoError(t, err)
	if !math.IsNaN(loaded.Weather.TrackTemp) {
		t.Errorf("track temp = %v, want NaN preserved through NULL", loaded.Weather.TrackTemp)
	}
	require.Equal(t, 20.0, loaded.Weather.AirTemp)
}
