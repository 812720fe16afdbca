package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/raceline.report/internal/geom"
	"github.com/banshee-data/raceline.report/internal/grip"
	"github.com/banshee-data/raceline.report/internal/solver"
	"github.com/banshee-data/raceline.report/internal/track"
)

// Snapshot is the complete logical state of a session at one moment.
// Restore replaces session state with it wholesale, version included, so
// a restore never looks like an edit to an in-flight solve started after
// it.
type Snapshot struct {
	ID              uuid.UUID
	TakenAt         time.Time
	GeometryVersion uint64
	CenterLat       float64
	CenterLon       float64
	LapCount        int
	Centerline      *geom.Centerline
	Controls        *track.ControlSet
	Corners         []track.Corner
	Weather         grip.WeatherCondition
	Vehicle         solver.VehicleProfile
	Line            *solver.Result
	LineVersion     uint64
}

// Snapshot captures a deep copy of the session state.
func (s *Session) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := &Snapshot{
		ID:              s.id,
		TakenAt:         time.Now().UTC(),
		GeometryVersion: s.geometryVersion,
		CenterLat:       s.centerLat,
		CenterLon:       s.centerLon,
		LapCount:        s.lapCount,
		Weather:         s.weather,
		Vehicle:         s.vehicle,
		LineVersion:     s.lineVersion,
	}
	snap.Centerline = copyCenterline(s.centerline)
	if s.controls != nil {
		snap.Controls = s.controls.Clone()
	}
	snap.Corners = make([]track.Corner, len(s.corners))
	copy(snap.Corners, s.corners)
	snap.Line = copyLine(s.line)
	return snap
}

// Restore replaces the session state with the snapshot's. The geometry
// version is adopted as-is and nothing is bumped.
func (s *Session) Restore(snap *Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.id = snap.ID
	s.geometryVersion = snap.GeometryVersion
	s.centerLat = snap.CenterLat
	s.centerLon = snap.CenterLon
	s.lapCount = snap.LapCount
	s.weather = snap.Weather
	s.vehicle = snap.Vehicle
	s.lineVersion = snap.LineVersion

	s.centerline = copyCenterline(snap.Centerline)
	s.controls = nil
	if snap.Controls != nil {
		s.controls = snap.Controls.Clone()
	}
	s.corners = make([]track.Corner, len(snap.Corners))
	copy(s.corners, snap.Corners)
	s.line = copyLine(snap.Line)
}

func copyCenterline(c *geom.Centerline) *geom.Centerline {
	if c == nil {
		return nil
	}
	out := &geom.Centerline{
		Points:      make([]geom.TrackPoint, len(c.Points)),
		TotalLength: c.TotalLength,
	}
	copy(out.Points, c.Points)
	return out
}

func copyLine(r *solver.Result) *solver.Result {
	if r == nil {
		return nil
	}
	out := *r
	out.Points = make([]solver.LinePoint, len(r.Points))
	copy(out.Points, r.Points)
	return &out
}
