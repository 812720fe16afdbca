// Package store persists session snapshots to SQLite.
package store

import (
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/raceline.report/internal/geom"
	"github.com/banshee-data/raceline.report/internal/grip"
	"github.com/banshee-data/raceline.report/internal/session"
	"github.com/banshee-data/raceline.report/internal/solver"
	"github.com/banshee-data/raceline.report/internal/track"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrNotFound is returned when no snapshot exists for the requested
// session.
var ErrNotFound = errors.New("snapshot not found")

// Store is a snapshot archive on one SQLite file. Weather temperatures
// may be NaN (unreported); they map to SQL NULL and back.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the snapshot database at path and runs
// any pending schema migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot db: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL; PRAGMA busy_timeout = 5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}
	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load embedded migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("create sqlite migrate driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	m.Log = &migrateLogger{}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// migrateLogger implements migrate.Logger.
type migrateLogger struct{}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	log.Printf("[migrate] "+format, v...)
}

func (l *migrateLogger) Verbose() bool { return false }

// payload is the JSON-encoded bulk of a snapshot. Queryable metadata
// lives in columns; geometry and the solved line do not need indexing.
type payload struct {
	Centerline *geom.Centerline      `json:"centerline,omitempty"`
	Controls   *track.ControlSet     `json:"controls,omitempty"`
	Corners    []track.Corner        `json:"corners,omitempty"`
	Vehicle    solver.VehicleProfile `json:"vehicle"`
	Line       *solver.Result        `json:"line,omitempty"`
}

// SnapshotMeta is one row of the snapshot listing.
type SnapshotMeta struct {
	RowID           int64
	SessionID       uuid.UUID
	TakenAt         time.Time
	GeometryVersion uint64
}

// SaveSnapshot appends a snapshot to the archive and returns its row id.
func (s *Store) SaveSnapshot(snap *session.Snapshot) (int64, error) {
	body, err := json.Marshal(payload{
		Centerline: snap.Centerline,
		Controls:   snap.Controls,
		Corners:    snap.Corners,
		Vehicle:    snap.Vehicle,
		Line:       snap.Line,
	})
	if err != nil {
		return 0, fmt.Errorf("encode snapshot payload: %w", err)
	}

	res, err := s.db.Exec(`
		INSERT INTO session_snapshots (
			session_id, taken_at, geometry_version, line_version,
			center_lat, center_lon, lap_count,
			air_temp_c, track_temp_c, rainfall_mm_hr, humidity_pct,
			wind_speed_mps, weather_category, payload
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.ID.String(),
		snap.TakenAt.UTC().Format(time.RFC3339Nano),
		snap.GeometryVersion,
		snap.LineVersion,
		snap.CenterLat,
		snap.CenterLon,
		snap.LapCount,
		nullableFloat(snap.Weather.AirTemp),
		nullableFloat(snap.Weather.TrackTemp),
		nullableFloat(snap.Weather.RainfallMmHr),
		nullableFloat(snap.Weather.HumidityPct),
		nullableFloat(snap.Weather.WindSpeedMps),
		string(snap.Weather.Category),
		body,
	)
	if err != nil {
		return 0, fmt.Errorf("insert snapshot: %w", err)
	}
	return res.LastInsertId()
}

// LoadLatest returns the most recent snapshot of the given session.
func (s *Store) LoadLatest(sessionID uuid.UUID) (*session.Snapshot, error) {
	row := s.db.QueryRow(`
		SELECT session_id, taken_at, geometry_version, line_version,
		       center_lat, center_lon, lap_count,
		       air_temp_c, track_temp_c, rainfall_mm_hr, humidity_pct,
		       wind_speed_mps, weather_category, payload
		FROM session_snapshots
		WHERE session_id = ?
		ORDER BY taken_at DESC, id DESC
		LIMIT 1`,
		sessionID.String(),
	)
	return scanSnapshot(row)
}

// LatestSessionID returns the session whose snapshot was saved most
// recently, across all sessions in the archive.
func (s *Store) LatestSessionID() (uuid.UUID, error) {
	var id string
	err := s.db.QueryRow(`
		SELECT session_id FROM session_snapshots
		ORDER BY taken_at DESC, id DESC
		LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, ErrNotFound
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("latest session: %w", err)
	}
	return uuid.Parse(id)
}

// List returns snapshot metadata for a session, newest first.
func (s *Store) List(sessionID uuid.UUID) ([]SnapshotMeta, error) {
	rows, err := s.db.Query(`
		SELECT id, session_id, taken_at, geometry_version
		FROM session_snapshots
		WHERE session_id = ?
		ORDER BY taken_at DESC, id DESC`,
		sessionID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var out []SnapshotMeta
	for rows.Next() {
		var m SnapshotMeta
		var id, takenAt string
		if err := rows.Scan(&m.RowID, &id, &takenAt, &m.GeometryVersion); err != nil {
			return nil, fmt.Errorf("scan snapshot meta: %w", err)
		}
		if m.SessionID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse session id: %w", err)
		}
		if m.TakenAt, err = time.Parse(time.RFC3339Nano, takenAt); err != nil {
			return nil, fmt.Errorf("parse snapshot time: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanSnapshot(row *sql.Row) (*session.Snapshot, error) {
	var (
		snap     session.Snapshot
		id       string
		takenAt  string
		air      sql.NullFloat64
		trackT   sql.NullFloat64
		rain     sql.NullFloat64
		humidity sql.NullFloat64
		wind     sql.NullFloat64
		category string
		body     []byte
	)
	err := row.Scan(&id, &takenAt, &snap.GeometryVersion, &snap.LineVersion,
		&snap.CenterLat, &snap.CenterLon, &snap.LapCount,
		&air, &trackT, &rain, &humidity, &wind, &category, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan snapshot: %w", err)
	}

	if snap.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse session id: %w", err)
	}
	if snap.TakenAt, err = time.Parse(time.RFC3339Nano, takenAt); err != nil {
		return nil, fmt.Errorf("parse snapshot time: %w", err)
	}
	snap.Weather.AirTemp = floatOrNaN(air)
	snap.Weather.TrackTemp = floatOrNaN(trackT)
	snap.Weather.RainfallMmHr = floatOrNaN(rain)
	snap.Weather.HumidityPct = floatOrNaN(humidity)
	snap.Weather.WindSpeedMps = floatOrNaN(wind)
	snap.Weather.Category = grip.Category(category)

	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("decode snapshot payload: %w", err)
	}
	snap.Centerline = p.Centerline
	snap.Controls = p.Controls
	snap.Corners = p.Corners
	snap.Vehicle = p.Vehicle
	snap.Line = p.Line
	return &snap, nil
}

func nullableFloat(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: !math.IsNaN(v)}
}

func floatOrNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
