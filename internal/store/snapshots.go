package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lmoroni/thermoweek/internal/schedule"
)

// Snapshot sources.
const (
	SourceFetch = "fetch" // schedule as read from the cloud
	SourceSave  = "save"  // schedule as submitted by an edit session
)

// Snapshot is one recorded week schedule.
type Snapshot struct {
	ID        int
	ZoneID    string
	Step      int
	Source    string
	Schedule  schedule.WeekSchedule
	CreatedAt time.Time
}

// InsertSnapshot records a week schedule.
func (db *DB) InsertSnapshot(zoneID string, step int, source string, week schedule.WeekSchedule) (int64, error) {
	raw, err := json.Marshal(week.Normalize())
	if err != nil {
		return 0, fmt.Errorf("encoding schedule: %w", err)
	}
	result, err := db.Exec(
		`INSERT INTO snapshots (zone_id, step, source, schedule) VALUES (?, ?, ?, ?)`,
		zoneID, step, source, string(raw),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting snapshot: %w", err)
	}
	return result.LastInsertId()
}

// LatestSnapshot returns the most recent snapshot for a zone, or nil when
// none has been recorded yet.
func (db *DB) LatestSnapshot(zoneID string) (*Snapshot, error) {
	snapshots, err := db.querySnapshots(
		`SELECT id, zone_id, step, source, schedule, created_at
		 FROM snapshots
		 WHERE zone_id = ?
		 ORDER BY id DESC
		 LIMIT 1`,
		zoneID,
	)
	if err != nil {
		return nil, err
	}
	if len(snapshots) == 0 {
		return nil, nil
	}
	return &snapshots[0], nil
}

// ListSnapshots returns up to limit snapshots for a zone, newest first.
func (db *DB) ListSnapshots(zoneID string, limit int) ([]Snapshot, error) {
	return db.querySnapshots(
		`SELECT id, zone_id, step, source, schedule, created_at
		 FROM snapshots
		 WHERE zone_id = ?
		 ORDER BY id DESC
		 LIMIT ?`,
		zoneID, limit,
	)
}

func (db *DB) querySnapshots(query string, args ...interface{}) ([]Snapshot, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []Snapshot
	for rows.Next() {
		var s Snapshot
		var raw string
		var createdStr sql.NullString

		if err := rows.Scan(&s.ID, &s.ZoneID, &s.Step, &s.Source, &raw, &createdStr); err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		if err := json.Unmarshal([]byte(raw), &s.Schedule); err != nil {
			return nil, fmt.Errorf("decoding snapshot %d: %w", s.ID, err)
		}
		if createdStr.Valid {
			if t, err := time.Parse("2006-01-02 15:04:05", createdStr.String); err == nil {
				s.CreatedAt = t
			}
		}
		snapshots = append(snapshots, s)
	}

	return snapshots, rows.Err()
}
