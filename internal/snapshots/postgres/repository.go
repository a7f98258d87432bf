package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// SnapshotRepository persists received payloads as an append-only history.
// The core pipeline never depends on it; absence of a database simply
// disables the subscriber.
type SnapshotRepository struct {
	db *sql.DB
}

// NewSnapshotRepository constructs a repository.
func NewSnapshotRepository(db *sql.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// EnsureSchema creates the snapshot table when missing.
func (r *SnapshotRepository) EnsureSchema(ctx context.Context) error {
	if r == nil || r.db == nil {
		return errors.New("payload snapshots: nil db")
	}
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS payload_snapshots (
	id BIGSERIAL PRIMARY KEY,
	device_id TEXT NOT NULL,
	received_at TIMESTAMPTZ NOT NULL,
	payload JSONB NOT NULL
)`)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
CREATE INDEX IF NOT EXISTS idx_payload_snapshots_device_ts
ON payload_snapshots (device_id, received_at DESC)`)
	return err
}

// Insert appends one snapshot.
func (r *SnapshotRepository) Insert(ctx context.Context, deviceID string, receivedAt time.Time, data map[string]any) error {
	if r == nil || r.db == nil {
		return errors.New("payload snapshots: nil db")
	}
	if deviceID == "" {
		return errors.New("payload snapshots: empty device id")
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO payload_snapshots (device_id, received_at, payload)
VALUES ($1, $2, $3)`, deviceID, receivedAt.UTC(), raw)
	return err
}

// Latest returns the most recent snapshot for a device.
func (r *SnapshotRepository) Latest(ctx context.Context, deviceID string) (map[string]any, time.Time, bool, error) {
	if r == nil || r.db == nil {
		return nil, time.Time{}, false, errors.New("payload snapshots: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT received_at, payload
FROM payload_snapshots
WHERE device_id = $1
ORDER BY received_at DESC
LIMIT 1`, deviceID)

	var receivedAt time.Time
	var raw []byte
	if err := row.Scan(&receivedAt, &raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, time.Time{}, false, nil
		}
		return nil, time.Time{}, false, err
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, time.Time{}, false, err
	}
	return data, receivedAt.UTC(), true, nil
}

// Prune deletes snapshots older than the cutoff and returns the count.
func (r *SnapshotRepository) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	if r == nil || r.db == nil {
		return 0, errors.New("payload snapshots: nil db")
	}
	result, err := r.db.ExecContext(ctx, `
DELETE FROM payload_snapshots WHERE received_at < $1`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
