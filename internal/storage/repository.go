package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	jsoniter "github.com/json-iterator/go"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
	// ErrNotFound is returned when a source has never been recorded.
	ErrNotFound = errors.New("storage: snapshot not found")
)

const (
	createSnapshotsSQL = `CREATE TABLE IF NOT EXISTS latest_snapshots (
        source     TEXT PRIMARY KEY,
        payload    JSONB,
        fetched_at TIMESTAMPTZ,
        error      TEXT,
        failures   INTEGER NOT NULL DEFAULT 0,
        updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
    );`

	upsertSnapshotSQL = `INSERT INTO latest_snapshots (
        source,
        payload,
        fetched_at,
        error,
        failures,
        updated_at
    ) VALUES (
        $1,$2,$3,NULL,0,now()
    )
    ON CONFLICT (source) DO UPDATE
    SET
        payload    = EXCLUDED.payload,
        fetched_at = EXCLUDED.fetched_at,
        error      = NULL,
        updated_at = now();`

	// a failure keeps whatever payload is already stored
	recordFailureSQL = `INSERT INTO latest_snapshots (
        source,
        error,
        failures,
        updated_at
    ) VALUES (
        $1,$2,1,now()
    )
    ON CONFLICT (source) DO UPDATE
    SET
        error      = EXCLUDED.error,
        failures   = latest_snapshots.failures + 1,
        updated_at = now();`

	getSnapshotSQL = `SELECT
        source,
        payload,
        fetched_at,
        error,
        failures,
        updated_at
    FROM latest_snapshots
    WHERE source = $1;`

	listSnapshotsSQL = `SELECT
        source,
        payload,
        fetched_at,
        error,
        failures,
        updated_at
    FROM latest_snapshots
    ORDER BY source;`
)

// SnapshotStore persists the latest snapshot of each data source.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, source string, snapshot any, fetchedAt time.Time) error
	RecordFailure(ctx context.Context, source, errMsg string) error
	GetLatest(ctx context.Context, source string) (SnapshotRecord, error)
	ListLatest(ctx context.Context) ([]SnapshotRecord, error)
}

// Store is the pgx backed SnapshotStore.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// EnsureSchema creates the snapshot table when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, createSnapshotsSQL); err != nil {
		return fmt.Errorf("create latest_snapshots: %w", err)
	}
	return nil
}

// EncodePayload marshals a snapshot for the payload column.
func EncodePayload(snapshot any) (json.RawMessage, error) {
	if snapshot == nil {
		return nil, errors.New("storage: nil snapshot")
	}
	raw, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return raw, nil
}

// SaveSnapshot replaces the stored snapshot of source and clears its error.
func (s *Store) SaveSnapshot(ctx context.Context, source string, snapshot any, fetchedAt time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	payload, err := EncodePayload(snapshot)
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, upsertSnapshotSQL, source, []byte(payload), fetchedAt); err != nil {
		return fmt.Errorf("upsert snapshot %s: %w", source, err)
	}
	return nil
}

// RecordFailure stores the error of a failed poll without touching the payload.
func (s *Store) RecordFailure(ctx context.Context, source, errMsg string) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, recordFailureSQL, source, errMsg); err != nil {
		return fmt.Errorf("record failure %s: %w", source, err)
	}
	return nil
}

// GetLatest loads the record of one source.
func (s *Store) GetLatest(ctx context.Context, source string) (SnapshotRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return SnapshotRecord{}, err
	}
	rec, err := scanSnapshot(pool.QueryRow(ctx, getSnapshotSQL, source))
	if errors.Is(err, pgx.ErrNoRows) {
		return SnapshotRecord{}, ErrNotFound
	}
	if err != nil {
		return SnapshotRecord{}, fmt.Errorf("get snapshot %s: %w", source, err)
	}
	return rec, nil
}

// ListLatest loads every stored source ordered by name.
func (s *Store) ListLatest(ctx context.Context) ([]SnapshotRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx, listSnapshotsSQL)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	records := make([]SnapshotRecord, 0)
	for rows.Next() {
		rec, scanErr := scanSnapshot(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan snapshot: %w", scanErr)
		}
		records = append(records, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

func scanSnapshot(row pgx.Row) (SnapshotRecord, error) {
	var (
		rec     SnapshotRecord
		payload []byte
	)
	if err := row.Scan(
		&rec.Source,
		&payload,
		&rec.FetchedAt,
		&rec.Error,
		&rec.Failures,
		&rec.UpdatedAt,
	); err != nil {
		return SnapshotRecord{}, err
	}
	if len(payload) > 0 {
		rec.Payload = json.RawMessage(payload)
	}
	return rec, nil
}

var _ SnapshotStore = (*Store)(nil)
