//go:build sqlite

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"layerlab/internal/model"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) SaveTopology(ctx context.Context, rec model.TopologyRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeTopology(rec)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO topologies (id, schema_version, codec_version, payload)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			schema_version = excluded.schema_version,
			codec_version = excluded.codec_version,
			payload = excluded.payload
	`, rec.ID, rec.SchemaVersion, rec.CodecVersion, payload)
	return err
}

func (s *SQLiteStore) GetTopology(ctx context.Context, id string) (model.TopologyRecord, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.TopologyRecord{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM topologies WHERE id = ?`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.TopologyRecord{}, false, nil
		}
		return model.TopologyRecord{}, false, err
	}

	rec, err := DecodeTopology(payload)
	if err != nil {
		return model.TopologyRecord{}, false, fmt.Errorf("decode topology %s: %w", id, err)
	}
	return rec, true, nil
}

func (s *SQLiteStore) ListTopologies(ctx context.Context) ([]model.TopologyRecord, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT id, payload FROM topologies ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.TopologyRecord
	for rows.Next() {
		var (
			id      string
			payload []byte
		)
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, err
		}
		rec, err := DecodeTopology(payload)
		if err != nil {
			return nil, fmt.Errorf("decode topology %s: %w", id, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeleteTopology(ctx context.Context, id string) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, table := range []string{"topologies", "weight_history", "epoch_metrics"} {
		column := "topology_id"
		if table == "topologies" {
			column = "id"
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE %s = ?`, table, column), id); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) SaveWeightHistory(ctx context.Context, topologyID string, snapshots []model.WeightSnapshot) error {
	payload, err := EncodeWeightHistory(snapshots)
	if err != nil {
		return err
	}
	return s.savePayload(ctx, "weight_history", topologyID, payload)
}

func (s *SQLiteStore) GetWeightHistory(ctx context.Context, topologyID string) ([]model.WeightSnapshot, bool, error) {
	payload, ok, err := s.getPayload(ctx, "weight_history", topologyID)
	if err != nil || !ok {
		return nil, false, err
	}
	snapshots, err := DecodeWeightHistory(payload)
	if err != nil {
		return nil, false, fmt.Errorf("decode weight history %s: %w", topologyID, err)
	}
	return snapshots, true, nil
}

func (s *SQLiteStore) SaveMetrics(ctx context.Context, topologyID string, epochs []model.EpochMetrics) error {
	payload, err := EncodeMetrics(epochs)
	if err != nil {
		return err
	}
	return s.savePayload(ctx, "epoch_metrics", topologyID, payload)
}

func (s *SQLiteStore) GetMetrics(ctx context.Context, topologyID string) ([]model.EpochMetrics, bool, error) {
	payload, ok, err := s.getPayload(ctx, "epoch_metrics", topologyID)
	if err != nil || !ok {
		return nil, false, err
	}
	epochs, err := DecodeMetrics(payload)
	if err != nil {
		return nil, false, fmt.Errorf("decode metrics %s: %w", topologyID, err)
	}
	return epochs, true, nil
}

func (s *SQLiteStore) savePayload(ctx context.Context, table, topologyID string, payload []byte) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (topology_id, payload)
		VALUES (?, ?)
		ON CONFLICT(topology_id) DO UPDATE SET
			payload = excluded.payload
	`, table), topologyID, payload)
	return err
}

func (s *SQLiteStore) getPayload(ctx context.Context, table, topologyID string) ([]byte, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, fmt.Sprintf(`SELECT payload FROM %s WHERE topology_id = ?`, table), topologyID).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return payload, true, nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS topologies (
			id TEXT PRIMARY KEY,
			schema_version INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS weight_history (
			topology_id TEXT PRIMARY KEY,
			payload BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS epoch_metrics (
			topology_id TEXT PRIMARY KEY,
			payload BLOB NOT NULL
		);
	`)
	return err
}
