package vecindex

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS points (
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	payload    TEXT NOT NULL,
	PRIMARY KEY (collection, id)
);

CREATE TABLE IF NOT EXISTS vectors (
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	channel    TEXT NOT NULL,
	dim        INTEGER NOT NULL,
	data       BLOB NOT NULL,
	PRIMARY KEY (collection, id, channel)
);

CREATE INDEX IF NOT EXISTS idx_vectors_channel ON vectors(collection, channel);
`

// SQLite is a persistent Index backed by an embedded SQLite database.
// Vectors are stored as little-endian float32 blobs; scoring is an exact
// cosine scan in Go, which is adequate for the component-table scale this
// index serves (thousands of points, not millions).
type SQLite struct {
	db     *sql.DB
	dbPath string
}

// OpenSQLite creates or opens the index database under dir (file index.db).
func OpenSQLite(dir string) (*SQLite, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}
	dbPath := filepath.Join(dir, "index.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma: %w", err)
		}
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLite{db: db, dbPath: dbPath}, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// DBPath returns the path to the database file.
func (s *SQLite) DBPath() string {
	return s.dbPath
}

func (s *SQLite) Upsert(ctx context.Context, collection string, points []Point) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("upsert %q: %w: %v", collection, ErrUnavailable, err)
	}
	defer tx.Rollback() //nolint:errcheck

	pointStmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO points (collection, id, payload) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("upsert %q: %w", collection, err)
	}
	defer pointStmt.Close()

	vecStmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO vectors (collection, id, channel, dim, data) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("upsert %q: %w", collection, err)
	}
	defer vecStmt.Close()

	for _, p := range points {
		payload, err := json.Marshal(p.Payload)
		if err != nil {
			return fmt.Errorf("upsert %q: encoding payload for %s: %w", collection, p.ID, err)
		}
		if _, err := pointStmt.ExecContext(ctx, collection, p.ID, string(payload)); err != nil {
			return fmt.Errorf("upsert %q: point %s: %w", collection, p.ID, err)
		}
		for channel, vec := range p.Vectors {
			if _, err := vecStmt.ExecContext(ctx, collection, p.ID, channel, len(vec), encodeVector(vec)); err != nil {
				return fmt.Errorf("upsert %q: vector %s/%s: %w", collection, p.ID, channel, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("upsert %q: commit: %w", collection, err)
	}
	return nil
}

func (s *SQLite) Query(ctx context.Context, collection, channel string, vector []float32, opts QueryOptions) ([]ScoredPoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT v.id, v.data, p.payload
		FROM vectors v JOIN points p ON p.collection = v.collection AND p.id = v.id
		WHERE v.collection = ? AND v.channel = ?
		ORDER BY v.rowid`,
		collection, channel)
	if err != nil {
		return nil, fmt.Errorf("query %q/%q: %w: %v", collection, channel, ErrUnavailable, err)
	}
	defer rows.Close()

	var hits []ScoredPoint
	for rows.Next() {
		var id string
		var data []byte
		var payloadJSON string
		if err := rows.Scan(&id, &data, &payloadJSON); err != nil {
			return nil, fmt.Errorf("query %q/%q: scan: %w", collection, channel, err)
		}
		payload := map[string]string{}
		if err := json.Unmarshal([]byte(payloadJSON), &payload); err != nil {
			return nil, fmt.Errorf("query %q/%q: payload for %s: %w", collection, channel, id, err)
		}
		if !opts.matches(payload) {
			continue
		}
		score := Cosine(vector, decodeVector(data))
		if score < opts.ScoreThreshold {
			continue
		}
		hits = append(hits, ScoredPoint{ID: id, Score: score, Payload: payload})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query %q/%q: %w: %v", collection, channel, ErrUnavailable, err)
	}

	// Stable sort over vector-row insertion order. Query promises ranked
	// order only; equal scores may tie-break differently than Memory.
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > opts.limit() {
		hits = hits[:opts.limit()]
	}
	return hits, nil
}

func (s *SQLite) Count(ctx context.Context, collection string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM points WHERE collection = ?`, collection).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %q: %w: %v", collection, ErrUnavailable, err)
	}
	return n, nil
}

func (s *SQLite) Drop(ctx context.Context, collection string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("drop %q: %w: %v", collection, ErrUnavailable, err)
	}
	defer tx.Rollback() //nolint:errcheck
	if _, err := tx.ExecContext(ctx, `DELETE FROM vectors WHERE collection = ?`, collection); err != nil {
		return fmt.Errorf("drop %q: %w", collection, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM points WHERE collection = ?`, collection); err != nil {
		return fmt.Errorf("drop %q: %w", collection, err)
	}
	return tx.Commit()
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(data []byte) []float32 {
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec
}
