package storage

import (
	"database/sql"
	"embed"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database holding sources and chunks.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending
// migrations. Pass ":memory:" as dataDir for an in-memory database (used by
// tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "plaza.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate applies embedded SQL migration files that haven't been run yet.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := migrationVersion(entry.Name())
		if err != nil {
			return err
		}

		var applied int
		err = s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&applied)
		if err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if applied > 0 {
			continue
		}

		script, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.Exec(string(script)); err != nil {
			return fmt.Errorf("applying migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %d: %w", version, err)
		}
	}
	return nil
}

// migrationVersion extracts the numeric prefix from a migration filename
// like "0001_init.sql".
func migrationVersion(name string) (int, error) {
	idx := strings.IndexByte(name, '_')
	if idx < 0 {
		return 0, fmt.Errorf("migration filename %q has no version prefix", name)
	}
	v, err := strconv.Atoi(name[:idx])
	if err != nil {
		return 0, fmt.Errorf("migration filename %q has invalid version prefix: %w", name, err)
	}
	return v, nil
}

// InsertSource records a new source document.
func (s *Store) InsertSource(src Source) error {
	if src.ID == "" || src.City == "" {
		return fmt.Errorf("source id and city are required")
	}
	createdAt := src.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	kind := src.Kind
	if kind == "" {
		kind = "page"
	}
	_, err := s.db.Exec(`
		INSERT INTO sources (id, city, title, kind, origin_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		src.ID, src.City, src.Title, kind, src.OriginURL, createdAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("inserting source %s: %w", src.ID, err)
	}
	return nil
}

// InsertChunks writes a batch of chunks in a single transaction. Chunks are
// immutable once written; embeddings may be attached later via
// AttachEmbedding.
func (s *Store) InsertChunks(chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning insert transaction: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO chunks (id, source_id, city, content, chunk_index, embedding, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("preparing insert statement: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		if c.SourceID == "" || c.City == "" || c.Content == "" {
			tx.Rollback()
			return fmt.Errorf("chunk %s: source_id, city and content are required", c.ID)
		}
		if c.Index < 0 {
			tx.Rollback()
			return fmt.Errorf("chunk %s: negative index %d", c.ID, c.Index)
		}
		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		var blob any
		if c.Embedding != nil {
			blob = encodeFloat32s(c.Embedding)
		}
		if _, err := stmt.Exec(c.ID, c.SourceID, c.City, c.Content, c.Index, blob, createdAt.Format(time.RFC3339)); err != nil {
			tx.Rollback()
			return fmt.Errorf("inserting chunk %s: %w", c.ID, err)
		}
	}

	return tx.Commit()
}

// ListCandidates returns up to limit chunks for the given city, most recent
// first, joined with their source titles. Chunks without embeddings are
// included; the retriever scores them lexically.
func (s *Store) ListCandidates(city string, limit int) ([]Candidate, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(`
		SELECT c.id, c.source_id, c.city, c.content, c.chunk_index, c.embedding, c.created_at, s.title
		FROM chunks c
		JOIN sources s ON s.id = c.source_id
		WHERE c.city = ?
		ORDER BY c.created_at DESC, c.chunk_index ASC
		LIMIT ?`, city, limit)
	if err != nil {
		return nil, fmt.Errorf("querying candidates: %w", err)
	}
	defer rows.Close()

	var out []Candidate
	for rows.Next() {
		var cand Candidate
		var blob []byte
		var createdAt string
		if err := rows.Scan(&cand.ID, &cand.SourceID, &cand.City, &cand.Content, &cand.Index, &blob, &createdAt, &cand.SourceTitle); err != nil {
			return nil, fmt.Errorf("scanning candidate: %w", err)
		}
		if blob != nil {
			vec, err := decodeFloat32s(blob)
			if err != nil {
				return nil, fmt.Errorf("decoding embedding for chunk %s: %w", cand.ID, err)
			}
			cand.Embedding = vec
		}
		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at for chunk %s: %w", cand.ID, err)
		}
		cand.CreatedAt = t
		out = append(out, cand)
	}
	return out, rows.Err()
}

// ListUnembedded returns up to limit chunks that have no embedding yet,
// oldest first. Used by the embedding backfill worker.
func (s *Store) ListUnembedded(limit int) ([]Chunk, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(`
		SELECT id, source_id, city, content, chunk_index, created_at
		FROM chunks
		WHERE embedding IS NULL
		ORDER BY created_at ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying unembedded chunks: %w", err)
	}
	defer rows.Close()

	var out []Chunk
	for rows.Next() {
		var c Chunk
		var createdAt string
		if err := rows.Scan(&c.ID, &c.SourceID, &c.City, &c.Content, &c.Index, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at for chunk %s: %w", c.ID, err)
		}
		c.CreatedAt = t
		out = append(out, c)
	}
	return out, rows.Err()
}

// AttachEmbedding sets a chunk's embedding. Embeddings are set-once: a second
// attach returns ErrEmbeddingAttached, a missing chunk ErrNotFound.
func (s *Store) AttachEmbedding(chunkID string, vec []float32) error {
	if len(vec) == 0 {
		return fmt.Errorf("empty embedding for chunk %s", chunkID)
	}

	res, err := s.db.Exec(
		"UPDATE chunks SET embedding = ? WHERE id = ? AND embedding IS NULL",
		encodeFloat32s(vec), chunkID)
	if err != nil {
		return fmt.Errorf("attaching embedding to chunk %s: %w", chunkID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM chunks WHERE id = ?", chunkID).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return ErrNotFound
		}
		return ErrEmbeddingAttached
	}
	return nil
}

// GetSource returns a source by ID.
func (s *Store) GetSource(id string) (Source, error) {
	var src Source
	var createdAt string
	err := s.db.QueryRow(`
		SELECT id, city, title, kind, origin_url, created_at
		FROM sources WHERE id = ?`, id).
		Scan(&src.ID, &src.City, &src.Title, &src.Kind, &src.OriginURL, &createdAt)
	if err == sql.ErrNoRows {
		return Source{}, ErrNotFound
	}
	if err != nil {
		return Source{}, fmt.Errorf("loading source %s: %w", id, err)
	}
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return Source{}, fmt.Errorf("parsing created_at for source %s: %w", id, err)
	}
	src.CreatedAt = t
	return src, nil
}

// ListSources returns all sources for a city, most recent first.
func (s *Store) ListSources(city string) ([]Source, error) {
	rows, err := s.db.Query(`
		SELECT id, city, title, kind, origin_url, created_at
		FROM sources WHERE city = ? ORDER BY created_at DESC`, city)
	if err != nil {
		return nil, fmt.Errorf("querying sources: %w", err)
	}
	defer rows.Close()

	var out []Source
	for rows.Next() {
		var src Source
		var createdAt string
		if err := rows.Scan(&src.ID, &src.City, &src.Title, &src.Kind, &src.OriginURL, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning source: %w", err)
		}
		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		src.CreatedAt = t
		out = append(out, src)
	}
	return out, rows.Err()
}

// DeleteSource removes a source and, via cascade, its chunks.
func (s *Store) DeleteSource(id string) error {
	res, err := s.db.Exec("DELETE FROM sources WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting source %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CityStats returns source/chunk counts for a city.
func (s *Store) CityStats(city string) (Stats, error) {
	var st Stats
	if err := s.db.QueryRow("SELECT COUNT(*) FROM sources WHERE city = ?", city).Scan(&st.Sources); err != nil {
		return Stats{}, fmt.Errorf("counting sources: %w", err)
	}
	if err := s.db.QueryRow("SELECT COUNT(*) FROM chunks WHERE city = ?", city).Scan(&st.Chunks); err != nil {
		return Stats{}, fmt.Errorf("counting chunks: %w", err)
	}
	if err := s.db.QueryRow("SELECT COUNT(*) FROM chunks WHERE city = ? AND embedding IS NOT NULL", city).Scan(&st.EmbeddedChunks); err != nil {
		return Stats{}, fmt.Errorf("counting embedded chunks: %w", err)
	}
	return st, nil
}

// encodeFloat32s serializes a float32 slice to little-endian bytes.
func encodeFloat32s(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeFloat32s deserializes little-endian bytes into a new float32 slice.
// Returns an error if the byte slice length is not a multiple of 4
// (indicates data corruption).
func decodeFloat32s(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("byte slice length %d is not a multiple of 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}
