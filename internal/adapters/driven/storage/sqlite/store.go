package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/sercha-synth/internal/adapters/driven/storage/rank"
	"github.com/custodia-labs/sercha-synth/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/sercha-synth/internal/core/domain"
	"github.com/custodia-labs/sercha-synth/internal/core/ports/driven"
)

// Ensure Store implements the interfaces.
var (
	_ driven.SourceRegistry = (*Store)(nil)
	_ driven.TextStore      = (*Store)(nil)
	_ driven.VectorSearcher = (*Store)(nil)
	_ driven.ChunkSampler   = (*Store)(nil)
	_ driven.SourceWriter   = (*Store)(nil)
)

// DatabaseFile is the file name of the registry inside the data directory.
const DatabaseFile = "registry.db"

// previewRunes is the length of the excerpt returned by PreviewText.
const previewRunes = 4000

// maxCachedQueries bounds the query embedding cache.
const maxCachedQueries = 128

// Store is the SQLite-backed document registry.
type Store struct {
	db       *sql.DB
	path     string
	embedder driven.EmbeddingService

	// queryVecs caches query embeddings: a fan-out search calls
	// QuerySimilar once per source with the same text.
	mu        sync.Mutex
	queryVecs map[string][]float32
}

// Option configures the store.
type Option func(*Store)

// WithEmbedder enables vector ranking. Without it every query is lexical.
func WithEmbedder(e driven.EmbeddingService) Option {
	return func(s *Store) {
		s.embedder = e
	}
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.sercha-synth/data.
func NewStore(dataDir string, opts ...Option) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".sercha-synth", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DatabaseFile)

	// Pragmas in the DSN apply to every pooled connection.
	db, err := sql.Open("sqlite",
		dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:        db,
		path:      dbPath,
		queryVecs: make(map[string][]float32),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations, each in its own transaction.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if err := s.applyMigration(version, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

func (s *Store) applyMigration(version int, script string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(script); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return err
	}
	return tx.Commit()
}

// ==================== Source Registry ====================

const sourceColumns = `id, owner_id, name, type, kind, status, word_count, created_at, updated_at`

// ListSources returns every source of the owner in creation order.
func (s *Store) ListSources(ctx context.Context, ownerID string) ([]domain.Source, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sourceColumns+`
		FROM sources WHERE owner_id = ?
		ORDER BY created_at, rowid
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("querying sources: %w", err)
	}
	defer rows.Close()

	var sources []domain.Source //nolint:prealloc // size unknown from query
	for rows.Next() {
		source, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, *source)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sources: %w", err)
	}
	return sources, nil
}

// GetSource resolves one source of the owner, or nil when absent.
func (s *Store) GetSource(ctx context.Context, id, ownerID string) (*domain.Source, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+sourceColumns+`
		FROM sources WHERE id = ? AND owner_id = ?
	`, id, ownerID)

	source, err := scanSource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return source, err
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSource(row rowScanner) (*domain.Source, error) {
	var source domain.Source
	var kind, status string
	var wordCount sql.NullInt64
	if err := row.Scan(&source.ID, &source.OwnerID, &source.Name, &source.Type,
		&kind, &status, &wordCount, &source.CreatedAt, &source.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning source: %w", err)
	}
	source.Kind = domain.SourceKind(kind)
	source.Status = domain.SourceStatus(status)
	if wordCount.Valid {
		n := int(wordCount.Int64)
		source.WordCount = &n
	}
	return &source, nil
}

// ==================== Text Store ====================

// PreviewText returns the leading excerpt of a source's text.
func (s *Store) PreviewText(ctx context.Context, sourceID string) (string, error) {
	text, err := s.FullText(ctx, sourceID)
	if err != nil {
		return "", err
	}
	runes := []rune(text)
	if len(runes) > previewRunes {
		return string(runes[:previewRunes]), nil
	}
	return text, nil
}

// FullText returns the whole extracted text of a source.
func (s *Store) FullText(ctx context.Context, sourceID string) (string, error) {
	var content string
	err := s.db.QueryRowContext(ctx, "SELECT content FROM sources WHERE id = ?", sourceID).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("source %s: %w", sourceID, domain.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("reading source text: %w", err)
	}
	return content, nil
}

// ==================== Vector Searcher ====================

// QuerySimilar ranks the chunks of one source of the owner against queryText.
func (s *Store) QuerySimilar(
	ctx context.Context, queryText, ownerID, sourceID string, topK int,
) ([]driven.VectorHit, error) {
	queryVec, err := s.queryVector(ctx, queryText)
	if err != nil {
		return nil, err
	}

	chunks, err := s.chunks(ctx, ownerID, sourceID)
	if err != nil {
		return nil, err
	}
	return rank.TopK(queryText, queryVec, chunks, topK), nil
}

// SampleChunks returns up to limit chunks spread over one source of the owner.
func (s *Store) SampleChunks(ctx context.Context, ownerID, sourceID string, limit int) ([]driven.VectorHit, error) {
	chunks, err := s.chunks(ctx, ownerID, sourceID)
	if err != nil {
		return nil, err
	}
	return rank.Spread(chunks, limit), nil
}

// chunks loads the chunks of one source of the owner in position order.
func (s *Store) chunks(ctx context.Context, ownerID, sourceID string) ([]domain.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.position, c.content, c.embedding
		FROM chunks c JOIN sources s ON s.id = c.source_id
		WHERE c.source_id = ? AND s.owner_id = ?
		ORDER BY c.position
	`, sourceID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		chunk := domain.Chunk{SourceID: sourceID}
		var blob []byte
		if err := rows.Scan(&chunk.ID, &chunk.Index, &chunk.Content, &blob); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		chunk.Embedding = bytesToFloat32Slice(blob)
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return chunks, nil
}

// queryVector embeds the query once per distinct text.
func (s *Store) queryVector(ctx context.Context, queryText string) ([]float32, error) {
	if s.embedder == nil {
		return nil, nil
	}

	s.mu.Lock()
	vec, ok := s.queryVecs[queryText]
	s.mu.Unlock()
	if ok {
		return vec, nil
	}

	vec, err := s.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	s.mu.Lock()
	if len(s.queryVecs) >= maxCachedQueries {
		s.queryVecs = make(map[string][]float32)
	}
	s.queryVecs[queryText] = vec
	s.mu.Unlock()
	return vec, nil
}

// ==================== Source Writer ====================

// SaveSource stores or updates a source together with its text.
func (s *Store) SaveSource(ctx context.Context, source domain.Source, content string) error {
	now := time.Now().UTC()
	if source.CreatedAt.IsZero() {
		source.CreatedAt = now
	}
	source.UpdatedAt = now

	var wordCount sql.NullInt64
	if source.WordCount != nil {
		wordCount = sql.NullInt64{Int64: int64(*source.WordCount), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sources (id, owner_id, name, type, kind, status, word_count, content, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			owner_id = excluded.owner_id,
			name = excluded.name,
			type = excluded.type,
			kind = excluded.kind,
			status = excluded.status,
			word_count = excluded.word_count,
			content = excluded.content,
			updated_at = excluded.updated_at
	`, source.ID, source.OwnerID, source.Name, source.Type, string(source.EffectiveKind()),
		string(source.Status), wordCount, content, source.CreatedAt, source.UpdatedAt)
	if err != nil {
		return fmt.Errorf("saving source: %w", err)
	}
	return nil
}

// SaveChunks replaces the chunks of a source.
func (s *Store) SaveChunks(ctx context.Context, sourceID string, chunks []domain.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE source_id = ?", sourceID); err != nil {
		return fmt.Errorf("clearing chunks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, source_id, position, content, embedding)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		if _, err := stmt.ExecContext(ctx, chunk.ID, sourceID, chunk.Index, chunk.Content,
			float32SliceToBytes(chunk.Embedding)); err != nil {
			return fmt.Errorf("saving chunk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// SetStatus updates the processing state of a source.
func (s *Store) SetStatus(ctx context.Context, id string, status domain.SourceStatus) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE sources SET status = ?, updated_at = ? WHERE id = ?",
		string(status), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("updating source status: %w", err)
	}
	return requireAffected(res, id)
}

// DeleteSource removes a source of the owner; chunks cascade.
func (s *Store) DeleteSource(ctx context.Context, id, ownerID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sources WHERE id = ? AND owner_id = ?", id, ownerID)
	if err != nil {
		return fmt.Errorf("deleting source: %w", err)
	}
	return requireAffected(res, id)
}

func requireAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("source %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ==================== Helpers ====================

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
