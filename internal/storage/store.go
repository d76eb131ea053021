package storage

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/runnerr0/geoword/internal/etymology"
)

// ErrNotFound is returned when a trace does not exist.
var ErrNotFound = errors.New("not found")

// Store defines the trace history operations.
type Store interface {
	SaveTrace(ctx context.Context, trace *Trace) error
	GetTrace(ctx context.Context, id string) (*Trace, error)
	LatestByWord(ctx context.Context, word string, notBefore time.Time) (*Trace, error)
	SearchTraces(ctx context.Context, query SearchQuery) ([]Trace, error)
	DeleteTrace(ctx context.Context, id string) error
	PruneExpired(ctx context.Context, olderThan time.Time) (int64, error)
	CountExpired(ctx context.Context, olderThan time.Time) (int64, error)
	PurgeAll(ctx context.Context) error
	GetStats(ctx context.Context) (*Stats, error)
	Close() error
}

// SQLiteStore implements Store backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB

	getTrace    *sql.Stmt
	getStages   *sql.Stmt
	latestTrace *sql.Stmt

	// fts is false when the sqlite3 build lacks FTS5; search then falls
	// back to LIKE matching.
	fts bool
}

// NewSQLiteStore creates a store over an already opened and migrated database.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}

	if err := s.prepareStatements(); err != nil {
		return nil, fmt.Errorf("prepare statements: %w", err)
	}
	s.fts = s.initFTS() == nil

	return s, nil
}

const traceColumns = `id, word, origin_word, modern_word, etymology_summary, stage_count, provider, fetched_at`

func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.getTrace, err = s.db.Prepare(`SELECT ` + traceColumns + ` FROM traces WHERE id = ?`)
	if err != nil {
		return err
	}

	s.getStages, err = s.db.Prepare(`
		SELECT year, latitude, longitude, language, word, description, region
		FROM stages WHERE trace_id = ? ORDER BY position
	`)
	if err != nil {
		return err
	}

	s.latestTrace, err = s.db.Prepare(`
		SELECT id FROM traces
		WHERE normalized_word = ? AND fetched_at >= ?
		ORDER BY fetched_at DESC, rowid DESC LIMIT 1
	`)
	return err
}

// initFTS creates the FTS5 index over words, languages and summaries.
func (s *SQLiteStore) initFTS() error {
	_, err := s.db.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS traces_fts USING fts5(
			trace_id UNINDEXED,
			word,
			forms,
			summary,
			tokenize='unicode61'
		)
	`)
	return err
}

// FullTextEnabled reports whether history search uses the FTS5 index.
func (s *SQLiteStore) FullTextEnabled() bool { return s.fts }

// generateID creates a trace ID: GW- + 8 random hex chars.
func generateID() (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return "GW-" + hex.EncodeToString(b), nil
}

// ftsQuery turns user input into an FTS5 query: each word becomes a quoted
// prefix token, joined with OR.
func ftsQuery(input string) string {
	words := strings.Fields(input)
	if len(words) == 0 {
		return ""
	}
	parts := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ReplaceAll(w, `"`, `""`)
		parts = append(parts, `"`+w+`"*`)
	}
	return strings.Join(parts, " OR ")
}

func parseTimestamp(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse timestamp: %s", s)
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// forms joins every stage word and language for the full-text index.
func forms(tl etymology.Timeline) string {
	var b strings.Builder
	for _, st := range tl {
		b.WriteString(st.Word)
		b.WriteByte(' ')
		b.WriteString(st.Language)
		b.WriteByte(' ')
	}
	return strings.TrimSpace(b.String())
}

// SaveTrace stores a trace and its stages in one transaction. ID, FetchedAt
// and StageCount are filled in; the timeline is stored in year order.
func (s *SQLiteStore) SaveTrace(ctx context.Context, trace *Trace) error {
	id, err := generateID()
	if err != nil {
		return fmt.Errorf("generate ID: %w", err)
	}
	trace.ID = id
	if trace.FetchedAt.IsZero() {
		trace.FetchedAt = time.Now()
	}
	trace.Evolution.Timeline = etymology.SortByYear(trace.Evolution.Timeline)
	trace.StageCount = len(trace.Evolution.Timeline)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	evo := trace.Evolution
	_, err = tx.ExecContext(ctx, `
		INSERT INTO traces (id, word, normalized_word, origin_word, modern_word, etymology_summary, stage_count, provider, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		trace.ID, trace.Word, etymology.NormalizeWord(trace.Word),
		evo.OriginWord, evo.ModernWord, evo.EtymologySummary,
		trace.StageCount, trace.Provider, formatTimestamp(trace.FetchedAt),
	)
	if err != nil {
		return fmt.Errorf("insert trace: %w", err)
	}

	for i, st := range evo.Timeline {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO stages (trace_id, position, year, latitude, longitude, language, word, description, region)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			trace.ID, i, st.Year, st.Latitude, st.Longitude, st.Language, st.Word, st.Description, st.Region,
		)
		if err != nil {
			return fmt.Errorf("insert stage %d: %w", i, err)
		}
	}

	if s.fts {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO traces_fts (trace_id, word, forms, summary) VALUES (?, ?, ?, ?)",
			trace.ID, trace.Word+" "+evo.OriginWord+" "+evo.ModernWord, forms(evo.Timeline), evo.EtymologySummary,
		)
		if err != nil {
			return fmt.Errorf("insert FTS: %w", err)
		}
	}

	return tx.Commit()
}

// GetTrace loads a trace with its full timeline.
func (s *SQLiteStore) GetTrace(ctx context.Context, id string) (*Trace, error) {
	t, err := scanTrace(s.getTrace.QueryRowContext(ctx, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("trace %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get trace: %w", err)
	}

	rows, err := s.getStages.QueryContext(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("query stages: %w", err)
	}
	defer rows.Close()

	tl := make(etymology.Timeline, 0, t.StageCount)
	for rows.Next() {
		var st etymology.Stage
		if err := rows.Scan(&st.Year, &st.Latitude, &st.Longitude, &st.Language, &st.Word, &st.Description, &st.Region); err != nil {
			return nil, fmt.Errorf("scan stage: %w", err)
		}
		tl = append(tl, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	t.Evolution.Timeline = tl

	return t, nil
}

// LatestByWord returns the newest trace of word fetched at or after
// notBefore. ErrNotFound means there is none.
func (s *SQLiteStore) LatestByWord(ctx context.Context, word string, notBefore time.Time) (*Trace, error) {
	var id string
	err := s.latestTrace.QueryRowContext(ctx, etymology.NormalizeWord(word), formatTimestamp(notBefore)).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("trace for %q: %w", word, ErrNotFound)
		}
		return nil, fmt.Errorf("latest trace: %w", err)
	}
	return s.GetTrace(ctx, id)
}

// SearchTraces lists traces matching the query, newest first unless a text
// query ranks them.
func (s *SQLiteStore) SearchTraces(ctx context.Context, q SearchQuery) ([]Trace, error) {
	if q.Limit <= 0 {
		q.Limit = 50
	}

	var clauses []string
	var args []interface{}
	from := "traces t"
	order := "t.fetched_at DESC, t.rowid DESC"

	if text := strings.TrimSpace(q.Query); text != "" {
		if s.fts {
			from = "traces_fts f JOIN traces t ON t.id = f.trace_id"
			clauses = append(clauses, "traces_fts MATCH ?")
			args = append(args, ftsQuery(text))
			order = "rank"
		} else {
			like := "%" + strings.ToLower(text) + "%"
			clauses = append(clauses, `(lower(t.word) LIKE ? OR lower(t.origin_word) LIKE ? OR lower(t.modern_word) LIKE ?
				OR EXISTS (SELECT 1 FROM stages s WHERE s.trace_id = t.id AND (lower(s.word) LIKE ? OR lower(s.language) LIKE ?)))`)
			args = append(args, like, like, like, like, like)
		}
	}
	if q.Language != "" {
		clauses = append(clauses, "EXISTS (SELECT 1 FROM stages s WHERE s.trace_id = t.id AND s.language = ? COLLATE NOCASE)")
		args = append(args, q.Language)
	}
	if !q.Since.IsZero() {
		clauses = append(clauses, "t.fetched_at >= ?")
		args = append(args, formatTimestamp(q.Since))
	}
	if !q.Until.IsZero() {
		clauses = append(clauses, "t.fetched_at <= ?")
		args = append(args, formatTimestamp(q.Until))
	}

	query := "SELECT t.id, t.word, t.origin_word, t.modern_word, t.etymology_summary, t.stage_count, t.provider, t.fetched_at FROM " + from
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY " + order + " LIMIT ? OFFSET ?"
	args = append(args, q.Limit, q.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query traces: %w", err)
	}
	defer rows.Close()

	traces := []Trace{}
	for rows.Next() {
		t, err := scanTrace(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trace: %w", err)
		}
		traces = append(traces, *t)
	}
	return traces, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTrace(row rowScanner) (*Trace, error) {
	var t Trace
	var ts string
	if err := row.Scan(
		&t.ID, &t.Word, &t.Evolution.OriginWord, &t.Evolution.ModernWord,
		&t.Evolution.EtymologySummary, &t.StageCount, &t.Provider, &ts,
	); err != nil {
		return nil, err
	}
	t.FetchedAt, _ = parseTimestamp(ts)
	return &t, nil
}

// DeleteTrace removes one trace, its stages and its index entry.
func (s *SQLiteStore) DeleteTrace(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if s.fts {
		if _, err := tx.ExecContext(ctx, "DELETE FROM traces_fts WHERE trace_id = ?", id); err != nil {
			return fmt.Errorf("delete FTS entry: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM stages WHERE trace_id = ?", id); err != nil {
		return fmt.Errorf("delete stages: %w", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM traces WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete trace: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("trace %s: %w", id, ErrNotFound)
	}
	return tx.Commit()
}

// CountExpired reports how many traces PruneExpired would delete.
func (s *SQLiteStore) CountExpired(ctx context.Context, olderThan time.Time) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM traces WHERE fetched_at < ?", formatTimestamp(olderThan)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count expired: %w", err)
	}
	return n, nil
}

// PruneExpired deletes traces fetched before olderThan.
func (s *SQLiteStore) PruneExpired(ctx context.Context, olderThan time.Time) (int64, error) {
	cutoff := formatTimestamp(olderThan)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if s.fts {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM traces_fts WHERE trace_id IN (SELECT id FROM traces WHERE fetched_at < ?)`, cutoff,
		); err != nil {
			return 0, fmt.Errorf("prune FTS: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM stages WHERE trace_id IN (SELECT id FROM traces WHERE fetched_at < ?)`, cutoff,
	); err != nil {
		return 0, fmt.Errorf("prune stages: %w", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM traces WHERE fetched_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune traces: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, tx.Commit()
}

// PurgeAll deletes every trace and rebuilds the empty index.
func (s *SQLiteStore) PurgeAll(ctx context.Context) error {
	stmts := []string{
		"DROP TABLE IF EXISTS traces_fts",
		"DELETE FROM stages",
		"DELETE FROM traces",
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("purge (%s): %w", stmt, err)
		}
	}
	if s.fts {
		return s.initFTS()
	}
	return nil
}

// GetStats returns aggregate statistics about the history.
func (s *SQLiteStore) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM traces").Scan(&stats.TotalTraces); err != nil {
		return nil, fmt.Errorf("count traces: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM stages").Scan(&stats.TotalStages); err != nil {
		return nil, fmt.Errorf("count stages: %w", err)
	}

	if stats.TotalTraces > 0 {
		var oldest, newest string
		if err := s.db.QueryRowContext(ctx, "SELECT MIN(fetched_at), MAX(fetched_at) FROM traces").Scan(&oldest, &newest); err != nil {
			return nil, fmt.Errorf("trace time range: %w", err)
		}
		stats.OldestTrace, _ = parseTimestamp(oldest)
		stats.NewestTrace, _ = parseTimestamp(newest)
	}

	var pageCount, pageSize int64
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		if err := s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize); err == nil {
			stats.DatabaseSizeBytes = pageCount * pageSize
		}
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT language, COUNT(*) AS cnt FROM stages GROUP BY language ORDER BY cnt DESC, language LIMIT 10",
	)
	if err != nil {
		return nil, fmt.Errorf("top languages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var lc LanguageCount
		if err := rows.Scan(&lc.Language, &lc.Count); err != nil {
			return nil, err
		}
		stats.TopLanguages = append(stats.TopLanguages, lc)
	}
	return stats, rows.Err()
}

// Close releases the prepared statements. The *sql.DB stays open; it
// belongs to the caller.
func (s *SQLiteStore) Close() error {
	for _, stmt := range []*sql.Stmt{s.getTrace, s.getStages, s.latestTrace} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return nil
}
