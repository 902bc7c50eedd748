// Package archive persists finalized metric snapshots so history survives
// page-session resets and can be reported on or mined later.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite" // CGO-free SQLite driver

	"github.com/vitalstack/vitals-engine/internal/models"
)

// Store is the SQLite-backed session archive.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// SessionRecord is one archived metric snapshot summary.
type SessionRecord struct {
	ID         int64
	Page       string
	Metric     models.Metric
	Value      *float64
	Rating     models.Rating
	EntryCount int
	Dropped    int
	RecordedAt time.Time
}

// IssueRecord ties an archived issue back to its session row.
type IssueRecord struct {
	SessionID int64
	Page      string
	Issue     models.Issue
}

// Open initialises the archive at path, creating tables as needed.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open archive %q: %w", path, err)
	}
	// A single connection avoids "database is locked" errors under SQLite.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			page TEXT NOT NULL,
			metric TEXT NOT NULL,
			value REAL,
			rating TEXT NOT NULL DEFAULT '',
			entry_count INTEGER NOT NULL,
			dropped INTEGER NOT NULL,
			recorded_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS issues (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id INTEGER NOT NULL REFERENCES sessions(id),
			type TEXT NOT NULL,
			element TEXT NOT NULL DEFAULT '',
			contribution REAL NOT NULL,
			suggestion TEXT NOT NULL DEFAULT '',
			phase TEXT NOT NULL DEFAULT '',
			occurred_at REAL NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS patterns (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			element TEXT NOT NULL DEFAULT '',
			occurrences INTEGER NOT NULL,
			sessions INTEGER NOT NULL,
			prevalence REAL NOT NULL,
			avg_contribution REAL NOT NULL,
			suggestion TEXT NOT NULL DEFAULT '',
			last_seen TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_page ON sessions(page, metric)`,
		`CREATE INDEX IF NOT EXISTS idx_issues_session ON issues(session_id)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate archive: %w", err)
		}
	}
	return nil
}

// SaveCLS archives a layout-shift snapshot and its issues.
func (s *Store) SaveCLS(ctx context.Context, page string, st models.CLSState) (int64, error) {
	return s.saveSession(ctx, page, models.MetricCLS, st.Value, st.Rating, st.ShiftCount, st.DroppedRecords, st.Issues)
}

// SaveINP archives an interaction snapshot and its issues.
func (s *Store) SaveINP(ctx context.Context, page string, st models.INPState) (int64, error) {
	return s.saveSession(ctx, page, models.MetricINP, st.Value, st.Rating, st.InteractionCount, st.DroppedRecords, st.Issues)
}

func (s *Store) saveSession(ctx context.Context, page string, metric models.Metric, value *float64, rating models.Rating, entries, dropped int, issues []models.Issue) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin archive tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (page, metric, value, rating, entry_count, dropped, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		page, string(metric), nullableFloat(value), string(rating), entries, dropped, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("insert session: %w", err)
	}
	sessionID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("session id: %w", err)
	}

	for _, issue := range issues {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO issues (session_id, type, element, contribution, suggestion, phase, occurred_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			sessionID, string(issue.Type), issue.ElementDescriptor, issue.Contribution,
			issue.Suggestion, string(issue.Phase), issue.Timestamp); err != nil {
			return 0, fmt.Errorf("insert issue: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit archive tx: %w", err)
	}
	return sessionID, nil
}

// ListSessions returns archived sessions, newest first. Empty page or
// metric matches everything; limit <= 0 means no limit.
func (s *Store) ListSessions(ctx context.Context, page string, metric models.Metric, since time.Time, limit int) ([]SessionRecord, error) {
	query := `SELECT id, page, metric, value, rating, entry_count, dropped, recorded_at
		FROM sessions WHERE recorded_at >= ?`
	args := []any{since.UTC()}
	if page != "" {
		query += ` AND page = ?`
		args = append(args, page)
	}
	if metric != "" {
		query += ` AND metric = ?`
		args = append(args, string(metric))
	}
	query += ` ORDER BY recorded_at DESC, id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionRecord
	for rows.Next() {
		var (
			rec    SessionRecord
			metric string
			rating string
			value  sql.NullFloat64
		)
		if err := rows.Scan(&rec.ID, &rec.Page, &metric, &value, &rating, &rec.EntryCount, &rec.Dropped, &rec.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		rec.Metric = models.Metric(metric)
		rec.Rating = models.Rating(rating)
		if value.Valid {
			v := value.Float64
			rec.Value = &v
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ListIssues returns archived issues recorded since the given time.
func (s *Store) ListIssues(ctx context.Context, since time.Time) ([]IssueRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT i.session_id, s.page, i.type, i.element, i.contribution, i.suggestion, i.phase, i.occurred_at
		 FROM issues i JOIN sessions s ON s.id = i.session_id
		 WHERE s.recorded_at >= ?
		 ORDER BY i.session_id, i.id`,
		since.UTC())
	if err != nil {
		return nil, fmt.Errorf("list issues: %w", err)
	}
	defer rows.Close()

	var out []IssueRecord
	for rows.Next() {
		var (
			rec       IssueRecord
			issueType string
			phase     string
		)
		if err := rows.Scan(&rec.SessionID, &rec.Page, &issueType, &rec.Issue.ElementDescriptor,
			&rec.Issue.Contribution, &rec.Issue.Suggestion, &phase, &rec.Issue.Timestamp); err != nil {
			return nil, fmt.Errorf("scan issue: %w", err)
		}
		rec.Issue.Type = models.IssueType(issueType)
		rec.Issue.Phase = models.InteractionPhase(phase)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// StorePatterns upserts mined issue patterns.
func (s *Store) StorePatterns(ctx context.Context, patterns []models.IssuePattern) error {
	for _, p := range patterns {
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO patterns (id, type, element, occurrences, sessions, prevalence, avg_contribution, suggestion, last_seen)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
				occurrences = excluded.occurrences,
				sessions = excluded.sessions,
				prevalence = excluded.prevalence,
				avg_contribution = excluded.avg_contribution,
				suggestion = excluded.suggestion,
				last_seen = excluded.last_seen`,
			p.ID, string(p.Type), p.ElementDescriptor, p.Occurrences, p.Sessions,
			p.Prevalence, p.AverageContribution, p.Suggestion, p.LastSeen.UTC()); err != nil {
			return fmt.Errorf("store pattern %s: %w", p.ID, err)
		}
	}
	return nil
}

// ListPatterns returns mined patterns ordered by prevalence descending.
func (s *Store) ListPatterns(ctx context.Context) ([]models.IssuePattern, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, type, element, occurrences, sessions, prevalence, avg_contribution, suggestion, last_seen
		 FROM patterns ORDER BY prevalence DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list patterns: %w", err)
	}
	defer rows.Close()

	var out []models.IssuePattern
	for rows.Next() {
		var (
			p         models.IssuePattern
			issueType string
		)
		if err := rows.Scan(&p.ID, &issueType, &p.ElementDescriptor, &p.Occurrences, &p.Sessions,
			&p.Prevalence, &p.AverageContribution, &p.Suggestion, &p.LastSeen); err != nil {
			return nil, fmt.Errorf("scan pattern: %w", err)
		}
		p.Type = models.IssueType(issueType)
		out = append(out, p)
	}
	return out, rows.Err()
}

func nullableFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
