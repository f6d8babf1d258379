package report

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/mhabrnal/abrt-java-connector/internal/fault"
)

// SQLiteSink records reports in a local problem store, one row per report.
// It is the stand-in for handing problem data to a crash-reporting daemon.
type SQLiteSink struct {
	mu     sync.Mutex
	db     *sql.DB
	closed bool
}

// NewSQLiteSink opens (and if needed initializes) the problem store at the
// given path. ":memory:" is accepted for testing.
func NewSQLiteSink(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open problem store: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS reports (
			id TEXT PRIMARY KEY,
			time TEXT NOT NULL,
			thread_id INTEGER NOT NULL,
			executable TEXT NOT NULL,
			reason TEXT NOT NULL,
			fault_type TEXT NOT NULL,
			caught INTEGER NOT NULL,
			stacktrace TEXT,
			extra TEXT
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create reports table: %w", err)
	}

	return &SQLiteSink{db: db}, nil
}

// Deliver implements Sink.
func (s *SQLiteSink) Deliver(ctx context.Context, r *Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("problem store is closed")
	}

	extra, err := encodeExtra(r.Extra)
	if err != nil {
		return fmt.Errorf("encode extra info: %w", err)
	}

	caught := 0
	if r.Caught {
		caught = 1
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reports (id, time, thread_id, executable, reason, fault_type, caught, stacktrace, extra)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.Time.UTC().Format(time.RFC3339Nano), r.ThreadID, r.Executable,
		r.Reason, r.FaultType, caught, r.StackTrace, extra)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

// Count returns the number of stored reports.
func (s *SQLiteSink) Count(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, fmt.Errorf("problem store is closed")
	}

	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM reports").Scan(&n); err != nil {
		return 0, fmt.Errorf("count reports: %w", err)
	}
	return n, nil
}

// Load returns a stored report by ID.
func (s *SQLiteSink) Load(ctx context.Context, id string) (*Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("problem store is closed")
	}

	var (
		r       Report
		ts      string
		caught  int
		rawJSON sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, time, thread_id, executable, reason, fault_type, caught, stacktrace, extra
		FROM reports WHERE id = ?
	`, id).Scan(&r.ID, &ts, &r.ThreadID, &r.Executable, &r.Reason, &r.FaultType, &caught, &r.StackTrace, &rawJSON)
	if err != nil {
		return nil, fmt.Errorf("load report: %w", err)
	}

	r.Caught = caught != 0
	if r.Time, err = time.Parse(time.RFC3339Nano, ts); err != nil {
		return nil, fmt.Errorf("parse report time: %w", err)
	}
	if rawJSON.Valid && rawJSON.String != "" {
		if err := json.Unmarshal([]byte(rawJSON.String), &r.Extra); err != nil {
			return nil, fmt.Errorf("decode extra info: %w", err)
		}
	}
	return &r, nil
}

// Close closes the problem store.
func (s *SQLiteSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func encodeExtra(pairs []fault.InfoPair) (string, error) {
	if len(pairs) == 0 {
		return "", nil
	}
	data, err := json.Marshal(pairs)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
