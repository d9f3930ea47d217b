package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"

	"github.com/Corner-Boxing/corner-backend/internal/model"
)

// SQL dialects
const (
	DriverSQLite = "sqlite3"
	DriverMySQL  = "mysql"
)

var sqliteSchema = `
CREATE TABLE IF NOT EXISTS class_jobs (
	id         TEXT PRIMARY KEY,
	status     TEXT NOT NULL,
	plan       TEXT NOT NULL,
	file_url   TEXT,
	error      TEXT,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_class_jobs_status_created ON class_jobs (status, created_at);
`

var mysqlSchema = []string{`
CREATE TABLE IF NOT EXISTS class_jobs (
	id         VARCHAR(36) NOT NULL PRIMARY KEY,
	status     VARCHAR(16) NOT NULL,
	plan       LONGTEXT NOT NULL,
	file_url   TEXT NULL,
	error      TEXT NULL,
	created_at DATETIME(6) NOT NULL,
	updated_at DATETIME(6) NOT NULL,
	INDEX idx_class_jobs_status_created (status, created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// SQLStore keeps jobs in a class_jobs table. Claims are conditional
// updates on status='queued' checked through RowsAffected.
type SQLStore struct {
	db     *sql.DB
	driver string
	now    func() time.Time
}

// NewSQLiteStore opens (and creates) a SQLite database file.
func NewSQLiteStore(path string) (*SQLStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create db dir: %w", err)
		}
	}
	db, err := sql.Open(DriverSQLite, fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	return newSQLStore(db, DriverSQLite)
}

// NewMySQLStore connects to MySQL. parseTime is forced on so DATETIME
// columns scan into time.Time.
func NewMySQLStore(dsn string) (*SQLStore, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC

	db, err := sql.Open(DriverMySQL, cfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	return newSQLStore(db, DriverMySQL)
}

func newSQLStore(db *sql.DB, driver string) (*SQLStore, error) {
	s := &SQLStore{db: db, driver: driver, now: time.Now}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) migrate(ctx context.Context) error {
	stmts := []string{sqliteSchema}
	if s.driver == DriverMySQL {
		stmts = mysqlSchema
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create class_jobs table: %w", err)
		}
	}
	return nil
}

func (s *SQLStore) Close() error { return s.db.Close() }

func (s *SQLStore) Insert(ctx context.Context, job *model.Job) error {
	if err := checkInsert(job); err != nil {
		return err
	}
	plan, err := json.Marshal(job.Plan)
	if err != nil {
		return fmt.Errorf("failed to marshal plan: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO class_jobs (id, status, plan, file_url, error, created_at, updated_at)
VALUES (?, ?, ?, NULL, NULL, ?, ?)`,
		job.ID, job.Status, string(plan), job.CreatedAt.UTC(), job.UpdatedAt.UTC())
	return err
}

// ClaimNext retries while it keeps losing the oldest row to another worker.
// Every lost race means some job left the queue, so the loop ends.
func (s *SQLStore) ClaimNext(ctx context.Context) (*model.Job, error) {
	for {
		var id string
		err := s.db.QueryRowContext(ctx, `
SELECT id FROM class_jobs
WHERE status = ?
ORDER BY created_at ASC
LIMIT 1`, model.JobStatusQueued).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoQueuedJob
		}
		if err != nil {
			return nil, err
		}

		job, err := s.Claim(ctx, id)
		if errors.Is(err, ErrJobNotClaimable) || errors.Is(err, ErrJobNotFound) {
			// another worker won this row
			continue
		}
		return job, err
	}
}

func (s *SQLStore) Claim(ctx context.Context, id string) (*model.Job, error) {
	res, err := s.db.ExecContext(ctx, `
UPDATE class_jobs
SET status = ?, updated_at = ?
WHERE id = ? AND status = ?`,
		model.JobStatusProcessing, s.now().UTC(), id, model.JobStatusQueued)
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, err
	} else if n != 1 {
		if _, err := s.Get(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrJobNotClaimable
	}
	return s.Get(ctx, id)
}

func (s *SQLStore) Complete(ctx context.Context, id, fileURL string) error {
	return s.finish(ctx, id, model.JobStatusDone, "file_url", fileURL)
}

func (s *SQLStore) Fail(ctx context.Context, id, message string) error {
	return s.finish(ctx, id, model.JobStatusError, "error", message)
}

// finish writes a terminal status. column is a fixed identifier, never
// user input.
func (s *SQLStore) finish(ctx context.Context, id string, status model.JobStatus, column, detail string) error {
	if err := checkTerminal(status, detail); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
UPDATE class_jobs
SET status = ?, `+column+` = ?, updated_at = ?
WHERE id = ? AND status = ?`,
		status, detail, s.now().UTC(), id, model.JobStatusProcessing)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	cur, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, cur.Status, status)
}

const jobColumns = `id, status, plan, file_url, error, created_at, updated_at`

func (s *SQLStore) Get(ctx context.Context, id string) (*model.Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM class_jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	return job, err
}

func (s *SQLStore) List(ctx context.Context, status model.JobStatus, limit int) ([]*model.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM class_jobs`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC, id ASC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (*model.Job, error) {
	var (
		j       model.Job
		plan    string
		fileURL sql.NullString
		errMsg  sql.NullString
	)
	if err := row.Scan(&j.ID, &j.Status, &plan, &fileURL, &errMsg, &j.CreatedAt, &j.UpdatedAt); err != nil {
		return nil, err
	}
	if strings.TrimSpace(plan) != "" && plan != "null" {
		j.Plan = &model.ClassPlan{}
		if err := json.Unmarshal([]byte(plan), j.Plan); err != nil {
			return nil, fmt.Errorf("failed to unmarshal plan for %s: %w", j.ID, err)
		}
	}
	if fileURL.Valid {
		v := fileURL.String
		j.FileURL = &v
	}
	if errMsg.Valid {
		v := errMsg.String
		j.Error = &v
	}
	return &j, nil
}
