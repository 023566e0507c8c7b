package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iWorld-y/gh_release_notes/internal/prescription"
	"github.com/iWorld-y/gh_release_notes/internal/solver"
)

// 运行状态
const (
	RunRunning   = "running"
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
)

// Run 一次聚合任务的运行记录
type Run struct {
	ID           string                     `json:"id"`
	StartedAt    time.Time                  `json:"started_at"`
	FinishedAt   *time.Time                 `json:"finished_at,omitempty"`
	StartDate    string                     `json:"start_date,omitempty"`
	EndDate      string                     `json:"end_date,omitempty"`
	Status       string                     `json:"status"`
	Documents    int                        `json:"documents"`
	Entries      int                        `json:"entries"`
	Error        string                     `json:"error,omitempty"`
	ReleaseNotes []prescription.ReleaseNote `json:"release_notes,omitempty"`
}

// RunResult 任务结束时写回的结果
type RunResult struct {
	Status    string
	Documents int
	Entries   int
	Err       error
}

// CreateRun 创建运行记录
func (s *Storage) CreateRun(ctx context.Context, w solver.Window) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO runs (id, started_at, start_date, end_date, status)
		VALUES ($1, $2, $3, $4, $5)`),
		id, time.Now().UTC(), formatDate(w.Start), formatDate(w.End), RunRunning,
	)
	if err != nil {
		return "", fmt.Errorf("create run: %w", err)
	}
	return id, nil
}

// FinishRun 更新运行状态
func (s *Storage) FinishRun(ctx context.Context, runID string, res RunResult) error {
	var errMsg string
	if res.Err != nil {
		errMsg = sanitize(res.Err.Error())
	}
	result, err := s.db.ExecContext(ctx, s.rebind(`
		UPDATE runs
		SET finished_at = $1, status = $2, documents = $3, entries = $4, error = $5
		WHERE id = $6`),
		time.Now().UTC(), res.Status, res.Documents, res.Entries, errMsg, runID,
	)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", runID, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrRunNotFound
	}
	return nil
}

// SaveReleaseNotes 在一个事务中写入本次运行生成的规则
func (s *Storage) SaveReleaseNotes(ctx context.Context, runID string, notes []prescription.ReleaseNote) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, s.rebind(`
		INSERT INTO release_notes (run_id, position, organization, repository,
			package_name, package_version, index_url, tag_version_prefix)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`))
	if err != nil {
		return rollback(tx, err)
	}
	defer stmt.Close()

	for i, note := range notes {
		if _, err := stmt.ExecContext(ctx,
			runID, i,
			sanitize(note.Organization),
			sanitize(note.Repository),
			sanitize(note.PackageVersion.Name),
			sanitize(note.PackageVersion.Version),
			sanitize(note.PackageVersion.IndexURL),
			note.TagVersionPrefix,
		); err != nil {
			return rollback(tx, fmt.Errorf("save release note %d: %w", i, err))
		}
	}

	return tx.Commit()
}

const runColumns = `id, started_at, finished_at, start_date, end_date, status, documents, entries, error`

func scanRun(row interface{ Scan(...any) error }) (*Run, error) {
	var (
		r          Run
		finishedAt sql.NullTime
		startDate  sql.NullString
		endDate    sql.NullString
	)
	if err := row.Scan(&r.ID, &r.StartedAt, &finishedAt, &startDate, &endDate,
		&r.Status, &r.Documents, &r.Entries, &r.Error); err != nil {
		return nil, err
	}
	if finishedAt.Valid {
		t := finishedAt.Time
		r.FinishedAt = &t
	}
	r.StartDate = startDate.String
	r.EndDate = endDate.String
	return &r, nil
}

// ListRuns 按开始时间倒序分页列出运行记录
func (s *Storage) ListRuns(ctx context.Context, limit, offset int) ([]*Run, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT `+runColumns+` FROM runs
		ORDER BY started_at DESC, id
		LIMIT $1 OFFSET $2`),
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []*Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun 获取运行记录及其规则
func (s *Storage) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+runColumns+` FROM runs WHERE id = $1`), id)
	r, err := scanRun(row)
	if err != nil {
		if notFound(err) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT organization, repository, package_name, package_version, index_url, tag_version_prefix
		FROM release_notes WHERE run_id = $1 ORDER BY position`), id)
	if err != nil {
		return nil, fmt.Errorf("query release notes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var note prescription.ReleaseNote
		if err := rows.Scan(&note.Organization, &note.Repository,
			&note.PackageVersion.Name, &note.PackageVersion.Version,
			&note.PackageVersion.IndexURL, &note.TagVersionPrefix); err != nil {
			return nil, fmt.Errorf("scan release note: %w", err)
		}
		r.ReleaseNotes = append(r.ReleaseNotes, note)
	}
	return r, rows.Err()
}
