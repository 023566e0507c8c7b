package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/iWorld-y/gh_release_notes/internal/logger"
	"github.com/iWorld-y/gh_release_notes/internal/solver"
)

var _ solver.Source = (*Storage)(nil)

// SaveSolverResult 写入或覆盖一份 solver 文档
func (s *Storage) SaveSolverResult(ctx context.Context, documentID string, datetime *time.Time, document []byte) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO solver_results (document_id, datetime, document)
		VALUES ($1, $2, $3)
		ON CONFLICT (document_id) DO UPDATE
		SET datetime = excluded.datetime, document = excluded.document`),
		documentID, nullTime(datetime), sanitize(string(document)),
	)
	if err != nil {
		return fmt.Errorf("save solver result %s: %w", documentID, err)
	}
	return nil
}

// Iterate 按时间顺序遍历窗口内的 solver 文档
func (s *Storage) Iterate(ctx context.Context, w solver.Window, fn func(*solver.Document) error) error {
	var (
		conds []string
		args  []any
	)
	from, to := w.Bounds()
	if from != nil {
		args = append(args, from.UTC())
		conds = append(conds, fmt.Sprintf("datetime >= $%d", len(args)))
	}
	if to != nil {
		args = append(args, to.UTC())
		conds = append(conds, fmt.Sprintf("datetime < $%d", len(args)))
	}

	query := `SELECT document_id, document FROM solver_results`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY datetime, document_id"

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return fmt.Errorf("query solver results: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return fmt.Errorf("scan solver result: %w", err)
		}

		doc, err := solver.DecodeDocument(raw)
		if err != nil {
			logger.Log.Warnf("跳过无法解析的文档 [%s]: %v", id, err)
			continue
		}
		if doc.Metadata.DocumentID == "" {
			doc.Metadata.DocumentID = id
		}

		if err := fn(doc); err != nil {
			return err
		}
	}

	return rows.Err()
}
