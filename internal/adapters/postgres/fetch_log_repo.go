package postgres

import (
	"context"
	"fmt"

	"github.com/samirrijal/placequest/internal/core/domain"
)

// FetchLogRepo implements ports.FetchLogRepository.
type FetchLogRepo struct {
	db *DB
}

func NewFetchLogRepo(db *DB) *FetchLogRepo {
	return &FetchLogRepo{db: db}
}

func (r *FetchLogRepo) Insert(ctx context.Context, e *domain.FetchLog) error {
	return r.db.Pool.QueryRow(ctx, `
		INSERT INTO fetch_logs (kind, request, response, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, e.Kind, e.Request, e.Response, e.Status, e.CreatedAt).Scan(&e.ID)
}

// Recent returns the newest n entries without their response bodies.
func (r *FetchLogRepo) Recent(ctx context.Context, n int) ([]domain.FetchLog, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, kind, request, status, COALESCE(length(response), 0), created_at
		FROM fetch_logs
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, n)
	if err != nil {
		return nil, fmt.Errorf("query fetch logs: %w", err)
	}
	defer rows.Close()

	var entries []domain.FetchLog
	for rows.Next() {
		var e domain.FetchLog
		if err := rows.Scan(&e.ID, &e.Kind, &e.Request, &e.Status, &e.ResponseBytes, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
