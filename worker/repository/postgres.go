package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"

	"imageResizer/worker/models"
)

var ErrBatchNotFound = errors.New("batch not found")

type PostgresRepo struct {
	db *pgxpool.Pool
}

func NewPostgresRepo(db *pgxpool.Pool) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) UpdateBatchStatus(ctx context.Context, batchID string, status models.BatchStatus, errMsg string) error {
	query := `UPDATE batches SET status = $1, error_message = $2, updated_at = NOW()`
	if status == models.BatchCompleted || status == models.BatchFailed {
		query += `, completed_at = NOW()`
	}
	query += ` WHERE id = $3`

	result, err := r.db.Exec(ctx, query, string(status), errMsg, batchID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrBatchNotFound
	}
	return nil
}

func (r *PostgresRepo) SaveReport(ctx context.Context, batchID string, report []byte) error {
	result, err := r.db.Exec(ctx,
		`UPDATE batches SET report = $1, updated_at = NOW() WHERE id = $2`,
		report, batchID,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrBatchNotFound
	}
	return nil
}
