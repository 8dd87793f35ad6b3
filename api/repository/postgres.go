package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"imageResizer/api/database"
	"imageResizer/api/models"
	workermodels "imageResizer/worker/models"
)

const uniqueViolation = "23505"

type PostgresRepo struct {
	db *database.DB
}

func NewPostgresRepo(db *database.DB) Repository {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) CreateBatch(ctx context.Context, batch *models.Batch) error {
	request, err := json.Marshal(batch.Request)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	query := `
		INSERT INTO batches (id, trace_id, request, status, error_message)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`

	err = r.db.Pool.QueryRow(ctx, query,
		batch.ID,
		batch.TraceID,
		request,
		string(batch.Status),
		batch.ErrorMessage,
	).Scan(&batch.CreatedAt, &batch.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrBatchAlreadyExists
		}
		return err
	}

	return nil
}

func (r *PostgresRepo) GetBatch(ctx context.Context, id string) (*models.Batch, error) {
	query := `
		SELECT id, trace_id, request, status, error_message, report, created_at, updated_at, completed_at
		FROM batches
		WHERE id = $1
	`

	var (
		batch   models.Batch
		request []byte
		status  string
	)
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&batch.ID,
		&batch.TraceID,
		&request,
		&status,
		&batch.ErrorMessage,
		&batch.Report,
		&batch.CreatedAt,
		&batch.UpdatedAt,
		&batch.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBatchNotFound
		}
		return nil, err
	}

	if err := json.Unmarshal(request, &batch.Request); err != nil {
		return nil, fmt.Errorf("decode stored request: %w", err)
	}
	batch.Status = workermodels.BatchStatus(status)

	return &batch, nil
}
