package repository

import (
	"context"
	"errors"
	"fmt"

	"movie-reservation/internal/data/entity"
	"movie-reservation/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type AuditoriumRepository interface {
	Create(ctx context.Context, auditorium *entity.Auditorium) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Auditorium, error)
	FindByName(ctx context.Context, name string) (*entity.Auditorium, error)
	FindAll(ctx context.Context, offset, limit int) ([]*entity.Auditorium, error)
	CountAll(ctx context.Context) (int64, error)
}

type auditoriumRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewAuditoriumRepository(db database.PgxIface, log *zap.Logger) AuditoriumRepository {
	return &auditoriumRepository{
		db:  db,
		log: log.With(zap.String("repository", "auditorium")),
	}
}

const auditoriumColumns = `id, name, row_count, seats_per_row, created_at, updated_at, deleted_at`

func scanAuditorium(row pgx.Row) (*entity.Auditorium, error) {
	var a entity.Auditorium
	if err := row.Scan(&a.ID, &a.Name, &a.RowCount, &a.SeatsPerRow, &a.CreatedAt, &a.UpdatedAt, &a.DeletedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *auditoriumRepository) Create(ctx context.Context, auditorium *entity.Auditorium) error {
	query := `
		INSERT INTO auditoriums (id, name, row_count, seats_per_row, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.Exec(ctx, query,
		auditorium.ID,
		auditorium.Name,
		auditorium.RowCount,
		auditorium.SeatsPerRow,
		auditorium.CreatedAt,
		auditorium.UpdatedAt,
	)
	if database.IsPgCode(err, database.CodeUniqueViolation) {
		return fmt.Errorf("create auditorium %q: %w", auditorium.Name, ErrDuplicateKey)
	}
	if err != nil {
		r.log.Error("Failed to create auditorium",
			zap.Error(err),
			zap.String("name", auditorium.Name),
		)
		return fmt.Errorf("create auditorium %q: %w", auditorium.Name, err)
	}

	return nil
}

func (r *auditoriumRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Auditorium, error) {
	query := `SELECT ` + auditoriumColumns + ` FROM auditoriums WHERE id = $1 AND deleted_at IS NULL`

	auditorium, err := scanAuditorium(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find auditorium by ID",
			zap.Error(err),
			zap.String("auditorium_id", id.String()),
		)
		return nil, fmt.Errorf("find auditorium %s: %w", id, err)
	}

	return auditorium, nil
}

func (r *auditoriumRepository) FindByName(ctx context.Context, name string) (*entity.Auditorium, error) {
	query := `SELECT ` + auditoriumColumns + ` FROM auditoriums WHERE LOWER(name) = LOWER($1) AND deleted_at IS NULL`

	auditorium, err := scanAuditorium(r.db.QueryRow(ctx, query, name))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find auditorium by name", zap.Error(err), zap.String("name", name))
		return nil, fmt.Errorf("find auditorium %q: %w", name, err)
	}

	return auditorium, nil
}

func (r *auditoriumRepository) FindAll(ctx context.Context, offset, limit int) ([]*entity.Auditorium, error) {
	query := `
		SELECT ` + auditoriumColumns + `
		FROM auditoriums
		WHERE deleted_at IS NULL
		ORDER BY name
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		r.log.Error("Failed to find auditoriums", zap.Error(err))
		return nil, fmt.Errorf("find auditoriums: %w", err)
	}
	defer rows.Close()

	var auditoriums []*entity.Auditorium
	for rows.Next() {
		a, err := scanAuditorium(rows)
		if err != nil {
			r.log.Error("Failed to scan auditorium row", zap.Error(err))
			return nil, fmt.Errorf("scan auditorium: %w", err)
		}
		auditoriums = append(auditoriums, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate auditorium rows: %w", err)
	}

	return auditoriums, nil
}

func (r *auditoriumRepository) CountAll(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM auditoriums WHERE deleted_at IS NULL`).Scan(&total); err != nil {
		r.log.Error("Failed to count auditoriums", zap.Error(err))
		return 0, fmt.Errorf("count auditoriums: %w", err)
	}
	return total, nil
}
