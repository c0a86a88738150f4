package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"movie-reservation/internal/data/entity"
	"movie-reservation/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type ScreeningRepository interface {
	Create(ctx context.Context, screening *entity.Screening) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Screening, error)
	FindByMovieID(ctx context.Context, movieID uuid.UUID, from time.Time) ([]*entity.Screening, error)
	// FindOverlapping returns screenings in the auditorium whose interval
	// intersects [start, end). excludeID skips the screening being updated.
	FindOverlapping(ctx context.Context, auditoriumID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) ([]*entity.Screening, error)
	// Update changes schedule and price. It never touches seat_version.
	Update(ctx context.Context, screening *entity.Screening) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type screeningRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewScreeningRepository(db database.PgxIface, log *zap.Logger) ScreeningRepository {
	return &screeningRepository{
		db:  db,
		log: log.With(zap.String("repository", "screening")),
	}
}

const screeningColumns = `id, movie_id, auditorium_id, starts_at, ends_at, price, seat_version,
		       created_at, updated_at, deleted_at`

func scanScreening(row pgx.Row) (*entity.Screening, error) {
	var s entity.Screening
	err := row.Scan(
		&s.ID,
		&s.MovieID,
		&s.AuditoriumID,
		&s.StartsAt,
		&s.EndsAt,
		&s.Price,
		&s.SeatVersion,
		&s.CreatedAt,
		&s.UpdatedAt,
		&s.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func collectScreenings(rows pgx.Rows) ([]*entity.Screening, error) {
	defer rows.Close()

	var screenings []*entity.Screening
	for rows.Next() {
		s, err := scanScreening(rows)
		if err != nil {
			return nil, fmt.Errorf("scan screening: %w", err)
		}
		screenings = append(screenings, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate screening rows: %w", err)
	}
	return screenings, nil
}

func (r *screeningRepository) Create(ctx context.Context, screening *entity.Screening) error {
	query := `
		INSERT INTO screenings (id, movie_id, auditorium_id, starts_at, ends_at, price,
		                        seat_version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.Exec(ctx, query,
		screening.ID,
		screening.MovieID,
		screening.AuditoriumID,
		screening.StartsAt,
		screening.EndsAt,
		screening.Price,
		screening.SeatVersion,
		screening.CreatedAt,
		screening.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to create screening",
			zap.Error(err),
			zap.String("movie_id", screening.MovieID.String()),
			zap.String("auditorium_id", screening.AuditoriumID.String()),
			zap.Time("starts_at", screening.StartsAt),
		)
		return fmt.Errorf("create screening for movie %s: %w", screening.MovieID, err)
	}

	return nil
}

func (r *screeningRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Screening, error) {
	query := `SELECT ` + screeningColumns + ` FROM screenings WHERE id = $1 AND deleted_at IS NULL`

	screening, err := scanScreening(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find screening by ID",
			zap.Error(err),
			zap.String("screening_id", id.String()),
		)
		return nil, fmt.Errorf("find screening %s: %w", id, err)
	}

	return screening, nil
}

func (r *screeningRepository) FindByMovieID(ctx context.Context, movieID uuid.UUID, from time.Time) ([]*entity.Screening, error) {
	query := `
		SELECT ` + screeningColumns + `
		FROM screenings
		WHERE movie_id = $1 AND starts_at >= $2 AND deleted_at IS NULL
		ORDER BY starts_at
	`

	rows, err := r.db.Query(ctx, query, movieID, from)
	if err != nil {
		r.log.Error("Failed to find screenings by movie",
			zap.Error(err),
			zap.String("movie_id", movieID.String()),
		)
		return nil, fmt.Errorf("find screenings of movie %s: %w", movieID, err)
	}

	screenings, err := collectScreenings(rows)
	if err != nil {
		r.log.Error("Failed to read screening rows", zap.Error(err))
		return nil, err
	}
	return screenings, nil
}

func (r *screeningRepository) FindOverlapping(ctx context.Context, auditoriumID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) ([]*entity.Screening, error) {
	query := `
		SELECT ` + screeningColumns + `
		FROM screenings
		WHERE auditorium_id = $1
		  AND starts_at < $3
		  AND ends_at > $2
		  AND ($4::uuid IS NULL OR id <> $4)
		  AND deleted_at IS NULL
		ORDER BY starts_at
	`

	rows, err := r.db.Query(ctx, query, auditoriumID, start, end, excludeID)
	if err != nil {
		r.log.Error("Failed to find overlapping screenings",
			zap.Error(err),
			zap.String("auditorium_id", auditoriumID.String()),
		)
		return nil, fmt.Errorf("find overlapping screenings in auditorium %s: %w", auditoriumID, err)
	}

	return collectScreenings(rows)
}

func (r *screeningRepository) Update(ctx context.Context, screening *entity.Screening) error {
	query := `
		UPDATE screenings
		SET movie_id = $2, auditorium_id = $3, starts_at = $4, ends_at = $5,
		    price = $6, updated_at = $7
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.db.Exec(ctx, query,
		screening.ID,
		screening.MovieID,
		screening.AuditoriumID,
		screening.StartsAt,
		screening.EndsAt,
		screening.Price,
		screening.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to update screening",
			zap.Error(err),
			zap.String("screening_id", screening.ID.String()),
		)
		return fmt.Errorf("update screening %s: %w", screening.ID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("screening %s: %w", screening.ID, ErrNoRowsAffected)
	}

	return nil
}

func (r *screeningRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE screenings SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		r.log.Error("Failed to delete screening",
			zap.Error(err),
			zap.String("screening_id", id.String()),
		)
		return fmt.Errorf("delete screening %s: %w", id, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("screening %s: %w", id, ErrNoRowsAffected)
	}

	r.log.Info("Screening deleted", zap.String("screening_id", id.String()))
	return nil
}
