package repository

import (
	"context"
	"fmt"

	"movie-reservation/internal/data/entity"
	"movie-reservation/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// ReservedSeatRepository reads the taken-seat set of a screening. Writes go
// through ReservationRepository so they share the reservation's transaction.
type ReservedSeatRepository interface {
	FindTakenByScreening(ctx context.Context, screeningID uuid.UUID) ([]entity.Seat, error)
}

type reservedSeatRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewReservedSeatRepository(db database.PgxIface, log *zap.Logger) ReservedSeatRepository {
	return &reservedSeatRepository{
		db:  db,
		log: log.With(zap.String("repository", "reserved_seat")),
	}
}

// querier is satisfied by both the pool and a pgx.Tx
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// seatOrder sorts labels by length first so that Z comes before AA
const seatOrder = `length(seat_row), seat_row, seat_number`

func queryTakenSeats(ctx context.Context, q querier, screeningID uuid.UUID) ([]entity.Seat, error) {
	query := `
		SELECT seat_row, seat_number
		FROM reserved_seats
		WHERE screening_id = $1
		ORDER BY ` + seatOrder

	rows, err := q.Query(ctx, query, screeningID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seats := []entity.Seat{}
	for rows.Next() {
		var seat entity.Seat
		if err := rows.Scan(&seat.Row, &seat.Number); err != nil {
			return nil, err
		}
		seats = append(seats, seat)
	}
	return seats, rows.Err()
}

func (r *reservedSeatRepository) FindTakenByScreening(ctx context.Context, screeningID uuid.UUID) ([]entity.Seat, error) {
	seats, err := queryTakenSeats(ctx, r.db, screeningID)
	if err != nil {
		r.log.Error("Failed to find taken seats",
			zap.Error(err),
			zap.String("screening_id", screeningID.String()),
		)
		return nil, fmt.Errorf("find taken seats of screening %s: %w", screeningID, err)
	}
	return seats, nil
}
