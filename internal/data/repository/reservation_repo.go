package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"movie-reservation/internal/data/entity"
	"movie-reservation/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// ReservationRepository is the seat inventory store. Every write is guarded by a
// compare-and-set on screenings.seat_version; a lost race surfaces as
// ErrStaleInventory and leaves nothing behind.
type ReservationRepository interface {
	// LoadInventory reads the screening, its auditorium and taken seats from one
	// snapshot. It returns nil when the screening does not exist.
	LoadInventory(ctx context.Context, screeningID uuid.UUID) (*entity.SeatInventory, error)
	// SeatVersion returns the current seat version, or ErrNoRowsAffected for an unknown screening
	SeatVersion(ctx context.Context, screeningID uuid.UUID) (int64, error)
	CreateWithSeats(ctx context.Context, expectedVersion int64, reservation *entity.Reservation) error
	DeleteWithSeats(ctx context.Context, expectedVersion int64, reservation *entity.Reservation) error

	FindActiveByUserAndScreening(ctx context.Context, userID, screeningID uuid.UUID) (*entity.Reservation, error)
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Reservation, error)
	FindByUserID(ctx context.Context, userID uuid.UUID, offset, limit int) ([]*entity.Reservation, error)
	CountByUserID(ctx context.Context, userID uuid.UUID) (int64, error)
	FindByScreeningID(ctx context.Context, screeningID uuid.UUID) ([]*entity.Reservation, error)
	CountByScreeningID(ctx context.Context, screeningID uuid.UUID) (int64, error)
}

type reservationRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewReservationRepository(db database.PgxIface, log *zap.Logger) ReservationRepository {
	return &reservationRepository{
		db:  db,
		log: log.With(zap.String("repository", "reservation")),
	}
}

func (r *reservationRepository) LoadInventory(ctx context.Context, screeningID uuid.UUID) (*entity.SeatInventory, error) {
	query := `
		SELECT s.id, s.movie_id, s.auditorium_id, s.starts_at, s.ends_at, s.price,
		       s.seat_version, s.created_at, s.updated_at,
		       a.id, a.name, a.row_count, a.seats_per_row, a.created_at, a.updated_at
		FROM screenings s
		JOIN auditoriums a ON a.id = s.auditorium_id
		WHERE s.id = $1 AND s.deleted_at IS NULL
	`

	var inv *entity.SeatInventory
	err := database.WithTx(ctx, r.db, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}, func(tx pgx.Tx) error {
		var s entity.Screening
		var a entity.Auditorium
		err := tx.QueryRow(ctx, query, screeningID).Scan(
			&s.ID, &s.MovieID, &s.AuditoriumID, &s.StartsAt, &s.EndsAt, &s.Price,
			&s.SeatVersion, &s.CreatedAt, &s.UpdatedAt,
			&a.ID, &a.Name, &a.RowCount, &a.SeatsPerRow, &a.CreatedAt, &a.UpdatedAt,
		)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("load screening: %w", err)
		}

		taken, err := queryTakenSeats(ctx, tx, screeningID)
		if err != nil {
			return fmt.Errorf("load taken seats: %w", err)
		}

		inv = &entity.SeatInventory{Screening: &s, Auditorium: &a, Taken: taken}
		return nil
	})
	if err != nil {
		r.log.Error("Failed to load seat inventory",
			zap.Error(err),
			zap.String("screening_id", screeningID.String()),
		)
		return nil, fmt.Errorf("load inventory of screening %s: %w", screeningID, err)
	}

	return inv, nil
}

func (r *reservationRepository) SeatVersion(ctx context.Context, screeningID uuid.UUID) (int64, error) {
	query := `SELECT seat_version FROM screenings WHERE id = $1 AND deleted_at IS NULL`

	var version int64
	err := r.db.QueryRow(ctx, query, screeningID).Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("screening %s: %w", screeningID, ErrNoRowsAffected)
	}
	if err != nil {
		r.log.Error("Failed to read seat version", zap.Error(err), zap.String("screening_id", screeningID.String()))
		return 0, fmt.Errorf("read seat version of screening %s: %w", screeningID, err)
	}
	return version, nil
}

// bumpVersion is the CAS step shared by create and delete
func bumpVersion(ctx context.Context, tx pgx.Tx, screeningID uuid.UUID, expected int64) error {
	query := `
		UPDATE screenings
		SET seat_version = seat_version + 1
		WHERE id = $1 AND seat_version = $2 AND deleted_at IS NULL
	`

	result, err := tx.Exec(ctx, query, screeningID, expected)
	if err != nil {
		return fmt.Errorf("bump seat version: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrStaleInventory
	}
	return nil
}

func (r *reservationRepository) CreateWithSeats(ctx context.Context, expectedVersion int64, reservation *entity.Reservation) error {
	if len(reservation.Seats) == 0 {
		return errors.New("reservation without seats")
	}

	err := database.WithTx(ctx, r.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if err := bumpVersion(ctx, tx, reservation.ScreeningID, expectedVersion); err != nil {
			return err
		}

		query := `
			INSERT INTO reservations (id, code, user_id, screening_id, total_price, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`
		_, err := tx.Exec(ctx, query,
			reservation.ID,
			reservation.Code,
			reservation.UserID,
			reservation.ScreeningID,
			reservation.TotalPrice,
			reservation.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert reservation: %w", err)
		}

		var sb strings.Builder
		sb.WriteString(`INSERT INTO reserved_seats (screening_id, reservation_id, seat_row, seat_number) VALUES `)
		args := make([]any, 0, len(reservation.Seats)*4)
		for i, seat := range reservation.Seats {
			if i > 0 {
				sb.WriteString(", ")
			}
			n := i * 4
			fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d)", n+1, n+2, n+3, n+4)
			args = append(args, reservation.ScreeningID, reservation.ID, seat.Row, seat.Number)
		}

		if _, err := tx.Exec(ctx, sb.String(), args...); err != nil {
			return fmt.Errorf("insert reserved seats: %w", err)
		}
		return nil
	})

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrStaleInventory),
		database.IsPgCode(err, database.CodeUniqueViolation, database.CodeSerializationFailure):
		r.log.Debug("Seat inventory moved during reserve",
			zap.String("screening_id", reservation.ScreeningID.String()),
			zap.Int64("expected_version", expectedVersion),
			zap.Error(err),
		)
		return fmt.Errorf("reserve on screening %s at version %d: %w", reservation.ScreeningID, expectedVersion, ErrStaleInventory)
	default:
		r.log.Error("Failed to create reservation",
			zap.Error(err),
			zap.String("screening_id", reservation.ScreeningID.String()),
			zap.String("user_id", reservation.UserID.String()),
		)
		return fmt.Errorf("create reservation %s: %w", reservation.Code, err)
	}
}

func (r *reservationRepository) DeleteWithSeats(ctx context.Context, expectedVersion int64, reservation *entity.Reservation) error {
	err := database.WithTx(ctx, r.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if err := bumpVersion(ctx, tx, reservation.ScreeningID, expectedVersion); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `DELETE FROM reserved_seats WHERE reservation_id = $1`, reservation.ID); err != nil {
			return fmt.Errorf("delete reserved seats: %w", err)
		}

		result, err := tx.Exec(ctx, `DELETE FROM reservations WHERE id = $1`, reservation.ID)
		if err != nil {
			return fmt.Errorf("delete reservation: %w", err)
		}
		// someone else cancelled it between our read and the CAS
		if result.RowsAffected() == 0 {
			return ErrStaleInventory
		}
		return nil
	})

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrStaleInventory), database.IsPgCode(err, database.CodeSerializationFailure):
		return fmt.Errorf("cancel on screening %s at version %d: %w", reservation.ScreeningID, expectedVersion, ErrStaleInventory)
	default:
		r.log.Error("Failed to delete reservation",
			zap.Error(err),
			zap.String("reservation_id", reservation.ID.String()),
		)
		return fmt.Errorf("delete reservation %s: %w", reservation.ID, err)
	}
}

// reservationSelect aggregates seats into two parallel arrays sharing one order
const reservationSelect = `
	SELECT r.id, r.code, r.user_id, r.screening_id, r.total_price, r.created_at,
	       COALESCE(array_agg(rs.seat_row ORDER BY length(rs.seat_row), rs.seat_row, rs.seat_number)
	                FILTER (WHERE rs.seat_row IS NOT NULL), '{}'),
	       COALESCE(array_agg(rs.seat_number ORDER BY length(rs.seat_row), rs.seat_row, rs.seat_number)
	                FILTER (WHERE rs.seat_row IS NOT NULL), '{}')
	FROM reservations r
	LEFT JOIN reserved_seats rs ON rs.reservation_id = r.id
`

func scanReservation(row pgx.Row) (*entity.Reservation, error) {
	var (
		res     entity.Reservation
		rowsLbl []string
		numbers []int32
	)
	err := row.Scan(
		&res.ID,
		&res.Code,
		&res.UserID,
		&res.ScreeningID,
		&res.TotalPrice,
		&res.CreatedAt,
		&rowsLbl,
		&numbers,
	)
	if err != nil {
		return nil, err
	}

	res.Seats = make([]entity.Seat, len(rowsLbl))
	for i := range rowsLbl {
		res.Seats[i] = entity.Seat{Row: rowsLbl[i], Number: int(numbers[i])}
	}
	return &res, nil
}

func (r *reservationRepository) findOne(ctx context.Context, where string, args ...any) (*entity.Reservation, error) {
	query := reservationSelect + ` WHERE ` + where + ` GROUP BY r.id`

	res, err := scanReservation(r.db.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return res, err
}

func (r *reservationRepository) findMany(ctx context.Context, query string, args ...any) ([]*entity.Reservation, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reservations []*entity.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, res)
	}
	return reservations, rows.Err()
}

func (r *reservationRepository) FindActiveByUserAndScreening(ctx context.Context, userID, screeningID uuid.UUID) (*entity.Reservation, error) {
	res, err := r.findOne(ctx, `r.user_id = $1 AND r.screening_id = $2`, userID, screeningID)
	if err != nil {
		r.log.Error("Failed to find reservation by user and screening",
			zap.Error(err),
			zap.String("user_id", userID.String()),
			zap.String("screening_id", screeningID.String()),
		)
		return nil, fmt.Errorf("find reservation of user %s on screening %s: %w", userID, screeningID, err)
	}
	return res, nil
}

func (r *reservationRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Reservation, error) {
	res, err := r.findOne(ctx, `r.id = $1`, id)
	if err != nil {
		r.log.Error("Failed to find reservation by ID", zap.Error(err), zap.String("reservation_id", id.String()))
		return nil, fmt.Errorf("find reservation %s: %w", id, err)
	}
	return res, nil
}

func (r *reservationRepository) FindByUserID(ctx context.Context, userID uuid.UUID, offset, limit int) ([]*entity.Reservation, error) {
	query := reservationSelect + `
		WHERE r.user_id = $1
		GROUP BY r.id
		ORDER BY r.created_at DESC
		LIMIT $2 OFFSET $3
	`

	reservations, err := r.findMany(ctx, query, userID, limit, offset)
	if err != nil {
		r.log.Error("Failed to find reservations by user",
			zap.Error(err),
			zap.String("user_id", userID.String()),
		)
		return nil, fmt.Errorf("find reservations of user %s: %w", userID, err)
	}
	return reservations, nil
}

func (r *reservationRepository) CountByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM reservations WHERE user_id = $1`, userID).Scan(&total); err != nil {
		r.log.Error("Failed to count reservations by user", zap.Error(err), zap.String("user_id", userID.String()))
		return 0, fmt.Errorf("count reservations of user %s: %w", userID, err)
	}
	return total, nil
}

func (r *reservationRepository) FindByScreeningID(ctx context.Context, screeningID uuid.UUID) ([]*entity.Reservation, error) {
	query := reservationSelect + `
		WHERE r.screening_id = $1
		GROUP BY r.id
		ORDER BY r.created_at
	`

	reservations, err := r.findMany(ctx, query, screeningID)
	if err != nil {
		r.log.Error("Failed to find reservations by screening",
			zap.Error(err),
			zap.String("screening_id", screeningID.String()),
		)
		return nil, fmt.Errorf("find reservations of screening %s: %w", screeningID, err)
	}
	return reservations, nil
}

func (r *reservationRepository) CountByScreeningID(ctx context.Context, screeningID uuid.UUID) (int64, error) {
	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM reservations WHERE screening_id = $1`, screeningID).Scan(&total); err != nil {
		r.log.Error("Failed to count reservations by screening", zap.Error(err), zap.String("screening_id", screeningID.String()))
		return 0, fmt.Errorf("count reservations of screening %s: %w", screeningID, err)
	}
	return total, nil
}
