package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"movie-reservation/internal/data/cache"
	"movie-reservation/internal/data/entity"
	"movie-reservation/internal/data/repository"
	"movie-reservation/internal/dto/request"
	"movie-reservation/internal/dto/response"
	"movie-reservation/internal/notify"
	"movie-reservation/pkg/broker"
	"movie-reservation/pkg/utils"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

const defaultMaxAttempts = 3

// ReservationService is the seat inventory controller. Reserve and Cancel are
// each one store transaction guarded by the screening's seat version; the
// availability reads may be served from the display cache.
type ReservationService interface {
	Reserve(ctx context.Context, screeningID string, userID uuid.UUID, req *request.ReserveSeatsRequest) (*response.ReservationResponse, error)
	Cancel(ctx context.Context, screeningID string, userID uuid.UUID) error
	ListTakenSeats(ctx context.Context, screeningID string) ([]response.SeatResponse, error)
	ListAvailability(ctx context.Context, screeningID string) (*response.SeatMapResponse, error)

	ListUserReservations(ctx context.Context, userID uuid.UUID, req *request.PaginatedRequest) (*response.PaginatedResponse[response.ReservationResponse], error)
	ListScreeningReservations(ctx context.Context, screeningID string) ([]response.ReservationResponse, error)
	TicketQR(ctx context.Context, reservationID string, userID uuid.UUID, isAdmin bool) ([]byte, error)
}

type reservationService struct {
	repo        *repository.Repository
	cache       cache.SeatCache
	publisher   broker.Publisher
	maxAttempts int
	log         *zap.Logger
	now         func() time.Time
}

func NewReservationService(
	repo *repository.Repository,
	seatCache cache.SeatCache,
	publisher broker.Publisher,
	config utils.ReservationConfig,
	log *zap.Logger,
) ReservationService {
	maxAttempts := config.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = defaultMaxAttempts
	}
	return &reservationService{
		repo:        repo,
		cache:       seatCache,
		publisher:   publisher,
		maxAttempts: maxAttempts,
		log:         log.With(zap.String("service", "reservation")),
		now:         time.Now,
	}
}

// ==================== RESERVE ====================

func (s *reservationService) Reserve(ctx context.Context, screeningID string, userID uuid.UUID, req *request.ReserveSeatsRequest) (*response.ReservationResponse, error) {
	// 1. Validate shape of the request
	if err := validate(req); err != nil {
		return nil, err
	}
	id, err := parseID("screening", screeningID)
	if err != nil {
		return nil, err
	}

	seats := make([]entity.Seat, len(req.Seats))
	seen := make(map[entity.Seat]struct{}, len(req.Seats))
	for i, sr := range req.Seats {
		seat := entity.Seat{Row: sr.Row, Number: sr.Number}
		if _, dup := seen[seat]; dup {
			return nil, newValidationError("seat %s requested more than once", seat)
		}
		seen[seat] = struct{}{}
		seats[i] = seat
	}

	// 2. Read, check and write; a lost version race re-runs the whole cycle
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res, screening, err := s.tryReserve(ctx, id, userID, seats)
		if errors.Is(err, repository.ErrStaleInventory) {
			s.log.Debug("Reserve lost a version race, retrying",
				zap.String("screening_id", id.String()),
				zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return nil, err
		}

		// 3. Committed: refresh display data and tell the world
		s.afterCommit(ctx, notify.RoutingReservationCreated, res, screening)

		s.log.Info("Seats reserved",
			zap.String("reservation_id", res.ID.String()),
			zap.String("code", res.Code),
			zap.String("screening_id", id.String()),
			zap.String("user_id", userID.String()),
			zap.Int("seats", len(res.Seats)),
			zap.Int("attempt", attempt))

		resp := response.ReservationToResponse(res)
		return &resp, nil
	}

	s.log.Warn("Reserve retry budget exhausted",
		zap.String("screening_id", id.String()),
		zap.String("user_id", userID.String()),
		zap.Int("attempts", s.maxAttempts))
	return nil, fmt.Errorf("reserve on screening %s after %d attempts: %w", id, s.maxAttempts, ErrConcurrentUpdate)
}

func (s *reservationService) tryReserve(ctx context.Context, screeningID, userID uuid.UUID, seats []entity.Seat) (*entity.Reservation, *entity.Screening, error) {
	inv, err := s.repo.Reservation.LoadInventory(ctx, screeningID)
	if err != nil {
		return nil, nil, fmt.Errorf("load seat inventory: %w", err)
	}
	if inv == nil {
		return nil, nil, fmt.Errorf("screening %s: %w", screeningID, ErrNotFound)
	}

	for _, seat := range seats {
		if !inv.Auditorium.Contains(seat) {
			return nil, nil, newValidationError("seat %s is outside the auditorium layout (rows %s-%s, seats 1-%d)",
				seat, entity.RowLabel(0), entity.RowLabel(inv.Auditorium.RowCount-1), inv.Auditorium.SeatsPerRow)
		}
	}

	existing, err := s.repo.Reservation.FindActiveByUserAndScreening(ctx, userID, screeningID)
	if err != nil {
		return nil, nil, fmt.Errorf("check existing reservation: %w", err)
	}
	if existing != nil {
		return nil, nil, fmt.Errorf("reservation %s: %w", existing.Code, ErrDuplicateReservation)
	}

	if seat, taken := inv.FirstConflict(seats); taken {
		return nil, nil, &SeatConflictError{Seat: seat}
	}

	ordered := make([]entity.Seat, len(seats))
	copy(ordered, seats)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Less(ordered[j]) })

	now := s.now().UTC()
	res := &entity.Reservation{
		BaseSimple:  entity.NewBaseSimple(now),
		Code:        utils.GenerateReservationCode(now),
		UserID:      userID,
		ScreeningID: screeningID,
		// flat price: one screening price per reservation
		TotalPrice: inv.Screening.Price,
		Seats:      ordered,
	}

	if err := s.repo.Reservation.CreateWithSeats(ctx, inv.Version(), res); err != nil {
		return nil, nil, err
	}
	return res, inv.Screening, nil
}

// ==================== CANCEL ====================

func (s *reservationService) Cancel(ctx context.Context, screeningID string, userID uuid.UUID) error {
	id, err := parseID("screening", screeningID)
	if err != nil {
		return err
	}

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		res, err := s.tryCancel(ctx, id, userID)
		if errors.Is(err, repository.ErrStaleInventory) {
			s.log.Debug("Cancel lost a version race, retrying",
				zap.String("screening_id", id.String()),
				zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return err
		}

		screening, err := s.repo.Screening.FindByID(ctx, id)
		if err != nil {
			s.log.Warn("Failed to load screening for cancel event", zap.Error(err))
		}
		s.afterCommit(ctx, notify.RoutingReservationCancelled, res, screening)

		s.log.Info("Reservation cancelled",
			zap.String("reservation_id", res.ID.String()),
			zap.String("code", res.Code),
			zap.String("screening_id", id.String()),
			zap.String("user_id", userID.String()),
			zap.Int("attempt", attempt))
		return nil
	}

	s.log.Warn("Cancel retry budget exhausted",
		zap.String("screening_id", id.String()),
		zap.String("user_id", userID.String()))
	return fmt.Errorf("cancel on screening %s after %d attempts: %w", id, s.maxAttempts, ErrConcurrentUpdate)
}

func (s *reservationService) tryCancel(ctx context.Context, screeningID, userID uuid.UUID) (*entity.Reservation, error) {
	res, err := s.repo.Reservation.FindActiveByUserAndScreening(ctx, userID, screeningID)
	if err != nil {
		return nil, fmt.Errorf("find reservation: %w", err)
	}
	if res == nil {
		return nil, fmt.Errorf("no reservation of user %s on screening %s: %w", userID, screeningID, ErrNotFound)
	}

	version, err := s.repo.Reservation.SeatVersion(ctx, screeningID)
	if errors.Is(err, repository.ErrNoRowsAffected) {
		return nil, fmt.Errorf("screening %s: %w", screeningID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read seat version: %w", err)
	}

	if err := s.repo.Reservation.DeleteWithSeats(ctx, version, res); err != nil {
		return nil, err
	}
	return res, nil
}

// afterCommit runs once the store has committed. Nothing here can undo the
// reservation, so failures are only logged.
func (s *reservationService) afterCommit(ctx context.Context, routingKey string, res *entity.Reservation, screening *entity.Screening) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := s.cache.Invalidate(ctx, res.ScreeningID); err != nil {
		s.log.Warn("Failed to invalidate seat map cache",
			zap.Error(err),
			zap.String("screening_id", res.ScreeningID.String()))
	}

	var startsAt time.Time
	if screening != nil {
		startsAt = screening.StartsAt
	}
	event := notify.NewReservationEvent(res, startsAt, s.now().UTC())
	if err := s.publisher.Publish(ctx, routingKey, event); err != nil {
		s.log.Warn("Failed to publish reservation event",
			zap.Error(err),
			zap.String("routing_key", routingKey),
			zap.String("reservation_id", res.ID.String()))
	}
}

// ==================== AVAILABILITY ====================

func (s *reservationService) ListTakenSeats(ctx context.Context, screeningID string) ([]response.SeatResponse, error) {
	screening, err := s.findScreening(ctx, screeningID)
	if err != nil {
		return nil, err
	}

	taken, err := s.takenSeats(ctx, screening.ID)
	if err != nil {
		return nil, err
	}
	return response.SeatsToResponse(taken), nil
}

func (s *reservationService) ListAvailability(ctx context.Context, screeningID string) (*response.SeatMapResponse, error) {
	screening, err := s.findScreening(ctx, screeningID)
	if err != nil {
		return nil, err
	}

	auditorium, err := s.repo.Auditorium.FindByID(ctx, screening.AuditoriumID)
	if err != nil {
		return nil, fmt.Errorf("get auditorium: %w", err)
	}
	if auditorium == nil {
		return nil, fmt.Errorf("auditorium %s: %w", screening.AuditoriumID, ErrNotFound)
	}

	taken, err := s.takenSeats(ctx, screening.ID)
	if err != nil {
		return nil, err
	}

	seatMap := response.BuildSeatMap(screening, auditorium, taken)
	return &seatMap, nil
}

func (s *reservationService) findScreening(ctx context.Context, screeningID string) (*entity.Screening, error) {
	id, err := parseID("screening", screeningID)
	if err != nil {
		return nil, err
	}

	screening, err := s.repo.Screening.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get screening: %w", err)
	}
	if screening == nil {
		return nil, fmt.Errorf("screening %s: %w", id, ErrNotFound)
	}
	return screening, nil
}

// takenSeats reads through the display cache. Cache errors fall back to the store.
func (s *reservationService) takenSeats(ctx context.Context, screeningID uuid.UUID) ([]entity.Seat, error) {
	seats, ok, err := s.cache.GetTaken(ctx, screeningID)
	if err != nil {
		s.log.Warn("Seat map cache read failed", zap.Error(err), zap.String("screening_id", screeningID.String()))
	} else if ok {
		return seats, nil
	}

	seats, err = s.repo.ReservedSeat.FindTakenByScreening(ctx, screeningID)
	if err != nil {
		return nil, fmt.Errorf("list taken seats: %w", err)
	}

	if err := s.cache.SetTaken(ctx, screeningID, seats); err != nil {
		s.log.Warn("Seat map cache fill failed", zap.Error(err), zap.String("screening_id", screeningID.String()))
	}
	return seats, nil
}

// ==================== LISTINGS & TICKETS ====================

func (s *reservationService) ListUserReservations(ctx context.Context, userID uuid.UUID, req *request.PaginatedRequest) (*response.PaginatedResponse[response.ReservationResponse], error) {
	reservations, err := s.repo.Reservation.FindByUserID(ctx, userID, req.Offset(), req.Limit())
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}

	total, err := s.repo.Reservation.CountByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count reservations: %w", err)
	}

	data := make([]response.ReservationResponse, len(reservations))
	for i, r := range reservations {
		data[i] = response.ReservationToResponse(r)
	}
	return response.NewPaginatedResponse(data, req.Page, req.Limit(), total), nil
}

func (s *reservationService) ListScreeningReservations(ctx context.Context, screeningID string) ([]response.ReservationResponse, error) {
	screening, err := s.findScreening(ctx, screeningID)
	if err != nil {
		return nil, err
	}

	reservations, err := s.repo.Reservation.FindByScreeningID(ctx, screening.ID)
	if err != nil {
		return nil, fmt.Errorf("list reservations of screening: %w", err)
	}

	out := make([]response.ReservationResponse, len(reservations))
	for i, r := range reservations {
		out[i] = response.ReservationToResponse(r)
	}
	return out, nil
}

// TicketQR renders the reservation code as a PNG. Only the owner or an admin may fetch it.
func (s *reservationService) TicketQR(ctx context.Context, reservationID string, userID uuid.UUID, isAdmin bool) ([]byte, error) {
	id, err := parseID("reservation", reservationID)
	if err != nil {
		return nil, err
	}

	res, err := s.repo.Reservation.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get reservation: %w", err)
	}
	if res == nil {
		return nil, fmt.Errorf("reservation %s: %w", id, ErrNotFound)
	}
	if res.UserID != userID && !isAdmin {
		return nil, fmt.Errorf("reservation %s belongs to another user: %w", id, ErrForbidden)
	}

	png, err := qrcode.Encode(res.Code, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("encode ticket qr: %w", err)
	}
	return png, nil
}
