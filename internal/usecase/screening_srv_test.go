package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"movie-reservation/internal/data/entity"
	"movie-reservation/internal/dto/request"

	"github.com/google/uuid"
)

func ts(t time.Time) string { return t.Format(time.RFC3339) }

func TestCreateScreening(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := f.screening.EndsAt.Add(30 * time.Minute)

	resp, err := f.svc.Screening.CreateScreening(ctx, &request.ScreeningRequest{
		MovieID:      f.screening.MovieID.String(),
		AuditoriumID: f.screening.AuditoriumID.String(),
		StartsAt:     ts(start),
		EndsAt:       ts(start.Add(2 * time.Hour)),
		Price:        45000,
	})
	if err != nil {
		t.Fatalf("Expected create to succeed, got %v", err)
	}
	if resp.PriceModel != "flat" || resp.Price != 45000 {
		t.Errorf("Unexpected response %+v", resp)
	}
}

func TestCreateScreeningRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := request.ScreeningRequest{
		MovieID:      f.screening.MovieID.String(),
		AuditoriumID: f.screening.AuditoriumID.String(),
		StartsAt:     ts(f.screening.StartsAt.Add(time.Hour)),
		EndsAt:       ts(f.screening.EndsAt.Add(time.Hour)),
		Price:        45000,
	}

	overlap := base
	if _, err := f.svc.Screening.CreateScreening(ctx, &overlap); !errors.Is(err, ErrConflict) {
		t.Errorf("Expected overlap to be a conflict, got %v", err)
	}

	backwards := base
	backwards.StartsAt, backwards.EndsAt = base.EndsAt, base.StartsAt
	if _, err := f.svc.Screening.CreateScreening(ctx, &backwards); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ends_at before starts_at to be invalid, got %v", err)
	}

	noMovie := base
	noMovie.MovieID = uuid.NewString()
	if _, err := f.svc.Screening.CreateScreening(ctx, &noMovie); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected unknown movie to be not found, got %v", err)
	}

	free := base
	free.Price = 0
	if _, err := f.svc.Screening.CreateScreening(ctx, &free); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected zero price to be invalid, got %v", err)
	}
}

func TestDeleteScreeningWithReservations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sid := f.screening.ID.String()
	user := f.addUser("user", entity.RoleCustomer)

	if _, err := f.svc.Reservation.Reserve(ctx, sid, user.ID, seatsReq("A1")); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := f.svc.Screening.DeleteScreening(ctx, sid); !errors.Is(err, ErrConflict) {
		t.Fatalf("Expected ErrConflict, got %v", err)
	}

	if err := f.svc.Reservation.Cancel(ctx, sid, user.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := f.svc.Screening.DeleteScreening(ctx, sid); err != nil {
		t.Fatalf("Expected delete to succeed, got %v", err)
	}
	if _, err := f.svc.Screening.GetScreening(ctx, sid); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected deleted screening to be gone, got %v", err)
	}
}

func TestUpdateScreeningKeepsSeatVersion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sid := f.screening.ID.String()
	user := f.addUser("user", entity.RoleCustomer)

	if _, err := f.svc.Reservation.Reserve(ctx, sid, user.ID, seatsReq("A1")); err != nil {
		t.Fatalf("setup: %v", err)
	}
	version := f.store.screenings[f.screening.ID].SeatVersion

	price := 60000.0
	resp, err := f.svc.Screening.UpdateScreening(ctx, sid, &request.ScreeningUpdateRequest{Price: &price})
	if err != nil {
		t.Fatalf("Expected update to succeed, got %v", err)
	}
	if resp.Price != price {
		t.Errorf("Expected price %v, got %v", price, resp.Price)
	}
	if v := f.store.screenings[f.screening.ID].SeatVersion; v != version {
		t.Errorf("Expected seat version %d to be untouched, got %d", version, v)
	}

	other := &entity.Auditorium{Base: entity.NewBase(time.Now()), Name: "Hall 2", RowCount: 2, SeatsPerRow: 2}
	f.store.auditoriums[other.ID] = other
	otherID := other.ID.String()
	if _, err := f.svc.Screening.UpdateScreening(ctx, sid, &request.ScreeningUpdateRequest{AuditoriumID: &otherID}); !errors.Is(err, ErrConflict) {
		t.Errorf("Expected moving a reserved screening to be a conflict, got %v", err)
	}
}

func TestListByMovieReturnsUpcoming(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	past := &entity.Screening{
		Base:         entity.NewBase(time.Now()),
		MovieID:      f.screening.MovieID,
		AuditoriumID: f.screening.AuditoriumID,
		StartsAt:     time.Now().Add(-48 * time.Hour),
		EndsAt:       time.Now().Add(-46 * time.Hour),
		Price:        1,
	}
	f.store.screenings[past.ID] = past

	list, err := f.svc.Screening.ListByMovie(ctx, f.screening.MovieID.String())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID != f.screening.ID.String() {
		t.Errorf("Expected only the upcoming screening, got %+v", list)
	}

	if _, err := f.svc.Screening.ListByMovie(ctx, uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for an unknown movie, got %v", err)
	}
}
