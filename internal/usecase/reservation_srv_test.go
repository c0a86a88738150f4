package usecase

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"reflect"
	"sync"
	"testing"

	"movie-reservation/internal/data/entity"
	"movie-reservation/internal/dto/request"
	"movie-reservation/internal/notify"

	"github.com/google/uuid"
)

func seatsReq(labels ...string) *request.ReserveSeatsRequest {
	req := &request.ReserveSeatsRequest{}
	for _, l := range labels {
		var row string
		var n int
		fmt.Sscanf(l, "%1s%d", &row, &n)
		req.Seats = append(req.Seats, request.SeatRequest{Row: row, Number: n})
	}
	return req
}

func TestReserveScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sid := f.screening.ID.String()

	someone := f.addUser("someone", entity.RoleCustomer)
	user1 := f.addUser("user1", entity.RoleCustomer)
	user2 := f.addUser("user2", entity.RoleCustomer)

	if _, err := f.svc.Reservation.Reserve(ctx, sid, someone.ID, seatsReq("A1")); err != nil {
		t.Fatalf("Expected A1 to be reserved, got %v", err)
	}

	res, err := f.svc.Reservation.Reserve(ctx, sid, user1.ID, seatsReq("A2", "A3"))
	if err != nil {
		t.Fatalf("Expected user1 reservation, got %v", err)
	}
	if got := f.takenLabels(); !reflect.DeepEqual(got, []string{"A1", "A2", "A3"}) {
		t.Fatalf("Expected taken A1 A2 A3, got %v", got)
	}
	if res.TotalPrice != f.screening.Price {
		t.Errorf("Expected flat total %v, got %v", f.screening.Price, res.TotalPrice)
	}
	if res.PriceModel != "flat" {
		t.Errorf("Expected price model flat, got %s", res.PriceModel)
	}

	_, err = f.svc.Reservation.Reserve(ctx, sid, user2.ID, seatsReq("A2"))
	var conflict *SeatConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("Expected SeatConflictError, got %v", err)
	}
	if conflict.Seat != (entity.Seat{Row: "A", Number: 2}) {
		t.Errorf("Expected conflict on A2, got %s", conflict.Seat)
	}
	if !errors.Is(err, ErrSeatConflict) {
		t.Error("Expected error to match ErrSeatConflict")
	}

	if err := f.svc.Reservation.Cancel(ctx, sid, user1.ID); err != nil {
		t.Fatalf("Expected cancel to succeed, got %v", err)
	}
	if got := f.takenLabels(); !reflect.DeepEqual(got, []string{"A1"}) {
		t.Fatalf("Expected taken A1, got %v", got)
	}
	f.assertNoDrift(t)
}

func TestReserveConflictReportsFirstSeatInRequestOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sid := f.screening.ID.String()

	holder := f.addUser("holder", entity.RoleCustomer)
	if _, err := f.svc.Reservation.Reserve(ctx, sid, holder.ID, seatsReq("B2", "B5")); err != nil {
		t.Fatalf("setup: %v", err)
	}

	other := f.addUser("other", entity.RoleCustomer)
	_, err := f.svc.Reservation.Reserve(ctx, sid, other.ID, seatsReq("B7", "B5", "B2"))

	var conflict *SeatConflictError
	if !errors.As(err, &conflict) || conflict.Seat.String() != "B5" {
		t.Fatalf("Expected conflict on B5, got %v", err)
	}
}

func TestReserveConflictDoesNotMutateState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sid := f.screening.ID.String()

	holder := f.addUser("holder", entity.RoleCustomer)
	if _, err := f.svc.Reservation.Reserve(ctx, sid, holder.ID, seatsReq("C3")); err != nil {
		t.Fatalf("setup: %v", err)
	}
	versionBefore := f.store.screenings[f.screening.ID].SeatVersion
	eventsBefore := len(f.publisher.keys())

	other := f.addUser("other", entity.RoleCustomer)
	if _, err := f.svc.Reservation.Reserve(ctx, sid, other.ID, seatsReq("C4", "C3")); !errors.Is(err, ErrSeatConflict) {
		t.Fatalf("Expected seat conflict, got %v", err)
	}

	if got := f.takenLabels(); !reflect.DeepEqual(got, []string{"C3"}) {
		t.Errorf("Expected taken C3 only, got %v", got)
	}
	if v := f.store.screenings[f.screening.ID].SeatVersion; v != versionBefore {
		t.Errorf("Expected seat version %d, got %d", versionBefore, v)
	}
	if len(f.publisher.keys()) != eventsBefore {
		t.Error("Expected no event for a rejected reserve")
	}
}

func TestReserveValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.addUser("user", entity.RoleCustomer)
	sid := f.screening.ID.String()

	cases := map[string]struct {
		screeningID string
		req         *request.ReserveSeatsRequest
	}{
		"no seats":         {sid, &request.ReserveSeatsRequest{}},
		"lowercase row":    {sid, &request.ReserveSeatsRequest{Seats: []request.SeatRequest{{Row: "a", Number: 1}}}},
		"three letter row": {sid, &request.ReserveSeatsRequest{Seats: []request.SeatRequest{{Row: "ABC", Number: 1}}}},
		"zero number":      {sid, &request.ReserveSeatsRequest{Seats: []request.SeatRequest{{Row: "A", Number: 0}}}},
		"duplicate seat":   {sid, seatsReq("A1", "A1")},
		"row outside":      {sid, seatsReq("F1")},
		"number outside":   {sid, seatsReq("A11")},
		"bad screening id": {"not-a-uuid", seatsReq("A1")},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.Reservation.Reserve(ctx, tc.screeningID, user.ID, tc.req)
			if !errors.Is(err, ErrValidation) {
				t.Errorf("Expected validation error, got %v", err)
			}
		})
	}

	if len(f.takenLabels()) != 0 {
		t.Error("Expected no seats taken after invalid requests")
	}
}

func TestReserveUnknownScreening(t *testing.T) {
	f := newFixture(t)
	user := f.addUser("user", entity.RoleCustomer)

	_, err := f.svc.Reservation.Reserve(context.Background(), uuid.NewString(), user.ID, seatsReq("A1"))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestReserveTwiceOnSameScreening(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.addUser("user", entity.RoleCustomer)
	sid := f.screening.ID.String()

	if _, err := f.svc.Reservation.Reserve(ctx, sid, user.ID, seatsReq("A1")); err != nil {
		t.Fatalf("setup: %v", err)
	}
	_, err := f.svc.Reservation.Reserve(ctx, sid, user.ID, seatsReq("A2"))
	if !errors.Is(err, ErrDuplicateReservation) {
		t.Errorf("Expected ErrDuplicateReservation, got %v", err)
	}
}

func TestCancelWithoutReservation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sid := f.screening.ID.String()

	holder := f.addUser("holder", entity.RoleCustomer)
	if _, err := f.svc.Reservation.Reserve(ctx, sid, holder.ID, seatsReq("D1")); err != nil {
		t.Fatalf("setup: %v", err)
	}
	versionBefore := f.store.screenings[f.screening.ID].SeatVersion

	stranger := f.addUser("stranger", entity.RoleCustomer)
	if err := f.svc.Reservation.Cancel(ctx, sid, stranger.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}

	if got := f.takenLabels(); !reflect.DeepEqual(got, []string{"D1"}) {
		t.Errorf("Expected taken D1, got %v", got)
	}
	if v := f.store.screenings[f.screening.ID].SeatVersion; v != versionBefore {
		t.Errorf("Expected seat version %d, got %d", versionBefore, v)
	}
}

func TestReserveThenCancelRestoresTakenSet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sid := f.screening.ID.String()

	a := f.addUser("a", entity.RoleCustomer)
	if _, err := f.svc.Reservation.Reserve(ctx, sid, a.ID, seatsReq("E1", "E2")); err != nil {
		t.Fatalf("setup: %v", err)
	}
	before := f.takenLabels()

	b := f.addUser("b", entity.RoleCustomer)
	if _, err := f.svc.Reservation.Reserve(ctx, sid, b.ID, seatsReq("A5", "B5", "C5")); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := f.svc.Reservation.Cancel(ctx, sid, b.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if got := f.takenLabels(); !reflect.DeepEqual(got, before) {
		t.Errorf("Expected taken set %v, got %v", before, got)
	}
}

func TestConcurrentReservesOnOneSeat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sid := f.screening.ID.String()

	const n = 16
	users := make([]*entity.User, n)
	for i := range users {
		users[i] = f.addUser(fmt.Sprintf("racer%d", i), entity.RoleCustomer)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		rejected  int
		other     []error
	)
	start := make(chan struct{})
	for _, u := range users {
		wg.Add(1)
		go func(userID uuid.UUID) {
			defer wg.Done()
			<-start
			_, err := f.svc.Reservation.Reserve(ctx, sid, userID, seatsReq("A7"))

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrSeatConflict), errors.Is(err, ErrConcurrentUpdate):
				rejected++
			default:
				other = append(other, err)
			}
		}(u.ID)
	}
	close(start)
	wg.Wait()

	if successes != 1 {
		t.Errorf("Expected exactly 1 success, got %d", successes)
	}
	if rejected != n-1 {
		t.Errorf("Expected %d rejections, got %d (unexpected errors: %v)", n-1, rejected, other)
	}
	if got := f.takenLabels(); !reflect.DeepEqual(got, []string{"A7"}) {
		t.Errorf("Expected taken A7, got %v", got)
	}
	f.assertNoDrift(t)
}

func TestReserveRetriesAfterLostRace(t *testing.T) {
	f := newFixture(t)
	user := f.addUser("user", entity.RoleCustomer)
	f.store.forceStale = 1

	res, err := f.svc.Reservation.Reserve(context.Background(), f.screening.ID.String(), user.ID, seatsReq("A1"))
	if err != nil {
		t.Fatalf("Expected retry to succeed, got %v", err)
	}
	if res.Code == "" {
		t.Error("Expected a reservation code")
	}
	if f.store.casWrites != 2 {
		t.Errorf("Expected 2 write attempts, got %d", f.store.casWrites)
	}
}

func TestReserveBudgetExhausted(t *testing.T) {
	f := newFixture(t)
	user := f.addUser("user", entity.RoleCustomer)
	f.store.forceStale = 100

	_, err := f.svc.Reservation.Reserve(context.Background(), f.screening.ID.String(), user.ID, seatsReq("A1"))
	if !errors.Is(err, ErrConcurrentUpdate) {
		t.Fatalf("Expected ErrConcurrentUpdate, got %v", err)
	}
	if f.store.casWrites != 3 {
		t.Errorf("Expected 3 write attempts, got %d", f.store.casWrites)
	}
	if len(f.takenLabels()) != 0 {
		t.Error("Expected no seats taken")
	}
}

func TestCancelBudgetExhausted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.addUser("user", entity.RoleCustomer)
	sid := f.screening.ID.String()

	if _, err := f.svc.Reservation.Reserve(ctx, sid, user.ID, seatsReq("A1")); err != nil {
		t.Fatalf("setup: %v", err)
	}
	f.store.forceStale = 100

	if err := f.svc.Reservation.Cancel(ctx, sid, user.ID); !errors.Is(err, ErrConcurrentUpdate) {
		t.Fatalf("Expected ErrConcurrentUpdate, got %v", err)
	}
	if got := f.takenLabels(); !reflect.DeepEqual(got, []string{"A1"}) {
		t.Errorf("Expected taken A1, got %v", got)
	}
}

func TestRandomSequenceHasNoDrift(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sid := f.screening.ID.String()
	rng := rand.New(rand.NewSource(42))

	users := make([]*entity.User, 6)
	for i := range users {
		users[i] = f.addUser(fmt.Sprintf("u%d", i), entity.RoleCustomer)
	}

	for step := 0; step < 200; step++ {
		u := users[rng.Intn(len(users))]
		if rng.Intn(3) == 0 {
			err := f.svc.Reservation.Cancel(ctx, sid, u.ID)
			if err != nil && !errors.Is(err, ErrNotFound) {
				t.Fatalf("step %d cancel: %v", step, err)
			}
		} else {
			var labels []string
			for k := 0; k < 1+rng.Intn(3); k++ {
				labels = append(labels, fmt.Sprintf("%s%d", entity.RowLabel(rng.Intn(5)), 1+rng.Intn(10)))
			}
			_, err := f.svc.Reservation.Reserve(ctx, sid, u.ID, seatsReq(labels...))
			if err != nil && !errors.Is(err, ErrSeatConflict) && !errors.Is(err, ErrDuplicateReservation) && !errors.Is(err, ErrValidation) {
				t.Fatalf("step %d reserve %v: %v", step, labels, err)
			}
		}
		f.assertNoDrift(t)
	}
}

func TestReserveAndCancelPublishAndInvalidate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.addUser("user", entity.RoleCustomer)
	sid := f.screening.ID.String()

	if _, err := f.svc.Reservation.Reserve(ctx, sid, user.ID, seatsReq("A1")); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := f.svc.Reservation.Cancel(ctx, sid, user.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	want := []string{notify.RoutingReservationCreated, notify.RoutingReservationCancelled}
	if got := f.publisher.keys(); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected events %v, got %v", want, got)
	}
	if len(f.cache.invalidated) != 2 {
		t.Errorf("Expected 2 cache invalidations, got %d", len(f.cache.invalidated))
	}

	ev, ok := f.publisher.msgs[0].payload.(notify.ReservationEvent)
	if !ok {
		t.Fatalf("Expected ReservationEvent payload, got %T", f.publisher.msgs[0].payload)
	}
	if ev.UserID != user.ID || !ev.StartsAt.Equal(f.screening.StartsAt) {
		t.Errorf("Unexpected event %+v", ev)
	}
}

func TestAvailabilityReadsThroughCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.addUser("user", entity.RoleCustomer)
	sid := f.screening.ID.String()

	if _, err := f.svc.Reservation.Reserve(ctx, sid, user.ID, seatsReq("B1", "A2")); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	taken, err := f.svc.Reservation.ListTakenSeats(ctx, sid)
	if err != nil {
		t.Fatalf("list taken: %v", err)
	}
	if len(taken) != 2 || taken[0].Label != "A2" || taken[1].Label != "B1" {
		t.Errorf("Expected taken [A2 B1], got %+v", taken)
	}
	if _, ok := f.cache.entries[f.screening.ID]; !ok {
		t.Error("Expected the taken set to be cached")
	}

	seatMap, err := f.svc.Reservation.ListAvailability(ctx, sid)
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	if seatMap.Capacity != 50 || seatMap.AvailableCount != 48 {
		t.Errorf("Expected 48 of 50 available, got %d of %d", seatMap.AvailableCount, seatMap.Capacity)
	}
	if seatMap.Rows[0].Seats[1].Available {
		t.Error("Expected A2 to be unavailable")
	}
}

func TestListTakenSeatsUnknownScreening(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Reservation.ListTakenSeats(context.Background(), uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if _, err := f.svc.Reservation.ListAvailability(context.Background(), uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestTicketQRAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.addUser("owner", entity.RoleCustomer)
	other := f.addUser("other", entity.RoleCustomer)
	admin := f.addUser("admin", entity.RoleAdmin)

	res, err := f.svc.Reservation.Reserve(ctx, f.screening.ID.String(), owner.ID, seatsReq("A1"))
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}

	png, err := f.svc.Reservation.TicketQR(ctx, res.ID, owner.ID, false)
	if err != nil {
		t.Fatalf("Expected owner to get the ticket, got %v", err)
	}
	if len(png) < 8 || string(png[1:4]) != "PNG" {
		t.Error("Expected PNG bytes")
	}

	if _, err := f.svc.Reservation.TicketQR(ctx, res.ID, other.ID, false); !errors.Is(err, ErrForbidden) {
		t.Errorf("Expected ErrForbidden for another user, got %v", err)
	}
	if _, err := f.svc.Reservation.TicketQR(ctx, res.ID, admin.ID, true); err != nil {
		t.Errorf("Expected admin to get the ticket, got %v", err)
	}
	if _, err := f.svc.Reservation.TicketQR(ctx, uuid.NewString(), owner.ID, false); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestListReservations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sid := f.screening.ID.String()

	alice := f.addUser("alice", entity.RoleCustomer)
	bob := f.addUser("bob", entity.RoleCustomer)

	if _, err := f.svc.Reservation.Reserve(ctx, sid, alice.ID, seatsReq("B1", "B2")); err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}
	if _, err := f.svc.Reservation.Reserve(ctx, sid, bob.ID, seatsReq("C5")); err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}

	mine, err := f.svc.Reservation.ListUserReservations(ctx, alice.ID, &request.PaginatedRequest{Page: 1, PerPage: 10})
	if err != nil {
		t.Fatalf("ListUserReservations failed: %v", err)
	}
	if mine.Pagination.Total != 1 || len(mine.Data) != 1 {
		t.Fatalf("Expected exactly alice's reservation, got %+v", mine.Pagination)
	}
	if len(mine.Data[0].Seats) != 2 || mine.Data[0].Seats[0].Label != "B1" {
		t.Errorf("Unexpected seats %+v", mine.Data[0].Seats)
	}

	all, err := f.svc.Reservation.ListScreeningReservations(ctx, sid)
	if err != nil {
		t.Fatalf("ListScreeningReservations failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("Expected 2 reservations on the screening, got %d", len(all))
	}

	if _, err := f.svc.Reservation.ListScreeningReservations(ctx, uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown screening, got %v", err)
	}
}
