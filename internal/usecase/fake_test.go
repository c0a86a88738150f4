package usecase

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"movie-reservation/internal/data/entity"
	"movie-reservation/internal/data/repository"
	"movie-reservation/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap/zaptest"
)

// memStore is an in-memory seat inventory honouring the same version CAS as
// the postgres repository. All adapters share one mutex.
type memStore struct {
	mu           sync.Mutex
	users        map[uuid.UUID]*entity.User
	sessions     map[string]*entity.Session
	movies       map[uuid.UUID]*entity.Movie
	auditoriums  map[uuid.UUID]*entity.Auditorium
	screenings   map[uuid.UUID]*entity.Screening
	reservations map[uuid.UUID]*entity.Reservation
	taken        map[uuid.UUID]map[entity.Seat]uuid.UUID

	// forceStale makes the next n CAS writes fail as if another writer won
	forceStale int
	casWrites  int
}

func newMemStore() *memStore {
	return &memStore{
		users:        map[uuid.UUID]*entity.User{},
		sessions:     map[string]*entity.Session{},
		movies:       map[uuid.UUID]*entity.Movie{},
		auditoriums:  map[uuid.UUID]*entity.Auditorium{},
		screenings:   map[uuid.UUID]*entity.Screening{},
		reservations: map[uuid.UUID]*entity.Reservation{},
		taken:        map[uuid.UUID]map[entity.Seat]uuid.UUID{},
	}
}

func (m *memStore) repo() *repository.Repository {
	return &repository.Repository{
		User:         fakeUsers{m},
		Session:      fakeSessions{m},
		Movie:        fakeMovies{m},
		Auditorium:   fakeAuditoriums{m},
		Screening:    fakeScreenings{m},
		Reservation:  fakeReservations{m},
		ReservedSeat: fakeReservedSeats{m},
	}
}

func sortSeats(seats []entity.Seat) []entity.Seat {
	sort.Slice(seats, func(i, j int) bool { return seats[i].Less(seats[j]) })
	return seats
}

func (m *memStore) takenSeats(screeningID uuid.UUID) []entity.Seat {
	seats := []entity.Seat{}
	for seat := range m.taken[screeningID] {
		seats = append(seats, seat)
	}
	return sortSeats(seats)
}

// ----- users -----

type fakeUsers struct{ m *memStore }

func (f fakeUsers) Create(_ context.Context, u *entity.User) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	for _, other := range f.m.users {
		if other.Email == u.Email || other.Username == u.Username {
			return repository.ErrDuplicateKey
		}
	}
	cp := *u
	f.m.users[u.ID] = &cp
	return nil
}

func (f fakeUsers) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	if u, ok := f.m.users[id]; ok && u.DeletedAt == nil {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (f fakeUsers) find(match func(*entity.User) bool) *entity.User {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	for _, u := range f.m.users {
		if u.DeletedAt == nil && match(u) {
			cp := *u
			return &cp
		}
	}
	return nil
}

func (f fakeUsers) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	return f.find(func(u *entity.User) bool { return u.Email == email }), nil
}

func (f fakeUsers) FindByUsername(_ context.Context, username string) (*entity.User, error) {
	return f.find(func(u *entity.User) bool { return u.Username == username }), nil
}

func (f fakeUsers) FindAll(_ context.Context, limit, offset int) ([]*entity.User, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	var all []*entity.User
	for _, u := range f.m.users {
		if u.DeletedAt == nil {
			cp := *u
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Username < all[j].Username })
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (f fakeUsers) CountAll(ctx context.Context) (int64, error) {
	all, _ := f.FindAll(ctx, 1<<30, 0)
	return int64(len(all)), nil
}

func (f fakeUsers) SetBanned(_ context.Context, id uuid.UUID, banned bool, at time.Time) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	u, ok := f.m.users[id]
	if !ok || u.DeletedAt != nil {
		return repository.ErrNoRowsAffected
	}
	u.IsBanned = banned
	u.BannedAt = nil
	if banned {
		u.BannedAt = &at
	}
	return nil
}

func (f fakeUsers) Delete(_ context.Context, id uuid.UUID) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	u, ok := f.m.users[id]
	if !ok || u.DeletedAt != nil {
		return repository.ErrNoRowsAffected
	}
	now := time.Now()
	u.DeletedAt = &now
	return nil
}

// ----- sessions -----

type fakeSessions struct{ m *memStore }

func (f fakeSessions) Create(_ context.Context, s *entity.Session) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	cp := *s
	f.m.sessions[s.Token.String()] = &cp
	return nil
}

func (f fakeSessions) FindValidSession(_ context.Context, token string) (*entity.Session, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	if s, ok := f.m.sessions[token]; ok && s.IsValid(time.Now()) {
		cp := *s
		return &cp, nil
	}
	return nil, nil
}

func (f fakeSessions) Revoke(_ context.Context, token string) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	s, ok := f.m.sessions[token]
	if !ok || s.RevokedAt != nil {
		return repository.ErrNoRowsAffected
	}
	now := time.Now()
	s.RevokedAt = &now
	return nil
}

func (f fakeSessions) RevokeAllUserSessions(_ context.Context, userID uuid.UUID) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	now := time.Now()
	for _, s := range f.m.sessions {
		if s.UserID == userID && s.RevokedAt == nil {
			s.RevokedAt = &now
		}
	}
	return nil
}

func (f fakeSessions) CleanExpiredSessions(_ context.Context, cutoff time.Time) (int64, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	var n int64
	for token, s := range f.m.sessions {
		if s.ExpiresAt.Before(cutoff) || (s.RevokedAt != nil && s.RevokedAt.Before(cutoff)) {
			delete(f.m.sessions, token)
			n++
		}
	}
	return n, nil
}

// ----- movies -----

type fakeMovies struct{ m *memStore }

func (f fakeMovies) Create(_ context.Context, movie *entity.Movie) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	cp := *movie
	f.m.movies[movie.ID] = &cp
	return nil
}

func (f fakeMovies) FindByID(_ context.Context, id uuid.UUID) (*entity.Movie, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	if movie, ok := f.m.movies[id]; ok && movie.DeletedAt == nil {
		cp := *movie
		return &cp, nil
	}
	return nil, nil
}

func (f fakeMovies) Update(_ context.Context, movie *entity.Movie) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	if existing, ok := f.m.movies[movie.ID]; !ok || existing.DeletedAt != nil {
		return repository.ErrNoRowsAffected
	}
	cp := *movie
	f.m.movies[movie.ID] = &cp
	return nil
}

func (f fakeMovies) Delete(_ context.Context, id uuid.UUID) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	movie, ok := f.m.movies[id]
	if !ok || movie.DeletedAt != nil {
		return repository.ErrNoRowsAffected
	}
	now := time.Now()
	movie.DeletedAt = &now
	return nil
}

func (f fakeMovies) FindAll(_ context.Context, offset, limit int, releaseStatus *string) ([]*entity.Movie, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	var all []*entity.Movie
	for _, movie := range f.m.movies {
		if movie.DeletedAt != nil {
			continue
		}
		if releaseStatus != nil && *releaseStatus != "" && string(movie.ReleaseStatus) != *releaseStatus {
			continue
		}
		cp := *movie
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ReleaseDate.After(all[j].ReleaseDate) })
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (f fakeMovies) CountAll(ctx context.Context, releaseStatus *string) (int64, error) {
	all, _ := f.FindAll(ctx, 0, 1<<30, releaseStatus)
	return int64(len(all)), nil
}

// ----- auditoriums -----

type fakeAuditoriums struct{ m *memStore }

func (f fakeAuditoriums) Create(_ context.Context, a *entity.Auditorium) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	for _, other := range f.m.auditoriums {
		if other.Name == a.Name {
			return repository.ErrDuplicateKey
		}
	}
	cp := *a
	f.m.auditoriums[a.ID] = &cp
	return nil
}

func (f fakeAuditoriums) FindByID(_ context.Context, id uuid.UUID) (*entity.Auditorium, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	if a, ok := f.m.auditoriums[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, nil
}

func (f fakeAuditoriums) FindByName(_ context.Context, name string) (*entity.Auditorium, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	for _, a := range f.m.auditoriums {
		if a.Name == name {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (f fakeAuditoriums) FindAll(_ context.Context, offset, limit int) ([]*entity.Auditorium, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	var all []*entity.Auditorium
	for _, a := range f.m.auditoriums {
		cp := *a
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (f fakeAuditoriums) CountAll(context.Context) (int64, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	return int64(len(f.m.auditoriums)), nil
}

// ----- screenings -----

type fakeScreenings struct{ m *memStore }

func (f fakeScreenings) Create(_ context.Context, s *entity.Screening) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	cp := *s
	f.m.screenings[s.ID] = &cp
	return nil
}

func (f fakeScreenings) FindByID(_ context.Context, id uuid.UUID) (*entity.Screening, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	if s, ok := f.m.screenings[id]; ok && s.DeletedAt == nil {
		cp := *s
		return &cp, nil
	}
	return nil, nil
}

func (f fakeScreenings) FindByMovieID(_ context.Context, movieID uuid.UUID, from time.Time) ([]*entity.Screening, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	var out []*entity.Screening
	for _, s := range f.m.screenings {
		if s.DeletedAt == nil && s.MovieID == movieID && !s.StartsAt.Before(from) {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, nil
}

func (f fakeScreenings) FindOverlapping(_ context.Context, auditoriumID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) ([]*entity.Screening, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	var out []*entity.Screening
	for _, s := range f.m.screenings {
		if s.DeletedAt != nil || s.AuditoriumID != auditoriumID {
			continue
		}
		if excludeID != nil && s.ID == *excludeID {
			continue
		}
		if s.Overlaps(start, end) {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f fakeScreenings) Update(_ context.Context, s *entity.Screening) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	existing, ok := f.m.screenings[s.ID]
	if !ok || existing.DeletedAt != nil {
		return repository.ErrNoRowsAffected
	}
	version := existing.SeatVersion
	cp := *s
	cp.SeatVersion = version
	f.m.screenings[s.ID] = &cp
	return nil
}

func (f fakeScreenings) Delete(_ context.Context, id uuid.UUID) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	s, ok := f.m.screenings[id]
	if !ok || s.DeletedAt != nil {
		return repository.ErrNoRowsAffected
	}
	now := time.Now()
	s.DeletedAt = &now
	return nil
}

// ----- reservations -----

type fakeReservations struct{ m *memStore }

func copyReservation(r *entity.Reservation) *entity.Reservation {
	cp := *r
	cp.Seats = sortSeats(append([]entity.Seat(nil), r.Seats...))
	return &cp
}

func (f fakeReservations) LoadInventory(_ context.Context, screeningID uuid.UUID) (*entity.SeatInventory, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	s, ok := f.m.screenings[screeningID]
	if !ok || s.DeletedAt != nil {
		return nil, nil
	}
	a := *f.m.auditoriums[s.AuditoriumID]
	sc := *s
	return &entity.SeatInventory{Screening: &sc, Auditorium: &a, Taken: f.m.takenSeats(screeningID)}, nil
}

func (f fakeReservations) SeatVersion(_ context.Context, screeningID uuid.UUID) (int64, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	s, ok := f.m.screenings[screeningID]
	if !ok || s.DeletedAt != nil {
		return 0, repository.ErrNoRowsAffected
	}
	return s.SeatVersion, nil
}

// cas must be called with the lock held
func (f fakeReservations) cas(screeningID uuid.UUID, expected int64) error {
	f.m.casWrites++
	if f.m.forceStale > 0 {
		f.m.forceStale--
		return repository.ErrStaleInventory
	}
	s, ok := f.m.screenings[screeningID]
	if !ok || s.DeletedAt != nil || s.SeatVersion != expected {
		return repository.ErrStaleInventory
	}
	s.SeatVersion++
	return nil
}

func (f fakeReservations) CreateWithSeats(_ context.Context, expected int64, r *entity.Reservation) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	if err := f.cas(r.ScreeningID, expected); err != nil {
		return err
	}
	taken := f.m.taken[r.ScreeningID]
	if taken == nil {
		taken = map[entity.Seat]uuid.UUID{}
		f.m.taken[r.ScreeningID] = taken
	}
	for _, seat := range r.Seats {
		if _, dup := taken[seat]; dup {
			// the unique constraint backstop; undo the version bump like a rollback
			f.m.screenings[r.ScreeningID].SeatVersion--
			return repository.ErrStaleInventory
		}
	}
	for _, seat := range r.Seats {
		taken[seat] = r.ID
	}
	f.m.reservations[r.ID] = copyReservation(r)
	return nil
}

func (f fakeReservations) DeleteWithSeats(_ context.Context, expected int64, r *entity.Reservation) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	if _, ok := f.m.reservations[r.ID]; !ok {
		return repository.ErrStaleInventory
	}
	if err := f.cas(r.ScreeningID, expected); err != nil {
		return err
	}
	for seat, owner := range f.m.taken[r.ScreeningID] {
		if owner == r.ID {
			delete(f.m.taken[r.ScreeningID], seat)
		}
	}
	delete(f.m.reservations, r.ID)
	return nil
}

func (f fakeReservations) FindActiveByUserAndScreening(_ context.Context, userID, screeningID uuid.UUID) (*entity.Reservation, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	for _, r := range f.m.reservations {
		if r.UserID == userID && r.ScreeningID == screeningID {
			return copyReservation(r), nil
		}
	}
	return nil, nil
}

func (f fakeReservations) FindByID(_ context.Context, id uuid.UUID) (*entity.Reservation, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	if r, ok := f.m.reservations[id]; ok {
		return copyReservation(r), nil
	}
	return nil, nil
}

func (f fakeReservations) filter(match func(*entity.Reservation) bool) []*entity.Reservation {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	var out []*entity.Reservation
	for _, r := range f.m.reservations {
		if match(r) {
			out = append(out, copyReservation(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

func (f fakeReservations) FindByUserID(_ context.Context, userID uuid.UUID, offset, limit int) ([]*entity.Reservation, error) {
	all := f.filter(func(r *entity.Reservation) bool { return r.UserID == userID })
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (f fakeReservations) CountByUserID(_ context.Context, userID uuid.UUID) (int64, error) {
	return int64(len(f.filter(func(r *entity.Reservation) bool { return r.UserID == userID }))), nil
}

func (f fakeReservations) FindByScreeningID(_ context.Context, screeningID uuid.UUID) ([]*entity.Reservation, error) {
	return f.filter(func(r *entity.Reservation) bool { return r.ScreeningID == screeningID }), nil
}

func (f fakeReservations) CountByScreeningID(_ context.Context, screeningID uuid.UUID) (int64, error) {
	return int64(len(f.filter(func(r *entity.Reservation) bool { return r.ScreeningID == screeningID }))), nil
}

// ----- reserved seats -----

type fakeReservedSeats struct{ m *memStore }

func (f fakeReservedSeats) FindTakenByScreening(_ context.Context, screeningID uuid.UUID) ([]entity.Seat, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	return f.m.takenSeats(screeningID), nil
}

// ----- cache & publisher -----

type fakeCache struct {
	mu          sync.Mutex
	entries     map[uuid.UUID][]entity.Seat
	invalidated []uuid.UUID
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[uuid.UUID][]entity.Seat{}}
}

func (c *fakeCache) GetTaken(_ context.Context, id uuid.UUID) ([]entity.Seat, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	seats, ok := c.entries[id]
	return seats, ok, nil
}

func (c *fakeCache) SetTaken(_ context.Context, id uuid.UUID, seats []entity.Seat) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id] = seats
	return nil
}

func (c *fakeCache) Invalidate(_ context.Context, id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
	c.invalidated = append(c.invalidated, id)
	return nil
}

type published struct {
	key     string
	payload any
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
}

func (p *fakePublisher) Publish(_ context.Context, key string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, published{key: key, payload: payload})
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func (p *fakePublisher) keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.msgs))
	for i, m := range p.msgs {
		out[i] = m.key
	}
	return out
}

// ----- fixtures -----

type fixture struct {
	store     *memStore
	cache     *fakeCache
	publisher *fakePublisher
	svc       *Service
	screening *entity.Screening
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := newMemStore()
	now := time.Now()

	movie := &entity.Movie{Base: entity.NewBase(now), Title: "Arrival", DurationInMinutes: 116,
		ReleaseDate: now.AddDate(0, -1, 0), ReleaseStatus: entity.ReleaseStatusNowPlaying}
	auditorium := &entity.Auditorium{Base: entity.NewBase(now), Name: "Hall 1", RowCount: 5, SeatsPerRow: 10}
	screening := &entity.Screening{
		Base:         entity.NewBase(now),
		MovieID:      movie.ID,
		AuditoriumID: auditorium.ID,
		StartsAt:     now.Add(24 * time.Hour),
		EndsAt:       now.Add(26 * time.Hour),
		Price:        50000,
	}
	store.movies[movie.ID] = movie
	store.auditoriums[auditorium.ID] = auditorium
	store.screenings[screening.ID] = screening

	config := &utils.Config{Reservation: utils.ReservationConfig{MaxAttempts: 3}}
	f := &fixture{
		store:     store,
		cache:     newFakeCache(),
		publisher: &fakePublisher{},
		screening: screening,
	}
	f.svc = NewService(store.repo(), f.cache, f.publisher, config, zaptest.NewLogger(t))
	return f
}

func (f *fixture) addUser(name string, role entity.UserRole) *entity.User {
	u := &entity.User{Base: entity.NewBase(time.Now()), Username: name, Email: name + "@example.com", Role: role}
	f.store.mu.Lock()
	f.store.users[u.ID] = u
	f.store.mu.Unlock()
	return u
}

// assertNoDrift checks the taken set equals the union of the active reservations' seats
func (f *fixture) assertNoDrift(t *testing.T) {
	t.Helper()
	f.store.mu.Lock()
	defer f.store.mu.Unlock()

	union := map[entity.Seat]uuid.UUID{}
	for _, r := range f.store.reservations {
		if r.ScreeningID != f.screening.ID {
			continue
		}
		for _, seat := range r.Seats {
			if other, dup := union[seat]; dup {
				t.Fatalf("seat %s held by reservations %s and %s", seat, other, r.ID)
			}
			union[seat] = r.ID
		}
	}

	taken := f.store.taken[f.screening.ID]
	if len(taken) != len(union) {
		t.Fatalf("Expected %d taken seats, got %d", len(union), len(taken))
	}
	for seat, owner := range union {
		if taken[seat] != owner {
			t.Fatalf("seat %s: expected owner %s, got %s", seat, owner, taken[seat])
		}
	}
}

func (f *fixture) takenLabels() []string {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	seats := f.store.takenSeats(f.screening.ID)
	out := make([]string, len(seats))
	for i, s := range seats {
		out[i] = s.String()
	}
	return out
}
