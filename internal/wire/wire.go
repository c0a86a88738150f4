package wire

import (
	"net/http"

	"movie-reservation/internal/adaptor"
	"movie-reservation/internal/data/cache"
	"movie-reservation/internal/data/repository"
	"movie-reservation/internal/usecase"
	"movie-reservation/pkg/broker"
	"movie-reservation/pkg/middleware"
	"movie-reservation/pkg/utils"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// App holds the wired router
type App struct {
	Router *chi.Mux
}

// Deps are the infrastructure clients built by main
type Deps struct {
	Repo      *repository.Repository
	SeatCache cache.SeatCache
	Publisher broker.Publisher
}

// Wiring builds services, handlers and routes
func Wiring(deps Deps, config *utils.Config, logger *zap.Logger) *App {
	service := usecase.NewService(deps.Repo, deps.SeatCache, deps.Publisher, config, logger)
	handler := adaptor.NewHandler(service, logger)

	return &App{
		Router: setupRouter(handler, deps.Repo, config, logger),
	}
}

func setupRouter(
	handler *adaptor.Handler,
	repo *repository.Repository,
	config *utils.Config,
	logger *zap.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recover(logger))
	r.Use(middleware.CORS())

	auth := middleware.AuthSession(repo.Session, repo.User, logger)
	admin := middleware.Admin(logger)
	limiter := middleware.NewRateLimiter(config.RateLimit.RPS, config.RateLimit.Burst)

	wireAuth(r, handler.Auth, auth)
	wireUser(r, handler.User, auth, admin)
	wireMovie(r, handler.Movie, auth, admin)
	wireAuditorium(r, handler.Auditorium, auth, admin)
	wireScreening(r, handler.Screening, auth, admin)
	wireReservation(r, handler.Reservation, auth, admin, middleware.RateLimit(limiter, logger))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return r
}
