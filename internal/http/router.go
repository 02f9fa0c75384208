package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hperssn/physiovr/internal/runner"
	"github.com/hperssn/physiovr/internal/storage"
)

type RouterConfig struct {
	Manager    *runner.SessionManager
	Repository storage.Repository
	Logger     *slog.Logger
	DevUser    string
	StaticDir  string
}

func NewRouter(cfg RouterConfig) *chi.Mux {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := cfg.Manager

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", health)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/exercises", listExercises(m.Catalog()))
	r.Get("/exercises/{id}", getExercise(m.Catalog()))

	r.Group(func(r chi.Router) {
		r.Use(ExtractUser(cfg.DevUser, logger))

		r.Route("/session", func(r chi.Router) {
			r.Get("/", getSession(m))
			r.Post("/select", selectExercise(m, logger))
			r.Put("/settings", updateSettings(m, logger))
			r.Post("/vr", transition(m, logger, (*runner.Machine).EnterVR))
			r.Post("/start", transition(m, logger, (*runner.Machine).StartExercise))
			r.Post("/start-now", transition(m, logger, (*runner.Machine).StartNow))
			r.Post("/next", transition(m, logger, (*runner.Machine).NextStep))
			r.Post("/reset", transition(m, logger, (*runner.Machine).ResetExercise))
			r.Post("/exit", transition(m, logger, (*runner.Machine).ExitVR))
			r.Get("/events", StreamSessionEvents(m))
		})

		if cfg.Repository != nil {
			r.Get("/history", getHistory(cfg.Repository))
			r.Get("/stats", getStats(cfg.Repository))
		}
	})

	if cfg.StaticDir != "" {
		fs := http.FileServer(http.Dir(cfg.StaticDir))
		r.Handle("/static/*", http.StripPrefix("/static/", fs))
	}

	return r
}
