package http

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/handler/http/middleware"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/pkg/jwt"
)

type RouterConfig struct {
	AllowedOrigins []string
	Env            string
	Version        string
	LogLevel       slog.Level
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
}

type Handlers struct {
	Auth      AuthHandler
	Employee  EmployeeHandler
	Leave     LeaveHandler
	LeaveYear LeaveYearHandler
	Report    ReportHandler
	Event     EventHandler
}

func NewRouter(JWTService jwt.Service, cfg RouterConfig, h Handlers) *chi.Mux {
	r := chi.NewRouter()
	logFormat := httplog.SchemaECS.Concise(false)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: logFormat.ReplaceAttr,
		Level:       cfg.LogLevel,
	})).With(
		slog.String("app", "leave-tracker"),
		slog.String("version", cfg.Version),
		slog.String("env", cfg.Env),
	)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Content-Disposition", "Retry-After"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelDebug,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.AllowContentEncoding("application/json"))
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", h.Auth.Login)

		// EventSource cannot send headers; the stream checks its own token
		r.Get("/events", h.Event.Stream)

		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired(JWTService.JWTAuth()))
			r.Use(middleware.AdminOnly)

			r.Route("/auth", func(r chi.Router) {
				r.Get("/me", h.Auth.Me)
				r.Get("/sse-token", h.Auth.SSEToken)
			})

			r.Route("/employees", func(r chi.Router) {
				r.Get("/", h.Employee.List)
				r.Post("/", h.Employee.Create)
				r.Get("/stats", h.Employee.Stats)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", h.Employee.GetByID)
					r.Put("/", h.Employee.Update)
					r.Delete("/", h.Employee.Delete)

					r.Post("/leave/take", h.Leave.Take)
					r.Post("/leave/add", h.Leave.Add)
					r.Post("/leave/cancel", h.Leave.Cancel)
					r.Get("/history", h.Leave.History)
					r.Get("/on-leave", h.Leave.IsOnLeave)
				})
			})

			r.Get("/leave/on-leave", h.Leave.OnLeave)

			r.Route("/leave-year", func(r chi.Router) {
				r.Get("/", h.LeaveYear.GetSettings)
				r.Post("/advance", h.LeaveYear.Advance)
				r.Post("/revert-previous", h.LeaveYear.RevertPrevious)
				r.Post("/revert-next", h.LeaveYear.RevertNext)

				r.Route("/runs", func(r chi.Router) {
					r.Get("/", h.LeaveYear.ListRuns)
					r.Get("/{id}", h.LeaveYear.GetRun)
					r.Post("/{id}/resume", h.LeaveYear.ResumeRun)
					r.Post("/{id}/resolve", h.LeaveYear.ResolveRun)
					r.Get("/{id}/snapshot", h.LeaveYear.Snapshot)
				})
			})

			r.Route("/reports", func(r chi.Router) {
				r.Get("/employees", h.Report.EmployeeBalances)
				r.Get("/employees/{id}/history", h.Report.EmployeeHistory)
				r.Get("/history", h.Report.History)
			})
		})
	})
	return r
}
