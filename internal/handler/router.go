package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/personal-finance-assistant/backend/internal/handler/finance"
	middlewarePkg "github.com/personal-finance-assistant/backend/internal/middleware"
	"github.com/personal-finance-assistant/backend/internal/service/agent"
)

const livenessMessage = "Server is running. Use POST /api/finance for queries"

// NewRouter wires HTTP routes to core services. agentSvc may be nil when the
// completion API is not configured; the finance routes then answer 503.
func NewRouter(agentSvc *agent.Agent, allowedOrigins []string, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  slog.NewLogLogger(logger.Handler(), slog.LevelInfo),
		NoColor: true,
	}))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(allowedOrigins))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(livenessMessage))
	})

	// avoid wrapping a nil *agent.Agent in a non-nil interface
	var assistant finance.Assistant
	if agentSvc != nil {
		assistant = agentSvc
	}
	financeHandler := finance.New(assistant, allowedOrigins)

	r.Route("/api", func(api chi.Router) {
		financeHandler.RegisterRoutes(api)
	})

	return r
}
