package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"clinic-relay/internal/infra/logging"
	red "clinic-relay/internal/infra/redis"
	"clinic-relay/internal/usecase"
)

// RateLimiter is the slice of the redis limiter the server needs.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

func senderKey(sender string) string { return red.SenderKey(sender) }

type Server struct {
	relayUC     usecase.RelayUseCase
	clinicUC    usecase.ClinicUseCase
	auth        *AuthManager
	limiter     RateLimiter // nil disables throttling
	rateLimit   int
	rateWindow  time.Duration
	verifyToken string
	corsOrigins []string
	log         *zerolog.Logger
}

func NewServer(
	relayUC usecase.RelayUseCase,
	clinicUC usecase.ClinicUseCase,
	auth *AuthManager,
	verifyToken string,
	corsOrigins []string,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		relayUC:     relayUC,
		clinicUC:    clinicUC,
		auth:        auth,
		verifyToken: verifyToken,
		corsOrigins: corsOrigins,
		log:         logger,
	}
}

// WithRateLimiter enables per-sender throttling on the webhook.
func (s *Server) WithRateLimiter(l RateLimiter, limit int, window time.Duration) *Server {
	s.limiter = l
	s.rateLimit = limit
	s.rateWindow = window
	return s
}

// Router assembles the full route tree.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.traceMiddleware)
	if len(s.corsOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.corsOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
		}))
	}

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Get("/webhook", s.handleWebhookVerify)
	r.Post("/webhook", s.handleWebhook)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)
		r.Group(func(r chi.Router) {
			r.Use(s.adminMiddleware)
			r.Post("/clinics", s.handleClinicCreate)
			r.Get("/clinics", s.handleClinicList)
			r.Post("/clinics/reset-usage", s.handleResetUsage)
		})
	})
	return r
}

// traceMiddleware forwards chi's request id into the logging context.
func (s *Server) traceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if id := middleware.GetReqID(ctx); id != "" {
			ctx = logging.WithTraceID(ctx, id)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// adminMiddleware guards the clinic management surface.
func (s *Server) adminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := s.auth.Authorize(r); err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
