// Package http serves the JSON API: auth, the generic entity routes, the
// routine, bulk import/export and the AI relay.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"lifedash/internal/ai"
	"lifedash/internal/auth"
	"lifedash/internal/log"
	"lifedash/internal/middleware/ratelimit"
	"lifedash/internal/middleware/security"
	"lifedash/internal/middleware/trace"
	"lifedash/internal/schema"
	"lifedash/internal/services"
)

// Pinger reports whether the store of record is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services are the application services behind the routes.
type Services struct {
	Gate     *auth.Gate
	Entities *services.EntityService
	Routine  *services.RoutineService
	Transfer *services.TransferService
	AI       *ai.Service
}

// Sizer reports the number of entries of a cache.
type Sizer interface {
	Size() int
}

type Options struct {
	MaxBodyBytes   int64
	LoginRateLimit int
	APIRateLimit   int
	Location       *time.Location
	Now            func() time.Time
	Logger         *log.Logger
	// AICache is reported on /metrics when set.
	AICache Sizer
}

type Server struct {
	http.Server

	svc          Services
	store        Pinger
	logger       *log.Logger
	loc          *time.Location
	now          func() time.Time
	maxBodyBytes int64
	started      time.Time
	aiCache      Sizer

	detector     *security.Detector
	tracer       *trace.Middleware
	loginLimiter *ratelimit.Limiter
	apiLimiter   *ratelimit.Limiter
	shutdownOnce sync.Once
}

func NewServer(addr string, store Pinger, svc Services, opts Options) *Server {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 16 << 20
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}

	s := &Server{
		svc:          svc,
		store:        store,
		logger:       opts.Logger.WithComponent(log.ComponentHTTP),
		loc:          opts.Location,
		now:          opts.Now,
		maxBodyBytes: opts.MaxBodyBytes,
		started:      time.Now(),
		aiCache:      opts.AICache,
		detector:     security.NewDetector(),
		loginLimiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.LoginRateLimit}),
		apiLimiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.APIRateLimit}),
	}
	s.tracer = trace.NewMiddleware(opts.Logger, s.detector.ExtractClientIP)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		// AI calls can take a while
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(s.tracer.Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.flagSuspicious)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, messageBody{Message: "Not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, messageBody{Message: "Method not allowed"})
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)

	limited := func(rl *ratelimit.Limiter) func(http.Handler) http.Handler {
		return rl.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusTooManyRequests, messageBody{Message: "Too many requests, please try again later"})
		})
	}
	requireAuth := s.svc.Gate.Middleware(writeError)

	r.Route("/api", func(r chi.Router) {
		r.Use(limited(s.apiLimiter))
		r.Use(log.ComponentMiddleware(log.ComponentHTTP))

		r.Route("/auth", func(r chi.Router) {
			r.Get("/status", s.handleAuthStatus)
			r.With(limited(s.loginLimiter)).Post("/setup", s.handleSetup)
			r.With(limited(s.loginLimiter)).Post("/login", s.handleLogin)
			r.With(requireAuth).Post("/change-password", s.handleChangePassword)
			r.With(requireAuth).Delete("/delete-account", s.handleDeleteAccount)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			for _, sc := range schema.All() {
				r.Route("/"+sc.Collection, func(r chi.Router) {
					s.mountEntity(r, sc)
				})
			}

			r.Get("/routine", s.handleGetRoutine)
			r.Post("/routine", s.handleSaveRoutine)
			r.Post("/import", s.handleImport)
			r.Get("/export", s.handleExport)

			r.Route("/ai", func(r chi.Router) {
				r.Post("/summary", s.handleAISummary)
				r.Post("/report", s.handleAIReport)
				r.Post("/chat/init", s.handleChatInit)
				r.Post("/chat/message", s.handleChatMessage)
			})
		})
	})
	return r
}

// flagSuspicious logs scan-like requests. They are still served.
func (s *Server) flagSuspicious(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			log.FromContext(r.Context()).WithComponent(log.ComponentSecurity).WarnContext(r.Context(), "Suspicious request",
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path,
				log.FieldClientIP, s.detector.ExtractClientIP(r),
				log.FieldUserAgent, r.UserAgent())
		}
		next.ServeHTTP(w, r)
	})
}

// Shutdown stops the rate limiters and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		s.logger.InfoContext(ctx, "Shutting down HTTP server", log.FieldOperation, log.OpShutdown)
		s.loginLimiter.Stop()
		s.apiLimiter.Stop()
	})
	return s.Server.Shutdown(ctx)
}
