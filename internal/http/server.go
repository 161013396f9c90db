package http

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"cashbook/internal/auth"
	"cashbook/internal/core"
	"cashbook/internal/credentials"
	"cashbook/internal/ledger"
	"cashbook/internal/log"
	"cashbook/internal/middleware/ratelimit"
	"cashbook/internal/middleware/security"
	"cashbook/internal/middleware/trace"
	"cashbook/internal/report"
)

type (
	// SessionSource hands out the caller's ledger session.
	SessionSource interface {
		Session(ctx context.Context, user core.User) (*ledger.Session, error)
	}

	// ReportGenerator creates the caller's exported report.
	ReportGenerator interface {
		Generate(ctx context.Context, user core.User) (core.ReportLink, error)
	}

	// Pinger reports whether persistence is reachable.
	Pinger interface {
		Ping(ctx context.Context) error
	}
)

// Deps are the collaborators the server routes to. Reports may be nil when
// export is not configured.
type Deps struct {
	Sessions    SessionSource
	Credentials credentials.Store
	Links       report.LinkStore
	Reports     ReportGenerator
	Gateways    report.GatewayFactory
	Verifier    *auth.Verifier
	Store       Pinger

	// TemplateID is the spreadsheet copied by POST /api/files/copy.
	TemplateID string
	// CORSOrigin is "*" or a comma-separated list of origins.
	CORSOrigin string
	// RateLimitPerMinute bounds mutating requests per client.
	RateLimitPerMinute int
	// TrustedProxies are extra CIDRs whose forwarding headers are believed.
	TrustedProxies []string
	// Dist is the built front end. Nothing is served for SPA paths when nil.
	Dist fs.FS
}

// Server is the API and front-end server.
type Server struct {
	http.Server

	sessions    SessionSource
	credentials credentials.Store
	links       report.LinkStore
	reports     ReportGenerator
	gateways    report.GatewayFactory
	store       Pinger
	templateID  string
	now         func() time.Time

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// server.
func NewServer(addr string, deps Deps) (*Server, error) {
	if deps.Verifier == nil {
		return nil, errors.New("identity verifier required")
	}
	detector, err := security.NewDetector(deps.TrustedProxies...)
	if err != nil {
		return nil, err
	}

	limitCfg := ratelimit.DefaultConfig()
	if deps.RateLimitPerMinute > 0 {
		limitCfg.RequestsPerMinute = deps.RateLimitPerMinute
	}

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		sessions:    deps.Sessions,
		credentials: deps.Credentials,
		links:       deps.Links,
		reports:     deps.Reports,
		gateways:    deps.Gateways,
		store:       deps.Store,
		templateID:  deps.TemplateID,
		now:         time.Now,
		limiter:     ratelimit.NewLimiter(limitCfg),
		detector:    detector,
		tracer:      trace.NewMiddleware(detector.ExtractClientIP),
	}
	s.Handler = s.routes(deps, limitCfg)
	return s, nil
}

func (s *Server) routes(deps Deps, limitCfg ratelimit.Config) http.Handler {
	r := chi.NewRouter()

	r.Use(s.tracer.Middleware)
	r.Use(security.Headers(security.DefaultHeadersConfig()))
	r.Use(s.detector.Middleware)
	r.Use(cors(deps.CORSOrigin))
	r.Use(middleware.Recoverer)
	r.Use(s.limiter.Middleware(limitCfg, s.detector.ExtractClientIP, func(w http.ResponseWriter, _ *http.Request) {
		WriteError(w, http.StatusTooManyRequests, "Too many requests, please try again later")
	}))

	r.Get("/health", handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(deps.Verifier.Middleware(func(w http.ResponseWriter, _ *http.Request, msg string) {
				WriteError(w, http.StatusUnauthorized, msg)
			}))
			r.Use(withUserAttrs)

			r.Get("/me", s.handleMe)

			r.Get("/accounts", s.handleListAccounts)
			r.Post("/accounts", s.handleCreateAccount)
			r.Put("/accounts/{id}", s.handleUpdateAccount)
			r.Delete("/accounts/{id}", s.handleDeleteAccount)

			r.Get("/transactions", s.handleListTransactions)
			r.Post("/transactions", s.handleCreateTransaction)
			r.Put("/transactions/{id}", s.handleUpdateTransaction)
			r.Delete("/transactions/{id}", s.handleDeleteTransaction)

			r.Get("/summary", s.handleSummary)

			r.Get("/credentials", s.handleGetCredential)
			r.Put("/credentials", s.handlePutCredential)
			r.Delete("/credentials", s.handleDeleteCredential)

			r.Get("/reports", s.handleGetReport)
			r.Post("/reports", s.handleGenerateReport)
		})

		r.With(googleToken(false)).Post("/files/copy", s.handleCopyFile)
		r.Group(func(r chi.Router) {
			r.Use(googleToken(true))
			r.Put("/sheets/{fileId}/values/{range}", s.handleUpdateValues)
			r.Get("/sheets/{fileId}", s.handleGetSpreadsheet)
			r.Get("/files/{fileId}", s.handleGetFile)
			r.Get("/files", s.handleListFiles)
		})

		r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
			WriteError(w, http.StatusNotFound, "Not found")
		})
		r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
			WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		})
	})

	if deps.Dist != nil {
		spa := spaHandler(deps.Dist)
		r.NotFound(spa.ServeHTTP)
		r.MethodNotAllowed(spa.ServeHTTP)
	}
	return r
}

// withUserAttrs adds the authenticated user to every log line of the request.
func withUserAttrs(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user, ok := auth.UserFromContext(r.Context()); ok {
			r = r.WithContext(log.WithAttrs(r.Context(), log.FieldUserID, user.ID))
		}
		next.ServeHTTP(w, r)
	})
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{
		"status":    "OK",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.store.Ping(ctx); err != nil {
			slog.WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			WriteError(w, http.StatusServiceUnavailable, "Store unavailable")
			return
		}
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// Metrics returns request counters since start.
func (s *Server) Metrics() trace.Metrics {
	return s.tracer.GetMetrics()
}

// Shutdown stops the rate limiter and drains the HTTP server. Only the first
// call has any effect.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
