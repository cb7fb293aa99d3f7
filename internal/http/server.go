package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"fintrack/internal/insights"
	"fintrack/internal/ledger"
	"fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"
)

// ReadinessCheck reports whether a dependency can serve requests.
type ReadinessCheck func(ctx context.Context) error

// Deps are the services behind the API. Insights and Checks are optional.
type Deps struct {
	Ledger    *ledger.Ledger
	Recurring *services.RecurringService
	Insights  *insights.Service
	Logger    *log.Logger
	RateLimit ratelimit.Config
	Checks    map[string]ReadinessCheck
}

type Server struct {
	http.Server
	ledger    *ledger.Ledger
	recurring *services.RecurringService
	insights  *insights.Service
	checks    map[string]ReadinessCheck

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	started  time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, d Deps) *Server {
	logger := d.Logger
	if logger == nil {
		logger = &log.Logger{Logger: slog.Default()}
	}

	if d.Recurring == nil && d.Ledger != nil {
		d.Recurring = services.NewRecurringService(d.Ledger.Store())
	}

	s := &Server{
		ledger:    d.Ledger,
		recurring: d.Recurring,
		insights:  d.Insights,
		checks:    d.Checks,
		limiter:   ratelimit.NewLimiter(d.RateLimit),
		detector:  security.NewDetector(),
		started:   time.Now(),
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, logger.WithComponent(log.ComponentHTTP))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/accounts", s.withOwner(s.handleListAccounts))
	mux.HandleFunc("POST /api/accounts", s.withOwner(s.handleCreateAccount))
	mux.HandleFunc("GET /api/accounts/{id}", s.withOwner(s.handleGetAccount))
	mux.HandleFunc("PATCH /api/accounts/{id}", s.withOwner(s.handleUpdateAccount))
	mux.HandleFunc("DELETE /api/accounts/{id}", s.withOwner(s.handleDeleteAccount))
	mux.HandleFunc("POST /api/balances/recalculate", s.withOwner(s.handleRecalculate))

	mux.HandleFunc("GET /api/categories", s.withOwner(s.handleListCategories))
	mux.HandleFunc("POST /api/categories", s.withOwner(s.handleCreateCategory))
	mux.HandleFunc("DELETE /api/categories/{id}", s.withOwner(s.handleDeleteCategory))

	mux.HandleFunc("GET /api/transactions", s.withOwner(s.handleListTransactions))
	mux.HandleFunc("POST /api/transactions", s.withOwner(s.handleCreateTransaction))
	mux.HandleFunc("GET /api/transactions/{id}", s.withOwner(s.handleGetTransaction))
	mux.HandleFunc("PATCH /api/transactions/{id}", s.withOwner(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.withOwner(s.handleDeleteTransaction))

	mux.HandleFunc("GET /api/budgets", s.withOwner(s.handleListBudgets))
	mux.HandleFunc("POST /api/budgets", s.withOwner(s.handleCreateBudget))
	mux.HandleFunc("GET /api/budgets/progress", s.withOwner(s.handleBudgetProgress))
	mux.HandleFunc("GET /api/budgets/progress.png", s.withOwner(s.handleBudgetChart))
	mux.HandleFunc("GET /api/budgets/{id}", s.withOwner(s.handleGetBudget))
	mux.HandleFunc("PATCH /api/budgets/{id}", s.withOwner(s.handleUpdateBudget))
	mux.HandleFunc("DELETE /api/budgets/{id}", s.withOwner(s.handleDeleteBudget))

	mux.HandleFunc("GET /api/recurring", s.withOwner(s.handleListRecurring))
	mux.HandleFunc("POST /api/recurring", s.withOwner(s.handleCreateRecurring))
	mux.HandleFunc("GET /api/recurring/{id}", s.withOwner(s.handleGetRecurring))
	mux.HandleFunc("DELETE /api/recurring/{id}", s.withOwner(s.handleDeleteRecurring))

	mux.HandleFunc("GET /api/insights", s.withOwner(s.handleInsights))

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	var h http.Handler = mux
	h = s.limitWrites(h)
	h = security.NoStore(h)
	h = headers.Middleware(h)
	h = s.detector.Middleware(h)
	h = s.tracer.Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// limitWrites applies the rate limit to requests that change data, bucketed by
// owner and client address.
func (s *Server) limitWrites(next http.Handler) http.Handler {
	key := func(r *http.Request) string {
		return r.Header.Get(HeaderOwnerID) + "|" + s.detector.ExtractClientIP(r)
	}
	limited := s.limiter.Middleware(key, func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, s.detector.ExtractClientIP(r), log.FieldMethod, r.Method, log.FieldPath, r.URL.Path)
		writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded, try again later"})
	})(next)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
		default:
			limited.ServeHTTP(w, r)
		}
	})
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
