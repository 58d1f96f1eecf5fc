package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"reseller/internal/core"
	"reseller/internal/ledger"
	applog "reseller/internal/log"
	"reseller/internal/metrics"
	"reseller/internal/middleware/auth"
	"reseller/internal/middleware/ratelimit"
	"reseller/internal/middleware/security"
	"reseller/internal/middleware/trace"
)

// LedgerSource hands out the loaded ledger of an owner.
type LedgerSource interface {
	Get(ctx context.Context, ownerID string) (*ledger.Ledger, error)
}

// RecordFinder looks up a single record by ID across owners.
type RecordFinder interface {
	GetExpense(ctx context.Context, id string) (core.ExpenseRecord, error)
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures NewServer. Ledgers and Auth are required; Records
// enables single-record reads.
type Options struct {
	Addr               string
	Ledgers            LedgerSource
	Records            RecordFinder
	Auth               *auth.Authenticator
	RateLimitPerMinute int
	MetricsEnabled     bool
	// Ready is pinged by /readyz when set.
	Ready  Pinger
	Logger *applog.Logger
	// TrustedProxies are CIDRs whose forwarding headers are honored.
	TrustedProxies []string
	// Now defaults to time.Now. It supplies the as-of date of requests
	// that do not name one.
	Now func() time.Time
}

type Server struct {
	http.Server
	ledgers  LedgerSource
	records  RecordFinder
	auth     *auth.Authenticator
	limiter  *ratelimit.Limiter
	clientIP *security.ClientIP
	ready    Pinger
	log      *applog.Logger
	now      func() time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(opts Options) *Server {
	router := mux.NewRouter()

	logger := opts.Logger
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	s := &Server{
		Server: http.Server{
			Addr:              opts.Addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		ledgers:  opts.Ledgers,
		records:  opts.Records,
		auth:     opts.Auth,
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		clientIP: security.NewClientIP(),
		ready:    opts.Ready,
		log:      logger.WithComponent(applog.ComponentHTTP),
		now:      now,
	}
	for _, cidr := range opts.TrustedProxies {
		if err := s.clientIP.AddTrustedProxy(cidr); err != nil {
			s.log.Warn("Ignoring trusted proxy", "cidr", cidr, "error", err)
		}
	}

	tracer := trace.NewMiddleware(trace.Options{
		ExtractIP: s.clientIP.Extract,
		Route:     routeTemplate,
		Logger:    s.log,
	})
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	router.Use(tracer.Middleware, headers.Middleware)

	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)
	if opts.MetricsEnabled {
		router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	}

	api := router.PathPrefix("/api").Subrouter()
	api.Use(
		s.auth.Middleware(s.handleAuthFailure),
		s.limiter.Middleware(s.rateLimitKey, s.handleRateLimited),
	)
	api.HandleFunc("/categories", s.handleCategories).Methods(http.MethodGet)
	api.HandleFunc("/expenses", s.handleListExpenses).Methods(http.MethodGet)
	api.HandleFunc("/expenses", s.handleCreateExpense).Methods(http.MethodPost)
	api.HandleFunc("/expenses/refetch", s.handleRefetch).Methods(http.MethodPost)
	api.HandleFunc("/expenses/export.csv", s.handleExportCSV).Methods(http.MethodGet)
	if s.records != nil {
		api.HandleFunc("/expenses/{id}", s.handleGetExpense).Methods(http.MethodGet)
	}
	api.HandleFunc("/expenses/{id}", s.handleUpdateExpense).Methods(http.MethodPatch)
	api.HandleFunc("/expenses/{id}", s.handleDeleteExpense).Methods(http.MethodDelete)
	api.HandleFunc("/profit", s.handleProfit).Methods(http.MethodGet)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(r, http.StatusNotFound, "not found").Write(w)
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(r, http.StatusMethodNotAllowed, "method not allowed").Write(w)
	})

	return s
}

// Shutdown gracefully shuts down the server and the rate limiter cleanup.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// routeTemplate labels metrics by route so IDs do not explode cardinality.
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

// rateLimitKey limits authenticated callers per owner, others per IP.
func (s *Server) rateLimitKey(r *http.Request) string {
	if user, ok := auth.UserFromContext(r.Context()); ok {
		return "owner:" + user.ID
	}
	return "ip:" + s.clientIP.Extract(r)
}

func (s *Server) handleAuthFailure(w http.ResponseWriter, r *http.Request, err error) {
	s.log.DebugContext(r.Context(), "Authentication failed",
		"request_id", trace.GetRequestID(r.Context()),
		"client_ip", s.clientIP.Extract(r),
		"error", err)
	ErrorResponse(r, http.StatusUnauthorized, "unauthorized").
		Header("WWW-Authenticate", `Bearer realm="ledger"`).
		Write(w)
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	s.log.WarnContext(r.Context(), "Rate limit exceeded",
		"request_id", trace.GetRequestID(r.Context()),
		"key", s.rateLimitKey(r))
	ErrorResponse(r, http.StatusTooManyRequests, "rate limit exceeded").Write(w)
}

// ledgerFor resolves the authenticated owner and their ledger.
func (s *Server) ledgerFor(r *http.Request) (*ledger.Ledger, error) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		return nil, auth.ErrNoSession
	}
	return s.ledgers.Get(r.Context(), user.ID)
}

func (s *Server) today() core.Date {
	return core.DateOf(s.now())
}
