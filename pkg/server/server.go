package server

import (
	"context"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/doodlesbykumbi/orgperm/pkg/config"
	"github.com/doodlesbykumbi/orgperm/pkg/metrics"
	"github.com/doodlesbykumbi/orgperm/pkg/permission"
	"github.com/doodlesbykumbi/orgperm/pkg/server/middleware"
	"github.com/doodlesbykumbi/orgperm/pkg/server/store"
)

// PermissionService is what the endpoints need from the resolver.
type PermissionService interface {
	Catalog(ctx context.Context, organizationID string) ([]permission.SuiteGroup, error)
	Load(ctx context.Context, target permission.Target) (*permission.Matrix, error)
	Save(ctx context.Context, target permission.Target, selected []string) (*permission.SaveResult, error)
	Effective(ctx context.Context, organizationID, userID string) (permission.IDSet, error)
	Check(ctx context.Context, organizationID, userID, permissionKey string) (bool, error)
}

var _ PermissionService = (*permission.Resolver)(nil)

type Server struct {
	Router      *mux.Router
	Permissions PermissionService
	HealthStore store.HealthStore
	Logger      *zap.Logger

	// Optional; endpoints skip what is nil.
	Metrics       *metrics.Metrics
	JWTMiddleware *middleware.JWTAuthenticator
	RateLimiter   *middleware.RateLimiter

	config atomic.Pointer[config.Config]
	srv    *http.Server
}

func NewServer(
	permissions PermissionService,
	healthStore store.HealthStore,
	cfg *config.Config,
	logger *zap.Logger,
	host string,
	port string,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	router := mux.NewRouter().UseEncodedPath()
	router.Use(middleware.RequestID)

	srv := &http.Server{
		Handler: handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(
			handlers.LoggingHandler(os.Stdout, router),
		),
		Addr: host + ":" + port,
		// Good practice: enforce timeouts for servers you create!
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	s := &Server{
		Router:      router,
		Permissions: permissions,
		HealthStore: healthStore,
		Logger:      logger,
		srv:         srv,
	}
	s.SetConfig(cfg)
	return s
}

// WithMetrics instruments every route and makes /metrics available.
func (s *Server) WithMetrics(m *metrics.Metrics) *Server {
	s.Metrics = m
	if m != nil {
		s.Router.Use(m.Instrument)
	}
	return s
}

func (s *Server) WithJWT(auth *middleware.JWTAuthenticator) *Server {
	s.JWTMiddleware = auth
	return s
}

func (s *Server) WithRateLimiter(limiter *middleware.RateLimiter) *Server {
	s.RateLimiter = limiter
	return s
}

// Config returns the configuration currently in effect.
func (s *Server) Config() *config.Config {
	return s.config.Load()
}

// SetConfig swaps the configuration, for example after a reload, and
// applies the parts that can change while running.
func (s *Server) SetConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	s.config.Store(cfg)
	if s.RateLimiter != nil {
		s.RateLimiter.SetLimit(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
}

func (s *Server) Start() error {
	s.Logger.Info("listening", zap.String("addr", s.srv.Addr))
	return s.srv.ListenAndServe()
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
