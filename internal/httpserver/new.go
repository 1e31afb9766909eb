package httpserver

import (
	"errors"

	"dogeow-realtime/internal/cache"
	"dogeow-realtime/internal/realtime"
	"dogeow-realtime/internal/realtime/lifecycle"
	"dogeow-realtime/pkg/log"
	pkgRedis "dogeow-realtime/pkg/redis"

	"github.com/gin-gonic/gin"
)

// HTTPServer exposes the listener's health and counters.
// New() only wires dependencies and validates them. Run() serves.
type HTTPServer struct {
	gin         *gin.Engine
	logger      log.Logger
	port        int
	environment string

	binder  lifecycle.Binder
	manager realtime.ConnectionManager
	sync    realtime.Synchronizer
	cache   cache.Cache

	// optional
	redis pkgRedis.IRedis
}

// Config is the constructor input for HTTPServer.
type Config struct {
	Port        int
	Environment string

	Binder       lifecycle.Binder
	Manager      realtime.ConnectionManager
	Synchronizer realtime.Synchronizer
	Cache        cache.Cache

	// Redis is pinged by /health when set.
	Redis pkgRedis.IRedis
}

func New(logger log.Logger, cfg Config) (*HTTPServer, error) {
	gin.SetMode(ginMode(cfg.Environment))

	srv := &HTTPServer{
		gin:         gin.New(),
		logger:      logger,
		port:        cfg.Port,
		environment: cfg.Environment,

		binder:  cfg.Binder,
		manager: cfg.Manager,
		sync:    cfg.Synchronizer,
		cache:   cfg.Cache,
		redis:   cfg.Redis,
	}

	if err := srv.validate(); err != nil {
		return nil, err
	}
	srv.mapHandlers()

	return srv, nil
}

func ginMode(environment string) string {
	switch environment {
	case "production":
		return gin.ReleaseMode
	case "test":
		return gin.TestMode
	default:
		return gin.DebugMode
	}
}

// validate ensures all required dependencies are provided.
func (s *HTTPServer) validate() error {
	if s.logger == nil {
		return errors.New("logger is required")
	}
	if s.port == 0 {
		return errors.New("port is required")
	}
	if s.binder == nil {
		return errors.New("binder is required")
	}
	if s.manager == nil {
		return errors.New("connection manager is required")
	}
	if s.sync == nil {
		return errors.New("synchronizer is required")
	}
	if s.cache == nil {
		return errors.New("cache is required")
	}
	return nil
}

// Handler returns the routed gin engine.
func (s *HTTPServer) Handler() *gin.Engine {
	return s.gin
}
