package httpserver

import (
	"encoding/json"
	"errors"

	"dogeow-realtime/internal/cache"
	"dogeow-realtime/internal/realtime"
	pkgErrors "dogeow-realtime/pkg/errors"
	"dogeow-realtime/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	serviceName = "dogeow-realtime"
	version     = "1.0.0"
)

// healthCheck reports the listener state. A detached binder is degraded,
// not unhealthy: realtime updates are optional for the app.
func (srv *HTTPServer) healthCheck(c *gin.Context) {
	ctx := c.Request.Context()

	redisStatus := "disabled"
	if srv.redis != nil {
		if _, err := srv.redis.Ping(ctx); err != nil {
			srv.logger.Warnf(ctx, "health: redis ping failed: %v", err)
			response.HttpError(c, pkgErrors.NewUnavailableHTTPError("Redis connection failed"))
			return
		}
		redisStatus = "connected"
	}

	state := srv.binder.State()
	status := "healthy"
	lastErr := ""
	if err := srv.binder.LastError(); err != nil {
		lastErr = err.Error()
	}
	if state != realtime.StateSubscribed {
		status = "degraded"
	}

	conn := srv.manager.Stats()
	response.OK(c, gin.H{
		"status":        status,
		"service":       serviceName,
		"version":       version,
		"binder":        state,
		"last_error":    lastErr,
		"connection":    conn.State,
		"subscriptions": srv.binder.Subscriptions(),
		"redis":         redisStatus,
	})
}

func (srv *HTTPServer) liveCheck(c *gin.Context) {
	response.OK(c, gin.H{
		"status":  "alive",
		"service": serviceName,
		"version": version,
	})
}

func (srv *HTTPServer) metrics(c *gin.Context) {
	response.OK(c, gin.H{
		"connection":   srv.manager.Stats(),
		"synchronizer": srv.sync.Stats(),
		"cache":        srv.cache.Stats(),
	})
}

// unread serves the cached unread summary, fetching it if needed.
func (srv *HTTPServer) unread(c *gin.Context) {
	ctx := c.Request.Context()

	raw, err := srv.cache.Get(ctx, realtime.CacheKeyUnread)
	if errors.Is(err, cache.ErrUnknownKey) {
		response.HttpError(c, pkgErrors.NewNotFoundHTTPError("unread count is not tracked"))
		return
	}
	if err != nil {
		srv.logger.Warnf(ctx, "unread: %v", err)
		response.HttpError(c, pkgErrors.NewUnavailableHTTPError("unread count unavailable"))
		return
	}

	var summary realtime.UnreadSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, summary)
}
