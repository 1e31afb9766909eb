package httpserver

import (
	"dogeow-realtime/internal/middleware"
)

func (srv *HTTPServer) mapHandlers() {
	mw := middleware.New(srv.logger)
	srv.gin.Use(mw.Recovery(), mw.Logging())
	srv.gin.Use(middleware.CORS(middleware.DefaultCORSConfig()))

	srv.gin.GET("/health", srv.healthCheck)
	srv.gin.GET("/live", srv.liveCheck)
	srv.gin.GET("/metrics", srv.metrics)
	srv.gin.GET("/unread", srv.unread)
}
