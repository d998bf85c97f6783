package metrics

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// NewHandler returns a gin-powered handler exposing /metrics and /healthz.
// The control protocol stays on the unix socket; this HTTP surface exists
// only for scraping and liveness checks.
func NewHandler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	g := gin.New()
	g.Use(gin.Recovery())
	g.GET("/metrics", gin.WrapH(Handler()))
	g.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return g
}

// NewServer starts a standalone observability server on addr. The caller
// shuts it down via http.Server.Close.
func NewServer(addr string) *http.Server {
	server := &http.Server{
		Addr:              addr,
		Handler:           NewHandler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() { _ = server.ListenAndServe() }()
	return server
}
