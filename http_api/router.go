package http_api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"sdncontrol/metrics"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Register attaches the read-only API routes to the given router group
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/nodes", h.listNodes)
	rg.GET("/links", h.listLinks)
	rg.GET("/flows", h.listFlows)
	rg.GET("/flows/:id", h.getFlow)
	rg.GET("/flow_tables", h.listFlowTables)
	rg.GET("/flow_tables/:switch", h.getFlowTable)
	rg.GET("/paths", h.computePaths)
	rg.GET("/routes", h.previewRoutes)
}

// observe records request metrics per route template
func observe(registry *metrics.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		registry.RecordHTTPRequest(c.Request.Method, path, strconv.Itoa(c.Writer.Status()), time.Since(start))
		log.Debugf("observe: %s %s -> %d", c.Request.Method, c.Request.URL.Path, c.Writer.Status())
	}
}

// NewRouter builds the gin engine with the API, health, status and metrics routes
func NewRouter(h *Handler, registry *metrics.Registry) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), observe(registry))

	router.GET("/health", h.health)
	router.GET("/status", h.hostStatus)
	if registry != nil {
		router.GET("/metrics", gin.WrapH(registry.Handler()))
	}

	h.Register(router.Group("/api/v1"))
	return router
}

// Serve runs router on addr until ctx is done
func Serve(ctx context.Context, addr string, router *gin.Engine) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Infof("Serve: HTTP server is shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warnf("Serve: shutdown failed, err: %v", err)
		}
	}()

	log.Infof("Serve: HTTP server listening on %s", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server on %s failed: %w", addr, err)
	}
	return nil
}
