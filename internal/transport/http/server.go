// Package httpapi exposes a read-only status surface over the engine:
// health, the latest cycle result and prometheus metrics. JSON only.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"coinpilot/internal/agent/engine"
	"coinpilot/internal/logger"
)

type Server struct {
	addr   string
	router *gin.Engine
}

func NewServer(addr string, eng *engine.Engine) (*Server, error) {
	if eng == nil {
		return nil, errors.New("status server requires an engine")
	}
	if addr == "" {
		addr = ":9982"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	api.GET("/cycle/latest", func(c *gin.Context) {
		result, ok := eng.LastCycle()
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "no cycle completed yet"})
			return
		}
		c.JSON(http.StatusOK, result)
	})
	api.GET("/status", func(c *gin.Context) {
		result, ok := eng.LastCycle()
		if !ok {
			c.JSON(http.StatusOK, gin.H{"cycles": 0})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"trace_id":         result.TraceID,
			"finished_at":      result.FinishedAt,
			"symbols":          len(result.Opportunities),
			"decisions":        len(result.Decisions),
			"rejected":         len(result.Rejected),
			"total_target_usd": result.Allocation.Summary.TotalTargetUSD,
		})
	})

	return &Server{addr: addr, router: router}, nil
}

// Run serves until the context is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("status server listening on %s", s.addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debugf("http %s %s -> %d (%s)",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
