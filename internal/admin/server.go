// Package admin owns the local HTTP surface of the daemon: health,
// driver status, and Prometheus metrics. It is read-only and binds to
// loopback by default.
package admin

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/meshwire/meshwire/internal/driver"
	"github.com/meshwire/meshwire/internal/observability"
)

type Server struct {
	addr   string
	drv    *driver.Driver
	log    zerolog.Logger
	engine *gin.Engine
}

func NewServer(addr string, drv *driver.Driver, log zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), observability.RequestLogger(log))

	s := &Server{addr: addr, drv: drv, log: log, engine: engine}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	s.engine.GET("/status", func(c *gin.Context) {
		info := s.drv.Controller().Snapshot()
		nodes := make([]gin.H, 0)
		for _, id := range s.drv.Nodes().IDs() {
			node, ok := s.drv.Nodes().Get(id)
			if !ok {
				continue
			}
			proto := node.Protocol()
			nodes = append(nodes, gin.H{
				"id":        id,
				"stage":     node.Stage().String(),
				"listening": proto.Listening,
				"routing":   proto.Routing,
			})
		}
		c.JSON(http.StatusOK, gin.H{
			"home_id":     fmt.Sprintf("0x%08x", info.HomeID),
			"own_node_id": info.OwnNodeID,
			"library":     info.Library,
			"api_version": info.APIVersion,
			"secondary":   info.Secondary,
			"suc":         info.StaticUpdateCtrl,
			"nodes":       nodes,
		})
	})

	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// Run serves until ctx ends, then shuts down with a short grace period.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.engine}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.log.Info().Str("addr", s.addr).Msg("admin surface listening")
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
