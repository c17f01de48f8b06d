package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agroclim/climate-grid/internal/config"
	"github.com/agroclim/climate-grid/internal/observability"
	"github.com/agroclim/climate-grid/internal/store"
)

// Store is the data-access surface the API needs.
type Store interface {
	ListPPIPoints(ctx context.Context) ([]store.PPIPoint, error)
	ListGridCells(ctx context.Context, limit int) ([]store.GridCell, error)
	UpsertGridCells(ctx context.Context, cells []store.GridCell) error
	DeleteGridCell(ctx context.Context, geohash string) error
	UpsertDailyRecords(ctx context.Context, records []store.DailyRecord) (int64, error)
	UpsertWeeklyAggregates(ctx context.Context, aggregates []store.WeeklyAggregate) error
	LatestClimate(ctx context.Context) ([]store.LatestClimateRow, error)
	WeeklySummary(ctx context.Context, limit int) ([]store.WeeklySummaryRow, error)
}

// Server bundles router and dependencies for the REST API.
type Server struct {
	cfg     config.Config
	store   Store
	metrics *observability.Metrics
	logger  *slog.Logger
	engine  *gin.Engine
}

// New constructs a server with routes and middleware.
func New(cfg config.Config, st Store, metrics *observability.Metrics, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestMetrics(metrics))
	engine.Use(corsMiddleware())

	server := &Server{cfg: cfg, store: st, metrics: metrics, logger: logger, engine: engine}
	server.registerRoutes()
	return server
}

// Engine exposes the underlying gin engine (for tests).
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Run starts the HTTP server and blocks until shutdown.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.ListenAddr(),
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.engine.GET("/ppi", s.handleListPPI)
	s.engine.GET("/grid", s.handleListGrid)
	s.engine.GET("/climate/latest", s.handleLatestClimate)
	s.engine.GET("/climate/weekly", s.handleWeeklySummary)

	mutating := s.engine.Group("/")
	if s.cfg.BearerToken != "" {
		mutating.Use(bearerAuthMiddleware(s.cfg.BearerToken))
	}
	mutating.PUT("/grid/:geohash", s.handleUpsertGridCell)
	mutating.DELETE("/grid/:geohash", s.handleDeleteGridCell)
	mutating.POST("/climate/daily", s.handleUpsertDaily)
	mutating.POST("/climate/weekly", s.handleUpsertWeekly)
}

func bearerAuthMiddleware(expected string) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		if token != expected {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func requestMetrics(m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RequestsTotal.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		m.RequestDuration.WithLabelValues(route).Observe(time.Since(started).Seconds())
	}
}
