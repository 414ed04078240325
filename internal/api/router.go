package api

import (
	"net/http"
	"strconv"

	"github.com/LJTian/NewsAlert/internal/logger"
	"github.com/LJTian/NewsAlert/internal/scheduler"
	"github.com/LJTian/NewsAlert/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	defaultLinksLimit = 100
	maxLinksLimit     = 1000
)

// Runner 由 scheduler.Scheduler 实现
type Runner interface {
	LastReport() (scheduler.Report, bool)
	Trigger() bool
	Busy() bool
}

type Server struct {
	runner   Runner
	store    storage.LinkStore
	gatherer prometheus.Gatherer
	log      logger.Logger
}

func NewServer(runner Runner, store storage.LinkStore, gatherer prometheus.Gatherer, log logger.Logger) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Server{runner: runner, store: store, gatherer: gatherer, log: logger.OrNop(log)}
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	v1 := r.Group("/api/v1")
	{
		v1.GET("/status", s.status)
		v1.GET("/links", s.listLinks)
		v1.POST("/run", s.triggerRun)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) status(c *gin.Context) {
	rep, ok := s.runner.LastReport()
	if !ok {
		c.JSON(http.StatusOK, gin.H{
			"code":    "no_run_yet",
			"message": "no run has completed yet",
			"running": s.runner.Busy(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"running": s.runner.Busy(),
		"data":    rep,
	})
}

func (s *Server) listLinks(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLinksLimit)))
	if err != nil || limit <= 0 {
		limit = defaultLinksLimit
	}
	if limit > maxLinksLimit {
		limit = maxLinksLimit
	}

	links := s.store.Load(c.Request.Context()).Sorted()
	total := len(links)
	if len(links) > limit {
		links = links[:limit]
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"count":   total,
		"data":    links,
	})
}

func (s *Server) triggerRun(c *gin.Context) {
	if !s.runner.Trigger() {
		c.JSON(http.StatusConflict, gin.H{
			"code":    "busy",
			"message": "a run is already in progress",
		})
		return
	}
	s.log.Info("run triggered via api", logger.String("client_ip", c.ClientIP()))
	c.JSON(http.StatusAccepted, gin.H{
		"code":    "accepted",
		"message": "run started",
	})
}
