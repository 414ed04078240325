package api

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/LJTian/NewsAlert/internal/logger"
	"github.com/gin-gonic/gin"
)

// AuthConfig 管理接口的访问控制，User 和 Pass 都非空才启用
type AuthConfig struct {
	User          string
	Pass          string
	PublicMetrics bool
}

func (a AuthConfig) Enabled() bool {
	return a.User != "" && a.Pass != ""
}

// publicPaths /health 始终开放，/metrics 按配置开放
func (a AuthConfig) publicPaths() map[string]struct{} {
	paths := map[string]struct{}{"/health": {}}
	if a.PublicMetrics {
		paths["/metrics"] = struct{}{}
	}
	return paths
}

// BasicAuth 校验失败返回 401 并记一条 warn
func BasicAuth(auth AuthConfig, log logger.Logger) gin.HandlerFunc {
	const realm = "NewsAlert"
	log = logger.OrNop(log)
	public := auth.publicPaths()
	uBytes := []byte(auth.User)
	pBytes := []byte(auth.Pass)

	return func(c *gin.Context) {
		if _, ok := public[c.Request.URL.Path]; ok {
			c.Next()
			return
		}
		u, p, ok := c.Request.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(u), uBytes) != 1 ||
			subtle.ConstantTimeCompare([]byte(p), pBytes) != 1 {
			log.Warn("basic auth rejected",
				logger.String("path", c.Request.URL.Path),
				logger.String("client_ip", c.ClientIP()),
				logger.Bool("credentials", ok))
			c.Header("WWW-Authenticate", `Basic realm="`+realm+`"`)
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}

// RequestLogger 每个请求记一行结构化日志
func RequestLogger(log logger.Logger) gin.HandlerFunc {
	log = logger.OrNop(log)
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []logger.Field{
			logger.String("method", c.Request.Method),
			logger.String("path", c.Request.URL.Path),
			logger.Int("status", c.Writer.Status()),
			logger.Duration("duration", time.Since(start)),
			logger.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			log.Error("http request with errors", append(fields, logger.String("errors", c.Errors.String()))...)
			return
		}
		log.Info("http request", fields...)
	}
}

// NewRouter 组装 gin 引擎
func NewRouter(s *Server, log logger.Logger, auth AuthConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(log))
	if auth.Enabled() {
		r.Use(BasicAuth(auth, log))
	}
	s.RegisterRoutes(r)
	return r
}
