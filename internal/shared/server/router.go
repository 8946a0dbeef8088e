package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"quizgen-backend/internal/documents"
	"quizgen-backend/internal/exams"
	"quizgen-backend/internal/generation"
	"quizgen-backend/internal/services/health"
	"quizgen-backend/internal/shared/auth"
	"quizgen-backend/internal/shared/config"
	"quizgen-backend/internal/shared/metrics"
	"quizgen-backend/internal/shared/server/middleware"
	"quizgen-backend/internal/shared/server/respond"
)

// RouterDeps holds the handlers and collaborators the router mounts.
type RouterDeps struct {
	Config            config.Config
	Tokens            *auth.Tokens
	Health            *health.Service
	Limiter           middleware.Limiter
	DocumentHandler   *documents.Handler
	ExamHandler       *exams.Handler
	GenerationHandler *generation.Handler
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		metrics.Middleware(),
	)
	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		if deps.Health == nil {
			respond.JSON(c, http.StatusOK, health.Report{OK: true})
			return
		}
		report := deps.Health.Status(c.Request.Context())
		status := http.StatusOK
		if !report.OK {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, report)
	})

	authed := api.Group("")
	authed.Use(middleware.Auth(deps.Tokens))
	registerMeRoutes(authed)
	if deps.DocumentHandler != nil {
		deps.DocumentHandler.RegisterRoutes(authed)
	}
	if deps.ExamHandler != nil {
		deps.ExamHandler.RegisterRoutes(authed)
	}
	if deps.GenerationHandler != nil {
		var guards []gin.HandlerFunc
		if deps.Limiter != nil {
			guards = append(guards, middleware.RateLimit(deps.Limiter, "generate"))
		}
		if n := deps.Config.MaxConcurrentGenerations; n > 0 {
			guards = append(guards, middleware.Concurrency(int64(n)))
		}
		deps.GenerationHandler.RegisterRoutes(authed, guards...)
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
