package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"interview-backend/internal/candidates"
	"interview-backend/internal/interview"
	"interview-backend/internal/shared/config"
	"interview-backend/internal/shared/metrics"
	"interview-backend/internal/shared/server/middleware"
	"interview-backend/internal/shared/server/respond"
)

// Rate limit groups.
const (
	rateGroupDefault = "DEFAULT"
	rateGroupPolling = "POLLING"
	rateGroupUpload  = "UPLOAD"
	rateGroupStream  = "STREAM"
	rateGroupDraft   = "DRAFT"
	rateGroupAnswer  = "ANSWER"
)

// Drafts autosave while the candidate types, and answers must never be
// starved by them, so each has its own bucket.
var defaultRateRules = map[string]middleware.RateLimitRule{
	rateGroupDefault: {Rate: 5, Burst: 20},
	rateGroupPolling: {Rate: 10, Burst: 40},
	rateGroupUpload:  {Rate: 0.2, Burst: 3},
	rateGroupDraft:   {Rate: 20, Burst: 60},
	rateGroupAnswer:  {Rate: 2, Burst: 10},
}

// RouterDeps are the services the router exposes.
type RouterDeps struct {
	Config     config.Config
	Interview  *interview.Service
	Candidates *candidates.Service
	MaxUpload  int64
	Limiter    *middleware.RateLimiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.RateLimit(middleware.RateLimitConfig{
			DefaultGroup: rateGroupDefault,
			GroupFor:     rateGroupFor,
			Limiter:      deps.Limiter,
			Rules:        defaultRateRules,
		}),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	if deps.Interview != nil {
		interview.NewHandler(deps.Interview, deps.MaxUpload, deps.Config.CORSAllowOrigin).RegisterRoutes(api)
	}
	if deps.Candidates != nil {
		candidates.NewHandler(deps.Candidates).RegisterRoutes(api)
	}

	return r
}

func rateGroupFor(c *gin.Context) string {
	switch c.FullPath() {
	case "/api/v1/interview", "/api/v1/candidates", "/api/v1/candidates/:id", "/api/v1/health":
		if c.Request.Method == http.MethodGet {
			return rateGroupPolling
		}
	case "/api/v1/interview/resume-file":
		return rateGroupUpload
	case "/api/v1/interview/draft":
		return rateGroupDraft
	case "/api/v1/interview/answers":
		return rateGroupAnswer
	case "/api/v1/interview/stream", "/metrics":
		return rateGroupStream
	}
	return rateGroupDefault
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
