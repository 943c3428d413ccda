package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"interview-backend/internal/shared/metrics"
	"interview-backend/internal/shared/server/respond"
	"interview-backend/internal/shared/telemetry"
)

// Recovery turns a handler panic into a 500 envelope. Panics after the
// response started (a hijacked stream, a partial body) are only logged.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(rec)
			}

			route := c.FullPath()
			if route == "" {
				route = "unmatched"
			}
			metrics.IncPanicRecovered(route)
			telemetry.Error("http.panic", map[string]any{
				"request_id":       RequestIDFromContext(c),
				"panic":            fmt.Sprint(rec),
				"stack":            string(debug.Stack()),
				"route":            route,
				"method":           c.Request.Method,
				"candidate_id":     c.GetString(CandidateIDKey),
				"interview_status": c.GetString(InterviewStatusKey),
			})

			if c.Writer.Written() {
				c.Abort()
				return
			}
			respond.Error(c, http.StatusInternalServerError, "internal_error", "Unexpected server error", nil)
		}()
		c.Next()
	}
}
