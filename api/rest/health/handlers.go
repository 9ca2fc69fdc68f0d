package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"codeberg.org/cvforge/server/internal/auth"
	"codeberg.org/cvforge/server/internal/logger"
)

const (
	serviceName  = "cvforge"
	version      = "1.0.0"
	probeTimeout = 2 * time.Second
)

// returns the server health status, probing each dependency
func Handler(checks ...Check) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := Response{
			Status:  "healthy",
			Service: serviceName,
			Version: version,
		}

		status := http.StatusOK

		if len(checks) > 0 {
			resp.Checks = make(map[string]string, len(checks))
		}

		for _, check := range checks {
			ctx, cancel := context.WithTimeout(c.Request.Context(), probeTimeout)
			err := check.Probe(ctx)
			cancel()

			if err != nil {
				logger.Warn("health check failed", "check", check.Name, "error", err)
				resp.Checks[check.Name] = "unavailable"
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}

			resp.Checks[check.Name] = "ok"
		}

		c.JSON(status, resp)
	}
}

// responds with pong, plus who the caller is when a valid token was sent.
// pair with auth.OptionalAuthMiddleware.
func PingHandler(c *gin.Context) {
	resp := PingResponse{Message: "pong"}

	if userID, ok := auth.GetUserID(c); ok {
		resp.UserID = userID
		resp.Email = auth.GetUserEmail(c)
	}

	c.JSON(http.StatusOK, resp)
}
