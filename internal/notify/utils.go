package notify

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"slices"

	"codeberg.org/cvforge/server/internal/logger"
)

// returns an origin checker for the websocket upgrader. with no configured
// origins every origin is accepted outside production.
func OriginChecker(environment string, allowedOrigins []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")

		// non-browser clients (the TUI) send no origin
		if origin == "" || environment != "production" {
			return true
		}

		if slices.Contains(allowedOrigins, origin) || slices.Contains(allowedOrigins, "*") {
			return true
		}

		logger.Warn("websocket origin rejected - not in allowed origins",
			"origin", origin,
			"allowed_origins", allowedOrigins,
		)

		return false
	}
}

func GenerateClientID() (string, error) {
	bytes := make([]byte, 16)

	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}

	return hex.EncodeToString(bytes), nil
}
