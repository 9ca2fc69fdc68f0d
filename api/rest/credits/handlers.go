package credits

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"codeberg.org/cvforge/server/internal/auth"
	"codeberg.org/cvforge/server/internal/errors"
	"codeberg.org/cvforge/server/internal/logger"
	"codeberg.org/cvforge/server/internal/notify"
	"codeberg.org/cvforge/server/internal/quota"
)

// GetCredits godoc
// @Summary Get today's AI generation credits
// @Description Returns remaining, used and total credits for the authenticated user for the current UTC day
// @Tags credits
// @Produce json
// @Success 200 {object} Response
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /api/v1/credits [get]
// @Security BearerAuth
func GetCredits(svc *quota.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := auth.GetUserID(c)
		if !ok {
			errors.Unauthorized(c, "user not authenticated")
			return
		}

		snapshot, err := svc.GetSnapshot(c.Request.Context(), userID)
		if err != nil {
			errors.InternalError(c, "failed to fetch credits", err)
			return
		}

		c.JSON(http.StatusOK, snapshot)
	}
}

// WatchCredits godoc
// @Summary Stream credit updates
// @Description Upgrades to a websocket that receives credits_updated messages whenever the user's usage changes
// @Tags credits
// @Param token query string false "JWT, for clients that cannot set the Authorization header"
// @Success 101 {string} string "Switching Protocols"
// @Failure 401 {object} errors.ErrorResponse
// @Failure 429 {object} errors.ErrorResponse
// @Router /api/v1/credits/ws [get]
func WatchCredits(svc *quota.Service, hub *notify.Hub, upgrader *websocket.Upgrader) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := auth.GetUserID(c)
		if !ok {
			errors.Unauthorized(c, "user not authenticated")
			return
		}

		ipAddress := c.ClientIP()
		if canAccept, reason := hub.CanAcceptConnection(userID, ipAddress); !canAccept {
			errors.TooManyRequests(c, reason)
			return
		}

		clientID, err := notify.GenerateClientID()
		if err != nil {
			errors.InternalError(c, "failed to generate client ID", err)
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.ErrorErr(err, "failed to upgrade connection",
				"user_id", userID,
				"ip", ipAddress,
			)
			return
		}

		hub.TrackIPConnection(ipAddress)

		client := notify.NewClient(clientID, userID, ipAddress, conn, hub)

		select {
		case hub.Register <- client:
		case <-hub.Done():
			hub.ReleaseIPConnection(ipAddress)
			conn.Close() //nolint:errcheck,gosec
			return
		}

		// read after registering, so a consume racing this handler is either
		// in the snapshot or pushed to the client
		snapshot, err := svc.GetSnapshot(c.Request.Context(), userID)
		if err != nil {
			logger.ErrorErr(err, "failed to fetch initial credits",
				"user_id", userID,
			)

			select {
			case hub.Unregister <- client:
			case <-hub.Done():
			}

			conn.Close() //nolint:errcheck,gosec
			return
		}

		if msg, err := notify.NewMessage(notify.TypeCreditsUpdated, snapshot); err == nil {
			client.Send(msg) //nolint:errcheck,gosec // closed clients drop it
		}

		go client.WritePump()
		go client.ReadPump()
	}
}
