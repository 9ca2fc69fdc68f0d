package credits

import (
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"codeberg.org/cvforge/server/internal/auth"
	"codeberg.org/cvforge/server/internal/notify"
	"codeberg.org/cvforge/server/internal/quota"
)

// registers the quota check and credit stream routes
func RegisterRoutes(rg *gin.RouterGroup, svc *quota.Service, hub *notify.Hub, upgrader *websocket.Upgrader, limit gin.HandlerFunc) {
	credits := rg.Group("/credits")

	credits.GET("", limit, auth.AuthMiddleware(), GetCredits(svc))
	credits.GET("/ws", auth.QueryTokenAuthMiddleware(), WatchCredits(svc, hub, upgrader))
}
