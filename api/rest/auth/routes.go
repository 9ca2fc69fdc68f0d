package auth

import (
	"github.com/gin-gonic/gin"

	"codeberg.org/cvforge/server/cvforge/users"
	"codeberg.org/cvforge/server/internal/auth"
)

// registers the profile routes and, when enabled, the OAuth flow
func RegisterRoutes(router *gin.RouterGroup, userRepo users.Store, oauthEnabled bool) {
	authGroup := router.Group("/auth")
	{
		if oauthEnabled {
			authGroup.GET("/:provider", BeginAuthHandler())
			authGroup.GET("/:provider/callback", CallbackHandler(userRepo))
		}

		authGroup.POST("/logout", LogoutHandler())
		authGroup.GET("/me", auth.AuthMiddleware(), GetCurrentUserHandler(userRepo))
		authGroup.PUT("/me", auth.AuthMiddleware(), UpdateProfileHandler(userRepo))
	}
}
