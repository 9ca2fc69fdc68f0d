package main

import (
	"github.com/gin-gonic/gin"

	"codeberg.org/cvforge/server/api/rest/auth"
	"codeberg.org/cvforge/server/api/rest/credits"
	"codeberg.org/cvforge/server/api/rest/generate"
	"codeberg.org/cvforge/server/api/rest/health"
	internalauth "codeberg.org/cvforge/server/internal/auth"
)

// sets up all API routes and middleware
func RegisterRoutes(router *gin.Engine, server *Server) {
	router.Use(RequestLogger())
	router.Use(CORSMiddleware(server.config.CORSOrigins))
	router.GET("/health", health.Handler(server.checks...))

	v1 := router.Group("/api/v1")

	{
		v1.GET("/ping", internalauth.OptionalAuthMiddleware(), health.PingHandler)

		auth.RegisterRoutes(v1, server.userRepo, server.config.OAuth.Enabled)
		credits.RegisterRoutes(v1, server.services.Quota, server.hub, server.upgrader, server.limit)
		generate.RegisterRoutes(v1, server.services.Quota, server.services.Enhancer, server.limit)
	}
}
