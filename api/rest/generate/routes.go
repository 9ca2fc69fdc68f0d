package generate

import (
	"github.com/gin-gonic/gin"

	"codeberg.org/cvforge/server/internal/auth"
	"codeberg.org/cvforge/server/internal/llm"
	"codeberg.org/cvforge/server/internal/quota"
)

// registers CV generation routes
func RegisterRoutes(rg *gin.RouterGroup, svc *quota.Service, enhancer llm.Enhancer, limit gin.HandlerFunc) {
	rg.POST("/cv/generate", limit, auth.AuthMiddleware(), Handler(svc, enhancer))
}
