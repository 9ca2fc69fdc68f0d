package main

import (
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"codeberg.org/cvforge/server/api/rest/health"
	"codeberg.org/cvforge/server/cvforge/users"
	"codeberg.org/cvforge/server/internal/config"
	"codeberg.org/cvforge/server/internal/counter"
	"codeberg.org/cvforge/server/internal/llm"
	"codeberg.org/cvforge/server/internal/notify"
	"codeberg.org/cvforge/server/internal/quota"
)

// holds all dependencies and state for the API server
type Server struct {
	db       *pgxpool.Pool // nil unless a postgres URL is configured
	redis    *redis.Client // nil unless a redis URL is configured
	config   *config.Config
	store    counter.Store
	userRepo users.Store
	services *Services
	hub      *notify.Hub
	fanout   *notify.RedisFanout
	upgrader *websocket.Upgrader
	limit    gin.HandlerFunc
	checks   []health.Check
	router   *gin.Engine
	closers  []func() error
}

// holds the domain services behind the REST handlers
type Services struct {
	Quota    *quota.Service
	Enhancer llm.Enhancer
}
