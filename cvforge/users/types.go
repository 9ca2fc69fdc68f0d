package users

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("user not found")

// persistence operations the auth handlers depend on
type Store interface {
	FindOrCreateByProvider(ctx context.Context, provider, providerID, email, name, avatarURL string) (*User, error)
	FindByID(ctx context.Context, userID string) (*User, error)
	UpdateProfile(ctx context.Context, userID, name, avatarURL string) (*User, error)
}

// handles user database operations
type Repository struct {
	db *pgxpool.Pool
}

// keeps users in process memory (memory and sqlite counter deployments)
type MemoryRepository struct {
	mu         sync.RWMutex
	byID       map[string]*User
	byProvider map[string]string
}

// represents an authenticated user; ID is the quota identity
type User struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	Provider   string    `json:"provider"`
	ProviderID string    `json:"-"`
	Name       string    `json:"name"`
	AvatarURL  string    `json:"avatar_url"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
