package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"codeberg.org/cvforge/server/cvforge/users"
	"codeberg.org/cvforge/server/internal/auth"
)

// prints a JWT for a local test user. with DATABASE_URL set the user is
// stored in postgres, otherwise only the token is minted.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found")
	}

	ctx := context.Background()

	var repo users.Store = users.NewMemoryRepository()

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		pool, err := pgxpool.New(ctx, dbURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer pool.Close()

		pg := users.NewRepository(pool)
		if err := pg.Initialize(ctx); err != nil {
			log.Fatalf("Failed to initialize users table: %v", err)
		}

		repo = pg
	}

	user, err := repo.FindOrCreateByProvider(ctx, "test", "test-user-123", "test@cvforge.dev", "Test User", "")
	if err != nil {
		log.Fatalf("Failed to create test user: %v", err)
	}

	token, err := auth.GenerateJWT(user.ID, user.Email)
	if err != nil {
		log.Fatalf("Failed to generate JWT: %v", err)
	}

	fmt.Printf("Test user: %s (ID: %s)\n\n", user.Email, user.ID)
	fmt.Printf("Test JWT Token:\n%s\n\n", token)
	fmt.Printf("Use it in the terminal client:\nexport CVFORGE_TOKEN=\"%s\"\n", token)
}
