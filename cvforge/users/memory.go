package users

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:       make(map[string]*User),
		byProvider: make(map[string]string),
	}
}

func (r *MemoryRepository) FindOrCreateByProvider(
	_ context.Context,
	provider, providerID, email, name, avatarURL string,
) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	key := provider + ":" + providerID

	if id, ok := r.byProvider[key]; ok {
		user := r.byID[id]
		user.Email = email
		user.Name = name
		user.AvatarURL = avatarURL
		user.UpdatedAt = now

		cp := *user
		return &cp, nil
	}

	user := &User{
		ID:         uuid.NewString(),
		Email:      email,
		Provider:   provider,
		ProviderID: providerID,
		Name:       name,
		AvatarURL:  avatarURL,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	r.byID[user.ID] = user
	r.byProvider[key] = user.ID

	cp := *user
	return &cp, nil
}

func (r *MemoryRepository) FindByID(_ context.Context, userID string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[userID]
	if !ok {
		return nil, ErrNotFound
	}

	cp := *user
	return &cp, nil
}

func (r *MemoryRepository) UpdateProfile(_ context.Context, userID, name, avatarURL string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[userID]
	if !ok {
		return nil, ErrNotFound
	}

	user.Name = name
	user.AvatarURL = avatarURL
	user.UpdatedAt = time.Now().UTC()

	cp := *user
	return &cp, nil
}
