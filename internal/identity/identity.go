// Package identity holds the terminal client's bearer credential and tells
// interested components when it appears, changes or goes away.
package identity

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/adrg/xdg"
	"github.com/natefinch/atomic"
)

// $XDG_CONFIG_HOME/cvforge/token
func DefaultPath() (string, error) {
	path, err := xdg.ConfigFile(filepath.Join("cvforge", "token"))
	if err != nil {
		return "", fmt.Errorf("failed to resolve token path: %w", err)
	}

	return path, nil
}

type Holder struct {
	path string

	mu        sync.RWMutex
	token     string
	listeners map[int]func(token string)
	nextID    int
}

// creates a holder persisted at path; an empty path keeps the token in memory
func NewHolder(path string) *Holder {
	return &Holder{
		path:      path,
		listeners: make(map[int]func(string)),
	}
}

// creates a holder and loads any token previously stored at path
func Load(path string) (*Holder, error) {
	h := NewHolder(path)

	if path == "" {
		return h, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return h, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read token: %w", err)
	}

	h.token = strings.TrimSpace(string(data))
	return h, nil
}

// the current bearer token, empty when signed out
func (h *Holder) Token() string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.token
}

func (h *Holder) Present() bool {
	return h.Token() != ""
}

// stores token and persists it
func (h *Holder) Set(token string) error {
	token = strings.TrimSpace(token)

	if err := h.persist(token); err != nil {
		return err
	}

	h.swap(token)
	return nil
}

// switches to token for this process only (e.g. CVFORGE_TOKEN)
func (h *Holder) Use(token string) {
	h.swap(strings.TrimSpace(token))
}

// signs out and removes the stored token
func (h *Holder) Clear() error {
	if h.path != "" {
		if err := os.Remove(h.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to remove token: %w", err)
		}
	}

	h.swap("")
	return nil
}

// registers fn to run after every token change; the returned func unsubscribes
func (h *Holder) Subscribe(fn func(token string)) func() {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.listeners[id] = fn
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		delete(h.listeners, id)
		h.mu.Unlock()
	}
}

func (h *Holder) swap(token string) {
	h.mu.Lock()

	if h.token == token {
		h.mu.Unlock()
		return
	}

	h.token = token

	listeners := make([]func(string), 0, len(h.listeners))
	for _, fn := range h.listeners {
		listeners = append(listeners, fn)
	}

	h.mu.Unlock()

	for _, fn := range listeners {
		fn(token)
	}
}

func (h *Holder) persist(token string) error {
	if h.path == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(h.path), 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	if err := atomic.WriteFile(h.path, strings.NewReader(token)); err != nil {
		return fmt.Errorf("failed to write token: %w", err)
	}

	if err := os.Chmod(h.path, 0o600); err != nil {
		return fmt.Errorf("failed to restrict token permissions: %w", err)
	}

	return nil
}
