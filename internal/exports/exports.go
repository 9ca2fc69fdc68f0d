// Package exports counts CV exports per local calendar day. The counter is
// client-owned and never synced to the server.
package exports

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/adrg/xdg"
	"github.com/coder/quartz"
	"github.com/natefinch/atomic"
)

const (
	// free exports per local day
	DailyLimit = 3

	dateLayout = "2006-01-02"
)

var ErrDailyLimit = errors.New("daily export limit reached")

// on-disk layout
type state struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type Counter struct {
	path  string
	clock quartz.Clock

	mu    sync.Mutex
	state state
}

type Option func(*Counter)

func WithClock(clock quartz.Clock) Option {
	return func(c *Counter) {
		c.clock = clock
	}
}

// $XDG_STATE_HOME/cvforge/export_counter.json
func DefaultPath() (string, error) {
	path, err := xdg.StateFile(filepath.Join("cvforge", "export_counter.json"))
	if err != nil {
		return "", fmt.Errorf("failed to resolve export counter path: %w", err)
	}

	return path, nil
}

// opens the counter stored at path, creating a fresh one for today when the
// file is missing, corrupt or from another day
func Open(path string, opts ...Option) (*Counter, error) {
	c := &Counter{
		path:  path,
		clock: quartz.NewReal(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if err := c.Load(); err != nil {
		return nil, err
	}

	return c, nil
}

// re-reads the file and rolls the counter over to today if needed
func (c *Counter) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = c.read()
	if c.state.Date == c.today() {
		return nil
	}

	c.state = state{Date: c.today()}
	return c.persist()
}

// true while today's exports are below DailyLimit
func (c *Counter) Allowed() bool {
	return c.Remaining() > 0
}

func (c *Counter) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return max(0, DailyLimit-c.current().Count)
}

// today's export count
func (c *Counter) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.current().Count
}

// counts one export; ErrDailyLimit when none are left
func (c *Counter) Record() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.current()
	if s.Count >= DailyLimit {
		return ErrDailyLimit
	}

	s.Count++
	prev := c.state
	c.state = s

	if err := c.persist(); err != nil {
		c.state = prev
		return err
	}

	return nil
}

// the state for today, rolling over in memory when the day changed
func (c *Counter) current() state {
	if today := c.today(); c.state.Date != today {
		c.state = state{Date: today}
	}

	return c.state
}

// local calendar day
func (c *Counter) today() string {
	return c.clock.Now().Local().Format(dateLayout)
}

func (c *Counter) read() state {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return state{}
	}

	var s state
	if err := json.Unmarshal(data, &s); err != nil || s.Count < 0 {
		return state{}
	}

	return s
}

func (c *Counter) persist() error {
	data, err := json.Marshal(c.state)
	if err != nil {
		return fmt.Errorf("failed to encode export counter: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil && !errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	if err := atomic.WriteFile(c.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write export counter: %w", err)
	}

	return nil
}
