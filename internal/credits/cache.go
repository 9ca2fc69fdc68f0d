// Package credits mirrors the server's daily quota on the client. It is the
// single source of truth for every widget that shows or gates on credits.
//
// Unknown quota is treated as zero: CanGenerate is only true in StatusReady
// with credits left.
package credits

import (
	"context"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"

	"codeberg.org/cvforge/server/internal/quota"
)

type Cache struct {
	fetcher  Fetcher
	identity Identity
	group    singleflight.Group

	mu    sync.Mutex
	state State
	epoch uint64
	// bumped by every Apply; fetches started before a push are stale
	pushes uint64
	subs   map[int]func(State)
	nextID int

	// background refetches triggered by identity changes
	ctx         context.Context
	unsubscribe func()
	wg          sync.WaitGroup
}

func New(fetcher Fetcher, identity Identity) *Cache {
	return &Cache{
		fetcher:  fetcher,
		identity: identity,
		subs:     make(map[int]func(State)),
	}
}

// loads the initial snapshot and follows identity changes until ctx is done
// or Close is called
func (c *Cache) Start(ctx context.Context) State {
	c.mu.Lock()
	c.ctx = ctx
	c.unsubscribe = c.identity.Subscribe(c.identityChanged)
	c.mu.Unlock()

	return c.Refresh(ctx)
}

// stops following identity changes and waits for in-flight refetches
func (c *Cache) Close() {
	c.mu.Lock()
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	c.ctx = nil
	c.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}

	c.wg.Wait()
}

// refetches the snapshot. concurrent calls for the same identity share one
// request unless a snapshot was applied in between; a result that arrives
// after the identity changed or after a newer Apply is dropped.
func (c *Cache) Refresh(ctx context.Context) State {
	gen := c.current()

	if c.identity.Token() == "" {
		next := State{Status: StatusUnavailable, Err: ErrNoIdentity}
		c.set(next, gen)
		return next
	}

	c.set(State{Status: StatusLoading}, gen)

	v, err, _ := c.group.Do(gen.key(), func() (any, error) {
		return c.fetcher.Credits(ctx)
	})

	next := State{Status: StatusUnavailable, Err: err}
	if err == nil {
		next = State{Status: StatusReady, Snapshot: v.(quota.Snapshot)} //nolint:forcetypeassert // only snapshots are stored
	}

	if !c.set(next, gen) {
		return c.State()
	}

	return next
}

// takes a snapshot pushed by the server without refetching. fetches already
// in flight can no longer overwrite it.
func (c *Cache) Apply(snapshot quota.Snapshot) {
	if c.identity.Token() == "" {
		return
	}

	c.mu.Lock()
	c.pushes++
	gen := generation{epoch: c.epoch, pushes: c.pushes}
	c.mu.Unlock()

	c.set(State{Status: StatusReady, Snapshot: snapshot}, gen)
}

func (c *Cache) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// true only when the quota is known and not exhausted
func (c *Cache) CanGenerate() bool {
	s := c.State()
	return s.Status == StatusReady && s.Snapshot.Remaining > 0
}

// remaining credits, 0 unless the quota is known
func (c *Cache) Remaining() int {
	s := c.State()
	if s.Status != StatusReady {
		return 0
	}

	return s.Snapshot.Remaining
}

// registers fn for every state transition; the returned func unsubscribes
func (c *Cache) Subscribe(fn func(State)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// identity epoch and push count at the time an update was started
type generation struct {
	epoch  uint64
	pushes uint64
}

func (g generation) key() string {
	return strconv.FormatUint(g.epoch, 10) + "/" + strconv.FormatUint(g.pushes, 10)
}

func (c *Cache) current() generation {
	c.mu.Lock()
	defer c.mu.Unlock()

	return generation{epoch: c.epoch, pushes: c.pushes}
}

// applies next if gen is still current and notifies subscribers
func (c *Cache) set(next State, gen generation) bool {
	c.mu.Lock()

	if gen.epoch != c.epoch || gen.pushes != c.pushes {
		c.mu.Unlock()
		return false
	}

	c.state = next

	subs := make([]func(State), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}

	c.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}

	return true
}

func (c *Cache) identityChanged(string) {
	c.mu.Lock()
	c.epoch++
	ctx := c.ctx
	if ctx == nil {
		c.mu.Unlock()
		return
	}

	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		c.Refresh(ctx)
	}()
}
