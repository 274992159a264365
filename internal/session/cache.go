package session

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"
	"k8s.io/klog/v2"
)

var (
	// ErrNoSetup is returned when nothing is cached for a key and no setup
	// procedure was given to create it.
	ErrNoSetup = errors.New("no cached session and no setup procedure")
	// ErrKeyMismatch is returned when the stored record belongs to another key.
	ErrKeyMismatch = errors.New("stored session belongs to a different key")
	// ErrInvalidSession is returned when the validate hook rejects a session.
	ErrInvalidSession = errors.New("session failed validation")
)

// Target is the browser context a session is created in and restored into.
type Target interface {
	// Clear removes cookies and web storage.
	Clear(ctx context.Context) error
	// Capture snapshots cookies and web storage.
	Capture(ctx context.Context) (*State, error)
	// Restore loads a snapshot into the target.
	Restore(ctx context.Context, state *State) error
}

// SetupFunc performs the login against the target.
type SetupFunc func(ctx context.Context) error

// Outcome tells how Session satisfied a request.
type Outcome int

const (
	// Created means setup ran and its state was captured.
	Created Outcome = iota + 1
	// Restored means cached state was replayed without running setup.
	Restored
)

func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case Restored:
		return "restored"
	default:
		return "unknown"
	}
}

type options struct {
	validate func(ctx context.Context) error
}

// Option customises a single Session call.
type Option func(*options)

// WithValidate runs fn after the session is created or restored. A failing
// validation returns ErrInvalidSession; the cached state is left in place.
func WithValidate(fn func(ctx context.Context) error) Option {
	return func(o *options) {
		o.validate = fn
	}
}

// Cache hands out authenticated sessions by key. Setup runs at most once per
// key while its state is cached; concurrent requests for the same key share
// one setup.
type Cache struct {
	store Store
	group singleflight.Group
	now   func() time.Time

	mu     sync.Mutex
	setups map[string]int
}

// NewCache creates a cache over store. A nil store means a fresh MemoryStore.
func NewCache(store Store) *Cache {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Cache{
		store:  store,
		now:    time.Now,
		setups: make(map[string]int),
	}
}

// Store returns the backing store.
func (c *Cache) Store() Store {
	return c.store
}

// Session ensures target holds the authenticated state for key: it clears the
// target, then restores the cached state, or runs setup and caches the result
// when nothing is cached yet.
func (c *Cache) Session(ctx context.Context, key string, target Target, setup SetupFunc, opts ...Option) (Outcome, error) {
	if key == "" {
		return 0, ErrEmptyKey
	}
	if target == nil {
		return 0, errors.New("session target must not be nil")
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	if err := target.Clear(ctx); err != nil {
		return 0, errors.Wrapf(err, "session %q: failed to clear target", key)
	}

	outcome, err := c.restoreOrCreate(ctx, key, target, setup)
	if err != nil {
		return 0, err
	}

	if o.validate != nil {
		if err := o.validate(ctx); err != nil {
			return outcome, errors.Wrapf(ErrInvalidSession, "session %q: %v", key, err)
		}
	}
	return outcome, nil
}

func (c *Cache) restoreOrCreate(ctx context.Context, key string, target Target, setup SetupFunc) (Outcome, error) {
	state, err := c.load(ctx, key)
	if err == nil {
		klog.V(2).Infof("[session] %s: restoring cached state", key)
		return Restored, c.restore(ctx, key, target, state)
	}
	if !errors.Is(err, ErrNotFound) {
		return 0, err
	}
	if setup == nil {
		return 0, errors.Wrapf(ErrNoSetup, "session %q", key)
	}

	ranSetup := false
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		// Another flight may have finished between our miss and now.
		if cached, err := c.load(ctx, key); err == nil {
			return cached, nil
		} else if !errors.Is(err, ErrNotFound) {
			return nil, err
		}

		ranSetup = true
		return c.create(ctx, key, target, setup)
	})
	if err != nil {
		return 0, err
	}
	if ranSetup {
		return Created, nil
	}

	// The state was produced in another caller's target.
	return Restored, c.restore(ctx, key, target, v.(*State))
}

func (c *Cache) create(ctx context.Context, key string, target Target, setup SetupFunc) (*State, error) {
	klog.Infof("[session] %s: no cached state, running setup", key)
	c.mu.Lock()
	c.setups[key]++
	c.mu.Unlock()

	start := c.now()
	if err := setup(ctx); err != nil {
		return nil, errors.Wrapf(err, "session %q: setup failed", key)
	}

	state, err := target.Capture(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "session %q: failed to capture state", key)
	}
	if state == nil {
		state = &State{}
	}
	state.Key = key
	state.CapturedAt = c.now()

	if err := c.store.Save(ctx, key, state); err != nil {
		return nil, errors.Wrapf(err, "session %q: failed to cache state", key)
	}
	klog.Infof("[session] %s: cached %d cookies, %d origins (setup took %v)",
		key, len(state.Cookies), len(state.Origins), state.CapturedAt.Sub(start))
	return state.Clone(), nil
}

func (c *Cache) load(ctx context.Context, key string) (*State, error) {
	state, err := c.store.Load(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrapf(err, "session %q: failed to load", key)
	}
	if state.Key != key {
		return nil, errors.Wrapf(ErrKeyMismatch, "requested %q, stored record is %q", key, state.Key)
	}
	return state, nil
}

func (c *Cache) restore(ctx context.Context, key string, target Target, state *State) error {
	if err := target.Restore(ctx, state); err != nil {
		return errors.Wrapf(err, "session %q: failed to restore", key)
	}
	return nil
}

// SetupCount returns how many times setup ran for key.
func (c *Cache) SetupCount(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setups[key]
}

// Keys lists the cached session keys.
func (c *Cache) Keys(ctx context.Context) ([]string, error) {
	return c.store.Keys(ctx)
}

// Clear drops the cached state for key so the next request runs setup again.
func (c *Cache) Clear(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	klog.V(2).Infof("[session] %s: clearing cached state", key)
	return c.store.Delete(ctx, key)
}

// ClearAll drops every cached session.
func (c *Cache) ClearAll(ctx context.Context) error {
	keys, err := c.store.Keys(ctx)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := c.store.Delete(ctx, k); err != nil {
			return err
		}
	}
	return nil
}
