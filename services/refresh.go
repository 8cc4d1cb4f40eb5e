// services/refresh.go
package services

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// RefreshFunc performs one refetch of whatever the controller guards.
type RefreshFunc func(ctx context.Context) error

// RefreshConfig tunes one controller. Zero values fall back to defaults.
type RefreshConfig struct {
	MinInterval time.Duration // unforced refreshes inside this window are rejected
	BaseDelay   time.Duration // first backoff delay
	MaxDelay    time.Duration // backoff cap
	MaxAttempts int           // total attempts before giving up
	Debounce    time.Duration // trailing window collapsing force-refresh bursts
}

func (c RefreshConfig) withDefaults() RefreshConfig {
	if c.MinInterval <= 0 {
		c.MinInterval = 2 * time.Second
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = 500 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 10 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.Debounce <= 0 {
		c.Debounce = 300 * time.Millisecond
	}
	return c
}

// RefreshController wraps a RefreshFunc with a minimum-interval guard, an
// in-flight guard (at most one outstanding fetch), exponential backoff on
// transient failures and a debounced trailing force-refresh. One controller
// per cache key; Reset on user change, Close on teardown.
type RefreshController struct {
	cfg   RefreshConfig
	fetch RefreshFunc

	mu        sync.Mutex
	inFlight  bool
	lastFetch time.Time
	lastErr   error
	debTimer  *time.Timer
	closed    bool
}

func NewRefreshController(cfg RefreshConfig, fetch RefreshFunc) *RefreshController {
	return &RefreshController{cfg: cfg.withDefaults(), fetch: fetch}
}

// Refresh runs the fetch now, honoring the guards. Unforced calls within
// MinInterval of the last success return ErrRefreshTooSoon; calls while a
// fetch is outstanding return ErrFetchInFlight. Failures are retried with
// exponential backoff up to MaxAttempts; the final error is retained and
// returned.
func (c *RefreshController) Refresh(ctx context.Context, force bool) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrControllerClosed
	}
	if c.inFlight {
		c.mu.Unlock()
		return ErrFetchInFlight
	}
	if !force && !c.lastFetch.IsZero() && time.Since(c.lastFetch) < c.cfg.MinInterval {
		c.mu.Unlock()
		return ErrRefreshTooSoon
	}
	c.inFlight = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.inFlight = false
		c.mu.Unlock()
	}()

	delay := c.cfg.BaseDelay
	var err error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		err = c.fetch(ctx)
		if err == nil {
			c.mu.Lock()
			c.lastFetch = time.Now()
			c.lastErr = nil
			c.mu.Unlock()
			return nil
		}
		if attempt == c.cfg.MaxAttempts {
			break
		}
		log.Printf("[REFRESH] fetch attempt %d/%d failed, retrying in %s: %v",
			attempt, c.cfg.MaxAttempts, delay, err)
		select {
		case <-ctx.Done():
			c.setLastErr(ctx.Err())
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > c.cfg.MaxDelay {
			delay = c.cfg.MaxDelay
		}
	}

	log.Printf("[REFRESH] giving up after %d attempts: %v", c.cfg.MaxAttempts, err)
	c.setLastErr(err)
	return err
}

// RequestForceRefresh schedules a forced refresh after the debounce window.
// Bursts of triggers collapse into one trailing fetch. Safe to call
// concurrently; a no-op after Close.
func (c *RefreshController) RequestForceRefresh(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if c.debTimer != nil {
		c.debTimer.Stop()
	}
	c.debTimer = time.AfterFunc(c.cfg.Debounce, func() {
		c.mu.Lock()
		closed := c.closed
		c.mu.Unlock()
		if closed {
			return
		}
		if err := c.Refresh(ctx, true); err != nil &&
			!errors.Is(err, ErrFetchInFlight) && !errors.Is(err, ErrControllerClosed) {
			log.Printf("[REFRESH] debounced refresh failed: %v", err)
		}
	})
}

// Reset clears the interval guard and the retained error, e.g. on user
// change.
func (c *RefreshController) Reset() {
	c.mu.Lock()
	c.lastFetch = time.Time{}
	c.lastErr = nil
	c.mu.Unlock()
}

// Close cancels any pending debounce timer and rejects further work. No
// callback fires after Close returns with the timer stopped.
func (c *RefreshController) Close() {
	c.mu.Lock()
	c.closed = true
	if c.debTimer != nil {
		c.debTimer.Stop()
		c.debTimer = nil
	}
	c.mu.Unlock()
}

// LastError returns the error retained from the most recent failed cycle.
func (c *RefreshController) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *RefreshController) setLastErr(err error) {
	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()
}

// RefreshManager owns one controller per user session so guards and backoff
// state survive across requests but never leak between users.
type RefreshManager struct {
	mu          sync.Mutex
	cfg         RefreshConfig
	newFetch    func(userID string) RefreshFunc
	controllers map[string]*RefreshController
}

func NewRefreshManager(cfg RefreshConfig, newFetch func(userID string) RefreshFunc) *RefreshManager {
	return &RefreshManager{
		cfg:         cfg,
		newFetch:    newFetch,
		controllers: make(map[string]*RefreshController),
	}
}

func (m *RefreshManager) controller(userID string) *RefreshController {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.controllers[userID]; ok {
		return c
	}
	c := NewRefreshController(m.cfg, m.newFetch(userID))
	m.controllers[userID] = c
	return c
}

// RequestRefresh debounces a cache warm-up for the user — called after
// mutations so a burst of validations collapses into one refetch.
func (m *RefreshManager) RequestRefresh(ctx context.Context, userID string) {
	m.controller(userID).RequestForceRefresh(ctx)
}

// Drop tears down the user's controller (logout / session end).
func (m *RefreshManager) Drop(userID string) {
	m.mu.Lock()
	c, ok := m.controllers[userID]
	delete(m.controllers, userID)
	m.mu.Unlock()
	if ok {
		c.Close()
	}
}

// Shutdown closes every controller.
func (m *RefreshManager) Shutdown() {
	m.mu.Lock()
	controllers := m.controllers
	m.controllers = make(map[string]*RefreshController)
	m.mu.Unlock()
	for _, c := range controllers {
		c.Close()
	}
}
