package store

import (
	"sort"
	"sync"

	"nestkeep/internal/model"
)

// sessionCache is the in-process session cache, scoped by household id (or
// by user id for the sitter view). Read-modify-write cache updates are
// serialized by the mutex; each process owns its own cache and must refresh
// to observe writes made elsewhere.
type sessionCache struct {
	mu     sync.RWMutex
	scopes map[string]map[string]model.Session
}

func newSessionCache() *sessionCache {
	return &sessionCache{scopes: make(map[string]map[string]model.Session)}
}

// primed reports whether the scope has been loaded at least once. An empty
// loaded scope is still primed.
func (c *sessionCache) primed(scope string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.scopes[scope]
	return ok
}

func (c *sessionCache) get(scope, id string) (model.Session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.scopes[scope][id]
	return s, ok
}

// list returns the scope's sessions ordered by start date, matching the
// backend listing order.
func (c *sessionCache) list(scope string) []model.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	sessions := make([]model.Session, 0, len(c.scopes[scope]))
	for _, s := range c.scopes[scope] {
		sessions = append(sessions, s)
	}
	sort.Slice(sessions, func(i, j int) bool {
		if !sessions[i].StartDate.Equal(sessions[j].StartDate) {
			return sessions[i].StartDate.Before(sessions[j].StartDate)
		}
		return sessions[i].ID < sessions[j].ID
	})
	return sessions
}

// put patches a session into an already-primed scope. Unprimed scopes are
// left alone: only replaceAll primes, so a point write can never make a
// partial scope pass for a complete listing.
func (c *sessionCache) put(scope string, s model.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.scopes[scope]
	if !ok {
		return
	}
	m[s.ID] = s
}

func (c *sessionCache) delete(scope, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.scopes[scope], id)
}

func (c *sessionCache) replaceAll(scope string, sessions []model.Session) {
	byID := make(map[string]model.Session, len(sessions))
	for _, s := range sessions {
		byID[s.ID] = s
	}
	c.mu.Lock()
	c.scopes[scope] = byID
	c.mu.Unlock()
}

func (c *sessionCache) invalidate(scope string) {
	c.mu.Lock()
	delete(c.scopes, scope)
	c.mu.Unlock()
}
