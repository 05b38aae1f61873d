// Package cache provides the best-effort local transcript store. Sessions
// are kept in memory with LRU eviction and a TTL; nothing here is a
// durability guarantee, only a convenience so a reconnecting surface can
// pick up a recent conversation.
package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/angie-labs/angiehost/pkg/models"
)

// Transcript is one cached conversation snapshot.
type Transcript struct {
	Messages  []models.Message
	ExpiresAt time.Time
}

// SessionCache is a thread-safe LRU of conversation transcripts keyed by
// session ID.
type SessionCache struct {
	mu       sync.RWMutex
	capacity int
	ttl      time.Duration
	items    map[string]*list.Element
	lru      *list.List
}

type sessionEntry struct {
	id         string
	transcript Transcript
}

// NewSessionCache creates a cache holding up to capacity sessions, each
// expiring ttl after its last update.
func NewSessionCache(capacity int, ttl time.Duration) *SessionCache {
	return &SessionCache{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*list.Element, capacity),
		lru:      list.New(),
	}
}

// Get returns a copy of the cached transcript. Expired sessions are dropped
// on access; hits refresh recency.
func (c *SessionCache) Get(sessionID string) ([]models.Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[sessionID]
	if !ok {
		return nil, false
	}

	ent := elem.Value.(*sessionEntry)
	if time.Now().After(ent.transcript.ExpiresAt) {
		c.lru.Remove(elem)
		delete(c.items, sessionID)
		return nil, false
	}

	c.lru.MoveToFront(elem)
	out := make([]models.Message, len(ent.transcript.Messages))
	copy(out, ent.transcript.Messages)
	return out, true
}

// Put stores a snapshot of the history under the session ID, evicting the
// least recently used session if over capacity.
func (c *SessionCache) Put(sessionID string, history []models.Message) {
	snapshot := make([]models.Message, len(history))
	copy(snapshot, history)

	c.mu.Lock()
	defer c.mu.Unlock()

	transcript := Transcript{Messages: snapshot, ExpiresAt: time.Now().Add(c.ttl)}

	if elem, ok := c.items[sessionID]; ok {
		c.lru.MoveToFront(elem)
		elem.Value.(*sessionEntry).transcript = transcript
		return
	}

	elem := c.lru.PushFront(&sessionEntry{id: sessionID, transcript: transcript})
	c.items[sessionID] = elem

	if c.lru.Len() > c.capacity {
		oldest := c.lru.Back()
		if oldest != nil {
			c.lru.Remove(oldest)
			delete(c.items, oldest.Value.(*sessionEntry).id)
		}
	}
}

// Len reports how many sessions are cached.
func (c *SessionCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lru.Len()
}

// Clear drops every cached session.
func (c *SessionCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element, c.capacity)
	c.lru.Init()
}
