package control

import (
	"strings"
	"sync"
	"time"
)

// DefaultIntentTTL bounds how long a local change may mask host pushes.
const DefaultIntentTTL = 2 * time.Second

// IntentTracker records values the user just set locally and not yet
// confirmed by the host. A host push that contradicts an unexpired intent
// is stale (sent before the host saw the command) and is ignored; a
// matching push confirms the intent; an expired intent masks nothing.
type IntentTracker struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	pending map[string]intent
}

type intent struct {
	value   any
	expires time.Time
}

// NewIntentTracker returns a tracker. A nil now uses time.Now.
func NewIntentTracker(ttl time.Duration, now func() time.Time) *IntentTracker {
	if ttl <= 0 {
		ttl = DefaultIntentTTL
	}
	if now == nil {
		now = time.Now
	}
	return &IntentTracker{ttl: ttl, now: now, pending: make(map[string]intent)}
}

// Expect records a local intent for key. value must be comparable.
func (t *IntentTracker) Expect(key string, value any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending[key] = intent{value: value, expires: t.now().Add(t.ttl)}
}

// Reconcile reports whether a pushed value for key should be applied.
func (t *IntentTracker) Reconcile(key string, pushed any) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.pending[key]
	if !ok {
		return true
	}
	if t.now().After(p.expires) {
		delete(t.pending, key)
		return true
	}
	if p.value == pushed {
		delete(t.pending, key)
		return true
	}
	return false
}

// Pending reports whether key has an unexpired intent.
func (t *IntentTracker) Pending(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.pending[key]
	return ok && !t.now().After(p.expires)
}

// Forget drops every intent whose key starts with prefix.
func (t *IntentTracker) Forget(prefix string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for k := range t.pending {
		if strings.HasPrefix(k, prefix) {
			delete(t.pending, k)
		}
	}
}
