package panel

import "sync"

// tokenCell holds the bearer token. Empty means not yet authenticated.
type tokenCell struct {
	mu    sync.RWMutex
	value string
}

func (t *tokenCell) Get() (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.value, t.value != ""
}

func (t *tokenCell) Set(token string) {
	t.mu.Lock()
	t.value = token
	t.mu.Unlock()
}
