package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	sharedCache "github.com/davicafu/userlab/internal/shared/platform/cache"
)

type memoryEntry struct {
	data      []byte // bytes serializados, mismo contrato que Redis
	expiresAt time.Time
}

// InMemoryCache es el fallback cuando Redis no está disponible al
// arrancar. Una goroutine de limpieza purga entradas expiradas.
type InMemoryCache struct {
	mu         sync.RWMutex
	entries    map[string]memoryEntry
	defaultTTL time.Duration
	done       chan struct{}
	stopOnce   sync.Once
}

var _ sharedCache.Cache = (*InMemoryCache)(nil)

func NewInMemoryCache(defaultTTL, cleanupInterval time.Duration) *InMemoryCache {
	c := &InMemoryCache{
		entries:    make(map[string]memoryEntry),
		defaultTTL: defaultTTL,
		done:       make(chan struct{}),
	}
	go c.janitor(cleanupInterval)
	return c
}

func (c *InMemoryCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || time.Now().UTC().After(entry.expiresAt) {
		return false, nil // miss o expirado
	}

	if err := json.Unmarshal(entry.data, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (c *InMemoryCache) Set(ctx context.Context, key string, val interface{}, ttlSecs int) error {
	data, err := json.Marshal(val)
	if err != nil {
		return err
	}

	ttl := c.defaultTTL
	if ttlSecs > 0 {
		ttl = time.Duration(ttlSecs) * time.Second
	}

	c.mu.Lock()
	c.entries[key] = memoryEntry{data: data, expiresAt: time.Now().UTC().Add(ttl)}
	c.mu.Unlock()
	return nil
}

func (c *InMemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

// Stop detiene la goroutine de limpieza al apagar la aplicación.
func (c *InMemoryCache) Stop() {
	c.stopOnce.Do(func() { close(c.done) })
}

func (c *InMemoryCache) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			c.mu.Lock()
			for key, entry := range c.entries {
				if now.UTC().After(entry.expiresAt) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		case <-c.done:
			return
		}
	}
}
