package cache

import (
	"sync"
	"time"
)

type Cache struct {
	Storage sync.Map
}

// counter is mutated in place so the eviction scheduled for it still
// matches the stored value.
type counter struct {
	mu      sync.Mutex
	n       int
	resetAt time.Time
	dead    bool
}

func InitStorage() *Cache {
	return &Cache{
		Storage: sync.Map{},
	}
}

func (c *Cache) Set(k any, v any, expiration time.Duration) {
	c.Storage.Store(k, v)
	go c.delByExp(k, v, expiration)
}

// sets value without expiration
func (c *Cache) SetNoExp(k any, v any) {
	c.Storage.Store(k, v)
}

// SetNX stores v only if k is absent and reports whether it did.
func (c *Cache) SetNX(k any, v any, expiration time.Duration) bool {
	_, loaded := c.Storage.LoadOrStore(k, v)
	if loaded {
		return false
	}
	go c.delByExp(k, v, expiration)
	return true
}

func (c *Cache) Del(k any) {
	c.Storage.Delete(k)
}

// DelIf removes k only while it still holds v.
func (c *Cache) DelIf(k any, v any) bool {
	return c.Storage.CompareAndDelete(k, v)
}

func (c *Cache) Load(k any) any {
	v, _ := c.Storage.Load(k)
	return v
}

func (c *Cache) LoadOrSet(k any, v any, expiration time.Duration) any {
	act, loaded := c.Storage.LoadOrStore(k, v)
	if !loaded {
		go c.delByExp(k, act, expiration)
	}
	return act
}

// Hit increments the counter for k inside a fixed window and returns the
// new count. The window starts with the first hit. Counters are evicted
// once their window is over.
func (c *Cache) Hit(k any, window time.Duration, now time.Time) int {
	for {
		fresh := &counter{n: 1, resetAt: now.Add(window)}
		act, loaded := c.Storage.LoadOrStore(k, fresh)
		if !loaded {
			go c.expireCounter(k, fresh, window)
			return 1
		}

		cur := act.(*counter)
		cur.mu.Lock()
		if cur.dead {
			cur.mu.Unlock()
			continue
		}
		if now.Before(cur.resetAt) {
			cur.n++
			n := cur.n
			cur.mu.Unlock()
			return n
		}

		// window is over, retire it and start a new one
		cur.dead = true
		cur.mu.Unlock()
		c.Storage.CompareAndDelete(k, cur)
	}
}

func (c *Cache) expireCounter(k any, cnt *counter, window time.Duration) {
	time.Sleep(window)

	cnt.mu.Lock()
	cnt.dead = true
	cnt.mu.Unlock()

	c.Storage.CompareAndDelete(k, cnt)
}

func (c *Cache) delByExp(k any, v any, expiration time.Duration) {
	time.Sleep(expiration)
	cacheValue, ok := c.Storage.Load(k)
	if !ok {
		return
	}
	if cacheValue != v { // value changed
		return
	}
	c.Storage.Delete(k)
}
