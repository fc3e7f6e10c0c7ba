// Package cache は変換済みスナップショットの短寿命TTLキャッシュを提供します。
//
// ペイロードはコピーせず参照で共有するため、呼び出し側は返されたバイト列を
// 不変として扱う必要があります。crop/rotate付きリクエストの結果は
// 読み書きともキャッシュを経由しません（キー衝突・汚染防止のための固定ルール）。
package cache

import (
	"sync"
	"time"
)

const (
	// DefaultTTL はエントリの既定の有効期間
	DefaultTTL = 2 * time.Second
	// DefaultSweepInterval は期限切れエントリを回収する既定の周期
	DefaultSweepInterval = 3 * time.Second
)

// entry は有効期限付きのキャッシュ項目
type entry struct {
	data      []byte
	expiresAt time.Time
}

// Stats はキャッシュの統計情報
type Stats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
	Keys      int   `json:"keys"`
}

// Cache はTTL付きのスレッドセーフなインメモリキャッシュ
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	hits    int64
	misses  int64
	evicted int64
	stopCh  chan struct{}
	once    sync.Once
}

// New は新しいCacheを作成し、バックグラウンドの掃除goroutineを開始する
func New(ttl, sweepInterval time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if sweepInterval <= 0 {
		sweepInterval = DefaultSweepInterval
	}

	c := &Cache{
		entries: make(map[string]entry),
		ttl:     ttl,
		stopCh:  make(chan struct{}),
	}

	go c.sweepLoop(sweepInterval)

	return c
}

// Key はキャッシュキーを構築する（cameraId:quality）
func Key(cameraID, quality string) string {
	return cameraID + ":" + quality
}

// Get はキーに対応するペイロードを返す。
// 掃除がまだ走っていなくても、期限切れは読み取り時点でミスとして扱う。
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		delete(c.entries, key)
		c.evicted++
		c.misses++
		return nil, false
	}

	c.hits++
	return e.data, true
}

// Set はペイロードを格納する。有効期限は挿入時点から固定TTL
func (c *Cache) Set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry{
		data:      data,
		expiresAt: time.Now().Add(c.ttl),
	}
}

// Stats は現在の統計情報を返す
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evicted,
		Keys:      len(c.entries),
	}
}

// Flush は全エントリを破棄する
func (c *Cache) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]entry)
}

// Stop はバックグラウンドの掃除goroutineを停止する
func (c *Cache) Stop() {
	c.once.Do(func() {
		close(c.stopCh)
	})
}

// sweepLoop は周期的に期限切れエントリを回収する
func (c *Cache) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

// sweep は期限切れエントリを一括削除する
func (c *Cache) sweep() {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
			c.evicted++
		}
	}
}
