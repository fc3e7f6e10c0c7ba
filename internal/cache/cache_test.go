package cache

import (
	"bytes"
	"testing"
	"time"
)

// TestCacheRoundTrip はsetの直後のgetが同じバイト列を返すことを検証する
func TestCacheRoundTrip(t *testing.T) {
	c := New(DefaultTTL, DefaultSweepInterval)
	defer c.Stop()

	payload := []byte{0xFF, 0xD8, 0x01, 0x02, 0xFF, 0xD9}
	key := Key("front-door", "high")

	c.Set(key, payload)

	got, ok := c.Get(key)
	if !ok {
		t.Fatal("格納直後のgetがミスになった")
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("ペイロードが不一致: got %v, want %v", got, payload)
	}

	// 未格納キーはミス
	if _, ok := c.Get(Key("back-yard", "high")); ok {
		t.Error("未格納キーがヒットした")
	}
}

// TestCacheExpiry は期限切れ後のgetが掃除前でもミスになることを検証する
func TestCacheExpiry(t *testing.T) {
	// 掃除周期を長くして、読み取り時点のTTLチェックだけを検証する
	c := New(30*time.Millisecond, time.Hour)
	defer c.Stop()

	key := Key("front-door", "low")
	c.Set(key, []byte("jpeg"))

	if _, ok := c.Get(key); !ok {
		t.Fatal("期限内のgetがミスになった")
	}

	time.Sleep(50 * time.Millisecond)

	if _, ok := c.Get(key); ok {
		t.Error("期限切れエントリがヒットした（掃除前でもミスになるべき）")
	}
}

// TestCacheSweep はバックグラウンド掃除が期限切れエントリを回収することを検証する
func TestCacheSweep(t *testing.T) {
	c := New(20*time.Millisecond, 30*time.Millisecond)
	defer c.Stop()

	c.Set(Key("cam1", "low"), []byte("a"))
	c.Set(Key("cam2", "low"), []byte("b"))

	time.Sleep(100 * time.Millisecond)

	stats := c.Stats()
	if stats.Keys != 0 {
		t.Errorf("掃除後もエントリが残っている: %d", stats.Keys)
	}
	if stats.Evictions == 0 {
		t.Error("回収数が記録されていない")
	}
}

// TestCacheStats は統計情報の集計を検証する
func TestCacheStats(t *testing.T) {
	c := New(DefaultTTL, DefaultSweepInterval)
	defer c.Stop()

	key := Key("cam1", "medium")
	c.Set(key, []byte("x"))

	c.Get(key)                   // ヒット
	c.Get(Key("cam2", "medium")) // ミス

	stats := c.Stats()
	if stats.Hits != 1 {
		t.Errorf("ヒット数が不正: %d", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("ミス数が不正: %d", stats.Misses)
	}
	if stats.Keys != 1 {
		t.Errorf("キー数が不正: %d", stats.Keys)
	}
}

// TestCacheFlush は全破棄後にgetがミスになることを検証する
func TestCacheFlush(t *testing.T) {
	c := New(DefaultTTL, DefaultSweepInterval)
	defer c.Stop()

	key := Key("cam1", "high")
	c.Set(key, []byte("x"))
	c.Flush()

	if _, ok := c.Get(key); ok {
		t.Error("flush後にエントリがヒットした")
	}
}
