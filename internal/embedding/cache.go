package embedding

import (
	"crypto/sha256"
	"database/sql"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache is a persistent LRU cache of embedding vectors keyed by
// sha256(model + "\x00" + normalized_text), per spec §4.C. An in-memory
// hashicorp/golang-lru layer absorbs repeat lookups within a process; the
// backing SQLite table survives restarts and enforces the configured byte
// budget by evicting oldest-touched entries.
type Cache struct {
	mu       sync.Mutex
	hot      *lru.Cache[string, []float32]
	conn     *sql.DB
	maxBytes int64
	curBytes int64
}

// NewCache opens (creating if absent) the embedding_cache table in conn and
// wraps it with an in-memory LRU of hotSize entries.
func NewCache(conn *sql.DB, hotSize int, maxBytes int64) (*Cache, error) {
	if hotSize <= 0 {
		hotSize = 1024
	}
	if _, err := conn.Exec(`CREATE TABLE IF NOT EXISTS embedding_cache (
		key TEXT PRIMARY KEY,
		model TEXT NOT NULL,
		vector BLOB NOT NULL,
		byte_size INTEGER NOT NULL,
		last_used_at INTEGER NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("embedding: create cache table: %w", err)
	}
	if _, err := conn.Exec(`CREATE INDEX IF NOT EXISTS idx_embedding_cache_last_used ON embedding_cache(last_used_at)`); err != nil {
		return nil, fmt.Errorf("embedding: create cache index: %w", err)
	}

	hot, err := lru.New[string, []float32](hotSize)
	if err != nil {
		return nil, err
	}

	var total sql.NullInt64
	_ = conn.QueryRow(`SELECT SUM(byte_size) FROM embedding_cache`).Scan(&total)

	return &Cache{hot: hot, conn: conn, maxBytes: maxBytes, curBytes: total.Int64}, nil
}

// CacheKey computes the lookup key for a (model, text) pair. Normalization
// collapses whitespace runs so minor formatting differences in source text
// still hit the cache.
func CacheKey(model, text string) string {
	normalized := strings.Join(strings.Fields(text), " ")
	h := sha256.Sum256([]byte(model + "\x00" + normalized))
	return hex.EncodeToString(h[:])
}

// Get returns a cached vector, promoting it to most-recently-used both in
// the hot LRU and in the backing table.
func (c *Cache) Get(key string, nowUnix int64) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v, ok := c.hot.Get(key); ok {
		_, _ = c.conn.Exec(`UPDATE embedding_cache SET last_used_at = ? WHERE key = ?`, nowUnix, key)
		return v, true
	}

	var blob []byte
	err := c.conn.QueryRow(`SELECT vector FROM embedding_cache WHERE key = ?`, key).Scan(&blob)
	if err != nil {
		return nil, false
	}
	vec := decodeFloats(blob)
	c.hot.Add(key, vec)
	_, _ = c.conn.Exec(`UPDATE embedding_cache SET last_used_at = ? WHERE key = ?`, nowUnix, key)
	return vec, true
}

// Put stores a vector under key, evicting the least-recently-used rows once
// the configured byte budget is exceeded.
func (c *Cache) Put(key, model string, vec []float32, nowUnix int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	blob := encodeFloats(vec)
	size := int64(len(blob))

	var existing int64
	err := c.conn.QueryRow(`SELECT byte_size FROM embedding_cache WHERE key = ?`, key).Scan(&existing)
	if err == nil {
		c.curBytes -= existing
	}

	if _, err := c.conn.Exec(
		`INSERT INTO embedding_cache (key, model, vector, byte_size, last_used_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET vector = excluded.vector, byte_size = excluded.byte_size, last_used_at = excluded.last_used_at`,
		key, model, blob, size, nowUnix,
	); err != nil {
		return fmt.Errorf("embedding: cache put: %w", err)
	}
	c.curBytes += size
	c.hot.Add(key, vec)

	if c.maxBytes > 0 && c.curBytes > c.maxBytes {
		c.evictLocked()
	}
	return nil
}

// evictLocked deletes least-recently-used rows until curBytes is back under
// budget. Caller must hold c.mu.
func (c *Cache) evictLocked() {
	for c.curBytes > c.maxBytes {
		var key string
		var size int64
		err := c.conn.QueryRow(`SELECT key, byte_size FROM embedding_cache ORDER BY last_used_at ASC LIMIT 1`).Scan(&key, &size)
		if err != nil {
			return
		}
		if _, err := c.conn.Exec(`DELETE FROM embedding_cache WHERE key = ?`, key); err != nil {
			return
		}
		c.hot.Remove(key)
		c.curBytes -= size
	}
}

func encodeFloats(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeFloats(b []byte) []float32 {
	n := len(b) / 4
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}
