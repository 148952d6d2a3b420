package cache

import (
	"net/url"
	"strings"
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLCache 进程内的 key/value 缓存，每个条目在写入 ttl 后过期。
// 不做容量限制和后台清理：过期条目在下一次 Get 时被回收。
// 在进程启动时创建一次，生命周期与进程相同。
type TTLCache[V any] struct {
	mu      sync.RWMutex
	entries map[string]entry[V]
	ttl     time.Duration
	now     func() time.Time
}

func New[V any](ttl time.Duration) *TTLCache[V] {
	return NewWithClock[V](ttl, time.Now)
}

// NewWithClock 允许注入时钟，便于测试过期逻辑
func NewWithClock[V any](ttl time.Duration, now func() time.Time) *TTLCache[V] {
	return &TTLCache[V]{
		entries: make(map[string]entry[V]),
		ttl:     ttl,
		now:     now,
	}
}

// Get 返回未过期的值；过期条目与不存在的 key 表现一致，并会被顺手删除
func (c *TTLCache[V]) Get(key string) (V, bool) {
	var zero V

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return zero, false
	}

	if c.now().After(e.expiresAt) {
		c.mu.Lock()
		// 读锁释放后可能已被重新写入，只删除仍然过期的那一条
		if cur, ok := c.entries[key]; ok && c.now().After(cur.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return zero, false
	}
	return e.value, true
}

// Set 整体替换 key 对应的值，不会出现部分写入
func (c *TTLCache[V]) Set(key string, value V) {
	c.mu.Lock()
	c.entries[key] = entry[V]{value: value, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

// Len 返回当前条目数（包含尚未被回收的过期条目）
func (c *TTLCache[V]) Len() int {
	c.mu.RLock()
	n := len(c.entries)
	c.mu.RUnlock()
	return n
}

// Key 由数据源、UTC 日期和影响输出的全部参数拼出缓存 key。
// url.Values.Encode 按参数名排序，保证同参数同日的请求命中同一条目。
func Key(source string, day time.Time, params url.Values) string {
	var b strings.Builder
	b.WriteString(source)
	b.WriteByte(':')
	b.WriteString(day.UTC().Format("2006-01-02"))
	if len(params) > 0 {
		b.WriteByte('?')
		b.WriteString(params.Encode())
	}
	return b.String()
}
