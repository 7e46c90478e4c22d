package kvstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	cronlib "github.com/robfig/cron/v3"
)

// MemoryStore is an in-process Store with the same TTL/compare-and-delete
// semantics as RedisStore. It backs unit tests that don't want a live Redis
// and serves as the explicit "best-effort, no shared state" degrade target
// spec §7 describes for BackingStoreUnavailable when operators choose to run
// a single instance without Redis at all.
//
// The eviction strategy is the teacher's DedupeCache: a map of key -> expiry
// plus periodic pruning of expired/oldest entries, generalized here to also
// hold lock tokens, cooldown markers and queue lists.
type MemoryStore struct {
	mu       sync.Mutex
	expiring map[string]memoryEntry
	queues   map[string][][]byte
	maxSize  int
}

type memoryEntry struct {
	value  string
	expiry time.Time
}

const defaultMemoryMaxSize = 10000

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		expiring: make(map[string]memoryEntry),
		queues:   make(map[string][][]byte),
		maxSize:  defaultMemoryMaxSize,
	}
}

func (m *MemoryStore) prune(now time.Time) {
	for k, e := range m.expiring {
		if now.After(e.expiry) {
			delete(m.expiring, k)
		}
	}
	for len(m.expiring) > m.maxSize {
		var oldestKey string
		var oldest time.Time
		first := true
		for k, e := range m.expiring {
			if first || e.expiry.Before(oldest) {
				oldestKey, oldest, first = k, e.expiry, false
			}
		}
		if oldestKey != "" {
			delete(m.expiring, oldestKey)
		}
	}
}

func (m *MemoryStore) Seen(_ context.Context, transport, messageID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	m.prune(now)
	e, ok := m.expiring[idempotencyKey(transport, messageID)]
	return ok && now.Before(e.expiry), nil
}

func (m *MemoryStore) Mark(_ context.Context, transport, messageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expiring[idempotencyKey(transport, messageID)] = memoryEntry{value: "1", expiry: time.Now().Add(24 * time.Hour)}
	m.prune(time.Now())
	return nil
}

func (m *MemoryStore) Acquire(_ context.Context, userID string, ttl time.Duration) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	key := lockKey(userID)
	if e, ok := m.expiring[key]; ok && now.Before(e.expiry) {
		return "", false, nil
	}
	token := uuid.NewString()
	m.expiring[key] = memoryEntry{value: token, expiry: now.Add(ttl)}
	return token, true, nil
}

func (m *MemoryStore) Release(_ context.Context, userID, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := lockKey(userID)
	if e, ok := m.expiring[key]; ok && e.value == token {
		delete(m.expiring, key)
	}
	return nil
}

func (m *MemoryStore) InCooldown(_ context.Context, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	e, ok := m.expiring[cooldownKey(userID)]
	return ok && now.Before(e.expiry), nil
}

func (m *MemoryStore) SetCooldown(_ context.Context, userID string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expiring[cooldownKey(userID)] = memoryEntry{value: "1", expiry: time.Now().Add(ttl)}
	return nil
}

func (m *MemoryStore) Push(_ context.Context, queue string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queues[queue] = append(m.queues[queue], payload)
	return nil
}

func (m *MemoryStore) Range(_ context.Context, queue string, start, stop int64) ([][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := m.queues[queue]
	n := int64(len(items))
	if n == 0 {
		return nil, nil
	}
	if stop < 0 || stop >= n {
		stop = n - 1
	}
	if start < 0 {
		start = 0
	}
	if start > stop {
		return nil, nil
	}
	out := make([][]byte, stop-start+1)
	copy(out, items[start:stop+1])
	return out, nil
}

func (m *MemoryStore) Delete(_ context.Context, queue string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := m.queues[queue]
	for i, item := range items {
		if string(item) == string(payload) {
			m.queues[queue] = append(items[:i], items[i+1:]...)
			return nil
		}
	}
	return nil
}

// StartJanitor schedules periodic pruning of expired entries per cronExpr
// (standard 5-field cron syntax), returning the running scheduler so the
// caller can Stop it on shutdown. Only meaningful when MemoryStore is used
// as the single-instance degrade backend (spec §7 BackingStoreUnavailable);
// RedisStore relies on native key TTLs instead.
func (m *MemoryStore) StartJanitor(cronExpr string) (*cronlib.Cron, error) {
	c := cronlib.New()
	_, err := c.AddFunc(cronExpr, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.prune(time.Now())
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}

var _ Store = (*MemoryStore)(nil)
