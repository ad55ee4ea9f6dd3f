package systempay

import (
	"context"
	"sync"
)

// Locker serializes callback processing per order reference.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// MemoryLocker is a Locker for a single process.
type MemoryLocker struct {
	mu sync.Map
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{}
}

func (l *MemoryLocker) Lock(_ context.Context, key string) (func(), error) {
	v, _ := l.mu.LoadOrStore(key, &sync.Mutex{})
	m := v.(*sync.Mutex)
	m.Lock()
	return m.Unlock, nil
}
