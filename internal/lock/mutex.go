package lock

import (
	"context"
	"fmt"
	"sync"
)

// KeyedMutex 进程内的键级互斥锁，无人持有或等待的键会被回收
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	sem  chan struct{}
	refs int
}

// NewKeyedMutex 创建进程内锁
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyedEntry)}
}

// Lock 获取 key 对应的锁，ctx 结束时放弃等待
func (m *KeyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	m.mu.Lock()
	e, ok := m.locks[key]
	if !ok {
		e = &keyedEntry{sem: make(chan struct{}, 1)}
		m.locks[key] = e
	}
	e.refs++
	m.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		m.release(key, e)
		return nil, fmt.Errorf("%w: %s: %v", ErrLockTimeout, key, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.sem
			m.release(key, e)
		})
	}, nil
}

func (m *KeyedMutex) release(key string, e *keyedEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(m.locks, key)
	}
}

// size 当前登记的键数量
func (m *KeyedMutex) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}
