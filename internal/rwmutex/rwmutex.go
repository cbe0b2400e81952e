// Package rwmutex implements a writer-priority reader/writer lock.
//
// Go's sync.RWMutex does not guarantee writers are not starved by a steady
// stream of readers. This lock tracks waiting writers explicitly: a new
// reader that arrives while any writer is waiting blocks until writers
// drain, even if the lock is currently unlocked for readers. Existing
// readers always run to completion.
//
// Reentrant acquisition is not supported: a goroutine holding the read lock
// must not request the write lock on the same instance, and vice versa.
package rwmutex

import "sync"

// RWMutex is a writer-priority reader/writer lock.
type RWMutex struct {
	mu             sync.Mutex
	cond           *sync.Cond
	activeReaders  int
	writerActive   bool
	waitingWriters int
}

// New returns a ready-to-use RWMutex.
func New() *RWMutex {
	m := &RWMutex{}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// RLock blocks until a read acquisition is granted. A reader is blocked
// while a writer holds the lock or any writer is waiting.
func (m *RWMutex) RLock() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for m.writerActive || m.waitingWriters > 0 {
		m.cond.Wait()
	}
	m.activeReaders++
}

// RUnlock releases a read acquisition. The last reader to leave wakes all
// waiters so a blocked writer (or the next batch of readers) can proceed.
func (m *RWMutex) RUnlock() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activeReaders--
	if m.activeReaders == 0 {
		m.cond.Broadcast()
	}
}

// Lock blocks until exclusive write access is granted. It registers as a
// waiting writer immediately so that new readers stop arriving while
// existing readers drain.
func (m *RWMutex) Lock() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.waitingWriters++
	for m.writerActive || m.activeReaders > 0 {
		m.cond.Wait()
	}
	m.waitingWriters--
	m.writerActive = true
}

// Unlock releases exclusive write access and wakes all waiters.
func (m *RWMutex) Unlock() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writerActive = false
	m.cond.Broadcast()
}
