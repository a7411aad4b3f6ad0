package shared

import (
	"fmt"
	"sync"
)

// InvoiceLockKey builds the critical-section key for one invoice.
func InvoiceLockKey(invoiceID int64) string {
	return fmt.Sprintf("billing:invoice:%d", invoiceID)
}

// VendorLockKey builds the critical-section key for one vendor.
func VendorLockKey(vendorID int64) string {
	return fmt.Sprintf("vendors:vendor:%d", vendorID)
}

// KeyedMutex serialises operations that share a key. Balance reconciliation
// is a read-modify-write against denormalized aggregates, so every call site
// that touches one invoice or vendor must hold its key for the duration.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

// NewKeyedMutex constructs an empty KeyedMutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyedLock)}
}

// Lock acquires the mutex for key and returns the unlock function.
func (m *KeyedMutex) Lock(key string) func() {
	m.mu.Lock()
	l, ok := m.locks[key]
	if !ok {
		l = &keyedLock{}
		m.locks[key] = l
	}
	l.refs++
	m.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		m.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, key)
		}
		m.mu.Unlock()
	}
}
