package shared

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	m := NewKeyedMutex()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := m.Lock(InvoiceLockKey(1))
			defer unlock()
			counter++
		}()
	}
	wg.Wait()
	require.Equal(t, 50, counter)
}

func TestKeyedMutexIndependentKeysDoNotBlock(t *testing.T) {
	m := NewKeyedMutex()

	unlockA := m.Lock(VendorLockKey(1))
	done := make(chan struct{})
	go func() {
		unlockB := m.Lock(VendorLockKey(2))
		unlockB()
		close(done)
	}()
	<-done
	unlockA()
}

func TestKeyedMutexReleasesEntryWhenUnused(t *testing.T) {
	m := NewKeyedMutex()

	unlock := m.Lock("k")
	unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	require.Empty(t, m.locks)
}
