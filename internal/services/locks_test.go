package services

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedLocks(t *testing.T) {
	t.Run("serializes holders of the same key", func(t *testing.T) {
		var locks keyedLocks

		const workers = 20
		counter := 0
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				unlock := locks.lock("same-key")
				defer unlock()
				counter++
			}()
		}
		wg.Wait()

		assert.Equal(t, workers, counter)
	})

	t.Run("drops the entry once the last holder unlocks", func(t *testing.T) {
		var locks keyedLocks

		unlockA := locks.lock("a")
		unlockB := locks.lock("b")
		assert.Len(t, locks.locks, 2)

		unlockA()
		assert.Len(t, locks.locks, 1)

		unlockB()
		assert.Empty(t, locks.locks)

		// Relocking after eviction works with a fresh entry.
		unlock := locks.lock("a")
		assert.Len(t, locks.locks, 1)
		unlock()
		assert.Empty(t, locks.locks)
	})

	t.Run("distinct keys do not block each other", func(t *testing.T) {
		var locks keyedLocks

		unlockA := locks.lock("a")
		done := make(chan struct{})
		go func() {
			unlockB := locks.lock("b")
			unlockB()
			close(done)
		}()
		<-done
		unlockA()
	})
}
