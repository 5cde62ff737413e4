package sync

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestShardedMutexEmptyKey(t *testing.T) {
	m := NewShardedMutex()
	m.Lock("")
	m.Unlock("")
	assert.Equal(t, 0, shardFor(""))
}

func TestShardedMutexSerializesSameSession(t *testing.T) {
	m := NewShardedMutex()
	sessionID := uuid.NewString()
	appended := 0

	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Do(sessionID, func() { appended++ })
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, appended)
}

func TestShardedMutexIndependentSessions(t *testing.T) {
	m := NewShardedMutex()

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			m.Do(key, func() {})
		}(uuid.NewString())
	}
	wg.Wait()
}

func TestShardForIsStableAndSpread(t *testing.T) {
	assert.Equal(t, shardFor("session-a"), shardFor("session-a"))

	shards := make(map[int]struct{})
	for range 64 {
		idx := shardFor(uuid.NewString())
		assert.GreaterOrEqual(t, idx, 0)
		assert.Less(t, idx, shardCount)
		shards[idx] = struct{}{}
	}
	assert.GreaterOrEqual(t, len(shards), 8)
}
