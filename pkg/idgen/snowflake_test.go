package idgen

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextID_Increasing(t *testing.T) {
	prev := NextID()
	for i := 0; i < 10000; i++ {
		id := NextID()
		assert.Greater(t, id, prev)
		prev = id
	}
}

func TestNextID_UniqueUnderConcurrency(t *testing.T) {
	const workers, perWorker = 16, 500

	var (
		mu   sync.Mutex
		seen = make(map[int64]struct{}, workers*perWorker)
		wg   sync.WaitGroup
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids := make([]int64, 0, perWorker)
			for i := 0; i < perWorker; i++ {
				ids = append(ids, NextID())
			}
			mu.Lock()
			for _, id := range ids {
				seen[id] = struct{}{}
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWorker)
}

func TestGenerateEventNo(t *testing.T) {
	no := GenerateEventNo()
	assert.True(t, strings.HasPrefix(no, "PNT"))
	assert.NotEqual(t, no, GenerateEventNo())
}
