package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequence_Next(t *testing.T) {
	var seq Sequence
	assert.Equal(t, int64(0), seq.Last())
	assert.Equal(t, int64(1), seq.Next())
	assert.Equal(t, int64(2), seq.Next())
	assert.Equal(t, int64(2), seq.Last())
}

func TestSequence_Concurrent(t *testing.T) {
	var seq Sequence
	const goroutines, calls = 50, 100

	var mu sync.Mutex
	seen := make(map[int64]bool)
	var wg sync.WaitGroup
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range calls {
				v := seq.Next()
				mu.Lock()
				seen[v] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, seen, goroutines*calls)
	assert.Equal(t, int64(goroutines*calls), seq.Last())
}

func TestSequentialNames(t *testing.T) {
	names := NewSequentialNames("")
	assert.Equal(t, "drawing-1", names.Generate())
	assert.Equal(t, "drawing-2", names.Generate())

	other := NewSequentialNames("doc")
	assert.Equal(t, "doc-1", other.Generate())
}
