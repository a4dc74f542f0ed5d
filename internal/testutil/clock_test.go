package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClockMonotonic(t *testing.T) {
	c := NewClock()

	assert.Equal(t, int64(0), c.Current())
	assert.Equal(t, int64(1), c.Next())
	assert.Equal(t, int64(2), c.Next())
	assert.Equal(t, int64(2), c.Current())
}

func TestClockReset(t *testing.T) {
	c := NewClock()
	c.Next()
	c.Next()

	c.Reset()
	assert.Equal(t, int64(0), c.Current())
	assert.Equal(t, int64(1), c.Next())
}

func TestClockConcurrent(t *testing.T) {
	c := NewClock()

	var wg sync.WaitGroup
	seen := make([]int64, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			seen[i] = c.Next()
		}(i)
	}
	wg.Wait()

	// Every value handed out exactly once.
	unique := make(map[int64]bool, 100)
	for _, v := range seen {
		unique[v] = true
	}
	assert.Len(t, unique, 100)
	assert.Equal(t, int64(100), c.Current())
}
