package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/kinetic/internal/model"
)

func TestClock_StartsAtZero(t *testing.T) {
	c := NewClock()
	assert.Equal(t, int64(0), c.Steps())
	assert.Equal(t, model.Zero, c.Time())
}

func TestClock_AdvanceAndTime(t *testing.T) {
	c := NewClock()
	assert.Equal(t, int64(1), c.Advance())
	assert.Equal(t, int64(2), c.Advance())

	c.SetTime(2.5)
	assert.Equal(t, model.Time(2.5), c.Time())
}

func TestClock_ConcurrentReads(t *testing.T) {
	c := NewClock()
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				_ = c.Steps()
				_ = c.Time()
			}
		}()
	}
	for j := 0; j < 1000; j++ {
		c.Advance()
		c.SetTime(model.Time(j))
	}
	wg.Wait()
	assert.Equal(t, int64(1000), c.Steps())
	assert.Equal(t, model.Time(999), c.Time())
}
