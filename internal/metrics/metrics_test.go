package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	m := New()

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.AddFetched(3)
			m.IncrementSummaries()
		}()
	}
	wg.Wait()

	m.AddDuplicatesRemoved(2)
	m.IncrementFailedSummary()

	stats := m.GetStats()
	assert.Equal(t, int64(30), stats["articles_fetched"])
	assert.Equal(t, int64(10), stats["summaries_generated"])
	assert.Equal(t, int64(2), stats["duplicates_removed"])
	assert.Equal(t, int64(1), stats["summaries_failed"])
	assert.NotContains(t, stats, "last_run_time")
}

func TestHealth(t *testing.T) {
	m := New()
	assert.True(t, m.Healthy())

	m.SetError("feeds unreachable")
	assert.False(t, m.Healthy())
	assert.Equal(t, "feeds unreachable", m.GetStats()["last_error"])

	m.SetLastRun("run-1")
	assert.True(t, m.Healthy())
	assert.Equal(t, "run-1", m.GetStats()["last_run_id"])
	assert.Contains(t, m.GetStats(), "last_run_time")
}

func TestRecordProcessingTime(t *testing.T) {
	m := New()
	m.RecordProcessingTime(2 * time.Second)
	m.RecordProcessingTime(4 * time.Second)

	assert.Equal(t, 4*time.Second, m.LastProcessingTime)
	assert.Equal(t, 3*time.Second, m.AverageProcessingTime)
}
