package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mu sync.RWMutex

	// Counters
	ArticlesFetched      int64
	ArticlesScored       int64
	ArticlesSelected     int64
	DuplicatesRemoved    int64
	SummariesGenerated   int64
	SummariesFailed      int64
	SummaryCacheHits     int64
	TelegramMessagesSent int64

	// Timings
	LastProcessingTime    time.Duration
	AverageProcessingTime time.Duration
	TotalProcessingTime   time.Duration
	ProcessingCount       int64

	// Status
	LastRunID     string
	LastRunTime   time.Time
	LastErrorTime time.Time
	LastError     string
	IsHealthy     bool
}

var Global = New()

func New() *Metrics {
	return &Metrics{IsHealthy: true}
}

func (m *Metrics) add(counter *int64, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	*counter += int64(n)
}

func (m *Metrics) AddFetched(n int)           { m.add(&m.ArticlesFetched, n) }
func (m *Metrics) AddScored(n int)            { m.add(&m.ArticlesScored, n) }
func (m *Metrics) AddSelected(n int)          { m.add(&m.ArticlesSelected, n) }
func (m *Metrics) AddDuplicatesRemoved(n int) { m.add(&m.DuplicatesRemoved, n) }

func (m *Metrics) IncrementSummaries()     { m.add(&m.SummariesGenerated, 1) }
func (m *Metrics) IncrementFailedSummary() { m.add(&m.SummariesFailed, 1) }
func (m *Metrics) IncrementCacheHits()     { m.add(&m.SummaryCacheHits, 1) }
func (m *Metrics) IncrementTelegramSent()  { m.add(&m.TelegramMessagesSent, 1) }

func (m *Metrics) RecordProcessingTime(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastProcessingTime = duration
	m.TotalProcessingTime += duration
	m.ProcessingCount++
	m.AverageProcessingTime = m.TotalProcessingTime / time.Duration(m.ProcessingCount)
}

// SetLastRun marks a successful run and clears the unhealthy flag.
func (m *Metrics) SetLastRun(runID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastRunID = runID
	m.LastRunTime = time.Now()
	m.IsHealthy = true
}

func (m *Metrics) SetError(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastError = err
	m.LastErrorTime = time.Now()
	m.IsHealthy = false
}

func (m *Metrics) Healthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.IsHealthy
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := map[string]interface{}{
		"articles_fetched":           m.ArticlesFetched,
		"articles_scored":            m.ArticlesScored,
		"articles_selected":          m.ArticlesSelected,
		"duplicates_removed":         m.DuplicatesRemoved,
		"summaries_generated":        m.SummariesGenerated,
		"summaries_failed":           m.SummariesFailed,
		"summary_cache_hits":         m.SummaryCacheHits,
		"telegram_messages_sent":     m.TelegramMessagesSent,
		"last_processing_time_ms":    m.LastProcessingTime.Milliseconds(),
		"average_processing_time_ms": m.AverageProcessingTime.Milliseconds(),
		"last_run_id":                m.LastRunID,
		"last_error":                 m.LastError,
		"is_healthy":                 m.IsHealthy,
	}
	if !m.LastRunTime.IsZero() {
		stats["last_run_time"] = m.LastRunTime.Format(time.RFC3339)
	}
	if !m.LastErrorTime.IsZero() {
		stats["last_error_time"] = m.LastErrorTime.Format(time.RFC3339)
	}
	return stats
}
