package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mu sync.RWMutex

	// Counters
	BriefsGenerated    int64
	SearchesRun        int64
	SearchFailures     int64
	HeadlinesCollected int64
	DuplicatesFiltered int64
	ArticlesExtracted  int64
	AnalysesGenerated  int64
	AnalysisFallbacks  int64
	AnalysisCacheHits  int64
	TelegramSent       int64

	// Timings
	LastProcessingTime    time.Duration
	AverageProcessingTime time.Duration
	TotalProcessingTime   time.Duration
	ProcessingCount       int64

	// Status
	LastRunTime   time.Time
	LastErrorTime time.Time
	LastError     string
	IsHealthy     bool
}

func New() *Metrics {
	return &Metrics{IsHealthy: true}
}

func (m *Metrics) add(field *int64, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	*field += int64(n)
}

func (m *Metrics) IncrementSearches()             { m.add(&m.SearchesRun, 1) }
func (m *Metrics) IncrementSearchFailures()       { m.add(&m.SearchFailures, 1) }
func (m *Metrics) AddHeadlines(n int)             { m.add(&m.HeadlinesCollected, n) }
func (m *Metrics) AddDuplicatesFiltered(n int)    { m.add(&m.DuplicatesFiltered, n) }
func (m *Metrics) AddArticlesExtracted(n int)     { m.add(&m.ArticlesExtracted, n) }
func (m *Metrics) IncrementAnalyses()             { m.add(&m.AnalysesGenerated, 1) }
func (m *Metrics) IncrementAnalysisFallbacks()    { m.add(&m.AnalysisFallbacks, 1) }
func (m *Metrics) IncrementAnalysisCacheHits()    { m.add(&m.AnalysisCacheHits, 1) }
func (m *Metrics) IncrementTelegramMessagesSent() { m.add(&m.TelegramSent, 1) }

// RecordBrief records one finished brief and its duration.
func (m *Metrics) RecordBrief(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.BriefsGenerated++
	m.LastProcessingTime = duration
	m.TotalProcessingTime += duration
	m.ProcessingCount++
	m.AverageProcessingTime = m.TotalProcessingTime / time.Duration(m.ProcessingCount)
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
		"briefs_generated":           m.BriefsGenerated,
		"searches_run":               m.SearchesRun,
		"search_failures":            m.SearchFailures,
		"headlines_collected":        m.HeadlinesCollected,
		"duplicates_filtered":        m.DuplicatesFiltered,
		"articles_extracted":         m.ArticlesExtracted,
		"analyses_generated":         m.AnalysesGenerated,
		"analysis_fallbacks":         m.AnalysisFallbacks,
		"analysis_cache_hits":        m.AnalysisCacheHits,
		"telegram_messages_sent":     m.TelegramSent,
		"last_processing_time_ms":    m.LastProcessingTime.Milliseconds(),
		"average_processing_time_ms": m.AverageProcessingTime.Milliseconds(),
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
