package bundle

import "sync/atomic"

// MetricsSnapshot is a point-in-time copy of a bundle's counters.
type MetricsSnapshot struct {
	Actions        int64 `json:"actions"`
	Failures       int64 `json:"failures"`
	Notifications  int64 `json:"notifications"`
	SelectorHits   int64 `json:"selector_hits"`
	SelectorMisses int64 `json:"selector_misses"`
	Subscribers    int64 `json:"subscribers"`
}

// Metrics counts dispatch activity on a bundle.
type Metrics struct {
	actions        atomic.Int64
	failures       atomic.Int64
	notifications  atomic.Int64
	selectorHits   atomic.Int64
	selectorMisses atomic.Int64
	subscribers    atomic.Int64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) RecordAction(failed bool) {
	if failed {
		m.failures.Add(1)
		return
	}
	m.actions.Add(1)
}

func (m *Metrics) RecordNotification(delta int) {
	m.notifications.Add(int64(delta))
}

func (m *Metrics) RecordSelect(hit bool) {
	if hit {
		m.selectorHits.Add(1)
		return
	}
	m.selectorMisses.Add(1)
}

func (m *Metrics) RecordSubscriber(delta int) {
	m.subscribers.Add(int64(delta))
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Actions:        m.actions.Load(),
		Failures:       m.failures.Load(),
		Notifications:  m.notifications.Load(),
		SelectorHits:   m.selectorHits.Load(),
		SelectorMisses: m.selectorMisses.Load(),
		Subscribers:    m.subscribers.Load(),
	}
}
