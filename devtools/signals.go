package devtools

import (
	"sync"
	"time"

	"github.com/tailored-agentic-units/bund/bundle"
)

// SignalRecord is one observed action signal.
type SignalRecord struct {
	Seq    uint64    `json:"seq"`
	Time   time.Time `json:"time"`
	Bundle string    `json:"bundle"`
	Action string    `json:"action"`
	Args   []any     `json:"args,omitempty"`
}

// signalLog keeps the most recent signals up to a fixed capacity.
type signalLog struct {
	mu      sync.Mutex
	cap     int
	seq     uint64
	records []SignalRecord
}

func newSignalLog(capacity int) *signalLog {
	if capacity <= 0 {
		capacity = 100
	}
	return &signalLog{cap: capacity}
}

func (l *signalLog) add(sig bundle.Signal) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.seq++
	l.records = append(l.records, SignalRecord{
		Seq:    l.seq,
		Time:   time.Now(),
		Bundle: sig.BundleKey,
		Action: sig.Action,
		Args:   sig.Args,
	})
	if over := len(l.records) - l.cap; over > 0 {
		l.records = append(l.records[:0:0], l.records[over:]...)
	}
}

func (l *signalLog) since(seq uint64) []SignalRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]SignalRecord, 0, len(l.records))
	for _, r := range l.records {
		if r.Seq > seq {
			out = append(out, r)
		}
	}
	return out
}
