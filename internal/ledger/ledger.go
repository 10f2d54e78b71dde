package ledger

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"demandforecast/internal/models"
)

// Entry is one served prediction: request snapshot, response, the per-field
// sentinel-fallback flags from the feature builder, and the serving timestamp.
// Entries are never mutated after append.
type Entry struct {
	Request   models.PredictionRequest
	Response  models.PredictionResponse
	Fallbacks map[string]bool
	ServedAt  time.Time
}

// Filter narrows List output. Zero values mean "no constraint".
type Filter struct {
	StoreID   string
	ProductID string
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

// Ledger is the append-only, process-lifetime record of served predictions.
// Appends are serialized by a writer lock so timestamps are non-decreasing in
// append order; growth is unbounded here, rotation is the exporter's job.
type Ledger struct {
	mu      sync.RWMutex
	entries []Entry
	flushed int

	logger        *zap.Logger
	warnThreshold int
}

func New(logger *zap.Logger, warnThreshold int) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{logger: logger, warnThreshold: warnThreshold}
}

// Record appends an entry and returns it with its serving timestamp stamped.
// The timestamp is taken under the lock and clamped to the previous entry's,
// so List order is always non-decreasing. Record cannot fail the caller.
func (l *Ledger) Record(entry Entry) Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now().UTC()
	if n := len(l.entries); n > 0 && now.Before(l.entries[n-1].ServedAt) {
		now = l.entries[n-1].ServedAt
	}
	entry.ServedAt = now
	entry.Response.ServedAt = now

	l.entries = append(l.entries, entry)
	if l.warnThreshold > 0 && len(l.entries) == l.warnThreshold {
		l.logger.Warn("ledger reached warn threshold, entries await export",
			zap.Int("entries", len(l.entries)))
	}
	return entry
}

// List returns entries matching the filter in ascending timestamp order.
func (l *Ledger) List(f Filter) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	matched := make([]Entry, 0, len(l.entries))
	for _, e := range l.entries {
		if f.StoreID != "" && e.Request.StoreID != f.StoreID {
			continue
		}
		if f.ProductID != "" && e.Request.ProductID != f.ProductID {
			continue
		}
		if f.From != nil && e.ServedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && e.ServedAt.After(*f.To) {
			continue
		}
		matched = append(matched, e)
	}

	if f.Offset > 0 {
		if f.Offset >= len(matched) {
			return nil
		}
		matched = matched[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(matched) {
		matched = matched[:f.Limit]
	}
	return matched
}

// Len reports the number of recorded entries.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Unflushed returns a copy of entries not yet persisted by the exporter.
func (l *Ledger) Unflushed() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.flushed >= len(l.entries) {
		return nil
	}
	out := make([]Entry, len(l.entries)-l.flushed)
	copy(out, l.entries[l.flushed:])
	return out
}

// MarkFlushed advances the flush watermark after a successful export.
func (l *Ledger) MarkFlushed(n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.flushed += n
	if l.flushed > len(l.entries) {
		l.flushed = len(l.entries)
	}
}
