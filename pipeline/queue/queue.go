// Package queue holds the ordered record of exported files awaiting layer
// registration by the host.
package queue

import (
	"sort"
	"sync"

	"github.com/gear6io/terrapipe/pipeline/geo"
)

// LayerCreationInfo describes one exported file for the host's layer
// registrar. FilePath references an existing, non-empty file at the moment
// it is enqueued; the exporter verifies that before handing it over.
type LayerCreationInfo struct {
	FilePath         string
	LayerName        string
	GeometryType     geo.GeometryType
	StackingPriority int
	Theme            string
	TypeKey          string
	RowCount         int64
}

// RegistrationQueue is the single mutable sequence appended by the exporter
// and drained by the host. Safe for concurrent producer/consumer use.
type RegistrationQueue struct {
	mu      sync.Mutex
	entries []LayerCreationInfo
}

// New creates an empty registration queue.
func New() *RegistrationQueue {
	return &RegistrationQueue{}
}

// Enqueue appends one exported-file descriptor.
func (q *RegistrationQueue) Enqueue(info LayerCreationInfo) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = append(q.entries, info)
}

// Len returns the number of pending entries.
func (q *RegistrationQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// drawRank maps stacking priority to registration order: points first,
// then lines, then polygons, with unknown geometry types always last.
func drawRank(priority int) int {
	switch priority {
	case geo.PriorityPoint:
		return 0
	case geo.PriorityLine:
		return 1
	case geo.PriorityPolygon:
		return 2
	default:
		return 3
	}
}

// DrainSorted returns the entries in registration order: points register
// above lines above polygons, unknown types below everything. This is
// deliberately the inverse of export order; export can proceed in any
// order, on-screen stacking must be deterministic. Ties break by theme,
// then type key, then layer name. The queue itself is not cleared; the
// host calls Clear once it has consumed the entries.
func (q *RegistrationQueue) DrainSorted() []LayerCreationInfo {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]LayerCreationInfo, len(q.entries))
	copy(out, q.entries)

	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := drawRank(out[i].StackingPriority), drawRank(out[j].StackingPriority)
		if ri != rj {
			return ri < rj
		}
		if out[i].Theme != out[j].Theme {
			return out[i].Theme < out[j].Theme
		}
		if out[i].TypeKey != out[j].TypeKey {
			return out[i].TypeKey < out[j].TypeKey
		}
		return out[i].LayerName < out[j].LayerName
	})

	return out
}

// Clear empties the queue so the next ingest cycle cannot re-register
// stale entries. Idempotent.
func (q *RegistrationQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = nil
}
