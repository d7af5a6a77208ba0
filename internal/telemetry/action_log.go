package telemetry

import (
	"fmt"
	"iter"

	"github.com/bnema/agentfeed/internal/domain"
	lru "github.com/hashicorp/golang-lru/v2"
)

// ActionLog is an append-only, insertion-ordered set of action records.
//
// With a capacity of zero the log is unbounded. With a positive capacity it
// keeps the newest records in a ring and evicts the oldest on append; ids of
// evicted records stay in a bounded tombstone set so a late re-delivery is
// still treated as a duplicate. ActionLog is not safe for concurrent use.
type ActionLog struct {
	records    []domain.ActionRecord
	head       int
	size       int
	capacity   int
	evicted    int
	index      map[domain.ActionID]struct{}
	tombstones *lru.Cache[domain.ActionID, struct{}]
}

func NewActionLog(capacity int) *ActionLog {
	if capacity < 0 {
		capacity = 0
	}

	log := &ActionLog{
		capacity: capacity,
		index:    map[domain.ActionID]struct{}{},
	}
	if capacity > 0 {
		log.records = make([]domain.ActionRecord, capacity)
		// lru.New only fails on a non-positive size.
		log.tombstones, _ = lru.New[domain.ActionID, struct{}](capacity)
	}

	return log
}

// Append adds record at the end of the log. A record whose id is already
// present (or was recently evicted) is rejected with ErrDuplicateID and the
// log is left untouched.
func (l *ActionLog) Append(record domain.ActionRecord) error {
	if l.Contains(record.ID) {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateID, record.ID)
	}

	if l.capacity == 0 {
		l.records = append(l.records, record)
		l.size++
		l.index[record.ID] = struct{}{}
		return nil
	}

	if l.size == l.capacity {
		oldest := l.records[l.head]
		delete(l.index, oldest.ID)
		l.tombstones.Add(oldest.ID, struct{}{})
		l.records[l.head] = record
		l.head = (l.head + 1) % l.capacity
		l.evicted++
	} else {
		l.records[(l.head+l.size)%l.capacity] = record
		l.size++
	}
	l.index[record.ID] = struct{}{}

	return nil
}

func (l *ActionLog) Contains(id domain.ActionID) bool {
	if _, ok := l.index[id]; ok {
		return true
	}
	if l.tombstones != nil {
		return l.tombstones.Contains(id)
	}
	return false
}

func (l *ActionLog) Len() int {
	return l.size
}

func (l *ActionLog) Capacity() int {
	return l.capacity
}

// Evicted reports how many records the bounded log dropped since the last Clear.
func (l *ActionLog) Evicted() int {
	return l.evicted
}

func (l *ActionLog) At(i int) domain.ActionRecord {
	if i < 0 || i >= l.size {
		panic(fmt.Sprintf("action log index %d out of range [0,%d)", i, l.size))
	}
	if l.capacity == 0 {
		return l.records[i]
	}
	return l.records[(l.head+i)%l.capacity]
}

func (l *ActionLog) Last() (domain.ActionRecord, bool) {
	if l.size == 0 {
		return domain.ActionRecord{}, false
	}
	return l.At(l.size - 1), true
}

func (l *ActionLog) All() []domain.ActionRecord {
	out := make([]domain.ActionRecord, 0, l.size)
	for i := 0; i < l.size; i++ {
		out = append(out, l.At(i))
	}
	return out
}

// Filtered yields matching records in log order. Each range over the returned
// sequence starts again from the oldest record.
func (l *ActionLog) Filtered(filter domain.Filter) iter.Seq[domain.ActionRecord] {
	return func(yield func(domain.ActionRecord) bool) {
		for i := 0; i < l.size; i++ {
			record := l.At(i)
			if !filter.Match(record) {
				continue
			}
			if !yield(record) {
				return
			}
		}
	}
}

// Clear empties the log. Metrics derived from it are the caller's concern.
func (l *ActionLog) Clear() {
	l.head = 0
	l.size = 0
	l.evicted = 0
	l.index = map[domain.ActionID]struct{}{}
	if l.capacity == 0 {
		l.records = nil
		return
	}
	clear(l.records)
	l.tombstones.Purge()
}
