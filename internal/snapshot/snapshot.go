// Package snapshot holds the immutable price list handed to readers and the
// slot it is published through.
package snapshot

import (
	"iter"
	"slices"
	"time"
)

// PriceRecord is one quoted asset. PriceRaw is kept exactly as the source
// sent it; turning it into a number or a currency string is up to the reader.
type PriceRecord struct {
	Name     string `json:"name"`
	PriceRaw string `json:"price"`
}

// Snapshot is an ordered, read-only list of price records. The zero value is
// the empty snapshot.
type Snapshot struct {
	records []PriceRecord
	takenAt time.Time
}

// New builds a snapshot from a copy of records, so later changes to the
// caller's slice are not visible through it.
func New(records []PriceRecord, takenAt time.Time) Snapshot {
	return Snapshot{
		records: slices.Clone(records),
		takenAt: takenAt,
	}
}

// Len returns the number of records.
func (s Snapshot) Len() int { return len(s.records) }

// IsEmpty reports whether the snapshot has no records.
func (s Snapshot) IsEmpty() bool { return len(s.records) == 0 }

// At returns the i-th record. It panics if i is out of range, like indexing a slice.
func (s Snapshot) At(i int) PriceRecord { return s.records[i] }

// TakenAt returns when the snapshot was built; zero for the empty default.
func (s Snapshot) TakenAt() time.Time { return s.takenAt }

// Records returns a copy of the records in source order.
func (s Snapshot) Records() []PriceRecord {
	if s.records == nil {
		return []PriceRecord{}
	}
	return slices.Clone(s.records)
}

// All iterates over the records in source order.
func (s Snapshot) All() iter.Seq2[int, PriceRecord] {
	return func(yield func(int, PriceRecord) bool) {
		for i, r := range s.records {
			if !yield(i, r) {
				return
			}
		}
	}
}
