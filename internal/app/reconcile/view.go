package reconcile

import (
	"rentride/internal/domain/availability"
	"rentride/internal/domain/booking"
)

// View is an immutable snapshot of the bucketed bookings. Within a bucket
// records are ordered most recently touched last.
type View struct {
	Revision uint64
	Hydrated bool
	Buckets  map[booking.Bucket][]booking.Record
}

// Bucket returns the records in b; never nil for a known bucket.
func (v View) Bucket(b booking.Bucket) []booking.Record {
	return v.Buckets[b]
}

// Counts is the number of records per bucket.
func (v View) Counts() map[booking.Bucket]int {
	out := make(map[booking.Bucket]int, len(booking.Buckets))
	for _, b := range booking.Buckets {
		out[b] = len(v.Buckets[b])
	}
	return out
}

func (v View) Len() int {
	n := 0
	for _, records := range v.Buckets {
		n += len(records)
	}
	return n
}

// Locate scans the snapshot for id.
func (v View) Locate(id booking.ID) (booking.Bucket, booking.Record, bool) {
	for _, b := range booking.Buckets {
		for _, r := range v.Buckets[b] {
			if r.ID == id {
				return b, r, true
			}
		}
	}
	return "", booking.Record{}, false
}

// Entry is a record together with the bucket the classifier put it in.
type Entry struct {
	Record booking.Record
	Bucket booking.Bucket
}

// Siblings converts entries into the conflict detector's input.
func Siblings(entries []Entry) []availability.Sibling {
	out := make([]availability.Sibling, 0, len(entries))
	for _, e := range entries {
		out = append(out, availability.Sibling{
			ID:      e.Record.ID,
			AssetID: e.Record.AssetID,
			Range:   e.Record.Range(),
			Bucket:  e.Bucket,
		})
	}
	return out
}

func emptyBuckets() map[booking.Bucket][]booking.Record {
	out := make(map[booking.Bucket][]booking.Record, len(booking.Buckets))
	for _, b := range booking.Buckets {
		out[b] = []booking.Record{}
	}
	return out
}
