package availability

import (
	"time"

	"rentride/internal/domain/booking"
	"rentride/internal/domain/shared/daterange"
)

// Sibling is another booking that may reserve the same vehicle.
type Sibling struct {
	ID      booking.ID
	AssetID booking.AssetID
	Range   daterange.DateRange
	Bucket  booking.Bucket
}

// Conflict names the sibling an edit collides with.
type Conflict struct {
	With  booking.ID
	Range daterange.DateRange
}

// HasConflict reports whether [start, end] overlaps any sibling other than
// excludeID. Endpoints are inclusive. Callers scope siblings to one vehicle
// and drop non-blocking buckets beforehand, see Siblings.
func HasConflict(start, end time.Time, siblings []Sibling, excludeID booking.ID) bool {
	_, found := FirstConflict(start, end, siblings, excludeID)
	return found
}

func FirstConflict(start, end time.Time, siblings []Sibling, excludeID booking.ID) (Conflict, bool) {
	candidate := daterange.DateRange{Start: daterange.Normalize(start), End: daterange.Normalize(end)}
	for _, s := range siblings {
		if excludeID != "" && s.ID == excludeID {
			continue
		}
		if candidate.Overlaps(s.Range) {
			return Conflict{With: s.ID, Range: s.Range}, true
		}
	}
	return Conflict{}, false
}

// Siblings keeps the entries for assetID whose bucket still reserves the vehicle.
func Siblings(assetID booking.AssetID, entries []Sibling) []Sibling {
	out := make([]Sibling, 0, len(entries))
	for _, e := range entries {
		if e.AssetID != assetID || !e.Bucket.Blocking() {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Check runs the full pre-save conflict check for a candidate booking.
func Check(candidate booking.Record, entries []Sibling) error {
	siblings := Siblings(candidate.AssetID, entries)
	c, found := FirstConflict(candidate.StartDate, candidate.EndDate, siblings, candidate.ID)
	if !found {
		return nil
	}
	return &booking.ValidationError{Field: "dates", Err: booking.ErrDateConflict, Detail: string(c.With) + " " + c.Range.String()}
}
