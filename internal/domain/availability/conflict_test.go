package availability_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"rentride/internal/domain/availability"
	"rentride/internal/domain/booking"
	"rentride/internal/domain/shared/daterange"
)

func feb(d int) time.Time { return daterange.Date(2024, time.February, d) }

func sibling(id string, start, end int, bucket booking.Bucket) availability.Sibling {
	return availability.Sibling{
		ID:      booking.ID(id),
		AssetID: "car-7",
		Range:   daterange.DateRange{Start: feb(start), End: feb(end)},
		Bucket:  bucket,
	}
}

func TestEditOverlappingSiblingIsRejected(t *testing.T) {
	entries := []availability.Sibling{
		sibling("A", 1, 5, booking.BucketConfirmed),
		sibling("B", 5, 8, booking.BucketConfirmed),
	}
	edited := booking.Record{ID: "A", AssetID: "car-7", StartDate: feb(4), EndDate: feb(6)}

	siblings := availability.Siblings(edited.AssetID, entries)
	assert.True(t, availability.HasConflict(edited.StartDate, edited.EndDate, siblings, edited.ID))

	err := availability.Check(edited, entries)
	assert.ErrorIs(t, err, booking.ErrDateConflict)
	assert.ErrorIs(t, err, booking.ErrValidation)
	assert.Contains(t, err.Error(), "B")
}

func TestEditedBookingIsExcluded(t *testing.T) {
	entries := []availability.Sibling{sibling("A", 1, 5, booking.BucketConfirmed)}
	edited := booking.Record{ID: "A", AssetID: "car-7", StartDate: feb(2), EndDate: feb(6)}
	assert.NoError(t, availability.Check(edited, entries))
}

func TestCancelledSiblingsDoNotBlock(t *testing.T) {
	entries := []availability.Sibling{
		sibling("C", 4, 6, booking.BucketCancelled),
		sibling("R", 4, 6, booking.BucketRefund),
	}
	edited := booking.Record{ID: "A", AssetID: "car-7", StartDate: feb(4), EndDate: feb(6)}
	assert.Empty(t, availability.Siblings("car-7", entries))
	assert.NoError(t, availability.Check(edited, entries))
}

func TestOtherAssetsDoNotBlock(t *testing.T) {
	other := sibling("B", 4, 6, booking.BucketActive)
	other.AssetID = "car-9"
	edited := booking.Record{ID: "A", AssetID: "car-7", StartDate: feb(4), EndDate: feb(6)}
	assert.NoError(t, availability.Check(edited, []availability.Sibling{other}))
}

func TestHasConflictSymmetry(t *testing.T) {
	ranges := [][2]int{{1, 5}, {5, 8}, {6, 7}, {2, 3}, {9, 9}, {8, 12}, {1, 1}}
	for _, r1 := range ranges {
		for _, r2 := range ranges {
			ab := availability.HasConflict(feb(r1[0]), feb(r1[1]), []availability.Sibling{sibling("x", r2[0], r2[1], booking.BucketPending)}, "")
			ba := availability.HasConflict(feb(r2[0]), feb(r2[1]), []availability.Sibling{sibling("x", r1[0], r1[1], booking.BucketPending)}, "")
			assert.Equal(t, ab, ba, "%v vs %v", r1, r2)
		}
	}
}

func TestTouchingEndpointsConflict(t *testing.T) {
	siblings := []availability.Sibling{sibling("B", 5, 8, booking.BucketConfirmed)}
	assert.True(t, availability.HasConflict(feb(1), feb(5), siblings, ""))
	assert.False(t, availability.HasConflict(feb(1), feb(4), siblings, ""))
	assert.True(t, availability.HasConflict(feb(8), feb(10), siblings, ""))
}
