package booking

// Bucket is the display category a booking occupies. Exactly one per record.
type Bucket string

const (
	BucketPending   Bucket = "Pending"
	BucketConfirmed Bucket = "Confirmed"
	BucketActive    Bucket = "Active"
	BucketCompleted Bucket = "Completed"
	BucketCancelled Bucket = "Cancelled"
	BucketRefund    Bucket = "Refund"
)

// Buckets is the closed set of buckets in tab order.
var Buckets = []Bucket{BucketPending, BucketConfirmed, BucketActive, BucketCompleted, BucketCancelled, BucketRefund}

// Blocking reports whether a booking in this bucket reserves its vehicle.
func (b Bucket) Blocking() bool {
	return b != BucketCancelled && b != BucketRefund
}

// Classify maps the (status, payment status) pair to a bucket.
//
// Cancelled is checked last because it fans out on money state: a cancelled
// booking with money still held goes to Refund, otherwise to Cancelled.
// Unrecognized pairs return a *ClassificationError and no bucket.
func Classify(r Record) (Bucket, error) {
	switch r.Status {
	case StatusPending, StatusAccepted:
		if r.PaymentStatus.Known() {
			return BucketPending, nil
		}
	case StatusConfirmed:
		if r.PaymentStatus.Known() {
			return BucketConfirmed, nil
		}
	case StatusActive:
		if r.PaymentStatus.Known() {
			return BucketActive, nil
		}
	case StatusCompleted:
		if r.PaymentStatus.Known() {
			return BucketCompleted, nil
		}
	case StatusCancelled:
		switch r.PaymentStatus {
		case PaymentPending, PaymentRefunded:
			return BucketCancelled, nil
		case PaymentPartial, PaymentFull:
			return BucketRefund, nil
		}
	}
	return "", &ClassificationError{BookingID: r.ID, Status: r.Status, PaymentStatus: r.PaymentStatus}
}
