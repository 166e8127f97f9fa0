package reconcile

import (
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"rentride/internal/domain/booking"
)

var (
	ErrStoreClosed = errors.New("reconcile: store closed")
	ErrStaleUpdate = errors.New("reconcile: update older than the known version")
)

// Listener receives the full view after every change.
type Listener func(View)

type SubscriptionID uint64

type Options struct {
	Logger *slog.Logger
	// OnError receives dropped updates: missing ids and status pairs the
	// classifier rejects. It is called without any store lock held.
	OnError func(error)
}

type subscription struct {
	id       SubscriptionID
	listener Listener
	removed  atomic.Bool

	mu      sync.Mutex
	lastRev uint64
	seen    bool
}

// Store holds one session's bucketed view of bookings.
//
// Bucket membership is never stored on its own: index only caches what
// Classify returned for the record currently held in that bucket, and both
// change together under mu.
//
// Listeners run with no store lock held. They may read the store and
// subscribe or unsubscribe, but must not call Hydrate or Apply synchronously.
type Store struct {
	logger  *slog.Logger
	onError func(error)

	mu       sync.Mutex
	buckets  map[booking.Bucket][]booking.Record
	index    map[booking.ID]booking.Bucket
	pending  []booking.Record
	hydrated bool
	closed   bool
	revision uint64

	notifyMu sync.Mutex
	subs     []*subscription
	nextSub  SubscriptionID
}

func NewStore(opts Options) *Store {
	return &Store{
		logger:  opts.Logger,
		onError: opts.OnError,
		buckets: emptyBuckets(),
		index:   make(map[booking.ID]booking.Bucket),
	}
}

// Hydrate replaces the whole view with records. Updates applied before the
// first Hydrate are replayed right after it, in arrival order.
//
// A record the classifier rejects keeps its previous bucket and contents if
// the store already knew it, and is left out otherwise.
func (s *Store) Hydrate(records []booking.Record) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrStoreClosed
	}

	prevBuckets, prevIndex := s.buckets, s.index
	s.buckets = emptyBuckets()
	s.index = make(map[booking.ID]booking.Bucket, len(records))

	var problems []error
	for _, r := range records {
		if err := checkID(r); err != nil {
			problems = append(problems, err)
			continue
		}
		bucket, err := booking.Classify(r)
		if err != nil {
			problems = append(problems, err)
			if prevBucket, ok := prevIndex[r.ID]; ok {
				if prev, found := find(prevBuckets[prevBucket], r.ID); found {
					s.moveLocked(prev, prevBucket)
				}
			}
			continue
		}
		s.moveLocked(r, bucket)
	}

	replay := s.pending
	s.pending = nil
	wasHydrated := s.hydrated
	s.hydrated = true
	for _, r := range replay {
		if err := s.applyLocked(r); err != nil && !errors.Is(err, ErrStaleUpdate) {
			problems = append(problems, err)
		}
	}

	s.revision++
	view := s.snapshotLocked()
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.Debug("bookings hydrated",
			"records", view.Len(),
			"replayed", len(replay),
			"rehydrate", wasHydrated,
			"rejected", len(problems))
	}
	s.report(problems...)
	s.notify(view)
	return nil
}

// Apply reconciles one pushed record into the view. Applying the same record
// twice leaves the view as a single application did. Without versions the
// last applied record wins; when both sides carry a version, an older
// update is discarded with ErrStaleUpdate.
func (s *Store) Apply(update booking.Record) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrStoreClosed
	}
	if err := checkID(update); err != nil {
		s.mu.Unlock()
		s.report(err)
		return err
	}
	if !s.hydrated {
		s.pending = append(s.pending, update.Copy())
		s.mu.Unlock()
		return nil
	}

	err := s.applyLocked(update)
	if err != nil {
		s.mu.Unlock()
		if errors.Is(err, ErrStaleUpdate) {
			if s.logger != nil {
				s.logger.Debug("stale booking update dropped", "booking_id", update.ID, "version", update.Version)
			}
			return err
		}
		s.report(err)
		return err
	}
	s.revision++
	view := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(view)
	return nil
}

// applyLocked classifies first and only then touches the index and buckets,
// so a rejected update mutates nothing.
func (s *Store) applyLocked(update booking.Record) error {
	if err := checkID(update); err != nil {
		return err
	}
	prevBucket, known := s.index[update.ID]
	if known && update.Version > 0 {
		if prev, found := find(s.buckets[prevBucket], update.ID); found && prev.Version > update.Version {
			return ErrStaleUpdate
		}
	}
	bucket, err := booking.Classify(update)
	if err != nil {
		return err
	}
	s.moveLocked(update, bucket)
	return nil
}

func (s *Store) moveLocked(r booking.Record, to booking.Bucket) {
	if from, ok := s.index[r.ID]; ok {
		s.buckets[from] = remove(s.buckets[from], r.ID)
	}
	s.buckets[to] = append(s.buckets[to], r.Copy())
	s.index[r.ID] = to
}

// Subscribe registers listener. If the store is hydrated the listener gets
// the current view immediately.
func (s *Store) Subscribe(listener Listener) SubscriptionID {
	if listener == nil {
		return 0
	}
	s.notifyMu.Lock()
	s.nextSub++
	sub := &subscription{id: s.nextSub, listener: listener}
	s.subs = append(s.subs, sub)
	s.notifyMu.Unlock()

	s.mu.Lock()
	hydrated, closed := s.hydrated, s.closed
	view := s.snapshotLocked()
	s.mu.Unlock()

	if hydrated && !closed {
		deliver(sub, view)
	}
	return sub.id
}

// Unsubscribe stops deliveries to id. A delivery already running finishes,
// but no later one starts.
func (s *Store) Unsubscribe(id SubscriptionID) bool {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	for i, sub := range s.subs {
		if sub.id == id {
			sub.removed.Store(true)
			s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
			return true
		}
	}
	return false
}

// Close tears the store down. Later Hydrate and Apply calls return
// ErrStoreClosed without touching state, and listeners are dropped.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	s.pending = nil
	s.mu.Unlock()

	s.notifyMu.Lock()
	for _, sub := range s.subs {
		sub.removed.Store(true)
	}
	s.subs = nil
	s.notifyMu.Unlock()
}

func (s *Store) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Store) Hydrated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hydrated
}

// Pending is the number of updates waiting for the first Hydrate.
func (s *Store) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *Store) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Get returns the current record for id and its bucket.
func (s *Store) Get(id booking.ID) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket, ok := s.index[id]
	if !ok {
		return Entry{}, false
	}
	r, found := find(s.buckets[bucket], id)
	if !found {
		return Entry{}, false
	}
	return Entry{Record: r.Copy(), Bucket: bucket}, true
}

// Entries lists every record with its bucket, in bucket order.
func (s *Store) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, 0, len(s.index))
	for _, b := range booking.Buckets {
		for _, r := range s.buckets[b] {
			out = append(out, Entry{Record: r.Copy(), Bucket: b})
		}
	}
	return out
}

func (s *Store) snapshotLocked() View {
	buckets := make(map[booking.Bucket][]booking.Record, len(s.buckets))
	for _, b := range booking.Buckets {
		src := s.buckets[b]
		dst := make([]booking.Record, len(src))
		for i, r := range src {
			dst[i] = r.Copy()
		}
		buckets[b] = dst
	}
	return View{Revision: s.revision, Hydrated: s.hydrated, Buckets: buckets}
}

// notify delivers view to every listener unless a newer one already went out.
// The subscriber list is copied so listeners run without notifyMu.
func (s *Store) notify(view View) {
	s.notifyMu.Lock()
	subs := make([]*subscription, len(s.subs))
	copy(subs, s.subs)
	s.notifyMu.Unlock()

	for _, sub := range subs {
		deliver(sub, view)
	}
}

// deliver holds the subscription's own lock across the call, which keeps
// revisions in order per listener.
func deliver(sub *subscription, view View) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.removed.Load() {
		return
	}
	if sub.seen && view.Revision <= sub.lastRev {
		return
	}
	sub.seen = true
	sub.lastRev = view.Revision
	sub.listener(view)
}

func (s *Store) report(errs ...error) {
	for _, err := range errs {
		if err == nil {
			continue
		}
		if s.logger != nil {
			var classErr *booking.ClassificationError
			if errors.As(err, &classErr) {
				s.logger.Warn("booking kept in last known bucket: unknown status",
					"booking_id", classErr.BookingID,
					"booking_status", classErr.Status,
					"payment_status", classErr.PaymentStatus)
			} else {
				s.logger.Warn("booking update dropped", "error", err)
			}
		}
		if s.onError != nil {
			s.onError(err)
		}
	}
}

func checkID(r booking.Record) error {
	if strings.TrimSpace(string(r.ID)) == "" {
		return booking.ErrMissingID
	}
	return nil
}

func find(records []booking.Record, id booking.ID) (booking.Record, bool) {
	for _, r := range records {
		if r.ID == id {
			return r, true
		}
	}
	return booking.Record{}, false
}

func remove(records []booking.Record, id booking.ID) []booking.Record {
	for i, r := range records {
		if r.ID == id {
			return append(records[:i], records[i+1:]...)
		}
	}
	return records
}
