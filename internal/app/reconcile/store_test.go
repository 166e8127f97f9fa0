package reconcile_test

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentride/internal/app/reconcile"
	"rentride/internal/domain/booking"
	"rentride/internal/domain/shared/daterange"
)

func record(id string, status booking.Status, payment booking.PaymentStatus) booking.Record {
	return booking.Record{
		ID:            booking.ID(id),
		AssetID:       "car-7",
		Status:        status,
		PaymentStatus: payment,
		StartDate:     daterange.Date(2024, time.January, 10),
		EndDate:       daterange.Date(2024, time.January, 12),
		DailyPrice:    decimal.NewFromInt(1000),
	}
}

func ids(records []booking.Record) []booking.ID {
	out := make([]booking.ID, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

type errorSink struct {
	mu   sync.Mutex
	errs []error
}

func (s *errorSink) add(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, err)
}

func (s *errorSink) all() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]error(nil), s.errs...)
}

func newStore() (*reconcile.Store, *errorSink) {
	sink := &errorSink{}
	return reconcile.NewStore(reconcile.Options{OnError: sink.add}), sink
}

func assertExclusive(t *testing.T, v reconcile.View) {
	t.Helper()
	seen := map[booking.ID]booking.Bucket{}
	for b, records := range v.Buckets {
		for _, r := range records {
			prev, dup := seen[r.ID]
			require.False(t, dup, "%s in both %s and %s", r.ID, prev, b)
			seen[r.ID] = b
		}
	}
}

func TestRefundMovesToCancelledOnceRefunded(t *testing.T) {
	store, sink := newStore()
	require.NoError(t, store.Hydrate([]booking.Record{record("b-1", booking.StatusCancelled, booking.PaymentPartial)}))

	v := store.Snapshot()
	assert.Equal(t, []booking.ID{"b-1"}, ids(v.Bucket(booking.BucketRefund)))
	assert.Empty(t, v.Bucket(booking.BucketCancelled))

	require.NoError(t, store.Apply(record("b-1", booking.StatusCancelled, booking.PaymentRefunded)))

	v = store.Snapshot()
	assert.Empty(t, v.Bucket(booking.BucketRefund))
	assert.Equal(t, []booking.ID{"b-1"}, ids(v.Bucket(booking.BucketCancelled)))
	assert.Empty(t, sink.all())
}

func TestApplyIsIdempotent(t *testing.T) {
	store, _ := newStore()
	require.NoError(t, store.Hydrate([]booking.Record{
		record("b-1", booking.StatusPending, booking.PaymentPending),
		record("b-2", booking.StatusConfirmed, booking.PaymentFull),
		record("b-3", booking.StatusConfirmed, booking.PaymentPartial),
	}))

	update := record("b-1", booking.StatusConfirmed, booking.PaymentFull)
	require.NoError(t, store.Apply(update))
	once := store.Snapshot()

	require.NoError(t, store.Apply(update))
	twice := store.Snapshot()

	assert.Equal(t, once.Buckets, twice.Buckets)
	assert.Equal(t, []booking.ID{"b-2", "b-3", "b-1"}, ids(twice.Bucket(booking.BucketConfirmed)))
}

func TestApplyUnknownIDInserts(t *testing.T) {
	store, _ := newStore()
	require.NoError(t, store.Hydrate(nil))
	require.NoError(t, store.Apply(record("new", booking.StatusAccepted, booking.PaymentPending)))

	entry, ok := store.Get("new")
	require.True(t, ok)
	assert.Equal(t, booking.BucketPending, entry.Bucket)
	assert.Equal(t, 1, store.Snapshot().Len())
}

func TestLastAppliedWinsWithoutVersions(t *testing.T) {
	store, _ := newStore()
	require.NoError(t, store.Hydrate([]booking.Record{record("b-1", booking.StatusPending, booking.PaymentPending)}))

	// delivered out of order: the later server state arrives first
	require.NoError(t, store.Apply(record("b-1", booking.StatusActive, booking.PaymentFull)))
	require.NoError(t, store.Apply(record("b-1", booking.StatusConfirmed, booking.PaymentFull)))

	entry, ok := store.Get("b-1")
	require.True(t, ok)
	assert.Equal(t, booking.BucketConfirmed, entry.Bucket)
}

func TestHigherVersionWins(t *testing.T) {
	store, _ := newStore()
	v1 := record("b-1", booking.StatusConfirmed, booking.PaymentFull)
	v1.Version = 1
	v2 := record("b-1", booking.StatusActive, booking.PaymentFull)
	v2.Version = 2
	require.NoError(t, store.Hydrate([]booking.Record{v1}))

	require.NoError(t, store.Apply(v2))
	assert.ErrorIs(t, store.Apply(v1), reconcile.ErrStaleUpdate)

	entry, _ := store.Get("b-1")
	assert.Equal(t, booking.BucketActive, entry.Bucket)
	assert.Equal(t, int64(2), entry.Record.Version)

	// an unversioned update is applied as last-applied-wins
	unversioned := record("b-1", booking.StatusCompleted, booking.PaymentFull)
	require.NoError(t, store.Apply(unversioned))
	entry, _ = store.Get("b-1")
	assert.Equal(t, booking.BucketCompleted, entry.Bucket)
}

func TestMalformedUpdatesAreDroppedAndReported(t *testing.T) {
	store, sink := newStore()
	require.NoError(t, store.Hydrate([]booking.Record{record("b-1", booking.StatusConfirmed, booking.PaymentFull)}))
	before := store.Snapshot()

	err := store.Apply(record("", booking.StatusConfirmed, booking.PaymentFull))
	assert.ErrorIs(t, err, booking.ErrMissingID)

	err = store.Apply(record("b-1", "Expired", booking.PaymentFull))
	assert.ErrorIs(t, err, booking.ErrUnknownStatus)

	after := store.Snapshot()
	assert.Equal(t, before.Buckets, after.Buckets)
	assert.Equal(t, before.Revision, after.Revision)

	errs := sink.all()
	require.Len(t, errs, 2)
	assert.ErrorIs(t, errs[0], booking.ErrMissingID)
	assert.ErrorIs(t, errs[1], booking.ErrUnknownStatus)

	entry, ok := store.Get("b-1")
	require.True(t, ok)
	assert.Equal(t, booking.BucketConfirmed, entry.Bucket)
}

func TestHydrateReplacesInsteadOfMerging(t *testing.T) {
	store, _ := newStore()
	require.NoError(t, store.Hydrate([]booking.Record{
		record("b-1", booking.StatusPending, booking.PaymentPending),
		record("b-2", booking.StatusActive, booking.PaymentFull),
	}))
	require.NoError(t, store.Hydrate([]booking.Record{
		record("b-2", booking.StatusCompleted, booking.PaymentFull),
	}))

	v := store.Snapshot()
	assert.Equal(t, 1, v.Len())
	_, ok := store.Get("b-1")
	assert.False(t, ok)
	assert.Equal(t, []booking.ID{"b-2"}, ids(v.Bucket(booking.BucketCompleted)))
}

func TestRehydrateKeepsLastKnownBucketForUnknownStatus(t *testing.T) {
	store, sink := newStore()
	require.NoError(t, store.Hydrate([]booking.Record{
		record("b-1", booking.StatusActive, booking.PaymentFull),
		record("b-2", booking.StatusPending, booking.PaymentPending),
	}))
	require.NoError(t, store.Hydrate([]booking.Record{
		record("b-1", "Impounded", booking.PaymentFull),
		record("b-2", booking.StatusPending, booking.PaymentPending),
		record("b-3", "Impounded", booking.PaymentFull),
	}))

	v := store.Snapshot()
	assert.Equal(t, []booking.ID{"b-1"}, ids(v.Bucket(booking.BucketActive)))
	_, ok := store.Get("b-3")
	assert.False(t, ok)
	assert.Len(t, sink.all(), 2)
}

func TestHydrateDuplicateIDsKeepsLast(t *testing.T) {
	store, _ := newStore()
	require.NoError(t, store.Hydrate([]booking.Record{
		record("b-1", booking.StatusPending, booking.PaymentPending),
		record("b-1", booking.StatusConfirmed, booking.PaymentFull),
	}))
	v := store.Snapshot()
	assertExclusive(t, v)
	assert.Equal(t, 1, v.Len())
	assert.Equal(t, []booking.ID{"b-1"}, ids(v.Bucket(booking.BucketConfirmed)))
}

func TestUpdatesBeforeHydrateAreReplayedInOrder(t *testing.T) {
	store, _ := newStore()
	var views []reconcile.View
	store.Subscribe(func(v reconcile.View) { views = append(views, v) })

	require.NoError(t, store.Apply(record("b-1", booking.StatusConfirmed, booking.PaymentFull)))
	require.NoError(t, store.Apply(record("b-1", booking.StatusActive, booking.PaymentFull)))
	require.NoError(t, store.Apply(record("b-9", booking.StatusAccepted, booking.PaymentPending)))
	assert.Equal(t, 3, store.Pending())
	assert.Empty(t, views, "nothing is emitted before hydration")

	require.NoError(t, store.Hydrate([]booking.Record{
		record("b-1", booking.StatusPending, booking.PaymentPending),
	}))

	assert.Equal(t, 0, store.Pending())
	require.Len(t, views, 1)
	v := views[0]
	assert.True(t, v.Hydrated)
	assert.Equal(t, []booking.ID{"b-1"}, ids(v.Bucket(booking.BucketActive)))
	assert.Equal(t, []booking.ID{"b-9"}, ids(v.Bucket(booking.BucketPending)))
	assertExclusive(t, v)
}

func TestSubscribersGetFullSnapshots(t *testing.T) {
	store, _ := newStore()
	require.NoError(t, store.Hydrate([]booking.Record{record("b-1", booking.StatusPending, booking.PaymentPending)}))

	var got []reconcile.View
	id := store.Subscribe(func(v reconcile.View) { got = append(got, v) })
	require.Len(t, got, 1, "late subscriber receives the current view")
	assert.Equal(t, 1, got[0].Len())

	require.NoError(t, store.Apply(record("b-2", booking.StatusActive, booking.PaymentFull)))
	require.Len(t, got, 2)
	assert.Equal(t, 2, got[1].Len())
	assert.Equal(t, 1, got[1].Counts()[booking.BucketActive])

	assert.True(t, store.Unsubscribe(id))
	assert.False(t, store.Unsubscribe(id))
	require.NoError(t, store.Apply(record("b-3", booking.StatusActive, booking.PaymentFull)))
	assert.Len(t, got, 2)
}

func TestListenerCanUnsubscribeItself(t *testing.T) {
	store, _ := newStore()
	require.NoError(t, store.Hydrate(nil))

	var id reconcile.SubscriptionID
	calls := 0
	id = store.Subscribe(func(v reconcile.View) {
		calls++
		if v.Len() > 0 {
			store.Unsubscribe(id)
		}
	})
	other := 0
	store.Subscribe(func(reconcile.View) { other++ })

	done := make(chan error, 1)
	go func() { done <- store.Apply(record("b-1", booking.StatusPending, booking.PaymentPending)) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Apply blocked while a listener unsubscribed")
	}

	require.NoError(t, store.Apply(record("b-2", booking.StatusPending, booking.PaymentPending)))
	assert.Equal(t, 2, calls, "initial view plus the one that triggered the unsubscribe")
	assert.Equal(t, 3, other)
	assert.False(t, store.Unsubscribe(id))
}

func TestSnapshotsAreIsolated(t *testing.T) {
	store, _ := newStore()
	r := record("b-1", booking.StatusPending, booking.PaymentPending)
	r.AddOns = []booking.AddOn{{Name: "GPS", PricePerDay: decimal.NewFromInt(5)}}
	require.NoError(t, store.Hydrate([]booking.Record{r}))

	v := store.Snapshot()
	v.Buckets[booking.BucketPending][0].AddOns[0].Name = "mutated"
	v.Buckets[booking.BucketPending] = nil

	entry, ok := store.Get("b-1")
	require.True(t, ok)
	assert.Equal(t, "GPS", entry.Record.AddOns[0].Name)
	assert.Len(t, store.Snapshot().Bucket(booking.BucketPending), 1)
}

func TestClosedStoreIgnoresUpdates(t *testing.T) {
	store, _ := newStore()
	require.NoError(t, store.Hydrate([]booking.Record{record("b-1", booking.StatusPending, booking.PaymentPending)}))
	calls := 0
	store.Subscribe(func(reconcile.View) { calls++ })
	calls = 0

	store.Close()
	assert.True(t, store.Closed())
	assert.ErrorIs(t, store.Apply(record("b-1", booking.StatusActive, booking.PaymentFull)), reconcile.ErrStoreClosed)
	assert.ErrorIs(t, store.Hydrate(nil), reconcile.ErrStoreClosed)
	assert.Zero(t, calls)

	entry, _ := store.Get("b-1")
	assert.Equal(t, booking.BucketPending, entry.Bucket)
}

func TestEntriesFeedConflictSiblings(t *testing.T) {
	store, _ := newStore()
	require.NoError(t, store.Hydrate([]booking.Record{
		record("b-1", booking.StatusConfirmed, booking.PaymentFull),
		record("b-2", booking.StatusCancelled, booking.PaymentRefunded),
	}))
	siblings := reconcile.Siblings(store.Entries())
	require.Len(t, siblings, 2)
	byID := map[booking.ID]booking.Bucket{}
	for _, s := range siblings {
		byID[s.ID] = s.Bucket
	}
	assert.Equal(t, booking.BucketConfirmed, byID["b-1"])
	assert.Equal(t, booking.BucketCancelled, byID["b-2"])
}

func TestRandomSequencesStayExclusive(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	store, _ := newStore()

	randomRecord := func() booking.Record {
		return record(
			fmt.Sprintf("b-%d", rng.Intn(12)),
			booking.Statuses[rng.Intn(len(booking.Statuses))],
			booking.PaymentStatuses[rng.Intn(len(booking.PaymentStatuses))],
		)
	}

	for round := 0; round < 20; round++ {
		batch := make([]booking.Record, rng.Intn(8))
		for i := range batch {
			batch[i] = randomRecord()
		}
		require.NoError(t, store.Hydrate(batch))
		for i := 0; i < 30; i++ {
			require.NoError(t, store.Apply(randomRecord()))
			v := store.Snapshot()
			assertExclusive(t, v)
			for _, e := range store.Entries() {
				want, err := booking.Classify(e.Record)
				require.NoError(t, err)
				assert.Equal(t, want, e.Bucket)
			}
		}
	}
}

func TestConcurrentApplyKeepsListenerRevisionsMonotonic(t *testing.T) {
	store, _ := newStore()
	require.NoError(t, store.Hydrate(nil))

	var mu sync.Mutex
	var revisions []uint64
	store.Subscribe(func(v reconcile.View) {
		mu.Lock()
		revisions = append(revisions, v.Revision)
		mu.Unlock()
		_ = store.Snapshot()
	})

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_ = store.Apply(record(fmt.Sprintf("b-%d-%d", g, i%5), booking.StatusConfirmed, booking.PaymentFull))
			}
		}(g)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	for i := 1; i < len(revisions); i++ {
		assert.Greater(t, revisions[i], revisions[i-1])
	}
	assert.Equal(t, 40, store.Snapshot().Len())
	assertExclusive(t, store.Snapshot())
}
