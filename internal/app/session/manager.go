package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"rentride/internal/app/policies"
	"rentride/internal/app/reconcile"
	"rentride/internal/domain/booking"
)

var (
	ErrNotFound       = errors.New("session: not found")
	ErrMissingGateway = errors.New("session: booking gateway required")
	ErrMissingChannel = errors.New("session: event channel required")
)

type ID string

// Session is one list screen: a private store fed by its own subscription.
type Session struct {
	ID       ID
	Scope    policies.Scope
	OpenedAt time.Time

	store       *reconcile.Store
	unsubscribe func()
	closeOnce   sync.Once
}

func (s *Session) Store() *reconcile.Store { return s.store }

func (s *Session) Snapshot() reconcile.View { return s.store.Snapshot() }

// teardown stops event delivery before dropping the store, so no update
// arriving afterwards can reach it.
func (s *Session) teardown() {
	s.closeOnce.Do(func() {
		if s.unsubscribe != nil {
			s.unsubscribe()
		}
		s.store.Close()
	})
}

type Options struct {
	Gateway policies.BookingGateway
	Channel policies.EventChannel
	Logger  *slog.Logger
	// ResyncTimeout bounds the fetch triggered by a channel reconnect.
	ResyncTimeout time.Duration
	IDGenerator   func() string
	Clock         func() time.Time
}

type Manager struct {
	gateway       policies.BookingGateway
	channel       policies.EventChannel
	logger        *slog.Logger
	resyncTimeout time.Duration
	newID         func() string
	now           func() time.Time

	mu       sync.RWMutex
	sessions map[ID]*Session

	removeReconnect func()
}

func NewManager(opts Options) (*Manager, error) {
	if opts.Gateway == nil {
		return nil, ErrMissingGateway
	}
	if opts.Channel == nil {
		return nil, ErrMissingChannel
	}
	m := &Manager{
		gateway:       opts.Gateway,
		channel:       opts.Channel,
		logger:        opts.Logger,
		resyncTimeout: opts.ResyncTimeout,
		newID:         opts.IDGenerator,
		now:           opts.Clock,
		sessions:      make(map[ID]*Session),
	}
	if m.resyncTimeout <= 0 {
		m.resyncTimeout = 30 * time.Second
	}
	if m.newID == nil {
		m.newID = uuid.NewString
	}
	if m.now == nil {
		m.now = func() time.Time { return time.Now().UTC() }
	}
	if rc, ok := opts.Channel.(policies.Reconnector); ok {
		m.removeReconnect = rc.OnReconnect(m.handleReconnect)
	}
	return m, nil
}

// Open subscribes to pushed updates before fetching, so updates racing the
// bulk fetch are buffered by the store and replayed after hydration.
func (m *Manager) Open(ctx context.Context, scope policies.Scope) (*Session, error) {
	id := ID(m.newID())
	var logger *slog.Logger
	if m.logger != nil {
		logger = m.logger.With("session_id", string(id), "scope", string(scope))
	}
	store := reconcile.NewStore(reconcile.Options{Logger: logger})
	sess := &Session{
		ID:       id,
		Scope:    scope,
		OpenedAt: m.now(),
		store:    store,
	}
	sess.unsubscribe = m.channel.On(booking.EventUpdated, func(r booking.Record, scopes []policies.Scope) {
		if !scope.Includes(scopes) {
			return
		}
		_ = store.Apply(r)
	})

	records, err := m.gateway.FetchBookings(ctx, scope)
	if err != nil {
		sess.teardown()
		return nil, fmt.Errorf("session: fetch bookings: %w", err)
	}
	if err := store.Hydrate(records); err != nil {
		sess.teardown()
		return nil, err
	}

	m.mu.Lock()
	m.sessions[id] = sess
	m.mu.Unlock()

	if logger != nil {
		logger.Info("session opened", "records", len(records))
	}
	return sess, nil
}

func (m *Manager) Get(id ID) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return sess, nil
}

// List returns open sessions ordered by opening time.
func (m *Manager) List() []*Session {
	m.mu.RLock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].OpenedAt.Equal(out[j].OpenedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].OpenedAt.Before(out[j].OpenedAt)
	})
	return out
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Resync re-fetches the session's scope and fully replaces its view.
func (m *Manager) Resync(ctx context.Context, id ID) error {
	sess, err := m.Get(id)
	if err != nil {
		return err
	}
	return m.resync(ctx, sess)
}

func (m *Manager) resync(ctx context.Context, sess *Session) error {
	records, err := m.gateway.FetchBookings(ctx, sess.Scope)
	if err != nil {
		return fmt.Errorf("session %s: fetch bookings: %w", sess.ID, err)
	}
	if err := sess.store.Hydrate(records); err != nil {
		if errors.Is(err, reconcile.ErrStoreClosed) {
			return nil
		}
		return err
	}
	return nil
}

// ResyncAll resyncs every open session and joins the failures.
func (m *Manager) ResyncAll(ctx context.Context) error {
	var errs []error
	for _, sess := range m.List() {
		if err := m.resync(ctx, sess); err != nil {
			errs = append(errs, err)
			if m.logger != nil {
				m.logger.Error("session resync failed", "session_id", string(sess.ID), "error", err)
			}
		}
	}
	return errors.Join(errs...)
}

// handleReconnect runs on the channel's reconnect path; it blocks until every
// session has been re-hydrated so that the first update consumed after the
// reconnect lands on fresh state.
func (m *Manager) handleReconnect() {
	if m.Len() == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), m.resyncTimeout)
	defer cancel()
	if m.logger != nil {
		m.logger.Info("event channel reconnected, resyncing sessions", "sessions", m.Len())
	}
	_ = m.ResyncAll(ctx)
}

// Close unsubscribes the session and discards its store.
func (m *Manager) Close(id ID) error {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	sess.teardown()
	if m.logger != nil {
		m.logger.Info("session closed", "session_id", string(id))
	}
	return nil
}

// CloseAll closes every session and detaches from the channel.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[ID]*Session)
	m.mu.Unlock()
	for _, sess := range sessions {
		sess.teardown()
	}
	if m.removeReconnect != nil {
		m.removeReconnect()
		m.removeReconnect = nil
	}
}
