package cart

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultMirrorDelay debounces mirror writes so a burst of cart mutations
// produces one snapshot write.
const DefaultMirrorDelay = 100 * time.Millisecond

// Sessions owns one Cart per client session and keeps the mirror store in
// sync. All cart mutations go through here; the session mutex gives the
// single-threaded contract each Cart expects.
type Sessions struct {
	store       Store
	logger      *slog.Logger
	mirrorDelay time.Duration
	sfg         singleflight.Group

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	mu     sync.Mutex
	cart   *Cart
	mirror *time.Timer
}

func NewSessions(store Store, logger *slog.Logger) *Sessions {
	return &Sessions{
		store:       store,
		logger:      logger,
		mirrorDelay: DefaultMirrorDelay,
		sessions:    make(map[string]*session),
	}
}

func (s *Sessions) session(sessionID string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = &session{}
		s.sessions[sessionID] = sess
	}
	return sess
}

// load restores the cart from the mirror on first touch. Singleflight keeps
// concurrent first requests for the same session from stampeding the store.
func (s *Sessions) load(ctx context.Context, sessionID string, sess *session) *Cart {
	if sess.cart != nil {
		return sess.cart
	}

	v, _, _ := s.sfg.Do(sessionID, func() (any, error) {
		cart := New()
		entries, err := s.store.Load(ctx, sessionID)
		if err != nil {
			if !errors.Is(err, ErrMiss) {
				s.logger.Warn("cart mirror load failed", "error", err, "session_id", sessionID)
			}
			return cart, nil
		}
		cart.Restore(entries)
		return cart, nil
	})

	sess.cart = v.(*Cart)
	return sess.cart
}

// With runs fn against the session's cart under its lock and schedules a
// debounced mirror write afterwards. Errors from fn are returned untouched
// and never leave the cart in a partial state.
func (s *Sessions) With(ctx context.Context, sessionID string, fn func(*Cart) error) error {
	sess := s.session(sessionID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	cart := s.load(ctx, sessionID, sess)
	if err := fn(cart); err != nil {
		return err
	}

	s.scheduleMirror(sessionID, sess, cart)
	return nil
}

func (s *Sessions) scheduleMirror(sessionID string, sess *session, cart *Cart) {
	entries := cart.Entries()

	if sess.mirror != nil {
		sess.mirror.Stop()
	}
	sess.mirror = time.AfterFunc(s.mirrorDelay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.store.Save(ctx, sessionID, entries); err != nil {
			s.logger.Warn("cart mirror write failed", "error", err, "session_id", sessionID)
		}
	})
}

// Snapshot returns the current entries without mutating anything.
func (s *Sessions) Snapshot(ctx context.Context, sessionID string) []Entry {
	var entries []Entry
	_ = s.With(ctx, sessionID, func(c *Cart) error {
		entries = c.Entries()
		return nil
	})
	return entries
}

// Clear empties the session cart and removes its mirror. Used on explicit
// clear and after a successful order placement.
func (s *Sessions) Clear(ctx context.Context, sessionID string) error {
	sess := s.session(sessionID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.mirror != nil {
		sess.mirror.Stop()
		sess.mirror = nil
	}
	if sess.cart != nil {
		sess.cart.Clear()
	} else {
		sess.cart = New()
	}

	if err := s.store.Delete(ctx, sessionID); err != nil {
		s.logger.Warn("cart mirror delete failed", "error", err, "session_id", sessionID)
		return err
	}
	return nil
}
