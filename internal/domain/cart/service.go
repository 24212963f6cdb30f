// internal/domain/cart/service.go
package cart

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/sirupsen/logrus"
)

const lockStripes = 64

// Service hands out per-session cart stores and routes change signals to
// the observers of that session only
type Service struct {
	kv     KeyValueStore
	logger *logrus.Entry

	// writes to the same session are serialized through one stripe
	locks [lockStripes]sync.Mutex

	mu        sync.Mutex
	notifiers map[string]*Notifier
}

// NewService creates a new cart service
func NewService(kv KeyValueStore, logger *logrus.Entry) *Service {
	return &Service{
		kv:        kv,
		logger:    logger,
		notifiers: make(map[string]*Notifier),
	}
}

// Store returns the cart of a session
func (s *Service) Store(sessionID string) *Store {
	store := NewStore(s.kv, sessionKey(sessionID), sessionPublisher{svc: s, sessionID: sessionID},
		s.logger.WithField("session_id", sessionID))
	store.mu = &s.locks[stripe(sessionID)]
	return store
}

// Subscribe registers an observer for one session's cart changes. The
// returned func must be called once the observer goes away.
func (s *Service) Subscribe(sessionID string) (<-chan struct{}, func()) {
	s.mu.Lock()
	n, ok := s.notifiers[sessionID]
	if !ok {
		n = NewNotifier()
		s.notifiers[sessionID] = n
	}
	ch, unsubscribe := n.Subscribe()
	s.mu.Unlock()

	return ch, func() {
		unsubscribe()

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.notifiers[sessionID] == n && n.Subscribers() == 0 {
			delete(s.notifiers, sessionID)
		}
	}
}

// Summary reads the session's cart with its totals
func (s *Service) Summary(ctx context.Context, sessionID string) Summary {
	return NewSummary(sessionID, s.Store(sessionID).GetCart(ctx))
}

func (s *Service) publish(sessionID string) {
	s.mu.Lock()
	n := s.notifiers[sessionID]
	s.mu.Unlock()

	if n != nil {
		n.Publish()
	}
}

type sessionPublisher struct {
	svc       *Service
	sessionID string
}

func (p sessionPublisher) Publish() {
	p.svc.publish(p.sessionID)
}

func stripe(sessionID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sessionID))
	return int(h.Sum32() % lockStripes)
}
