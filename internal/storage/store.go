// Package storage owns the in-memory session store and its durable JSON
// snapshot. Persistence is a fire-and-forget side effect: a transition
// never waits on, and never fails because of, a disk write.
package storage

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sony/gobreaker"
	"github.com/voterlab/poker-session-service/internal/domain/model"
)

// ErrIDCollision reports a create with an id already in use. The caller
// retries with a freshly generated id.
var ErrIDCollision = errors.New("session id collision")

const (
	tombstoneSize = 4096
	tombstoneTTL  = time.Hour
)

// Store maps session ids to sessions. Sessions are mutated only through
// state-machine transitions, which the gateway serializes; the store's own
// lock covers map access from the HTTP layer (health counts) and the
// snapshot marshal.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*model.Session

	file    *FileStore
	logger  *slog.Logger
	breaker *gobreaker.CircuitBreaker

	// tombstones remembers recently reaped session ids so a stale client
	// can be told its session expired rather than never existed.
	tombstones *expirable.LRU[string, time.Time]

	saveCh     chan []byte
	done       chan struct{}
	syncWrites bool
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithSynchronousWrites makes Persist write inline instead of handing the
// snapshot to the background saver. Tests use it for determinism.
func WithSynchronousWrites() StoreOption {
	return func(s *Store) {
		s.syncWrites = true
	}
}

// NewStore loads durable state, resets volatile fields (connections do not
// survive a restart) and starts the background saver.
func NewStore(file *FileStore, logger *slog.Logger, opts ...StoreOption) (*Store, error) {
	sessions, err := file.Load()
	if err != nil {
		// A corrupt or unreadable data file must not keep the service
		// down; start empty, as the original does.
		logger.Error("loading sessions failed, starting empty", "error", err)
		sessions = map[string]*model.Session{}
	}
	for _, sess := range sessions {
		sess.ClearVolatile()
	}

	s := &Store{
		sessions:   sessions,
		file:       file,
		logger:     logger,
		tombstones: expirable.NewLRU[string, time.Time](tombstoneSize, nil, tombstoneTTL),
		saveCh:     make(chan []byte, 1),
		done:       make(chan struct{}),
	}
	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "durable-store",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("durable store breaker state changed", "from", from.String(), "to", to.String())
		},
	})
	for _, opt := range opts {
		opt(s)
	}
	if !s.syncWrites {
		go s.saver()
	}
	logger.Info("sessions loaded", "count", len(sessions))
	return s, nil
}

// Get returns the live session for an id.
func (s *Store) Get(id string) (*model.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// Lookup resolves an id into a session or the validation error a joining
// client should see: expired for recently reaped sessions, not-found
// otherwise.
func (s *Store) Lookup(id string) (*model.Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if ok {
		return sess, nil
	}
	if _, reaped := s.tombstones.Get(id); reaped {
		return nil, model.ErrSessionExpired
	}
	return nil, model.ErrSessionNotFound
}

// Create inserts a new session, failing on id collision.
func (s *Store) Create(sess *model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[sess.ID]; exists {
		return ErrIDCollision
	}
	s.sessions[sess.ID] = sess
	return nil
}

// Delete removes a session and leaves a tombstone behind.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	s.tombstones.Add(id, time.Now())
}

// Count reports how many sessions are live. Serves the health endpoint.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Persist snapshots every occupied session and hands the bytes to the
// saver. Marshal happens here, under the transition lock, so the snapshot
// is consistent; the disk write happens elsewhere and its failure is
// logged, never propagated.
func (s *Store) Persist() {
	s.mu.RLock()
	occupied := make(map[string]*model.Session, len(s.sessions))
	for id, sess := range s.sessions {
		if sess.Occupancy() > 0 {
			occupied[id] = sess
		}
	}
	data, err := json.MarshalIndent(occupied, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		s.logger.Error("snapshot marshal failed", "error", err)
		return
	}
	if s.syncWrites {
		s.write(data)
		return
	}
	// Coalesce: only the latest snapshot matters.
	select {
	case s.saveCh <- data:
	default:
		select {
		case <-s.saveCh:
		default:
		}
		select {
		case s.saveCh <- data:
		default:
		}
	}
}

func (s *Store) saver() {
	for {
		select {
		case <-s.done:
			return
		case data := <-s.saveCh:
			s.write(data)
		}
	}
}

func (s *Store) write(data []byte) {
	_, err := s.breaker.Execute(func() (any, error) {
		return nil, s.file.Write(data)
	})
	if err != nil {
		s.logger.Warn("saving sessions failed", "error", err)
	}
}

// Close stops the background saver after flushing any pending snapshot.
func (s *Store) Close() {
	close(s.done)
	select {
	case data := <-s.saveCh:
		s.write(data)
	default:
	}
}
