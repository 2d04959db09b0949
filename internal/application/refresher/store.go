package refresher

import (
	"sync"

	"github.com/emberfi/burndeck/internal/domain"
)

// Store holds the latest reconciled account state. Single writer (the
// refresher), any number of readers. Subscribers get best-effort
// notifications: a slow consumer sees the newest state, not a backlog.
type Store struct {
	mu    sync.RWMutex
	state domain.AccountState
	ok    bool
	subs  []chan domain.AccountState
}

func NewStore() *Store { return &Store{} }

// Current returns the last published state; ok is false until the first
// successful refresh.
func (s *Store) Current() (domain.AccountState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state, s.ok
}

// Subscribe registers a listener for published states. The channel has a
// buffer of one; when the consumer lags, the stale update is replaced by
// the newer one.
func (s *Store) Subscribe() <-chan domain.AccountState {
	ch := make(chan domain.AccountState, 1)
	s.mu.Lock()
	s.subs = append(s.subs, ch)
	s.mu.Unlock()
	return ch
}

func (s *Store) publish(state domain.AccountState) {
	s.mu.Lock()
	s.state = state
	s.ok = true
	subs := s.subs
	s.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- state:
		default:
			// drop the stale pending update, then queue the fresh one
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- state:
			default:
			}
		}
	}
}
