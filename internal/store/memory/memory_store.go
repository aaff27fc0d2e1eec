// internal/store/memory/memory_store.go
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/avivl/seat-quest/internal/lockservice"
	"github.com/avivl/seat-quest/internal/observability"
	"github.com/avivl/seat-quest/internal/store"
)

// StoreName the name of the store.
const StoreName string = "memory"

// init registers the in-memory store with the lockservice package.
func init() {
	lockservice.Register(StoreName, newStore)
}

func newStore(ctx context.Context, options lockservice.Config, logger *observability.SLogger) (store.SeatLockStore, error) {
	cfg, ok := options.(*Config)
	if !ok && options != nil {
		return nil, &store.InvalidConfigurationError{Store: StoreName, Config: options}
	}
	return New(ctx, cfg, logger)
}

// lockEntry is a granted hold on one seat. Entries are replaced, never
// mutated; a re-lock by the same owner writes a fresh entry.
type lockEntry struct {
	ownerID    string
	acquiredAt time.Time
	expiresAt  time.Time
}

func (e lockEntry) expired(now time.Time) bool {
	return !now.Before(e.expiresAt)
}

// showPartition holds all reservation state of one show. Its mutex is the
// critical section every multi-seat check-then-apply runs under; it is
// deliberately per show, not per seat, so a request spanning several
// seats is atomic against every other request for the same show.
type showPartition struct {
	mu     sync.Mutex
	locks  map[int64]lockEntry
	booked map[int64]struct{}

	// dead is set, under mu, when the sweeper unlinks this partition
	// from the show table. A caller that fetched the pointer before the
	// unlink must not write into it; it retries the lookup instead.
	dead bool
}

// Store is the authoritative in-memory seat lock table. It implements
// store.SeatLockStore and owns the background sweeper that evicts
// expired entries; the sweeper is an optimization only, every read and
// lock path checks expiry itself.
type Store struct {
	mu    sync.RWMutex
	shows map[int64]*showPartition

	ttl        time.Duration
	sweepEvery time.Duration
	l          *observability.SLogger
	config     *Config

	stopSweep chan struct{}
	sweepDone chan struct{}
	closeOnce sync.Once
}

// GetConfig returns the current store configuration
func (s *Store) GetConfig() store.StoreConfig {
	return s.config
}

// New creates the in-memory seat lock store and starts its sweeper.
func New(ctx context.Context, config *Config, logger *observability.SLogger) (*Store, error) {
	if config == nil {
		config = NewConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	s := &Store{
		shows:      make(map[int64]*showPartition),
		ttl:        config.GetLockTTL(),
		sweepEvery: config.GetSweepInterval(),
		l:          logger,
		config:     config,
		stopSweep:  make(chan struct{}),
		sweepDone:  make(chan struct{}),
	}

	go s.sweepLoop()

	return s, nil
}

// partition returns the state of a show, creating it when create is set.
func (s *Store) partition(showID int64, create bool) *showPartition {
	s.mu.RLock()
	p := s.shows[showID]
	s.mu.RUnlock()
	if p != nil || !create {
		return p
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if p = s.shows[showID]; p == nil {
		p = &showPartition{
			locks:  make(map[int64]lockEntry),
			booked: make(map[int64]struct{}),
		}
		s.shows[showID] = p
	}
	return p
}

// lockPartition returns the show's partition with its mutex held, or
// nil when the show has no state and create is unset. The sweeper can
// unlink a partition between the map lookup and the mutex acquisition;
// a partition found dead is abandoned and the lookup retried, so a
// grant never lands in state no other caller can see.
func (s *Store) lockPartition(showID int64, create bool) *showPartition {
	for {
		p := s.partition(showID, create)
		if p == nil {
			return nil
		}
		p.mu.Lock()
		if !p.dead {
			return p
		}
		p.mu.Unlock()
	}
}

func (s *Store) TryLock(ctx context.Context, showID int64, seatIDs []int64, ownerID string, ttl time.Duration) bool {
	if err := store.ValidateSeatIDs(seatIDs); err != nil {
		s.l.Debugf("rejecting lock request for show %d: %v", showID, err)
		return false
	}
	if ttl < 0 {
		ttl = s.ttl
	}

	p := s.lockPartition(showID, true)
	defer p.mu.Unlock()

	now := time.Now()
	for _, seatID := range seatIDs {
		if _, taken := p.booked[seatID]; taken {
			return false
		}
		if e, ok := p.locks[seatID]; ok && !e.expired(now) && e.ownerID != ownerID {
			return false
		}
	}

	// All seats passed; grant the whole set. Seats the owner already holds
	// are overwritten, which refreshes their expiry.
	entry := lockEntry{ownerID: ownerID, acquiredAt: now, expiresAt: now.Add(ttl)}
	for _, seatID := range seatIDs {
		p.locks[seatID] = entry
	}
	return true
}

func (s *Store) Unlock(ctx context.Context, showID int64, seatIDs []int64, ownerID string) bool {
	if err := store.ValidateSeatIDs(seatIDs); err != nil {
		s.l.Debugf("rejecting unlock request for show %d: %v", showID, err)
		return false
	}

	p := s.lockPartition(showID, false)
	if p == nil {
		return false
	}
	defer p.mu.Unlock()

	// Each seat is handled on its own: seats held by the owner are
	// released even when other seats in the request are not, and only the
	// overall result reports the mismatch. An owner may release a lock
	// that has already expired.
	all := true
	for _, seatID := range seatIDs {
		if e, ok := p.locks[seatID]; ok && e.ownerID == ownerID {
			delete(p.locks, seatID)
		} else {
			all = false
		}
	}
	return all
}

func (s *Store) Confirm(ctx context.Context, showID int64, seatIDs []int64, ownerID string) bool {
	if err := store.ValidateSeatIDs(seatIDs); err != nil {
		s.l.Debugf("rejecting confirm request for show %d: %v", showID, err)
		return false
	}

	p := s.lockPartition(showID, false)
	if p == nil {
		return false
	}
	defer p.mu.Unlock()

	now := time.Now()
	for _, seatID := range seatIDs {
		e, ok := p.locks[seatID]
		if !ok || e.ownerID != ownerID || e.expired(now) {
			return false
		}
	}

	for _, seatID := range seatIDs {
		p.booked[seatID] = struct{}{}
		delete(p.locks, seatID)
	}
	return true
}

func (s *Store) AvailableSeats(ctx context.Context, showID int64, seatIDs []int64) map[int64]struct{} {
	available := make(map[int64]struct{}, len(seatIDs))

	p := s.lockPartition(showID, false)
	if p == nil {
		for _, seatID := range seatIDs {
			available[seatID] = struct{}{}
		}
		return available
	}
	defer p.mu.Unlock()

	now := time.Now()
	for _, seatID := range seatIDs {
		if _, taken := p.booked[seatID]; taken {
			continue
		}
		if e, ok := p.locks[seatID]; ok && !e.expired(now) {
			continue
		}
		available[seatID] = struct{}{}
	}
	return available
}

func (s *Store) LockedSeats(ctx context.Context, showID int64) map[int64]struct{} {
	locked := make(map[int64]struct{})

	p := s.lockPartition(showID, false)
	if p == nil {
		return locked
	}
	defer p.mu.Unlock()

	now := time.Now()
	for seatID, e := range p.locks {
		if !e.expired(now) {
			locked[seatID] = struct{}{}
		}
	}
	return locked
}

func (s *Store) GetLockInfo(ctx context.Context, showID, seatID int64) *store.SeatLock {
	p := s.lockPartition(showID, false)
	if p == nil {
		return nil
	}
	defer p.mu.Unlock()

	e, ok := p.locks[seatID]
	if !ok || e.expired(time.Now()) {
		return nil
	}
	return &store.SeatLock{OwnerID: e.ownerID, AcquiredAt: e.acquiredAt, ExpiresAt: e.expiresAt}
}

// Close stops the sweeper and waits for it to exit. The store stays
// usable for reads afterwards but nothing reclaims expired entries.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		close(s.stopSweep)
		<-s.sweepDone
	})
}

func (s *Store) sweepLoop() {
	defer close(s.sweepDone)

	ticker := time.NewTicker(s.sweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweepExpired()
		case <-s.stopSweep:
			return
		}
	}
}

// sweepExpired removes expired lock entries and then drops show
// partitions left with no locks and no bookings. It competes for the
// same partition mutexes as the mutating operations, so it can never
// observe or produce a half-applied multi-seat request.
func (s *Store) sweepExpired() {
	now := time.Now()

	s.mu.RLock()
	showIDs := make([]int64, 0, len(s.shows))
	for showID := range s.shows {
		showIDs = append(showIDs, showID)
	}
	s.mu.RUnlock()

	removed := 0
	for _, showID := range showIDs {
		p := s.lockPartition(showID, false)
		if p == nil {
			continue
		}
		for seatID, e := range p.locks {
			if e.expired(now) {
				delete(p.locks, seatID)
				removed++
			}
		}
		empty := len(p.locks) == 0 && len(p.booked) == 0
		p.mu.Unlock()

		if empty {
			s.dropIfEmpty(showID)
		}
	}

	if removed > 0 {
		s.l.Debugf("swept %d expired seat locks", removed)
	}
}

// dropIfEmpty re-checks emptiness under the store lock before removing a
// partition, since a lock may have been granted after the sweep looked.
// The partition is marked dead under its own mutex before the unlink so
// a caller holding a stale pointer retries instead of mutating state
// that is no longer reachable.
func (s *Store) dropIfEmpty(showID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.shows[showID]
	if p == nil {
		return
	}
	p.mu.Lock()
	if len(p.locks) == 0 && len(p.booked) == 0 {
		p.dead = true
		delete(s.shows, showID)
	}
	p.mu.Unlock()
}
