// internal/store/memory/memory_store_test.go
package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/avivl/seat-quest/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, cfg *Config) *Store {
	t.Helper()

	logger, _, err := observability.NewTestLogger()
	require.NoError(t, err)

	s, err := New(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestTryLockBasics(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()

	t.Run("grants free seats", func(t *testing.T) {
		assert.True(t, s.TryLock(ctx, 1, []int64{1, 2, 3}, "alice", -1))
	})

	t.Run("denies overlapping request entirely", func(t *testing.T) {
		assert.False(t, s.TryLock(ctx, 1, []int64{3, 4}, "bob", -1))
		// Seat 4 was free but must not have been granted
		available := s.AvailableSeats(ctx, 1, []int64{4})
		assert.Contains(t, available, int64(4))
	})

	t.Run("disjoint request succeeds", func(t *testing.T) {
		assert.True(t, s.TryLock(ctx, 1, []int64{4, 5}, "bob", -1))
	})

	t.Run("same owner re-lock refreshes", func(t *testing.T) {
		before := s.GetLockInfo(ctx, 1, 1)
		require.NotNil(t, before)

		time.Sleep(5 * time.Millisecond)
		assert.True(t, s.TryLock(ctx, 1, []int64{1, 2, 3}, "alice", -1))

		after := s.GetLockInfo(ctx, 1, 1)
		require.NotNil(t, after)
		assert.True(t, after.ExpiresAt.After(before.ExpiresAt))
	})

	t.Run("rejects empty and duplicate seat lists", func(t *testing.T) {
		assert.False(t, s.TryLock(ctx, 1, nil, "alice", -1))
		assert.False(t, s.TryLock(ctx, 1, []int64{9, 9}, "alice", -1))
	})

	t.Run("shows are independent", func(t *testing.T) {
		assert.True(t, s.TryLock(ctx, 2, []int64{1, 2, 3}, "bob", -1))
	})
}

func TestZeroTTLLockIsInstantlyExpired(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()

	assert.True(t, s.TryLock(ctx, 1, []int64{1}, "alice", 0))

	// The grant succeeded but nothing is held
	assert.Nil(t, s.GetLockInfo(ctx, 1, 1))
	assert.Empty(t, s.LockedSeats(ctx, 1))
	assert.True(t, s.TryLock(ctx, 1, []int64{1}, "bob", -1))
}

func TestExpiry(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()

	require.True(t, s.TryLock(ctx, 1, []int64{1, 2}, "alice", 30*time.Millisecond))
	assert.NotNil(t, s.GetLockInfo(ctx, 1, 1))

	time.Sleep(50 * time.Millisecond)

	t.Run("reads treat expired locks as gone", func(t *testing.T) {
		assert.Nil(t, s.GetLockInfo(ctx, 1, 1))
		assert.Empty(t, s.LockedSeats(ctx, 1))
		available := s.AvailableSeats(ctx, 1, []int64{1, 2})
		assert.Len(t, available, 2)
	})

	t.Run("another owner can lock expired seats", func(t *testing.T) {
		assert.True(t, s.TryLock(ctx, 1, []int64{1, 2}, "bob", -1))
	})

	t.Run("confirm fails after expiry", func(t *testing.T) {
		assert.False(t, s.Confirm(ctx, 1, []int64{1, 2}, "alice"))
	})
}

func TestUnlock(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()

	require.True(t, s.TryLock(ctx, 1, []int64{1, 2}, "alice", -1))
	require.True(t, s.TryLock(ctx, 1, []int64{3}, "bob", -1))

	t.Run("owner releases own seats", func(t *testing.T) {
		assert.True(t, s.Unlock(ctx, 1, []int64{1}, "alice"))
		assert.Contains(t, s.AvailableSeats(ctx, 1, []int64{1}), int64(1))
	})

	t.Run("mixed ownership releases own seats and reports failure", func(t *testing.T) {
		assert.False(t, s.Unlock(ctx, 1, []int64{2, 3}, "alice"))
		// Alice's seat 2 was still released
		assert.Contains(t, s.AvailableSeats(ctx, 1, []int64{2}), int64(2))
		// Bob's seat 3 is untouched
		assert.Contains(t, s.LockedSeats(ctx, 1), int64(3))
	})

	t.Run("unlock on unknown show fails", func(t *testing.T) {
		assert.False(t, s.Unlock(ctx, 99, []int64{1}, "alice"))
	})
}

func TestConfirm(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()

	require.True(t, s.TryLock(ctx, 1, []int64{1, 2}, "alice", -1))

	t.Run("rejects when one seat is not held", func(t *testing.T) {
		assert.False(t, s.Confirm(ctx, 1, []int64{1, 2, 3}, "alice"))
		// Nothing was booked
		assert.Contains(t, s.LockedSeats(ctx, 1), int64(1))
	})

	t.Run("rejects foreign owner", func(t *testing.T) {
		assert.False(t, s.Confirm(ctx, 1, []int64{1, 2}, "bob"))
	})

	t.Run("books all held seats", func(t *testing.T) {
		assert.True(t, s.Confirm(ctx, 1, []int64{1, 2}, "alice"))
		assert.Empty(t, s.LockedSeats(ctx, 1))
		assert.Empty(t, s.AvailableSeats(ctx, 1, []int64{1, 2}))
	})

	t.Run("booked seats are terminal", func(t *testing.T) {
		assert.False(t, s.TryLock(ctx, 1, []int64{1}, "alice", -1))
		assert.False(t, s.TryLock(ctx, 1, []int64{1}, "bob", -1))
		assert.False(t, s.Unlock(ctx, 1, []int64{1}, "alice"))
		assert.Nil(t, s.GetLockInfo(ctx, 1, 1))
	})
}

// TestMutualExclusion hammers one show with competing multi-seat
// requests and checks that every seat ends up with at most one owner.
func TestMutualExclusion(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()

	const owners = 32
	seats := []int64{1, 2, 3, 4, 5}

	var wg sync.WaitGroup
	winners := make(chan string, owners)
	for i := 0; i < owners; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			owner := fmt.Sprintf("owner-%d", id)
			if s.TryLock(ctx, 7, seats, owner, -1) {
				winners <- owner
			}
		}(i)
	}
	wg.Wait()
	close(winners)

	var granted []string
	for owner := range winners {
		granted = append(granted, owner)
	}
	require.Len(t, granted, 1, "exactly one owner may win the seat set")

	for _, seatID := range seats {
		info := s.GetLockInfo(ctx, 7, seatID)
		require.NotNil(t, info)
		assert.Equal(t, granted[0], info.OwnerID)
	}
}

// TestAtomicOverlap runs goroutines whose seat sets pairwise overlap.
// Whatever interleaving happens, no seat may be granted to two owners
// and no request may be half-applied.
func TestAtomicOverlap(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()

	sets := [][]int64{
		{1, 2, 3},
		{3, 4, 5},
		{5, 6, 1},
	}

	var wg sync.WaitGroup
	results := make([]bool, len(sets))
	for i, set := range sets {
		wg.Add(1)
		go func(i int, set []int64) {
			defer wg.Done()
			results[i] = s.TryLock(ctx, 9, set, fmt.Sprintf("owner-%d", i), -1)
		}(i, set)
	}
	wg.Wait()

	seatOwners := make(map[int64]string)
	for i, set := range sets {
		if !results[i] {
			// A denied request must have left none of its seats locked
			// by this owner.
			owner := fmt.Sprintf("owner-%d", i)
			for _, seatID := range set {
				if info := s.GetLockInfo(ctx, 9, seatID); info != nil {
					assert.NotEqual(t, owner, info.OwnerID)
				}
			}
			continue
		}
		owner := fmt.Sprintf("owner-%d", i)
		for _, seatID := range set {
			prev, seen := seatOwners[seatID]
			assert.False(t, seen, "seat %d granted to both %s and %s", seatID, prev, owner)
			seatOwners[seatID] = owner
		}
	}
}

// TestBookingFlow walks the full reservation sequence for one show.
func TestBookingFlow(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()
	showID := int64(100)
	seats := []int64{1, 2, 3}

	require.True(t, s.TryLock(ctx, showID, seats, "alice", -1))

	// A competitor cannot take or confirm them
	assert.False(t, s.TryLock(ctx, showID, []int64{2}, "bob", -1))
	assert.False(t, s.Confirm(ctx, showID, seats, "bob"))

	// Alice confirms and the seats become permanently booked
	require.True(t, s.Confirm(ctx, showID, seats, "alice"))
	assert.Empty(t, s.AvailableSeats(ctx, showID, seats))
	assert.False(t, s.TryLock(ctx, showID, seats, "bob", -1))

	// Other seats of the show stay available
	assert.Contains(t, s.AvailableSeats(ctx, showID, []int64{4}), int64(4))
}

func TestSweeperRemovesExpiredLocks(t *testing.T) {
	cfg := NewConfig()
	cfg.LockTTL = 20 * time.Millisecond
	cfg.SweepInterval = 10 * time.Millisecond
	s := newTestStore(t, cfg)
	ctx := context.Background()

	require.True(t, s.TryLock(ctx, 1, []int64{1, 2}, "alice", -1))
	require.True(t, s.Confirm(ctx, 1, []int64{2}, "alice"))

	assert.Eventually(t, func() bool {
		s.mu.RLock()
		p := s.shows[1]
		s.mu.RUnlock()
		if p == nil {
			return false
		}
		p.mu.Lock()
		defer p.mu.Unlock()
		return len(p.locks) == 0
	}, time.Second, 10*time.Millisecond, "sweeper should evict the expired lock entry")

	// The partition survives because seat 2 is booked
	s.mu.RLock()
	_, ok := s.shows[1]
	s.mu.RUnlock()
	assert.True(t, ok)
}

func TestSweeperDropsEmptyShows(t *testing.T) {
	cfg := NewConfig()
	cfg.LockTTL = 20 * time.Millisecond
	cfg.SweepInterval = 10 * time.Millisecond
	s := newTestStore(t, cfg)
	ctx := context.Background()

	require.True(t, s.TryLock(ctx, 5, []int64{1}, "alice", -1))

	assert.Eventually(t, func() bool {
		s.mu.RLock()
		defer s.mu.RUnlock()
		_, ok := s.shows[5]
		return !ok
	}, time.Second, 10*time.Millisecond, "empty show partition should be dropped")
}

func TestSweeperNeverOrphansLiveLock(t *testing.T) {
	// A lock granted while the sweeper is unlinking the same show's
	// partition must stay visible. With the sweeper racing at full tilt,
	// a grant written into an unlinked partition would let a second
	// owner take the seat.
	cfg := NewConfig()
	cfg.SweepInterval = time.Microsecond
	s := newTestStore(t, cfg)
	ctx := context.Background()

	deadline := time.Now().Add(500 * time.Millisecond)
	for i := int64(0); time.Now().Before(deadline); i++ {
		showID := i % 64
		require.True(t, s.TryLock(ctx, showID, []int64{1}, "alice", time.Hour))
		require.Falsef(t, s.TryLock(ctx, showID, []int64{1}, "bob", time.Hour),
			"bob locked seat 1 of show %d while alice's lock was live", showID)
		require.True(t, s.Unlock(ctx, showID, []int64{1}, "alice"))
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	logger, _, err := observability.NewTestLogger()
	require.NoError(t, err)

	s, err := New(context.Background(), nil, logger)
	require.NoError(t, err)

	s.Close()
	s.Close()

	// Reads still work after Close
	assert.Empty(t, s.LockedSeats(context.Background(), 1))
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	logger, _, err := observability.NewTestLogger()
	require.NoError(t, err)

	cfg := NewConfig()
	cfg.LockTTL = -time.Second
	_, err = New(context.Background(), cfg, logger)
	assert.Error(t, err)
}
