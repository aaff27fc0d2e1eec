// internal/store/scylladb/scylladb_store.go
package scylladb

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/avivl/seat-quest/internal/lockservice"
	"github.com/avivl/seat-quest/internal/observability"
	"github.com/avivl/seat-quest/internal/store"
	"github.com/gocql/gocql"
)

var (
	// ErrMultipleEndpointsUnsupported is returned when more than one endpoint is provided.
	ErrMultipleEndpointsUnsupported = errors.New("ScyllaDB only supports one endpoint")
	ErrConfigOptionMissing          = errors.New("ScyllaDB requires a config option")
)

// StoreName the name of the store.
const StoreName string = "scylladb"

// init registers the ScyllaDB store with the lockservice package.
func init() {
	lockservice.Register(StoreName, newStore)
}

func newStore(ctx context.Context, options lockservice.Config, logger *observability.SLogger) (store.SeatLockStore, error) {
	cfg, ok := options.(*ScyllaDBConfig)
	if !ok && options != nil {
		return nil, &store.InvalidConfigurationError{Store: StoreName, Config: options}
	}
	return New(ctx, cfg, logger)
}

// Store implements store.SeatLockStore on top of a single ScyllaDB table.
//
// Seat rows live in one partition per show, so a logged batch of
// conditional statements against that partition is applied atomically.
// That batch is the per-show critical section for multi-seat operations.
// Lock rows carry a TTL and disappear on expiry, so a row that is
// present and not booked is a live lock.
type Store struct {
	session        *gocql.Session
	tableName      string
	keyspaceName   string
	fullTableName  string
	ttl            time.Duration
	l              *observability.SLogger
	TryLockQuery   string
	RefreshQuery   string
	SelectQuery    string
	UnlockQuery    string
	ConfirmQuery   string
	ShowSeatsQuery string
	LockInfoQuery  string
	config         *ScyllaDBConfig
}

// GetConfig returns the current store configuration
func (s *Store) GetConfig() store.StoreConfig {
	return s.config
}

// parseConsistency converts string consistency to gocql.Consistency
func parseConsistency(c string) gocql.Consistency {
	switch c {
	case "CONSISTENCY_QUORUM":
		return gocql.Quorum
	case "CONSISTENCY_ONE":
		return gocql.One
	case "CONSISTENCY_ALL":
		return gocql.All
	default:
		return gocql.Quorum
	}
}

// New creates a new ScyllaDB seat-lock store.
func New(ctx context.Context, config *ScyllaDBConfig, logger *observability.SLogger) (*Store, error) {
	if config == nil {
		return nil, ErrConfigOptionMissing
	}
	if len(config.Endpoints) > 1 {
		return nil, ErrMultipleEndpointsUnsupported
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	cluster := gocql.NewCluster(config.Host + ":" + strconv.Itoa(int(config.Port)))
	cluster.ProtoVersion = 4
	cluster.Consistency = parseConsistency(config.Consistency)

	session, err := cluster.CreateSession()
	if err != nil {
		logger.Errorf("Error creating session: %v", err)
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	sdb := &Store{
		session:       session,
		tableName:     config.Table,
		keyspaceName:  config.Keyspace,
		fullTableName: fmt.Sprintf(`"%s"."%s"`, config.Keyspace, config.Table),
		ttl:           config.GetLockTTL(),
		l:             logger,
		config:        config,
	}

	if err := sdb.initSession(); err != nil {
		session.Close()
		return nil, err
	}

	return sdb, nil
}

func (sdb *Store) initSession() error {
	if err := sdb.validateKeyspace(); err != nil {
		return err
	}
	if err := sdb.validateTable(); err != nil {
		return err
	}
	sdb.initQueries()
	return nil
}

func (sdb *Store) initQueries() {
	sdb.TryLockQuery = fmt.Sprintf("INSERT INTO %s (show_id, seat_id, owner, acquired_at, booked) VALUES (?, ?, ?, ?, false) IF NOT EXISTS USING TTL ?", sdb.fullTableName)
	sdb.RefreshQuery = fmt.Sprintf("UPDATE %s USING TTL ? SET owner = ?, acquired_at = ?, booked = false WHERE show_id = ? AND seat_id = ? IF owner = ? AND booked = false", sdb.fullTableName)
	sdb.SelectQuery = fmt.Sprintf("SELECT seat_id, owner, booked FROM %s WHERE show_id = ? AND seat_id IN ?", sdb.fullTableName)
	sdb.UnlockQuery = fmt.Sprintf("DELETE FROM %s WHERE show_id = ? AND seat_id = ? IF owner = ? AND booked = false", sdb.fullTableName)
	sdb.ConfirmQuery = fmt.Sprintf("UPDATE %s USING TTL 0 SET owner = ?, acquired_at = ?, booked = true WHERE show_id = ? AND seat_id = ? IF owner = ? AND booked = false", sdb.fullTableName)
	sdb.ShowSeatsQuery = fmt.Sprintf("SELECT seat_id, booked FROM %s WHERE show_id = ?", sdb.fullTableName)
	sdb.LockInfoQuery = fmt.Sprintf("SELECT owner, acquired_at, booked, TTL(owner) FROM %s WHERE show_id = ? AND seat_id = ?", sdb.fullTableName)
}

func (sdb *Store) validateKeyspace() error {
	err := sdb.session.Query(fmt.Sprintf(`CREATE KEYSPACE IF NOT EXISTS %s
	WITH replication = {
		'class' : 'SimpleStrategy',
		'replication_factor' :3
	}`, sdb.keyspaceName)).Exec()
	if err != nil {
		return fmt.Errorf("failed to create keyspace: %w", err)
	}
	return nil
}

func (sdb *Store) validateTable() error {
	err := sdb.session.Query(fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
        show_id bigint,
        seat_id bigint,
        owner text,
        acquired_at timestamp,
        booked boolean,
        PRIMARY KEY ((show_id), seat_id)
    )`, sdb.keyspaceName, sdb.tableName)).Exec()
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

// seatState is what the readback query reports for one seat row.
type seatState struct {
	owner  string
	booked bool
}

// conflictsWith reports whether any existing row blocks an acquisition
// by ownerID. A row held by the same owner is not a conflict, it is a
// refresh candidate.
func conflictsWith(rows map[int64]seatState, ownerID string) bool {
	for _, st := range rows {
		if st.booked || st.owner != ownerID {
			return true
		}
	}
	return false
}

// readSeats fetches the current rows for the given seats. Expired lock
// rows are absent because their TTL has elapsed.
func (sdb *Store) readSeats(ctx context.Context, showID int64, seatIDs []int64) (map[int64]seatState, error) {
	rows := make(map[int64]seatState, len(seatIDs))
	iter := sdb.session.Query(sdb.SelectQuery, showID, seatIDs).WithContext(ctx).Iter()
	var seatID int64
	var owner string
	var booked bool
	for iter.Scan(&seatID, &owner, &booked) {
		rows[seatID] = seatState{owner: owner, booked: booked}
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return rows, nil
}

func (sdb *Store) TryLock(ctx context.Context, showID int64, seatIDs []int64, ownerID string, ttl time.Duration) bool {
	if err := store.ValidateSeatIDs(seatIDs); err != nil {
		sdb.l.Debugf("rejecting lock request for show %d: %v", showID, err)
		return false
	}
	if ttl < 0 {
		ttl = sdb.ttl
	}
	ttlSeconds := int(ttl / time.Second)
	now := time.Now()

	if ttlSeconds <= 0 {
		// Nothing to write, the lock would already be expired. Report
		// whether the seats were free at this instant.
		rows, err := sdb.readSeats(ctx, showID, seatIDs)
		if err != nil {
			sdb.l.Errorf("Error reading seats: %v", err)
			return false
		}
		return len(rows) == 0
	}

	// All statements target the same partition, so the batch applies
	// all inserts or none of them.
	batch := sdb.session.NewBatch(gocql.LoggedBatch).WithContext(ctx)
	for _, seatID := range seatIDs {
		batch.Query(sdb.TryLockQuery, showID, seatID, ownerID, now, ttlSeconds)
	}
	applied, iter, err := sdb.session.MapExecuteBatchCAS(batch, map[string]interface{}{})
	if iter != nil {
		iter.Close()
	}
	if err != nil {
		sdb.l.Errorf("Error acquiring seat locks: %v", err)
		return false
	}
	if applied {
		return true
	}

	// The insert hit existing rows. If every one of them is a live lock
	// held by the same owner, refresh them instead of failing.
	rows, err := sdb.readSeats(ctx, showID, seatIDs)
	if err != nil {
		sdb.l.Errorf("Error validating seat locks: %v", err)
		return false
	}
	if conflictsWith(rows, ownerID) {
		return false
	}

	// The refresh is conditional on the rows still belonging to the
	// caller. Between the readback and this batch the rows can TTL out
	// and be claimed by someone else; the CAS keeps that claim intact.
	refresh := sdb.session.NewBatch(gocql.LoggedBatch).WithContext(ctx)
	for _, seatID := range seatIDs {
		refresh.Query(sdb.RefreshQuery, ttlSeconds, ownerID, now, showID, seatID, ownerID)
	}
	refreshed, refreshIter, err := sdb.session.MapExecuteBatchCAS(refresh, map[string]interface{}{})
	if refreshIter != nil {
		refreshIter.Close()
	}
	if err != nil {
		sdb.l.Errorf("Error refreshing seat locks: %v", err)
		return false
	}
	return refreshed
}

func (sdb *Store) Unlock(ctx context.Context, showID int64, seatIDs []int64, ownerID string) bool {
	if err := store.ValidateSeatIDs(seatIDs); err != nil {
		sdb.l.Debugf("rejecting unlock request for show %d: %v", showID, err)
		return false
	}

	// Each seat releases independently so one foreign or expired lock
	// does not keep the caller's other seats held.
	all := true
	for _, seatID := range seatIDs {
		var prevOwner string
		var prevBooked bool
		applied, err := sdb.session.Query(sdb.UnlockQuery, showID, seatID, ownerID).
			WithContext(ctx).ScanCAS(&prevOwner, &prevBooked)
		if err != nil && err != gocql.ErrNotFound {
			sdb.l.Errorf("Error releasing seat lock: %v", err)
			all = false
			continue
		}
		if !applied {
			all = false
		}
	}
	return all
}

func (sdb *Store) Confirm(ctx context.Context, showID int64, seatIDs []int64, ownerID string) bool {
	if err := store.ValidateSeatIDs(seatIDs); err != nil {
		sdb.l.Debugf("rejecting confirm request for show %d: %v", showID, err)
		return false
	}
	now := time.Now()

	batch := sdb.session.NewBatch(gocql.LoggedBatch).WithContext(ctx)
	for _, seatID := range seatIDs {
		batch.Query(sdb.ConfirmQuery, ownerID, now, showID, seatID, ownerID)
	}
	applied, iter, err := sdb.session.MapExecuteBatchCAS(batch, map[string]interface{}{})
	if iter != nil {
		iter.Close()
	}
	if err != nil {
		sdb.l.Errorf("Error confirming seat booking: %v", err)
		return false
	}
	return applied
}

func (sdb *Store) AvailableSeats(ctx context.Context, showID int64, seatIDs []int64) map[int64]struct{} {
	available := make(map[int64]struct{}, len(seatIDs))
	if len(seatIDs) == 0 {
		return available
	}

	rows, err := sdb.readSeats(ctx, showID, seatIDs)
	if err != nil {
		sdb.l.Errorf("Error reading available seats: %v", err)
		return available
	}
	for _, seatID := range seatIDs {
		if _, taken := rows[seatID]; !taken {
			available[seatID] = struct{}{}
		}
	}
	return available
}

func (sdb *Store) LockedSeats(ctx context.Context, showID int64) map[int64]struct{} {
	locked := make(map[int64]struct{})

	iter := sdb.session.Query(sdb.ShowSeatsQuery, showID).WithContext(ctx).Iter()
	var seatID int64
	var booked bool
	for iter.Scan(&seatID, &booked) {
		if !booked {
			locked[seatID] = struct{}{}
		}
	}
	if err := iter.Close(); err != nil {
		sdb.l.Errorf("Error reading locked seats: %v", err)
	}
	return locked
}

func (sdb *Store) GetLockInfo(ctx context.Context, showID, seatID int64) *store.SeatLock {
	var owner string
	var acquiredAt time.Time
	var booked bool
	var ttlRemaining int

	err := sdb.session.Query(sdb.LockInfoQuery, showID, seatID).WithContext(ctx).
		Scan(&owner, &acquiredAt, &booked, &ttlRemaining)
	if err != nil {
		if err != gocql.ErrNotFound {
			sdb.l.Errorf("Error reading seat lock: %v", err)
		}
		return nil
	}
	if booked || ttlRemaining <= 0 {
		return nil
	}

	return &store.SeatLock{
		OwnerID:    owner,
		AcquiredAt: acquiredAt,
		ExpiresAt:  time.Now().Add(time.Duration(ttlRemaining) * time.Second),
	}
}

func (sdb *Store) Close() {
	sdb.session.Close()
}
