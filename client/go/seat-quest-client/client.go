// client/go/seat-quest-client/client.go
package seatquestclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SeatQuestClient talks to the Seat Quest reservation service over HTTP.
type SeatQuestClient struct {
	mu              sync.Mutex
	notifyStop      chan struct{}
	notifyWaitGroup sync.WaitGroup
	baseURL         string
	ttl             time.Duration
	ownerID         string
	httpClient      *http.Client
	heldShowID      int64
	heldSeatIDs     []int64
}

// Option is a function that configures a SeatQuestClient
type Option func(*SeatQuestClient)

// WithHTTPClient allows injecting a custom transport, mainly for testing
func WithHTTPClient(c *http.Client) Option {
	return func(q *SeatQuestClient) {
		if c != nil {
			q.httpClient = c
		}
	}
}

// WithOwnerID allows setting a specific owner ID instead of generating a random one
func WithOwnerID(id string) Option {
	return func(q *SeatQuestClient) {
		if id != "" {
			q.ownerID = id
		}
	}
}

// NewSeatQuestClient creates a new client for the Seat Quest service
func NewSeatQuestClient(baseURL string, ttl time.Duration, opts ...Option) (*SeatQuestClient, error) {
	if baseURL == "" {
		return nil, errors.New("server base URL cannot be empty")
	}
	if ttl <= 0 {
		return nil, errors.New("TTL must be greater than zero")
	}

	client := &SeatQuestClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		ttl:        ttl,
		ownerID:    uuid.NewString(),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// OwnerID returns the identity this client locks seats under.
func (q *SeatQuestClient) OwnerID() string {
	return q.ownerID
}

// Close releases resources held by the client
func (q *SeatQuestClient) Close() error {
	q.StopHoldRefresh()
	q.httpClient.CloseIdleConnections()
	return nil
}

// LockResult reports the outcome of a lock, unlock or confirm call.
type LockResult struct {
	Success   bool    `json:"success"`
	Message   string  `json:"message"`
	ShowID    int64   `json:"show_id"`
	SeatIDs   []int64 `json:"seat_ids"`
	OwnerID   string  `json:"owner_id"`
	ExpiresAt string  `json:"expires_at"`
}

// Booking is the receipt returned for a confirmed booking.
type Booking struct {
	ID         string  `json:"id"`
	ShowID     int64   `json:"show_id"`
	OwnerID    string  `json:"owner_id"`
	GuestName  string  `json:"guest_name"`
	GuestEmail string  `json:"guest_email"`
	SeatIDs    []int64 `json:"seat_ids"`
	Total      string  `json:"total"`
	Status     string  `json:"status"`
	BookedAt   string  `json:"booked_at"`
}

// LockInfo describes the holder of a locked seat.
type LockInfo struct {
	OwnerID    string `json:"owner_id"`
	AcquiredAt string `json:"acquired_at"`
	ExpiresAt  string `json:"expires_at"`
}

type lockRequest struct {
	ShowID     int64   `json:"show_id"`
	SeatIDs    []int64 `json:"seat_ids"`
	OwnerID    string  `json:"owner_id"`
	TTLSeconds int64   `json:"ttl_seconds,omitempty"`
}

type createBookingRequest struct {
	ShowID     int64   `json:"show_id"`
	SeatIDs    []int64 `json:"seat_ids"`
	OwnerID    string  `json:"owner_id"`
	GuestName  string  `json:"guest_name,omitempty"`
	GuestEmail string  `json:"guest_email,omitempty"`
}

// LockSeats attempts to hold the given seats for this client's owner ID.
// A denied hold returns false with a nil error.
func (q *SeatQuestClient) LockSeats(ctx context.Context, showID int64, seatIDs []int64) (bool, error) {
	var result LockResult
	err := q.post(ctx, "/bookings/lock-seats", lockRequest{
		ShowID:     showID,
		SeatIDs:    seatIDs,
		OwnerID:    q.ownerID,
		TTLSeconds: int64(q.ttl.Seconds()),
	}, &result)
	if err != nil {
		return false, fmt.Errorf("failed to lock seats: %w", err)
	}

	if result.Success {
		q.mu.Lock()
		q.heldShowID = showID
		q.heldSeatIDs = append([]int64(nil), seatIDs...)
		q.mu.Unlock()
	}
	return result.Success, nil
}

// UnlockSeats releases seats held by this client.
func (q *SeatQuestClient) UnlockSeats(ctx context.Context, showID int64, seatIDs []int64) (bool, error) {
	var result LockResult
	err := q.post(ctx, "/bookings/unlock-seats", lockRequest{
		ShowID:  showID,
		SeatIDs: seatIDs,
		OwnerID: q.ownerID,
	}, &result)
	if err != nil {
		return false, fmt.Errorf("failed to unlock seats: %w", err)
	}

	q.clearHeld()
	return result.Success, nil
}

// ConfirmSeats promotes held seats to booked.
func (q *SeatQuestClient) ConfirmSeats(ctx context.Context, showID int64, seatIDs []int64) (bool, error) {
	var result LockResult
	err := q.post(ctx, "/bookings/confirm", lockRequest{
		ShowID:  showID,
		SeatIDs: seatIDs,
		OwnerID: q.ownerID,
	}, &result)
	if err != nil {
		return false, fmt.Errorf("failed to confirm seats: %w", err)
	}

	if result.Success {
		q.clearHeld()
	}
	return result.Success, nil
}

// CreateBooking confirms held seats and returns the booking receipt.
// A denied confirmation returns a nil booking with a nil error.
func (q *SeatQuestClient) CreateBooking(ctx context.Context, showID int64, seatIDs []int64, guestName, guestEmail string) (*Booking, error) {
	body, status, err := q.do(ctx, http.MethodPost, "/bookings/create", createBookingRequest{
		ShowID:     showID,
		SeatIDs:    seatIDs,
		OwnerID:    q.ownerID,
		GuestName:  guestName,
		GuestEmail: guestEmail,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	if status == http.StatusConflict {
		return nil, nil
	}
	if status != http.StatusCreated {
		return nil, apiError(status, body)
	}

	var b Booking
	if err := json.Unmarshal(body, &b); err != nil {
		return nil, fmt.Errorf("failed to decode booking: %w", err)
	}

	q.clearHeld()
	return &b, nil
}

// GetBooking fetches a booking receipt by id.
func (q *SeatQuestClient) GetBooking(ctx context.Context, id string) (*Booking, error) {
	body, status, err := q.do(ctx, http.MethodGet, "/bookings/"+id, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	if status != http.StatusOK {
		return nil, apiError(status, body)
	}

	var b Booking
	if err := json.Unmarshal(body, &b); err != nil {
		return nil, fmt.Errorf("failed to decode booking: %w", err)
	}
	return &b, nil
}

// AvailableSeats reports which of the given seats are currently free.
func (q *SeatQuestClient) AvailableSeats(ctx context.Context, showID int64, seatIDs []int64) ([]int64, error) {
	ids := make([]string, len(seatIDs))
	for i, id := range seatIDs {
		ids[i] = strconv.FormatInt(id, 10)
	}
	path := fmt.Sprintf("/seats/show/%d/available?seats=%s", showID, strings.Join(ids, ","))

	body, status, err := q.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query available seats: %w", err)
	}
	if status != http.StatusOK {
		return nil, apiError(status, body)
	}

	var resp struct {
		AvailableSeats []int64 `json:"available_seats"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return resp.AvailableSeats, nil
}

// LockedSeats reports every seat currently locked for the show.
func (q *SeatQuestClient) LockedSeats(ctx context.Context, showID int64) ([]int64, error) {
	body, status, err := q.do(ctx, http.MethodGet, fmt.Sprintf("/seats/show/%d/locked", showID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query locked seats: %w", err)
	}
	if status != http.StatusOK {
		return nil, apiError(status, body)
	}

	var resp struct {
		LockedSeats []int64 `json:"locked_seats"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return resp.LockedSeats, nil
}

// GetLockInfo fetches lock details for a single seat. Returns nil when
// the seat is not locked.
func (q *SeatQuestClient) GetLockInfo(ctx context.Context, showID, seatID int64) (*LockInfo, error) {
	body, status, err := q.do(ctx, http.MethodGet, fmt.Sprintf("/seats/show/%d/%d/lock", showID, seatID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query lock info: %w", err)
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if status != http.StatusOK {
		return nil, apiError(status, body)
	}

	var info LockInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &info, nil
}

// StartHoldRefresh starts a background goroutine that periodically
// re-locks the held seats so the hold does not expire mid-checkout.
func (q *SeatQuestClient) StartHoldRefresh(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.notifyStop != nil {
		return errors.New("hold refresh is already running")
	}
	if len(q.heldSeatIDs) == 0 {
		return errors.New("no seats are held")
	}

	q.notifyStop = make(chan struct{})
	q.notifyWaitGroup.Add(1)

	go func() {
		defer q.notifyWaitGroup.Done()

		refreshInterval := q.ttl / 3
		if refreshInterval < time.Second {
			refreshInterval = time.Second
		}

		ticker := time.NewTicker(refreshInterval)
		defer ticker.Stop()

		for {
			select {
			case <-q.notifyStop:
				return
			case <-ticker.C:
				q.mu.Lock()
				showID := q.heldShowID
				seatIDs := append([]int64(nil), q.heldSeatIDs...)
				q.mu.Unlock()

				if len(seatIDs) == 0 {
					return
				}

				refreshCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
				ok, err := q.LockSeats(refreshCtx, showID, seatIDs)
				cancel()

				// Someone else owns the seats now, stop refreshing.
				if err != nil || !ok {
					return
				}
			}
		}
	}()

	return nil
}

// StopHoldRefresh stops the background refresh goroutine
func (q *SeatQuestClient) StopHoldRefresh() {
	q.mu.Lock()
	stop := q.notifyStop
	q.notifyStop = nil
	q.mu.Unlock()

	if stop != nil {
		close(stop)
		q.notifyWaitGroup.Wait()
	}
}

func (q *SeatQuestClient) clearHeld() {
	q.mu.Lock()
	q.heldShowID = 0
	q.heldSeatIDs = nil
	q.mu.Unlock()
}

// post sends a JSON body and decodes 200/409 responses into out.
func (q *SeatQuestClient) post(ctx context.Context, path string, reqBody, out interface{}) error {
	body, status, err := q.do(ctx, http.MethodPost, path, reqBody)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusConflict {
		return apiError(status, body)
	}
	return json.Unmarshal(body, out)
}

func (q *SeatQuestClient) do(ctx context.Context, method, path string, reqBody interface{}) ([]byte, int, error) {
	var reader io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return nil, 0, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, q.baseURL+path, reader)
	if err != nil {
		return nil, 0, err
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := q.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	return body, resp.StatusCode, nil
}

func apiError(status int, body []byte) error {
	var resp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &resp); err == nil && resp.Error != "" {
		return fmt.Errorf("server returned %d: %s", status, resp.Error)
	}
	return fmt.Errorf("server returned %d", status)
}
