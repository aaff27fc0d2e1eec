// internal/server/handlers.go
package server

import (
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/avivl/seat-quest/internal/booking"
	"github.com/avivl/seat-quest/internal/store"
)

type lockRequest struct {
	ShowID     int64   `json:"show_id"`
	SeatIDs    []int64 `json:"seat_ids"`
	OwnerID    string  `json:"owner_id"`
	TTLSeconds int64   `json:"ttl_seconds"`
}

type ownedSeatsRequest struct {
	ShowID  int64   `json:"show_id"`
	SeatIDs []int64 `json:"seat_ids"`
	OwnerID string  `json:"owner_id"`
}

type createBookingRequest struct {
	ShowID     int64   `json:"show_id"`
	SeatIDs    []int64 `json:"seat_ids"`
	OwnerID    string  `json:"owner_id"`
	GuestName  string  `json:"guest_name"`
	GuestEmail string  `json:"guest_email"`
}

type lockResultResponse struct {
	Success   bool    `json:"success"`
	Message   string  `json:"message,omitempty"`
	ShowID    int64   `json:"show_id"`
	SeatIDs   []int64 `json:"seat_ids"`
	OwnerID   string  `json:"owner_id,omitempty"`
	ExpiresAt string  `json:"expires_at,omitempty"`
}

type bookingResponse struct {
	ID         string  `json:"id"`
	ShowID     int64   `json:"show_id"`
	OwnerID    string  `json:"owner_id"`
	GuestName  string  `json:"guest_name,omitempty"`
	GuestEmail string  `json:"guest_email,omitempty"`
	SeatIDs    []int64 `json:"seat_ids"`
	Total      string  `json:"total"`
	Status     string  `json:"status"`
	BookedAt   string  `json:"booked_at"`
}

type lockInfoResponse struct {
	OwnerID    string `json:"owner_id"`
	AcquiredAt string `json:"acquired_at"`
	ExpiresAt  string `json:"expires_at"`
}

func lockResultJSON(r *booking.SeatLockResult) lockResultResponse {
	resp := lockResultResponse{
		Success: r.Success,
		Message: r.Message,
		ShowID:  r.ShowID,
		SeatIDs: r.SeatIDs,
		OwnerID: r.OwnerID,
	}
	if !r.ExpiresAt.IsZero() {
		resp.ExpiresAt = r.ExpiresAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func bookingJSON(b *booking.Booking) bookingResponse {
	return bookingResponse{
		ID:         b.ID,
		ShowID:     b.ShowID,
		OwnerID:    b.OwnerID,
		GuestName:  b.GuestName,
		GuestEmail: b.GuestEmail,
		SeatIDs:    b.Seats,
		Total:      b.Total.StringFixed(2),
		Status:     string(b.Status),
		BookedAt:   b.BookedAt.UTC().Format(time.RFC3339),
	}
}

func serviceErrorStatus(err error) int {
	switch {
	case errors.Is(err, booking.ErrShowNotFound):
		return http.StatusNotFound
	case errors.Is(err, booking.ErrOwnerRequired):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNoSeats), errors.Is(err, store.ErrDuplicateSeat):
		return http.StatusBadRequest
	case errors.Is(err, booking.ErrBookingNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server[T]) lockSeats(c echo.Context) error {
	var req lockRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	ttl := time.Duration(req.TTLSeconds) * time.Second
	result, err := s.service.LockSeats(c.Request().Context(), req.ShowID, req.SeatIDs, req.OwnerID, ttl)
	if err != nil {
		return c.JSON(serviceErrorStatus(err), echo.Map{"error": err.Error()})
	}
	if !result.Success {
		return c.JSON(http.StatusConflict, lockResultJSON(result))
	}
	return c.JSON(http.StatusOK, lockResultJSON(result))
}

func (s *Server[T]) unlockSeats(c echo.Context) error {
	var req ownedSeatsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	result, err := s.service.UnlockSeats(c.Request().Context(), req.ShowID, req.SeatIDs, req.OwnerID)
	if err != nil {
		return c.JSON(serviceErrorStatus(err), echo.Map{"error": err.Error()})
	}
	if !result.Success {
		return c.JSON(http.StatusConflict, lockResultJSON(result))
	}
	return c.JSON(http.StatusOK, lockResultJSON(result))
}

func (s *Server[T]) confirmBooking(c echo.Context) error {
	var req ownedSeatsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	result, err := s.service.ConfirmBooking(c.Request().Context(), req.ShowID, req.SeatIDs, req.OwnerID)
	if err != nil {
		return c.JSON(serviceErrorStatus(err), echo.Map{"error": err.Error()})
	}
	if !result.Success {
		return c.JSON(http.StatusConflict, lockResultJSON(result))
	}
	return c.JSON(http.StatusOK, lockResultJSON(result))
}

func (s *Server[T]) createBooking(c echo.Context) error {
	var req createBookingRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	result, err := s.service.CreateBooking(c.Request().Context(), booking.CreateBookingRequest{
		ShowID:     req.ShowID,
		SeatIDs:    req.SeatIDs,
		OwnerID:    req.OwnerID,
		GuestName:  req.GuestName,
		GuestEmail: req.GuestEmail,
	})
	if err != nil {
		return c.JSON(serviceErrorStatus(err), echo.Map{"error": err.Error()})
	}
	if !result.Success {
		return c.JSON(http.StatusConflict, echo.Map{"success": false, "message": result.Message})
	}
	return c.JSON(http.StatusCreated, bookingJSON(result.Booking))
}

func (s *Server[T]) getBooking(c echo.Context) error {
	b, err := s.service.GetBooking(c.Request().Context(), c.Param("bookingID"))
	if err != nil {
		return c.JSON(serviceErrorStatus(err), echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, bookingJSON(b))
}

func (s *Server[T]) availableSeats(c echo.Context) error {
	showID, err := strconv.ParseInt(c.Param("showID"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid show id"})
	}

	seatIDs, err := parseSeatList(c.QueryParam("seats"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid seats parameter"})
	}
	if len(seatIDs) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seats parameter is required"})
	}

	available, err := s.service.AvailableSeats(c.Request().Context(), showID, seatIDs)
	if err != nil {
		return c.JSON(serviceErrorStatus(err), echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"show_id":         showID,
		"available_seats": sortedSeatIDs(available),
	})
}

func (s *Server[T]) lockedSeats(c echo.Context) error {
	showID, err := strconv.ParseInt(c.Param("showID"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid show id"})
	}

	locked, err := s.service.LockedSeats(c.Request().Context(), showID)
	if err != nil {
		return c.JSON(serviceErrorStatus(err), echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"show_id":      showID,
		"locked_seats": sortedSeatIDs(locked),
	})
}

func (s *Server[T]) lockInfo(c echo.Context) error {
	showID, err := strconv.ParseInt(c.Param("showID"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid show id"})
	}
	seatID, err := strconv.ParseInt(c.Param("seatID"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid seat id"})
	}

	lock, err := s.service.GetLockInfo(c.Request().Context(), showID, seatID)
	if err != nil {
		return c.JSON(serviceErrorStatus(err), echo.Map{"error": err.Error()})
	}
	if lock == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "seat is not locked"})
	}
	return c.JSON(http.StatusOK, lockInfoResponse{
		OwnerID:    lock.OwnerID,
		AcquiredAt: lock.AcquiredAt.UTC().Format(time.RFC3339),
		ExpiresAt:  lock.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

func (s *Server[T]) health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

// parseSeatList splits a comma separated seat id list, tolerating blanks.
func parseSeatList(raw string) ([]int64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	seatIDs := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, err
		}
		seatIDs = append(seatIDs, id)
	}
	return seatIDs, nil
}

func sortedSeatIDs(seats map[int64]struct{}) []int64 {
	ids := make([]int64, 0, len(seats))
	for id := range seats {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
