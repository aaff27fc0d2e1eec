// internal/server/server.go
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/avivl/seat-quest/internal/booking"
	"github.com/avivl/seat-quest/internal/catalog"
	"github.com/avivl/seat-quest/internal/config"
	"github.com/avivl/seat-quest/internal/observability"
	"github.com/avivl/seat-quest/internal/store"
)

// StoreInitializer builds the seat lock backend from configuration.
type StoreInitializer[T store.StoreConfig] func(context.Context, *config.GlobalConfig[T], *observability.SLogger) (store.SeatLockStore, error)

// Server exposes the reservation coordinator over HTTP.
type Server[T store.StoreConfig] struct {
	echo    *echo.Echo
	logger  *observability.SLogger
	config  *config.GlobalConfig[T]
	store   store.SeatLockStore
	service *booking.Service
	metrics *observability.OTelMetrics
}

func NewServer[T store.StoreConfig](
	config *config.GlobalConfig[T],
	logger *observability.SLogger,
	metrics *observability.OTelMetrics,
) (*Server[T], error) {
	if config == nil {
		return nil, errors.New("config is nil")
	}

	return &Server[T]{
		logger:  logger,
		config:  config,
		metrics: metrics,
	}, nil
}

func (s *Server[T]) initStore(ctx context.Context, storeInitializer StoreInitializer[T]) error {
	var err error
	s.store, err = storeInitializer(ctx, s.config, s.logger)
	if err != nil {
		s.logger.ErrorCtx(ctx, err)
		return err
	}
	return nil
}

// initService wires the coordinator and the HTTP routes. Split from
// Start so tests can drive the handler without a listener.
func (s *Server[T]) initService(cat catalog.ShowCatalog, bookings booking.BookingStore, cb booking.Callbacks) {
	if bookings == nil {
		bookings = booking.NewMemoryBookingStore()
	}
	s.service = booking.NewService(s.store, cat, bookings, cb, s.logger)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(s.metricsMiddleware)

	e.POST("/bookings/lock-seats", s.lockSeats)
	e.POST("/bookings/unlock-seats", s.unlockSeats)
	e.POST("/bookings/confirm", s.confirmBooking)
	e.POST("/bookings/create", s.createBooking)
	e.GET("/bookings/:bookingID", s.getBooking)
	e.GET("/seats/show/:showID/available", s.availableSeats)
	e.GET("/seats/show/:showID/locked", s.lockedSeats)
	e.GET("/seats/show/:showID/:seatID/lock", s.lockInfo)
	e.GET("/healthz", s.health)

	s.echo = e
}

// Start initializes the backend and serves until Stop or a listener error.
func (s *Server[T]) Start(ctx context.Context, storeInitializer StoreInitializer[T], cat catalog.ShowCatalog, bookings booking.BookingStore, cb booking.Callbacks) error {
	if err := s.initStore(ctx, storeInitializer); err != nil {
		return err
	}
	s.initService(cat, bookings, cb)

	s.logger.Infof("server listening at %s", s.config.ServerAddress)

	if err := s.echo.Start(s.config.ServerAddress); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server[T]) Stop() error {
	s.logger.Info("stopping server")

	if s.echo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.echo.Shutdown(ctx); err != nil {
			s.logger.Errorf("Error shutting down http server: %v", err)
		}
		s.echo = nil
	}
	if s.store != nil {
		s.store.Close()
		s.store = nil
	}
	return nil
}

// metricsMiddleware records a request counter and latency per route in
// the same shape the lock operations report.
func (s *Server[T]) metricsMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()

		if err := next(c); err != nil {
			c.Error(err)
		}

		ctx := c.Request().Context()
		status := strconv.Itoa(c.Response().Status)

		s.metrics.Increment(ctx, "http.requests.total", 1,
			"method", c.Request().Method,
			"path", c.Path(),
			"status", status,
		)
		if mErr := s.metrics.RecordLatency(ctx, time.Since(start),
			"method", c.Request().Method,
			"path", c.Path(),
			"status", status,
		); mErr != nil {
			s.logger.ErrorCtx(ctx, mErr)
		}

		return nil
	}
}
