package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"slotwise/backend/internal/domain"
	"slotwise/backend/internal/service/scheduling"
	"slotwise/backend/internal/store"
)

func (s *Server) listSlots(c *gin.Context) {
	log := s.log.With(slog.String("route", "listSlots"))

	providerID := c.Param("providerId")
	date := c.Query("date")
	serviceID := c.Query("serviceId")
	duration, err := strconv.Atoi(c.Query("durationMinutes"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "durationMinutes must be an integer", "reason": "invalid_input"})
		return
	}

	slots, err := s.svc.GenerateSlots(c.Request.Context(), providerID, date, serviceID, duration)
	if err != nil {
		s.writeError(c, log, err)
		return
	}

	out := make([]gin.H, 0, len(slots))
	for _, slot := range slots {
		out = append(out, gin.H{
			"startTime": slot.Start.Format(time.RFC3339),
			"label":     slot.Label,
		})
	}

	log.Debug("slots generated",
		slog.String("provider_id", providerID),
		slog.String("date", date),
		slog.Int("count", len(out)),
	)
	c.JSON(http.StatusOK, gin.H{"slots": out})
}

func (s *Server) getSchedule(c *gin.Context) {
	log := s.log.With(slog.String("route", "getSchedule"))

	sched, err := s.schedules.Get(c.Request.Context(), c.Param("providerId"))
	if err != nil {
		s.writeError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, sched)
}

func (s *Server) putSchedule(c *gin.Context) {
	log := s.log.With(slog.String("route", "putSchedule"))

	sched := domain.DefaultWeeklySchedule(c.Param("providerId"))
	if err := c.ShouldBindJSON(&sched); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid schedule payload", "reason": "invalid_input"})
		return
	}
	sched.ProviderID = c.Param("providerId")
	if err := sched.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "reason": "invalid_input"})
		return
	}

	saved, err := s.schedules.Upsert(c.Request.Context(), sched)
	if err != nil {
		s.writeError(c, log, err)
		return
	}

	log.Info("schedule updated", slog.String("provider_id", saved.ProviderID))
	c.JSON(http.StatusOK, saved)
}

type createBookingRequest struct {
	ServiceID       string    `json:"serviceId"`
	CustomerID      string    `json:"customerId"`
	ScheduledAt     time.Time `json:"scheduledAt"`
	DurationMinutes int       `json:"durationMinutes"`
}

func (s *Server) createBooking(c *gin.Context) {
	log := s.log.With(slog.String("route", "createBooking"))

	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking payload", "reason": "invalid_input"})
		return
	}

	booking, err := s.svc.CreateBooking(c.Request.Context(), scheduling.CreateBookingInput{
		ProviderID:      c.Param("providerId"),
		ServiceID:       req.ServiceID,
		CustomerID:      req.CustomerID,
		ScheduledAt:     req.ScheduledAt,
		DurationMinutes: req.DurationMinutes,
	})
	if err != nil {
		s.writeError(c, log, err)
		return
	}

	log.Info("booking created",
		slog.String("booking_id", booking.ID.String()),
		slog.String("provider_id", booking.ProviderID),
		slog.Time("scheduled_at", booking.ScheduledAt),
	)
	c.JSON(http.StatusCreated, gin.H{"bookingId": booking.ID, "status": booking.Status})
}

func (s *Server) getBooking(c *gin.Context) {
	log := s.log.With(slog.String("route", "getBooking"))

	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id", "reason": "invalid_input"})
		return
	}

	booking, err := s.svc.GetBooking(c.Request.Context(), c.Param("providerId"), bookingID)
	if err != nil {
		s.writeError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) updateBookingStatus(c *gin.Context) {
	log := s.log.With(slog.String("route", "updateBookingStatus"))

	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id", "reason": "invalid_input"})
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status payload", "reason": "invalid_input"})
		return
	}

	providerID := c.Param("providerId")
	ctx := c.Request.Context()

	var booking domain.Booking
	switch domain.BookingStatus(req.Status) {
	case domain.BookingStatusConfirmed:
		booking, err = s.svc.Confirm(ctx, providerID, bookingID)
	case domain.BookingStatusCancelled:
		booking, err = s.svc.Cancel(ctx, providerID, bookingID)
	case domain.BookingStatusCompleted:
		booking, err = s.svc.Complete(ctx, providerID, bookingID)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be confirmed, cancelled or completed", "reason": "invalid_input"})
		return
	}
	if err != nil {
		s.writeError(c, log, err)
		return
	}

	log.Info("booking status updated",
		slog.String("booking_id", booking.ID.String()),
		slog.String("status", string(booking.Status)),
	)
	c.JSON(http.StatusOK, booking)
}

type extendBookingRequest struct {
	ExtraMinutes int `json:"extraMinutes"`
}

func (s *Server) extendBooking(c *gin.Context) {
	log := s.log.With(slog.String("route", "extendBooking"))

	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id", "reason": "invalid_input"})
		return
	}

	var req extendBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid extend payload", "reason": "invalid_input"})
		return
	}

	booking, shifts, err := s.svc.ExtendBooking(c.Request.Context(), c.Param("providerId"), bookingID, req.ExtraMinutes)
	if err != nil {
		s.writeError(c, log, err)
		return
	}

	out := make([]gin.H, 0, len(shifts))
	for _, sh := range shifts {
		out = append(out, gin.H{
			"booking":  sh.Booking,
			"oldStart": sh.OldStart.Format(time.RFC3339),
			"newStart": sh.NewStart.Format(time.RFC3339),
		})
	}

	log.Info("booking extended",
		slog.String("booking_id", booking.ID.String()),
		slog.Int("shifted", len(shifts)),
	)
	c.JSON(http.StatusOK, gin.H{"booking": booking, "shiftedBookings": out})
}

func (s *Server) writeError(c *gin.Context, log *slog.Logger, err error) {
	var vErr *scheduling.ValidationError
	switch {
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Error(), "reason": "invalid_input"})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found", "reason": "not_found"})
	case errors.Is(err, store.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "the requested interval is no longer free", "reason": "conflict"})
	case errors.Is(err, store.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "reason": "invalid_state"})
	case errors.Is(err, domain.ErrInfeasible):
		c.JSON(http.StatusConflict, gin.H{"error": "cannot extend without breaking the schedule", "reason": "infeasible"})
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		log.Warn("request aborted", slog.Any("err", err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "temporarily unavailable", "reason": "unavailable"})
	default:
		log.Error("request failed", slog.Any("err", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "reason": "internal"})
	}
}
