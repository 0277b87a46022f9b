package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"slotwise/backend/internal/domain"
	"slotwise/backend/internal/service/scheduling"
)

type schedulingService interface {
	GenerateSlots(ctx context.Context, providerID, date, serviceID string, durationMinutes int) ([]domain.Slot, error)
	CreateBooking(ctx context.Context, in scheduling.CreateBookingInput) (domain.Booking, error)
	GetBooking(ctx context.Context, providerID string, bookingID uuid.UUID) (domain.Booking, error)
	Confirm(ctx context.Context, providerID string, bookingID uuid.UUID) (domain.Booking, error)
	Cancel(ctx context.Context, providerID string, bookingID uuid.UUID) (domain.Booking, error)
	Complete(ctx context.Context, providerID string, bookingID uuid.UUID) (domain.Booking, error)
	ExtendBooking(ctx context.Context, providerID string, bookingID uuid.UUID, extraMinutes int) (domain.Booking, []domain.Shift, error)
}

type scheduleStore interface {
	Get(ctx context.Context, providerID string) (domain.WeeklySchedule, error)
	Upsert(ctx context.Context, sched domain.WeeklySchedule) (domain.WeeklySchedule, error)
}

type Server struct {
	svc       schedulingService
	schedules scheduleStore
	log       *slog.Logger
}

func NewServer(svc schedulingService, schedules scheduleStore, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		svc:       svc,
		schedules: schedules,
		log:       log.With(slog.String("component", "http")),
	}
}

func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.Default())
	router.Use(s.requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/v1")
	{
		v1.GET("/providers/:providerId/slots", s.listSlots)
		v1.GET("/providers/:providerId/schedule", s.getSchedule)
		v1.PUT("/providers/:providerId/schedule", s.putSchedule)
		v1.POST("/providers/:providerId/bookings", s.createBooking)
		v1.GET("/providers/:providerId/bookings/:id", s.getBooking)
		v1.PATCH("/providers/:providerId/bookings/:id/status", s.updateBookingStatus)
		v1.PATCH("/providers/:providerId/bookings/:id/extend", s.extendBooking)
	}

	return router
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("request handled",
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("elapsed", time.Since(start)),
		)
	}
}
