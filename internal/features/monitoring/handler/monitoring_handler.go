package handler

import (
	"errors"
	"net/http"
	"time"

	"coldchain-monitor/internal/core/logger"
	"coldchain-monitor/internal/features/monitoring/domain"
	"coldchain-monitor/internal/features/monitoring/ports"
	shipdomain "coldchain-monitor/internal/features/shipments/domain"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// MonitoringHandler handles HTTP requests for readings, alerts and stats.
type MonitoringHandler struct {
	service ports.MonitorService
}

// NewMonitoringHandler creates a new MonitoringHandler.
func NewMonitoringHandler(service ports.MonitorService) *MonitoringHandler {
	return &MonitoringHandler{service: service}
}

// ErrorResponse represents an error response with Ray ID.
type ErrorResponse struct {
	// Message is the error description.
	Message string `json:"message"`
	// RayID is the unique request identifier for tracing.
	RayID string `json:"ray_id,omitempty"`
}

func rayID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok {
		return id
	}
	return ""
}

// SubmitReadingRequest is the request body for submitting a reading.
type SubmitReadingRequest struct {
	ShipmentID  string   `json:"shipment_id"`
	Temperature float64  `json:"temperature"`
	Humidity    *float64 `json:"humidity,omitempty"`
	// Timestamp is optional ISO-8601 UTC; defaults to ingestion time.
	Timestamp *time.Time `json:"timestamp,omitempty"`
	Source    string     `json:"source"`
	DeviceID  string     `json:"device_id,omitempty"`
	Notes     string     `json:"notes,omitempty"`
}

// SubmitReading godoc
// @Summary Submit a temperature reading
// @Description Stores a reading and classifies it synchronously against the shipment's acceptable range.
// @Tags readings
// @Accept json
// @Produce json
// @Param reading body SubmitReadingRequest true "Reading"
// @Success 201 {object} domain.Reading
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 504 {object} ErrorResponse
// @Router /readings [post]
func (h *MonitoringHandler) SubmitReading(c *fiber.Ctx) error {
	var req SubmitReadingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Message: "invalid request body",
			RayID:   rayID(c),
		})
	}
	if req.ShipmentID == "" {
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Message: "shipment_id is required",
			RayID:   rayID(c),
		})
	}

	in := ports.SubmitInput{
		ShipmentID:  req.ShipmentID,
		Temperature: req.Temperature,
		Humidity:    req.Humidity,
		Source:      domain.Source(req.Source),
		DeviceID:    req.DeviceID,
		Notes:       req.Notes,
	}
	if req.Timestamp != nil {
		in.Timestamp = *req.Timestamp
	}

	reading, err := h.service.Submit(c.Context(), in)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidReading):
			return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
				Message: err.Error(),
				RayID:   rayID(c),
			})
		case errors.Is(err, shipdomain.ErrShipmentNotFound):
			return c.Status(http.StatusNotFound).JSON(ErrorResponse{
				Message: err.Error(),
				RayID:   rayID(c),
			})
		case errors.Is(err, shipdomain.ErrShipmentTerminal):
			return c.Status(http.StatusConflict).JSON(ErrorResponse{
				Message: err.Error(),
				RayID:   rayID(c),
			})
		case errors.Is(err, domain.ErrPersistenceTimeout):
			return c.Status(http.StatusGatewayTimeout).JSON(ErrorResponse{
				Message: err.Error(),
				RayID:   rayID(c),
			})
		}
		logger.Get().Error("Failed to submit reading", zap.Error(err))
		return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
			Message: "internal server error",
			RayID:   rayID(c),
		})
	}

	return c.Status(http.StatusCreated).JSON(reading)
}

// GetReadings godoc
// @Summary List a shipment's readings
// @Description Returns a timestamp-ordered page of readings.
// @Tags readings
// @Produce json
// @Param shipmentId query string true "Shipment ID"
// @Param page query int false "Page number, 1-based"
// @Param pageSize query int false "Page size"
// @Success 200 {object} ports.ReadingPage
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /readings [get]
func (h *MonitoringHandler) GetReadings(c *fiber.Ctx) error {
	shipmentID := c.Query("shipmentId")
	if shipmentID == "" {
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Message: "shipmentId query parameter is required",
			RayID:   rayID(c),
		})
	}

	page, err := h.service.Readings(c.Context(), shipmentID, c.QueryInt("page", 1), c.QueryInt("pageSize", 0))
	if err != nil {
		if errors.Is(err, shipdomain.ErrShipmentNotFound) {
			return c.Status(http.StatusNotFound).JSON(ErrorResponse{
				Message: err.Error(),
				RayID:   rayID(c),
			})
		}
		logger.Get().Error("Failed to list readings", zap.Error(err))
		return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
			Message: "internal server error",
			RayID:   rayID(c),
		})
	}

	return c.JSON(page)
}

// GetAlerts godoc
// @Summary List alerts
// @Description Returns a shipment's alerts, or only the open ones with open=true. With open=true and no shipmentId, returns every open alert.
// @Tags alerts
// @Produce json
// @Param shipmentId query string false "Shipment ID"
// @Param open query bool false "Only open alerts"
// @Success 200 {array} domain.Alert
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /alerts [get]
func (h *MonitoringHandler) GetAlerts(c *fiber.Ctx) error {
	shipmentID := c.Query("shipmentId")
	openOnly := c.QueryBool("open", false)

	if shipmentID == "" && !openOnly {
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Message: "shipmentId query parameter is required unless open=true",
			RayID:   rayID(c),
		})
	}

	var (
		alerts []domain.Alert
		err    error
	)
	if openOnly {
		alerts, err = h.service.OpenAlerts(c.Context(), shipmentID)
	} else {
		alerts, err = h.service.Alerts(c.Context(), shipmentID)
	}
	if err != nil {
		if errors.Is(err, shipdomain.ErrShipmentNotFound) {
			return c.Status(http.StatusNotFound).JSON(ErrorResponse{
				Message: err.Error(),
				RayID:   rayID(c),
			})
		}
		logger.Get().Error("Failed to list alerts", zap.Error(err))
		return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
			Message: "internal server error",
			RayID:   rayID(c),
		})
	}

	if alerts == nil {
		alerts = []domain.Alert{}
	}
	return c.JSON(alerts)
}

// GetStats godoc
// @Summary Get a shipment's temperature statistics
// @Description Returns min/max/avg/count and the alert count, over the whole history or a trailing window such as 24h.
// @Tags stats
// @Produce json
// @Param shipmentId query string true "Shipment ID"
// @Param window query string false "Trailing window, e.g. 30m or 24h"
// @Success 200 {object} domain.StatsView
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /stats [get]
func (h *MonitoringHandler) GetStats(c *fiber.Ctx) error {
	shipmentID := c.Query("shipmentId")
	if shipmentID == "" {
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Message: "shipmentId query parameter is required",
			RayID:   rayID(c),
		})
	}

	var window time.Duration
	if raw := c.Query("window"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
				Message: "window must be a positive duration such as 30m or 24h",
				RayID:   rayID(c),
			})
		}
		window = parsed
	}

	stats, err := h.service.Stats(c.Context(), shipmentID, window)
	if err != nil {
		if errors.Is(err, shipdomain.ErrShipmentNotFound) {
			return c.Status(http.StatusNotFound).JSON(ErrorResponse{
				Message: err.Error(),
				RayID:   rayID(c),
			})
		}
		logger.Get().Error("Failed to compute stats", zap.Error(err))
		return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
			Message: "internal server error",
			RayID:   rayID(c),
		})
	}

	return c.JSON(stats)
}
