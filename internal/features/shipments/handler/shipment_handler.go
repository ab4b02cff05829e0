package handler

import (
	"errors"
	"net/http"
	"time"

	"coldchain-monitor/internal/core/logger"
	policydomain "coldchain-monitor/internal/features/policy/domain"
	"coldchain-monitor/internal/features/shipments/domain"
	"coldchain-monitor/internal/features/shipments/ports"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ShipmentHandler handles HTTP requests for shipments and their timelines.
type ShipmentHandler struct {
	service ports.ShipmentService
}

// NewShipmentHandler creates a new ShipmentHandler.
func NewShipmentHandler(service ports.ShipmentService) *ShipmentHandler {
	return &ShipmentHandler{service: service}
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

// RegisterShipmentRequest is the request body for registering a shipment.
type RegisterShipmentRequest struct {
	CargoType     string              `json:"cargo_type"`
	Origin        string              `json:"origin"`
	Destination   string              `json:"destination"`
	VehicleID     *string             `json:"vehicle_id,omitempty"`
	RangeOverride *policydomain.Range `json:"range_override,omitempty"`
}

// RegisterShipment godoc
// @Summary Register a shipment
// @Description Registers a shipment on order confirmation and opens its timeline.
// @Tags shipments
// @Accept json
// @Produce json
// @Param shipment body RegisterShipmentRequest true "Shipment attributes"
// @Success 201 {object} domain.Shipment
// @Failure 400 {object} ErrorResponse
// @Router /shipments [post]
func (h *ShipmentHandler) RegisterShipment(c *fiber.Ctx) error {
	var req RegisterShipmentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Message: "invalid request body",
			RayID:   rayID(c),
		})
	}

	shipment, err := h.service.Register(c.Context(), ports.RegisterInput{
		CargoType:     req.CargoType,
		Origin:        req.Origin,
		Destination:   req.Destination,
		VehicleID:     req.VehicleID,
		RangeOverride: req.RangeOverride,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidShipment) {
			return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
				Message: err.Error(),
				RayID:   rayID(c),
			})
		}
		logger.Get().Error("Failed to register shipment", zap.Error(err))
		return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
			Message: "internal server error",
			RayID:   rayID(c),
		})
	}

	return c.Status(http.StatusCreated).JSON(shipment)
}

// AdvanceRequest is the request body for appending a timeline event.
type AdvanceRequest struct {
	ShipmentID string `json:"shipment_id"`
	Status     string `json:"status"`
	Location   string `json:"location"`
	// Timestamp is optional ISO-8601 UTC; defaults to the current time.
	Timestamp *time.Time `json:"timestamp,omitempty"`
	Note      string     `json:"note,omitempty"`
}

// Advance godoc
// @Summary Append a timeline event
// @Description Advances the shipment's status, enforcing legal transitions.
// @Tags timeline
// @Accept json
// @Produce json
// @Param event body AdvanceRequest true "Transition details"
// @Success 201 {object} domain.TimelineEvent
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /timeline-events [post]
func (h *ShipmentHandler) Advance(c *fiber.Ctx) error {
	var req AdvanceRequest
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

	in := ports.AdvanceInput{
		ShipmentID: req.ShipmentID,
		Status:     domain.Status(req.Status),
		Location:   req.Location,
		Note:       req.Note,
	}
	if req.Timestamp != nil {
		in.Timestamp = *req.Timestamp
	}

	event, err := h.service.Advance(c.Context(), in)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrShipmentNotFound):
			return c.Status(http.StatusNotFound).JSON(ErrorResponse{
				Message: err.Error(),
				RayID:   rayID(c),
			})
		case errors.Is(err, domain.ErrShipmentTerminal), errors.Is(err, domain.ErrIllegalTransition):
			return c.Status(http.StatusConflict).JSON(ErrorResponse{
				Message: err.Error(),
				RayID:   rayID(c),
			})
		}
		logger.Get().Error("Failed to advance shipment", zap.Error(err))
		return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
			Message: "internal server error",
			RayID:   rayID(c),
		})
	}

	return c.Status(http.StatusCreated).JSON(event)
}

// GetTimeline godoc
// @Summary Get a shipment's timeline
// @Description Returns the shipment's events ordered by timestamp and sequence.
// @Tags timeline
// @Produce json
// @Param shipmentId query string true "Shipment ID"
// @Success 200 {array} domain.TimelineEvent
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /timeline [get]
func (h *ShipmentHandler) GetTimeline(c *fiber.Ctx) error {
	shipmentID := c.Query("shipmentId")
	if shipmentID == "" {
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Message: "shipmentId query parameter is required",
			RayID:   rayID(c),
		})
	}

	events, err := h.service.Timeline(c.Context(), shipmentID)
	if err != nil {
		if errors.Is(err, domain.ErrShipmentNotFound) {
			return c.Status(http.StatusNotFound).JSON(ErrorResponse{
				Message: err.Error(),
				RayID:   rayID(c),
			})
		}
		logger.Get().Error("Failed to list timeline", zap.Error(err))
		return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
			Message: "internal server error",
			RayID:   rayID(c),
		})
	}

	return c.JSON(events)
}
