package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"coldchain-monitor/internal/features/shipments/domain"
	"coldchain-monitor/internal/features/shipments/ports"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockShipmentService is a mock implementation of ports.ShipmentService.
type MockShipmentService struct {
	mock.Mock
}

func (m *MockShipmentService) Register(ctx context.Context, in ports.RegisterInput) (*domain.Shipment, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Shipment), args.Error(1)
}

func (m *MockShipmentService) Advance(ctx context.Context, in ports.AdvanceInput) (*domain.TimelineEvent, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TimelineEvent), args.Error(1)
}

func (m *MockShipmentService) Snapshot(ctx context.Context, shipmentID string) (*domain.Shipment, error) {
	args := m.Called(ctx, shipmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Shipment), args.Error(1)
}

func (m *MockShipmentService) Timeline(ctx context.Context, shipmentID string) ([]domain.TimelineEvent, error) {
	args := m.Called(ctx, shipmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TimelineEvent), args.Error(1)
}

func setupApp(service *MockShipmentService) *fiber.App {
	app := fiber.New()
	h := NewShipmentHandler(service)
	app.Post("/shipments", h.RegisterShipment)
	app.Post("/timeline-events", h.Advance)
	app.Get("/timeline", h.GetTimeline)
	return app
}

func postJSON(t *testing.T, app *fiber.App, path string, body interface{}) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest("POST", path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestShipmentHandler_RegisterShipment(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockService := new(MockShipmentService)
		app := setupApp(mockService)

		shipment := &domain.Shipment{ID: "s1", Status: domain.StatusCreated}
		mockService.On("Register", mock.Anything, mock.Anything).Return(shipment, nil).Once()

		resp := postJSON(t, app, "/shipments", RegisterShipmentRequest{
			CargoType:   "frozen",
			Origin:      "Bangkok",
			Destination: "Phuket",
		})

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		mockService.AssertExpectations(t)
	})

	t.Run("Invalid", func(t *testing.T) {
		mockService := new(MockShipmentService)
		app := setupApp(mockService)

		mockService.On("Register", mock.Anything, mock.Anything).Return(nil, domain.ErrInvalidShipment).Once()

		resp := postJSON(t, app, "/shipments", RegisterShipmentRequest{})

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		mockService.AssertExpectations(t)
	})
}

func TestShipmentHandler_Advance(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockService := new(MockShipmentService)
		app := setupApp(mockService)

		event := &domain.TimelineEvent{ID: "e1", ShipmentID: "s1", Status: domain.StatusProcessing, Sequence: 2}
		mockService.On("Advance", mock.Anything, mock.Anything).Return(event, nil).Once()

		resp := postJSON(t, app, "/timeline-events", AdvanceRequest{
			ShipmentID: "s1",
			Status:     "processing",
		})

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		mockService.AssertExpectations(t)
	})

	t.Run("MissingShipmentID", func(t *testing.T) {
		mockService := new(MockShipmentService)
		app := setupApp(mockService)

		resp := postJSON(t, app, "/timeline-events", AdvanceRequest{Status: "processing"})

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("IllegalTransition", func(t *testing.T) {
		mockService := new(MockShipmentService)
		app := setupApp(mockService)

		mockService.On("Advance", mock.Anything, mock.Anything).Return(nil, domain.ErrIllegalTransition).Once()

		resp := postJSON(t, app, "/timeline-events", AdvanceRequest{
			ShipmentID: "s1",
			Status:     "delivered",
		})

		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		mockService.AssertExpectations(t)
	})

	t.Run("Terminal", func(t *testing.T) {
		mockService := new(MockShipmentService)
		app := setupApp(mockService)

		mockService.On("Advance", mock.Anything, mock.Anything).Return(nil, domain.ErrShipmentTerminal).Once()

		resp := postJSON(t, app, "/timeline-events", AdvanceRequest{
			ShipmentID: "s1",
			Status:     "in_transit",
		})

		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		mockService.AssertExpectations(t)
	})

	t.Run("NotFound", func(t *testing.T) {
		mockService := new(MockShipmentService)
		app := setupApp(mockService)

		mockService.On("Advance", mock.Anything, mock.Anything).Return(nil, domain.ErrShipmentNotFound).Once()

		resp := postJSON(t, app, "/timeline-events", AdvanceRequest{
			ShipmentID: "missing",
			Status:     "processing",
		})

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		mockService.AssertExpectations(t)
	})
}

func TestShipmentHandler_GetTimeline(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockService := new(MockShipmentService)
		app := setupApp(mockService)

		events := []domain.TimelineEvent{{ID: "e1", Status: domain.StatusCreated, Sequence: 1}}
		mockService.On("Timeline", mock.Anything, "s1").Return(events, nil).Once()

		req := httptest.NewRequest("GET", "/timeline?shipmentId=s1", nil)
		resp, err := app.Test(req)

		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		mockService.AssertExpectations(t)
	})

	t.Run("MissingParam", func(t *testing.T) {
		mockService := new(MockShipmentService)
		app := setupApp(mockService)

		req := httptest.NewRequest("GET", "/timeline", nil)
		resp, err := app.Test(req)

		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("NotFound", func(t *testing.T) {
		mockService := new(MockShipmentService)
		app := setupApp(mockService)

		mockService.On("Timeline", mock.Anything, "missing").Return(nil, domain.ErrShipmentNotFound).Once()

		req := httptest.NewRequest("GET", "/timeline?shipmentId=missing", nil)
		resp, err := app.Test(req)

		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		mockService.AssertExpectations(t)
	})
}
