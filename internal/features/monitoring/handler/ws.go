package handler

import (
	"coldchain-monitor/internal/core/logger"
	"coldchain-monitor/internal/core/notify"

	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"
)

// AlertStream pushes alert and shipment lifecycle events to websocket
// clients. An optional shipmentId query parameter restricts the stream to
// one shipment. A client that cannot keep up loses events rather than
// stalling ingestion.
func AlertStream(hub *notify.Hub) func(*websocket.Conn) {
	return func(conn *websocket.Conn) {
		events, cancel := hub.Subscribe()
		defer cancel()

		shipmentID := conn.Query("shipmentId")

		// Drain client frames so close handshakes are noticed; the stream
		// itself is one-way.
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-done:
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				if shipmentID != "" && e.ShipmentID != shipmentID {
					continue
				}
				if err := conn.WriteJSON(e); err != nil {
					logger.Get().Debug("Websocket subscriber dropped", zap.Error(err))
					return
				}
			}
		}
	}
}
