package api

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"FlowTrack/internal/usecase"
	xlogger "FlowTrack/pkg/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// StreamHandler pushes live alerts to WebSocket clients.
type StreamHandler struct {
	logger  *xlogger.Logger
	emitter *usecase.Emitter
}

func NewStreamHandler(logger *xlogger.Logger, emitter *usecase.Emitter) *StreamHandler {
	return &StreamHandler{logger: logger, emitter: emitter}
}

func (h *StreamHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/alerts", h.Alerts)
}

// Alerts upgrades the connection and relays every emission until the
// client disconnects. A slow client drops events rather than stalling
// the scan loop.
func (h *StreamHandler) Alerts(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	ch, cancel := h.emitter.Subscribe(64)
	defer cancel()

	// reader loop exists only to notice the close frame
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
			return nil
		case <-c.Request().Context().Done():
			return nil
		case sig, ok := <-ch:
			if !ok {
				return nil
			}
			if err := conn.WriteJSON(sig); err != nil {
				h.logger.Debug("ws client gone", xlogger.Error(err))
				return nil
			}
		}
	}
}
