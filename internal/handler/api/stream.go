package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"StockPilot/internal/domain/models"
	domrepo "StockPilot/internal/domain/repository"
	xhttp "StockPilot/pkg/http"
	xlogger "StockPilot/pkg/logger"
)

// StreamConfig bounds the websocket snapshot stream.
type StreamConfig struct {
	Every      time.Duration
	MinEvery   time.Duration
	WriteWait  time.Duration
	PongWait   time.Duration
	MaxSymbols int
}

func (c StreamConfig) withDefaults() StreamConfig {
	if c.Every <= 0 {
		c.Every = 5 * time.Second
	}
	if c.MinEvery <= 0 {
		c.MinEvery = time.Second
	}
	if c.WriteWait <= 0 {
		c.WriteWait = 10 * time.Second
	}
	if c.PongWait <= 0 {
		c.PongWait = 60 * time.Second
	}
	if c.MaxSymbols <= 0 {
		c.MaxSymbols = 20
	}
	return c
}

// streamFrame is one message on the snapshot stream.
type streamFrame struct {
	Type     string           `json:"type"`
	Snapshot *models.Snapshot `json:"snapshot,omitempty"`
	Symbol   string           `json:"symbol,omitempty"`
	Error    string           `json:"error,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// StreamSnapshots upgrades to a websocket and pushes the latest snapshot of
// each requested symbol every interval (?every=seconds) until the client leaves.
func (h *StockEchoHandler) StreamSnapshots(c echo.Context) error {
	symbols := xhttp.QueryList(c, "symbol")
	if len(symbols) == 0 {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("symbol is required").OnField("symbol"))
	}
	if len(symbols) > h.stream.MaxSymbols {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("at most %d symbols per stream", h.stream.MaxSymbols))
	}
	every := h.stream.Every
	if secs := xhttp.QueryInt(c, "every", 0); secs > 0 {
		every = time.Duration(secs) * time.Second
	}
	if every < h.stream.MinEvery {
		every = h.stream.MinEvery
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader already wrote the error response
		h.logger.Warn("websocket upgrade failed", xlogger.Error(err))
		return nil
	}
	defer conn.Close()

	if h.metrics != nil {
		h.metrics.Clients.Inc()
		defer h.metrics.Clients.Dec()
	}
	log := h.logger.With(xlogger.Strings("symbols", symbols), xlogger.String("remote", c.RealIP()))
	log.Debug("snapshot stream opened")

	// reader: handles pongs and notices the client going away
	done := make(chan struct{})
	_ = conn.SetReadDeadline(time.Now().Add(h.stream.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.stream.PongWait))
	})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ctx := c.Request().Context()
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	ping := time.NewTicker(h.stream.PongWait * 9 / 10)
	defer ping.Stop()

	if err := h.pushSnapshots(c, conn, symbols); err != nil {
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-done:
			log.Debug("snapshot stream closed by client")
			return nil
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.stream.WriteWait)); err != nil {
				return nil
			}
		case <-ticker.C:
			if err := h.pushSnapshots(c, conn, symbols); err != nil {
				log.Debug("snapshot stream closed", xlogger.Error(err))
				return nil
			}
		}
	}
}

func (h *StockEchoHandler) pushSnapshots(c echo.Context, conn *websocket.Conn, symbols []string) error {
	for _, sym := range symbols {
		frame := streamFrame{Type: "snapshot", Symbol: sym}
		snap, err := h.q.Snapshot(c.Request().Context(), sym)
		switch {
		case err == nil:
			frame.Snapshot = snap
			frame.Symbol = snap.InstrumentID
		case errors.Is(err, domrepo.ErrNotFound):
			frame.Type, frame.Error = "empty", "no data available"
		default:
			frame.Type, frame.Error = "error", "snapshot unavailable"
			h.logger.Warn("stream snapshot", xlogger.String("symbol", sym), xlogger.Error(err))
		}
		_ = conn.SetWriteDeadline(time.Now().Add(h.stream.WriteWait))
		if err := conn.WriteJSON(frame); err != nil {
			h.observe("write_error")
			return err
		}
		h.observe(frame.Type)
	}
	return nil
}

func (h *StockEchoHandler) observe(result string) {
	if h.metrics != nil {
		h.metrics.Messages.WithLabelValues(result).Inc()
	}
}
