package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/iliyamo/airport-kiosk/internal/broadcast"
	"github.com/labstack/echo/v4"
)

// DefaultHeartbeat is the interval of SSE keep-alive comments.
const DefaultHeartbeat = 15 * time.Second

// EventsHandler streams the broadcasts of one flight as server-sent
// events.  Each event is named after the last topic segment ("seats" or
// "baggage") and carries the JSON payload as published.
type EventsHandler struct {
	Hub       *broadcast.Hub
	Buffer    int
	Heartbeat time.Duration
	Log       *slog.Logger
}

// NewEventsHandler panics when hub is nil.
func NewEventsHandler(hub *broadcast.Hub, buffer int, log *slog.Logger) *EventsHandler {
	if hub == nil {
		panic("nil hub passed to NewEventsHandler")
	}
	if buffer < 1 {
		buffer = 1
	}
	if log == nil {
		log = slog.Default()
	}
	return &EventsHandler{Hub: hub, Buffer: buffer, Heartbeat: DefaultHeartbeat, Log: log}
}

// Stream handles GET /api/flights/:flightId/events.  It returns when the
// client goes away.  A client too slow to keep up misses events rather
// than stalling publishers.
func (h *EventsHandler) Stream(c echo.Context) error {
	flightID := strings.TrimSpace(c.Param("flightId"))
	if flightID == "" {
		return fail(c, http.StatusBadRequest, "INVALID_INPUT", "flightId is required")
	}
	w := c.Response()
	flusher, canFlush := w.Writer.(http.Flusher)
	if !canFlush {
		return fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "streaming not supported")
	}

	sub := h.Hub.Subscribe(h.Buffer, broadcast.SeatTopic(flightID), broadcast.BaggageTopic(flightID))
	defer sub.Close()
	h.Log.Debug("events: client subscribed", "flight", flightID,
		"subscribers", h.Hub.Subscribers(broadcast.SeatTopic(flightID)))

	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set(echo.HeaderCacheControl, "no-cache")
	w.Header().Set(echo.HeaderConnection, "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, ": subscribed to flight %s\n\n", flightID)
	flusher.Flush()

	heartbeat := time.NewTicker(h.Heartbeat)
	defer heartbeat.Stop()
	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, open := <-sub.C:
			if !open {
				return nil
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventName(ev.Topic), ev.Data); err != nil {
				h.Log.Debug("events: client disconnected", "flight", flightID, "err", err)
				return nil
			}
			flusher.Flush()
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return nil
			}
			flusher.Flush()
		}
	}
}

func eventName(topic string) string {
	if i := strings.LastIndexByte(topic, '.'); i >= 0 {
		return topic[i+1:]
	}
	return topic
}
