// Package queue carries kiosk events over RabbitMQ.  Every seat and
// baggage broadcast is also published to a durable topic exchange with
// the broadcast topic as routing key; the audit consumer binds a queue
// to that exchange and keeps an append-only trail in logs/audit.log.
package queue

import (
    "encoding/json"
    "fmt"
    "strings"
    "time"

    "github.com/iliyamo/airport-kiosk/internal/model"
)

const (
    // DefaultExchange is the topic exchange kiosk events are routed through.
    DefaultExchange = "kiosk.events"
    // AuditQueueName is the durable queue the audit consumer reads.
    AuditQueueName = "kiosk.audit"
    // AuditBindingKey binds every flight topic to the audit queue.
    AuditBindingKey = "flight.#"
)

// FormatAuditLine renders one delivery as a single human-friendly line.
// Seat and baggage payloads are spelled out field by field; anything
// else is written verbatim.
func FormatAuditLine(routingKey string, at time.Time, body []byte) (string, error) {
    if at.IsZero() {
        at = time.Now()
    }
    ts := at.UTC().Format(time.RFC3339)
    switch {
    case strings.HasSuffix(routingKey, ".seats"):
        var ev model.SeatEvent
        if err := json.Unmarshal(body, &ev); err != nil {
            return "", fmt.Errorf("unmarshal seat event: %w", err)
        }
        session := "-"
        if ev.SessionID != nil {
            session = *ev.SessionID
        }
        return fmt.Sprintf("[%s] Seat %s | flight_id=%s | seat_id=%s | session=%s\n",
            ts, ev.Status, ev.FlightID, ev.SeatID, session), nil
    case strings.HasSuffix(routingKey, ".baggage"):
        var ev model.BaggageEvent
        if err := json.Unmarshal(body, &ev); err != nil {
            return "", fmt.Errorf("unmarshal baggage event: %w", err)
        }
        return fmt.Sprintf("[%s] Baggage total | flight_id=%s | count=%d\n", ts, ev.FlightID, ev.Count), nil
    default:
        return fmt.Sprintf("[%s] %s | %s\n", ts, routingKey, strings.TrimSpace(string(body))), nil
    }
}
