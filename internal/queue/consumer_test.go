package queue

import (
    "os"
    "path/filepath"
    "strings"
    "testing"
    "time"
)

func TestFormatAuditLine(t *testing.T) {
    at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
    tests := []struct {
        key, body, want string
    }{
        {
            "flight.FL1.seats",
            `{"flightId":"FL1","seatId":"12C","status":"LOCKED","sessionId":"kiosk-7"}`,
            "[2026-03-01T09:30:00Z] Seat LOCKED | flight_id=FL1 | seat_id=12C | session=kiosk-7\n",
        },
        {
            "flight.FL1.seats",
            `{"flightId":"FL1","seatId":"12C","status":"RESERVED","sessionId":null}`,
            "[2026-03-01T09:30:00Z] Seat RESERVED | flight_id=FL1 | seat_id=12C | session=-\n",
        },
        {
            "flight.FL1.baggage",
            `{"flightId":"FL1","count":4}`,
            "[2026-03-01T09:30:00Z] Baggage total | flight_id=FL1 | count=4\n",
        },
        {
            "flight.FL1.other",
            `{"x":1}`,
            "[2026-03-01T09:30:00Z] flight.FL1.other | {\"x\":1}\n",
        },
    }
    for _, tt := range tests {
        got, err := FormatAuditLine(tt.key, at, []byte(tt.body))
        if err != nil {
            t.Fatalf("FormatAuditLine(%s): %v", tt.key, err)
        }
        if got != tt.want {
            t.Fatalf("FormatAuditLine(%s) = %q, want %q", tt.key, got, tt.want)
        }
    }
    if _, err := FormatAuditLine("flight.FL1.seats", at, []byte("not json")); err == nil {
        t.Fatal("malformed seat payload accepted")
    }
}

func TestHandleDeliveryAppends(t *testing.T) {
    dir := filepath.Join(t.TempDir(), "logs")
    c := &AuditConsumer{LogDir: dir}
    c.defaults()
    at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
    for _, body := range []string{`{"flightId":"FL1","count":1}`, `{"flightId":"FL1","count":3}`} {
        if err := c.HandleDelivery("flight.FL1.baggage", at, []byte(body)); err != nil {
            t.Fatalf("HandleDelivery: %v", err)
        }
    }
    data, err := os.ReadFile(filepath.Join(dir, "audit.log"))
    if err != nil {
        t.Fatal(err)
    }
    lines := strings.Split(strings.TrimSpace(string(data)), "\n")
    if len(lines) != 2 || !strings.HasSuffix(lines[1], "count=3") {
        t.Fatalf("audit.log = %q", data)
    }
}
