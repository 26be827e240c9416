package database

import (
	"strings"
	"testing"
)

func TestStatementsCoverEveryTable(t *testing.T) {
	stmts := Statements()
	if len(stmts) != 4 {
		t.Fatalf("statements = %d, want 4", len(stmts))
	}
	for i, table := range []string{"flights", "seats", "bookings", "baggage_records"} {
		if !strings.HasPrefix(stmts[i], "CREATE TABLE IF NOT EXISTS "+table+" (") {
			t.Fatalf("statement %d = %.60q, want table %s", i, stmts[i], table)
		}
	}
	if !strings.Contains(stmts[1], "UNIQUE KEY uq_seats_number (flight_id, seat_number)") {
		t.Fatal("seats table lacks the per-flight seat number index")
	}
	if !strings.Contains(stmts[3], "UNIQUE KEY uq_baggage_tag (tag_number)") {
		t.Fatal("baggage_records lacks the unique tag index")
	}
}

func TestDSN(t *testing.T) {
	dsn := DSN("kiosk", "s3cret", "db.local", "3306", "kiosk")
	for _, want := range []string{"kiosk:s3cret@tcp(db.local:3306)/kiosk?", "parseTime=true", "charset=utf8mb4"} {
		if !strings.Contains(dsn, want) {
			t.Fatalf("DSN = %q, missing %q", dsn, want)
		}
	}
	if strings.Contains(DSN("kiosk", "", "h", "1", "d"), "kiosk:@") {
		t.Fatal("empty password rendered as a separator")
	}
}
