package utils

import (
	"regexp"
	"strings"
	"testing"
)

func TestNormalizeBookingID(t *testing.T) {
	cases := map[string]string{
		"bk1":       "BK1",
		"  Bk1  ":   "BK1",
		"BK1":       "BK1",
		"":          "",
		"\tab-12\n": "AB-12",
	}
	for in, want := range cases {
		if got := NormalizeBookingID(in); got != want {
			t.Errorf("NormalizeBookingID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSameBooking(t *testing.T) {
	if !SameBooking("bk1", " BK1 ") {
		t.Fatal("SameBooking should match case-insensitively")
	}
	if SameBooking("", "") {
		t.Fatal("empty references must not match")
	}
	if SameBooking("BK1", "BK2") {
		t.Fatal("different references must not match")
	}
}

func TestNewTagNumber(t *testing.T) {
	pattern := regexp.MustCompile(`^FL1-[0-9A-F]{8}$`)
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		tag := NewTagNumber("FL1")
		if !pattern.MatchString(tag) {
			t.Fatalf("NewTagNumber = %q, want FL1-XXXXXXXX", tag)
		}
		if seen[tag] {
			t.Fatalf("NewTagNumber produced duplicate %q", tag)
		}
		seen[tag] = true
	}
}

func TestNewQRPayload(t *testing.T) {
	payload := NewQRPayload("BK1", "KL1234", "12C")
	parts := strings.Split(payload, "|")
	if len(parts) != 4 {
		t.Fatalf("payload %q has %d parts, want 4", payload, len(parts))
	}
	if parts[0] != "BK1" || parts[1] != "KL1234" || parts[2] != "12C" {
		t.Fatalf("payload prefix = %v", parts[:3])
	}
	if NewQRPayload("BK1", "KL1234", "12C") == payload {
		t.Fatal("two payloads should differ by their nonce")
	}
}
