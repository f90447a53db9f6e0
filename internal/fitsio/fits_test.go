package fitsio

import (
	"fmt"
	"strings"
	"testing"
)

func card(key, value string) string {
	s := fmt.Sprintf("%-8s= %-70s", key, value)
	if len(s) > 80 {
		s = s[:80]
	}
	return s + strings.Repeat(" ", 80-len(s))
}

func TestParseHeaderReadsKeywords(t *testing.T) {
	var sb strings.Builder
	sb.WriteString(card("SIMPLE", "T"))
	sb.WriteString(card("CRVAL1", "75.0"))
	sb.WriteString(card("CRVAL2", "45.0"))
	sb.WriteString(card("DATE-OBS", "2026-01-01T00:00:00"))
	sb.WriteString(fmt.Sprintf("%-80s", "END"))

	h, err := ParseHeader([]byte(sb.String()))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	ra, dec, err := h.FieldCenter()
	if err != nil {
		t.Fatalf("field center: %v", err)
	}
	if ra != 75.0 || dec != 45.0 {
		t.Fatalf("unexpected center: %v %v", ra, dec)
	}

	obs, err := h.DateObs()
	if err != nil {
		t.Fatalf("date-obs: %v", err)
	}
	if obs.Year() != 2026 {
		t.Fatalf("unexpected year: %v", obs.Year())
	}
}
