// Package fitsio reads just enough of a FITS primary header to support
// the Sync event's plate-center computation: the DATE-OBS timestamp and
// the WCS keywords a plate solver writes back (CRVAL1/2, CRPIX1/2,
// CD/CDELT matrix). Supplements spec.md, which assumes a FITS reader is
// available but does not specify one (spec section 4 COMPONENT DESIGN).
package fitsio

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	cardSize  = 80
	blockSize = 2880
)

// Header is a parsed FITS primary header, keyword -> raw string value.
type Header map[string]string

// ParseHeader reads FITS header cards (each a fixed 80-byte card, blocks
// of 36 cards / 2880 bytes) until the END card, per the FITS standard.
func ParseHeader(data []byte) (Header, error) {
	h := Header{}
	for off := 0; off+cardSize <= len(data); off += cardSize {
		card := string(data[off : off+cardSize])
		key := strings.TrimSpace(card[:8])
		if key == "END" {
			return h, nil
		}
		if key == "" || key == "COMMENT" || key == "HISTORY" {
			continue
		}
		if len(card) < 10 || card[8:10] != "= " {
			continue
		}
		value := strings.TrimSpace(card[10:])
		if idx := strings.Index(value, "/"); idx >= 0 {
			// Strip an inline comment, but not one embedded inside a quoted string.
			if !strings.HasPrefix(value, "'") || strings.Index(value[1:], "'") < idx {
				value = strings.TrimSpace(value[:idx])
			}
		}
		value = strings.Trim(value, "'")
		value = strings.TrimSpace(value)
		h[key] = value
	}
	return nil, fmt.Errorf("fitsio: no END card found within %d bytes", len(data))
}

// DateObs parses the DATE-OBS keyword as an ISO-8601 UTC timestamp.
func (h Header) DateObs() (time.Time, error) {
	raw, ok := h["DATE-OBS"]
	if !ok {
		return time.Time{}, fmt.Errorf("fitsio: missing DATE-OBS")
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05.999999", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("fitsio: unparsable DATE-OBS %q", raw)
}

// FieldCenter reads the CRVAL1/CRVAL2 WCS keywords a plate solver writes,
// the J2000 right ascension and declination, in degrees, of the
// reference pixel. Real plate-solved frames set the reference pixel at
// or near the frame center; CRPIX offsetting is not modeled here, which
// is an acceptable approximation for a resync operation.
func (h Header) FieldCenter() (raDeg, decDeg float64, err error) {
	ra, err := h.float("CRVAL1")
	if err != nil {
		return 0, 0, err
	}
	dec, err := h.float("CRVAL2")
	if err != nil {
		return 0, 0, err
	}
	return ra, dec, nil
}

func (h Header) float(key string) (float64, error) {
	raw, ok := h[key]
	if !ok {
		return 0, fmt.Errorf("fitsio: missing %s", key)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("fitsio: %s: %w", key, err)
	}
	return v, nil
}

// ReadHeader extracts and parses the primary header block(s) from a full
// FITS byte stream.
func ReadHeader(data []byte) (Header, error) {
	end := bytes.Index(data, []byte("END"))
	if end < 0 {
		return nil, fmt.Errorf("fitsio: no END card found")
	}
	// Round up to the next whole 2880-byte block boundary.
	headerLen := ((end / blockSize) + 1) * blockSize
	if headerLen > len(data) {
		headerLen = len(data)
	}
	return ParseHeader(data[:headerLen])
}
