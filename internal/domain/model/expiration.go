package model

import (
	"strings"
	"time"
)

// ExpirationLayout is the literal layout of the RADIUS Expiration attribute,
// e.g. "05 Mar 2025 14:07:09". Month abbreviations are always English.
const ExpirationLayout = "02 Jan 2006 15:04:05"

// fallbackLayouts are tried when a stored value does not follow ExpirationLayout.
var fallbackLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"Jan 02 2006 15:04:05",
	"January 02 2006 15:04:05",
	"02 January 2006 15:04:05",
	time.RFC1123,
	"2006-01-02",
}

// ExpirationCodec converts between instants and the Expiration attribute text.
// Values are rendered in Location (the authentication server's local time), not UTC.
type ExpirationCodec struct {
	Location *time.Location
}

func (c ExpirationCodec) loc() *time.Location {
	if c.Location == nil {
		return time.Local
	}
	return c.Location
}

func (c ExpirationCodec) Encode(t time.Time) string {
	return t.In(c.loc()).Format(ExpirationLayout)
}

// Decode parses an Expiration value. ok is false when nothing matches.
func (c ExpirationCodec) Decode(s string) (t time.Time, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.ParseInLocation(ExpirationLayout, s, c.loc()); err == nil {
		return t, true
	}
	for _, layout := range fallbackLayouts {
		if t, err := time.ParseInLocation(layout, s, c.loc()); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
