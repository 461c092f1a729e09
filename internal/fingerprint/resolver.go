// Package fingerprint derives a stable identity token for an anonymous
// visitor from client-reported device attributes, falling back to the
// request's source IP and User-Agent header when no attributes arrive.
//
// Client attributes are self-reported and spoofable; the token is a
// dedup key with degraded confidence, not proof of identity.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/eventra/eventra-api/internal/models"
)

// ClientAttributes are the signals collected by the in-page script.
type ClientAttributes struct {
	UserAgent        string   `json:"user_agent"`
	ScreenResolution string   `json:"screen_resolution"`
	TimezoneOffset   *int     `json:"timezone_offset,omitempty"`
	CanvasHash       string   `json:"canvas_hash"`
	WebGLHash        string   `json:"webgl_hash"`
	Platform         string   `json:"platform"`
	Languages        []string `json:"languages"`
}

// RequestMeta carries the request-level fallback signals.
type RequestMeta struct {
	SourceIP  string
	UserAgent string
}

// fieldSeparator keeps adjacent attributes from gluing into ambiguous
// concatenations ("ab"+"c" vs "a"+"bc").
const fieldSeparator = "\x1f"

// Resolve produces the deterministic identity signal for a visitor. Identical
// attributes always hash identically; any single differing attribute changes
// the hash. When every client attribute is absent the resolver degrades to
// hash(sourceIP + User-Agent), and when those are empty too it fails with
// models.ErrInvalidSignal.
func Resolve(attrs ClientAttributes, meta RequestMeta) (models.IdentitySignal, error) {
	if !attrs.isEmpty() {
		return models.IdentitySignal{
			Value:  "fp:" + digest(attrs.fields()),
			Source: models.SignalSourceClient,
		}, nil
	}

	ip := strings.TrimSpace(meta.SourceIP)
	ua := strings.TrimSpace(meta.UserAgent)
	if ip == "" && ua == "" {
		return models.IdentitySignal{}, models.ErrInvalidSignal
	}

	return models.IdentitySignal{
		Value:  "ip:" + digest([]string{ip, ua}),
		Source: models.SignalSourceFallback,
	}, nil
}

// fields returns the attributes in the fixed hashing order. Reordering or
// removing entries changes every issued signal, so treat this as append-only.
func (a ClientAttributes) fields() []string {
	tz := ""
	if a.TimezoneOffset != nil {
		tz = strconv.Itoa(*a.TimezoneOffset)
	}
	return []string{
		strings.TrimSpace(a.UserAgent),
		strings.TrimSpace(a.ScreenResolution),
		tz,
		strings.TrimSpace(a.CanvasHash),
		strings.TrimSpace(a.WebGLHash),
		strings.TrimSpace(a.Platform),
		strings.Join(a.Languages, ","),
	}
}

func (a ClientAttributes) isEmpty() bool {
	for _, field := range a.fields() {
		if field != "" {
			return false
		}
	}
	return true
}

func digest(fields []string) string {
	sum := sha256.Sum256([]byte(strings.Join(fields, fieldSeparator)))
	return hex.EncodeToString(sum[:])
}
