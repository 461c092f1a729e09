package fingerprint

import (
	"strings"
	"testing"

	"github.com/eventra/eventra-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleAttributes() ClientAttributes {
	tz := -120
	return ClientAttributes{
		UserAgent:        "Mozilla/5.0 (X11; Linux x86_64)",
		ScreenResolution: "2560x1440",
		TimezoneOffset:   &tz,
		CanvasHash:       "c4a1",
		WebGLHash:        "w9f2",
		Platform:         "Linux",
		Languages:        []string{"en-US", "de"},
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	meta := RequestMeta{SourceIP: "203.0.113.9", UserAgent: "curl/8.0"}

	first, err := Resolve(sampleAttributes(), meta)
	require.NoError(t, err)
	second, err := Resolve(sampleAttributes(), meta)
	require.NoError(t, err)

	assert.Equal(t, first.Value, second.Value)
	assert.Equal(t, models.SignalSourceClient, first.Source)
	assert.True(t, strings.HasPrefix(first.Value, "fp:"))
}

func TestResolveEveryAttributeContributes(t *testing.T) {
	base, err := Resolve(sampleAttributes(), RequestMeta{})
	require.NoError(t, err)

	tz := 60
	mutations := map[string]func(*ClientAttributes){
		"user_agent":        func(a *ClientAttributes) { a.UserAgent = "other" },
		"screen_resolution": func(a *ClientAttributes) { a.ScreenResolution = "1920x1080" },
		"timezone_offset":   func(a *ClientAttributes) { a.TimezoneOffset = &tz },
		"canvas_hash":       func(a *ClientAttributes) { a.CanvasHash = "ffff" },
		"webgl_hash":        func(a *ClientAttributes) { a.WebGLHash = "0000" },
		"platform":          func(a *ClientAttributes) { a.Platform = "Win32" },
		"languages":         func(a *ClientAttributes) { a.Languages = []string{"fr"} },
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			attrs := sampleAttributes()
			mutate(&attrs)
			got, err := Resolve(attrs, RequestMeta{})
			require.NoError(t, err)
			assert.NotEqual(t, base.Value, got.Value)
		})
	}
}

func TestResolveFieldBoundariesAreUnambiguous(t *testing.T) {
	left, err := Resolve(ClientAttributes{UserAgent: "ab", ScreenResolution: "c"}, RequestMeta{})
	require.NoError(t, err)
	right, err := Resolve(ClientAttributes{UserAgent: "a", ScreenResolution: "bc"}, RequestMeta{})
	require.NoError(t, err)

	assert.NotEqual(t, left.Value, right.Value)
}

func TestResolveFallsBackToRequestMeta(t *testing.T) {
	meta := RequestMeta{SourceIP: "198.51.100.7", UserAgent: "Mozilla/5.0"}

	got, err := Resolve(ClientAttributes{}, meta)
	require.NoError(t, err)
	assert.Equal(t, models.SignalSourceFallback, got.Source)
	assert.True(t, strings.HasPrefix(got.Value, "ip:"))

	again, err := Resolve(ClientAttributes{}, meta)
	require.NoError(t, err)
	assert.Equal(t, got.Value, again.Value)

	other, err := Resolve(ClientAttributes{}, RequestMeta{SourceIP: "198.51.100.8", UserAgent: "Mozilla/5.0"})
	require.NoError(t, err)
	assert.NotEqual(t, got.Value, other.Value)
}

func TestResolveWhitespaceOnlyAttributesUseFallback(t *testing.T) {
	attrs := ClientAttributes{UserAgent: "  ", Platform: "\t"}

	got, err := Resolve(attrs, RequestMeta{SourceIP: "203.0.113.1"})
	require.NoError(t, err)
	assert.Equal(t, models.SignalSourceFallback, got.Source)
}

func TestResolveRejectsEmptyInput(t *testing.T) {
	_, err := Resolve(ClientAttributes{}, RequestMeta{})
	assert.ErrorIs(t, err, models.ErrInvalidSignal)
}
