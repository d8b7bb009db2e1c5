package graphics

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// pngBase64 is a bare-base64 PNG header, padded past the length heuristic.
func pngBase64(t *testing.T) string {
	t.Helper()
	data := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)
	return base64.StdEncoding.EncodeToString(data)
}

func TestDecode_DataURI(t *testing.T) {
	p, ok := Decode("data:image/png;base64,AAAA")
	require.True(t, ok)
	require.Equal(t, "image/png", p.ContentType)
	require.Equal(t, "png", p.Format)
	require.Equal(t, []byte{0, 0, 0}, p.Data)
	require.False(t, p.External())
}

func TestDecode_DataURI_Plain(t *testing.T) {
	p, ok := Decode("data:image/svg+xml,%3Csvg%3E%3C/svg%3E")
	require.True(t, ok)
	require.Equal(t, "image/svg+xml", p.ContentType)
	require.Equal(t, "svg", p.Format)
	require.Equal(t, "<svg></svg>", string(p.Data))
}

func TestDecode_DataURI_BadPayload(t *testing.T) {
	_, ok := Decode("data:image/png;base64,!!!not-base64!!!")
	require.False(t, ok)
}

func TestDecode_HTTPURL(t *testing.T) {
	p, ok := Decode("https://cdn.example.com/charts/wheel.png")
	require.True(t, ok)
	require.True(t, p.External())
	require.Equal(t, "https://cdn.example.com/charts/wheel.png", p.URL)
	require.Equal(t, "image/png", p.ContentType)
	require.Equal(t, "png", p.Format)
	require.Nil(t, p.Data)
}

func TestDecode_HTTPURL_NoExtension(t *testing.T) {
	p, ok := Decode("https://cdn.example.com/charts/abc123")
	require.True(t, ok)
	require.Equal(t, "application/octet-stream", p.ContentType)
	require.Equal(t, "url", p.Format)
}

func TestDecode_SVGMarkup(t *testing.T) {
	p, ok := Decode(`  <svg xmlns="http://www.w3.org/2000/svg"><circle r="5"/></svg>`)
	require.True(t, ok)
	require.Equal(t, "image/svg+xml", p.ContentType)
	require.Equal(t, "svg", p.Format)
	require.True(t, strings.HasPrefix(string(p.Data), "<svg"))
}

func TestDecode_SVGMarkup_XMLProlog(t *testing.T) {
	_, ok := Decode(`<?xml version="1.0"?><svg></svg>`)
	require.True(t, ok)
}

func TestDecode_BareBase64(t *testing.T) {
	p, ok := Decode(pngBase64(t))
	require.True(t, ok)
	require.Equal(t, "image/png", p.ContentType)
	require.Equal(t, "png", p.Format)
}

func TestDecode_BareBase64_TooShort(t *testing.T) {
	// Valid base64, but short strings are too ambiguous to treat as graphics.
	_, ok := Decode("dHJ1ZQ==")
	require.False(t, ok)
}

func TestDecode_BareBase64_BadLength(t *testing.T) {
	s := pngBase64(t) + "A" // break length % 4
	_, ok := Decode(s)
	require.False(t, ok)
}

func TestDecode_RawBytes(t *testing.T) {
	data := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 16)...)
	p, ok := Decode(data)
	require.True(t, ok)
	require.Equal(t, "image/png", p.ContentType)
	require.Equal(t, "png", p.Format)
}

func TestDecode_Unrecognized(t *testing.T) {
	for _, v := range []any{"just a sentence", 42, nil, true, map[string]any{}} {
		_, ok := Decode(v)
		require.False(t, ok, "value %v should not decode", v)
	}
}
