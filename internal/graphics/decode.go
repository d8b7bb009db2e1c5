package graphics

import (
	"encoding/base64"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
)

// Packet is one decoded graphic: either an inline binary payload or an
// external URL reference, plus enough metadata to serve or cite it later.
type Packet struct {
	Data        []byte
	URL         string
	ContentType string
	Format      string
	FieldPath   string
}

// External reports whether the packet is a URL reference rather than bytes.
func (p Packet) External() bool { return p.URL != "" }

// decodeRule attempts to interpret a value as a graphic. Rules are pure;
// first success wins.
type decodeRule struct {
	name string
	fn   func(v any) (Packet, bool)
}

// decodeRules is the ordered heuristic cascade: data URI, absolute URL,
// inline SVG markup, bare base64, raw bytes. Order matters: a data URI is
// also valid base64 after its comma.
var decodeRules = []decodeRule{
	{"data-uri", decodeDataURI},
	{"http-url", decodeHTTPURL},
	{"svg-markup", decodeSVGMarkup},
	{"bare-base64", decodeBareBase64},
	{"raw-bytes", decodeRawBytes},
}

// Decode runs the rule cascade over a candidate graphic value. The second
// return is false when no rule recognizes the value; such values are dropped
// by the extractor rather than preserved.
func Decode(v any) (Packet, bool) {
	for _, rule := range decodeRules {
		if p, ok := rule.fn(v); ok {
			return p, true
		}
	}
	return Packet{}, false
}

func decodeDataURI(v any) (Packet, bool) {
	s, ok := v.(string)
	if !ok || !strings.HasPrefix(s, "data:") {
		return Packet{}, false
	}

	meta, payload, found := strings.Cut(s[len("data:"):], ",")
	if !found {
		return Packet{}, false
	}

	contentType := "text/plain"
	isBase64 := false
	for i, part := range strings.Split(meta, ";") {
		switch {
		case part == "base64":
			isBase64 = true
		case i == 0 && part != "":
			contentType = part
		}
	}

	var data []byte
	if isBase64 {
		decoded, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return Packet{}, false
		}
		data = decoded
	} else {
		unescaped, err := url.PathUnescape(payload)
		if err != nil {
			return Packet{}, false
		}
		data = []byte(unescaped)
	}

	return Packet{Data: data, ContentType: contentType, Format: formatFromContentType(contentType)}, true
}

func decodeHTTPURL(v any) (Packet, bool) {
	s, ok := v.(string)
	if !ok || (!strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://")) {
		return Packet{}, false
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return Packet{}, false
	}

	ext := strings.ToLower(path.Ext(u.Path))
	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	format := strings.TrimPrefix(ext, ".")
	if format == "" {
		format = "url"
	}
	return Packet{URL: s, ContentType: contentType, Format: format}, true
}

func decodeSVGMarkup(v any) (Packet, bool) {
	s, ok := v.(string)
	if !ok {
		return Packet{}, false
	}
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "<svg") &&
		!(strings.HasPrefix(trimmed, "<?xml") && strings.Contains(trimmed, "<svg")) {
		return Packet{}, false
	}
	return Packet{Data: []byte(trimmed), ContentType: "image/svg+xml", Format: "svg"}, true
}

// minBase64Len keeps short ordinary strings ("true", "none") from being
// mistaken for encoded graphics.
const minBase64Len = 64

func decodeBareBase64(v any) (Packet, bool) {
	s, ok := v.(string)
	if !ok || len(s) < minBase64Len || len(s)%4 != 0 {
		return Packet{}, false
	}
	for _, r := range s {
		if !isBase64Char(r) {
			return Packet{}, false
		}
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return Packet{}, false
	}
	contentType := http.DetectContentType(data)
	return Packet{Data: data, ContentType: contentType, Format: formatFromContentType(contentType)}, true
}

func isBase64Char(r rune) bool {
	return (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') ||
		(r >= '0' && r <= '9') || r == '+' || r == '/' || r == '='
}

func decodeRawBytes(v any) (Packet, bool) {
	data, ok := v.([]byte)
	if !ok || len(data) == 0 {
		return Packet{}, false
	}
	contentType := http.DetectContentType(data)
	return Packet{Data: data, ContentType: contentType, Format: formatFromContentType(contentType)}, true
}

// formatFromContentType derives a short file-extension style tag ("png",
// "svg") from a MIME type.
func formatFromContentType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt = contentType
	}
	_, sub, found := strings.Cut(mt, "/")
	if !found || sub == "" {
		return "bin"
	}
	sub = strings.TrimSuffix(sub, "+xml")
	if sub == "octet-stream" || sub == "plain" {
		return "bin"
	}
	return sub
}
