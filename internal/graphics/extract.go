package graphics

// DefaultGraphicKeys are the field names the provider is known to hang
// rendered graphics off of.
var DefaultGraphicKeys = []string{
	"chart", "wheel", "svg", "chart_svg", "image", "chart_image", "graphic",
}

// Extract walks an arbitrary decoded JSON document, removes every value
// under a recognized graphic-bearing key, and returns the sanitized copy
// plus the decoded packets. Values under a graphic key that no decode rule
// recognizes are dropped silently; a graphic the system cannot parse is not
// worth preserving. The input document is never mutated.
func Extract(doc any, graphicKeys []string) (any, []Packet) {
	if len(graphicKeys) == 0 {
		graphicKeys = DefaultGraphicKeys
	}
	keySet := make(map[string]struct{}, len(graphicKeys))
	for _, k := range graphicKeys {
		keySet[k] = struct{}{}
	}

	var packets []Packet
	sanitized := walk(doc, "", keySet, &packets)
	return sanitized, packets
}

func walk(v any, fieldPath string, keySet map[string]struct{}, packets *[]Packet) any {
	switch node := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(node))
		for key, val := range node {
			childPath := key
			if fieldPath != "" {
				childPath = fieldPath + "." + key
			}
			if _, graphic := keySet[key]; graphic {
				if p, ok := Decode(val); ok {
					p.FieldPath = childPath
					*packets = append(*packets, p)
				}
				// Recognized or not, the key never survives sanitization.
				continue
			}
			out[key] = walk(val, childPath, keySet, packets)
		}
		return out
	case []any:
		out := make([]any, len(node))
		for i, item := range node {
			out[i] = walk(item, fieldPath, keySet, packets)
		}
		return out
	default:
		return v
	}
}
