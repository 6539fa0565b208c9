package export

import (
	"html/template"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"pagebuilder/api/internal/layout"
)

// declarations turns a style mapping into inline CSS. Keys are converted from
// camelCase to kebab-case; keys or values that could escape the declaration
// are dropped.
func declarations(style layout.Style, root bool) template.CSS {
	position := "absolute"
	if root {
		position = "relative"
	}
	parts := []string{"position: " + position}

	keys := make([]string, 0, len(style))
	for key := range style {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if key == "position" {
			continue
		}
		property, ok := cssProperty(key)
		if !ok {
			continue
		}
		value, ok := cssValue(style[key])
		if !ok {
			continue
		}
		parts = append(parts, property+": "+value)
	}
	return template.CSS(strings.Join(parts, "; "))
}

func cssProperty(key string) (string, bool) {
	if key == "" {
		return "", false
	}
	var b strings.Builder
	for i, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r == '-':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			if i > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(unicode.ToLower(r))
		case r >= '0' && r <= '9' && i > 0:
			b.WriteRune(r)
		default:
			return "", false
		}
	}
	return b.String(), true
}

func cssValue(raw any) (string, bool) {
	var value string
	switch v := raw.(type) {
	case string:
		value = strings.TrimSpace(v)
	case float64:
		value = strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		value = strconv.Itoa(v)
	case bool:
		value = strconv.FormatBool(v)
	default:
		return "", false
	}
	if value == "" || len(value) > 256 {
		return "", false
	}
	if strings.ContainsAny(value, ";{}<>\"\\`") {
		return "", false
	}
	lower := strings.ToLower(value)
	for _, banned := range []string{"expression(", "url(", "javascript:", "@import"} {
		if strings.Contains(lower, banned) {
			return "", false
		}
	}
	return value, true
}
