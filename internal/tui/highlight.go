package tui

import (
	"strconv"
	"strings"
)

// colorizeJSON highlights a JSON text token by token. Whitespace is kept as
// is, so indented output stays aligned.
func colorizeJSON(src string) string {
	var b strings.Builder
	b.Grow(len(src) * 2)
	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			b.WriteByte(c)
			i++
		case c == '"':
			end := stringEnd(src, i)
			tok := src[i:end]
			if isObjectKey(src, end) {
				b.WriteString(styleDocKey.Render(tok))
			} else {
				b.WriteString(styleDocString.Render(tok))
			}
			i = end
		case strings.IndexByte("{}[],:", c) >= 0:
			b.WriteString(styleDocPunct.Render(string(c)))
			i++
		default:
			end := i
			for end < len(src) && strings.IndexByte(" \t\r\n{}[],:\"", src[end]) < 0 {
				end++
			}
			b.WriteString(scalarStyle(src[i:end]))
			i = end
		}
	}
	return b.String()
}

// stringEnd returns the index just past the string literal starting at i.
// An unterminated literal runs to the end of src.
func stringEnd(src string, i int) int {
	for j := i + 1; j < len(src); j++ {
		switch src[j] {
		case '\\':
			j++
		case '"':
			return j + 1
		}
	}
	return len(src)
}

func isObjectKey(src string, i int) bool {
	for ; i < len(src); i++ {
		switch src[i] {
		case ' ', '\t':
			continue
		case ':':
			return true
		}
		return false
	}
	return false
}

// scalarStyle renders a bare JSON or YAML scalar.
func scalarStyle(tok string) string {
	switch tok {
	case "true", "false":
		return styleDocBool.Render(tok)
	case "null", "~":
		return styleDocNull.Render(tok)
	}
	if _, err := strconv.ParseFloat(tok, 64); err == nil {
		return styleDocNumber.Render(tok)
	}
	return styleDocString.Render(tok)
}

// colorizeYAML highlights block-style YAML as produced from JSON documents.
func colorizeYAML(src string) string {
	lines := strings.Split(src, "\n")
	for i, line := range lines {
		lines[i] = colorizeYAMLLine(line)
	}
	return strings.Join(lines, "\n")
}

func colorizeYAMLLine(line string) string {
	body := strings.TrimLeft(line, " ")
	var b strings.Builder
	b.WriteString(line[:len(line)-len(body)])

	// Sequence markers, possibly nested ("- - a").
	for body == "-" || strings.HasPrefix(body, "- ") {
		b.WriteString(styleDocPunct.Render("-"))
		if body == "-" {
			return b.String()
		}
		b.WriteByte(' ')
		body = body[2:]
	}
	if body == "" {
		return b.String()
	}

	if key, value, ok := splitYAMLKey(body); ok {
		b.WriteString(styleDocKey.Render(key))
		b.WriteString(styleDocPunct.Render(":"))
		if value != "" {
			b.WriteByte(' ')
			b.WriteString(yamlScalar(value))
		}
		return b.String()
	}
	b.WriteString(yamlScalar(body))
	return b.String()
}

// splitYAMLKey splits "key: value" and "key:" lines. Quoted keys are
// honoured so a colon inside quotes does not split.
func splitYAMLKey(s string) (key, value string, ok bool) {
	start := 0
	if s[0] == '"' || s[0] == '\'' {
		end := strings.IndexByte(s[1:], s[0])
		if end < 0 {
			return "", "", false
		}
		start = end + 2
	}
	rest := s[start:]
	if i := strings.Index(rest, ": "); i >= 0 {
		return s[:start+i], rest[i+2:], true
	}
	if strings.HasSuffix(rest, ":") {
		return s[:len(s)-1], "", true
	}
	return "", "", false
}

func yamlScalar(s string) string {
	switch {
	case s[0] == '"' || s[0] == '\'':
		return styleDocString.Render(s)
	case s == "{}" || s == "[]" || s == "|" || s == "|-":
		return styleDocPunct.Render(s)
	}
	return scalarStyle(s)
}
