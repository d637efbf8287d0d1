package search

import (
	"regexp"
	"strings"
)

var (
	// fencedBlock matches ```json ... ``` and bare ``` ... ``` blocks.
	fencedBlock = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)```")

	trailingComma = regexp.MustCompile(`,\s*([}\]])`)
)

// ExtractJSON returns the first balanced JSON object in content, or "".
// Fenced code blocks are preferred over surrounding prose; trailing commas
// are removed.
func ExtractJSON(content string) string {
	if m := fencedBlock.FindStringSubmatch(content); len(m) > 1 {
		if obj := firstObject(m[1]); obj != "" {
			return trailingComma.ReplaceAllString(obj, "$1")
		}
	}
	obj := firstObject(content)
	if obj == "" {
		return ""
	}
	return trailingComma.ReplaceAllString(obj, "$1")
}

// firstObject scans for the first '{' and returns the text up to its matching '}'.
// Braces inside string literals are ignored.
func firstObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
