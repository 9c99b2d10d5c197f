package extractor

import "regexp"

// extractAssignedJSON finds the first occurrence of marker in html and
// returns the balanced JSON object that follows it. Returns "" when the
// marker is absent or no object opens after it.
//
// Inline state blobs regularly exceed a megabyte and embed "};" inside
// string values, so a brace scanner that understands strings and escapes is
// used instead of a non-greedy regex over the whole body.
func extractAssignedJSON(html string, marker *regexp.Regexp) string {
	loc := marker.FindStringIndex(html)
	if loc == nil {
		return ""
	}

	i := loc[1]
	for i < len(html) && (html[i] == ' ' || html[i] == '\t' || html[i] == '\n' || html[i] == '\r') {
		i++
	}
	if i >= len(html) || html[i] != '{' {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for j := i; j < len(html); j++ {
		c := html[j]
		switch {
		case escaped:
			escaped = false
		case inString:
			if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
		case c == '"':
			inString = true
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return html[i : j+1]
			}
		}
	}

	return ""
}
