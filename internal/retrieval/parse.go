package retrieval

import (
	"encoding/json"
	"strings"
)

// ExtractPathList pulls a JSON array of file paths out of a model reply.
// The reply is often wrapped in prose or markdown fences, so after a strict
// parse fails we scan for the first balanced bracket pair and retry on that
// slice. A reply with no recoverable list yields an empty slice, never an
// error; the caller treats that as "no more files wanted".
func ExtractPathList(reply string) []string {
	reply = strings.TrimSpace(reply)
	if paths := parsePathArray(reply); paths != nil {
		return paths
	}
	if inner := bracketSlice(reply); inner != "" {
		if paths := parsePathArray(inner); paths != nil {
			return paths
		}
	}
	return nil
}

func parsePathArray(s string) []string {
	var raw []any
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil
	}
	paths := make([]string, 0, len(raw))
	for _, v := range raw {
		p, ok := v.(string)
		if !ok {
			continue
		}
		p = strings.TrimSpace(p)
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

// bracketSlice returns the first balanced [...] span in s, or "".
func bracketSlice(s string) string {
	start := strings.Index(s, "[")
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
