package debate

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Reply is a parsed structured agent reply of the form [agree, message].
type Reply struct {
	Agree   bool
	Message string
	// Structured is false when the reply could not be parsed and the
	// heuristic fallback was used; Message is then the raw text.
	Structured bool
}

// heuristicWindow is how much of an unparseable reply is scanned for a
// true/false verdict.
const heuristicWindow = 200

var (
	codeFencePattern = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*\n?(.*?)\n?```")
	pyPairPattern    = regexp.MustCompile(`(?s)^\[\s*(True|False|true|false)\s*,\s*(.*?)\s*,?\s*\]$`)
)

// quoteReplacements maps typographic quotes that models like to emit onto
// their ASCII equivalents.
var quoteReplacements = strings.NewReplacer(
	"“", `"`, // left double quotation mark
	"”", `"`, // right double quotation mark
	"„", `"`, // double low-9 quotation mark
	"‟", `"`, // double high-reversed-9 quotation mark
	"＂", `"`, // fullwidth quotation mark
	"‘", `'`, // left single quotation mark
	"’", `'`, // right single quotation mark
	"‚", `'`, // single low-9 quotation mark
	"‛", `'`, // single high-reversed-9 quotation mark
)

// ParseReply extracts [agree, message] from a model reply.
//
// It tries, in order: the reply as a JSON array; the reply with code fences
// stripped and typographic quotes normalised; a Python-style literal
// (True/False, single- or triple-quoted strings). When all of these fail,
// agree is true only if "true" and not "false" appears near the start, and
// the message is the raw reply.
func ParseReply(text string) Reply {
	raw := strings.TrimSpace(text)

	if r, ok := parseJSONPair(raw); ok {
		return r
	}

	cleaned := raw
	if m := codeFencePattern.FindStringSubmatch(cleaned); len(m) > 1 {
		cleaned = strings.TrimSpace(m[1])
	}
	if r, ok := parseJSONPair(cleaned); ok {
		return r
	}

	normalised := quoteReplacements.Replace(cleaned)
	if r, ok := parseJSONPair(normalised); ok {
		return r
	}
	if r, ok := parsePythonPair(normalised); ok {
		return r
	}

	head := strings.ToLower(cleaned)
	if len(head) > heuristicWindow {
		head = head[:heuristicWindow]
	}
	hasTrue := strings.Contains(head, "true")
	hasFalse := strings.Contains(head, "false")
	return Reply{
		Agree:   hasTrue && !hasFalse,
		Message: raw,
	}
}

func parseJSONPair(s string) (Reply, bool) {
	if !strings.HasPrefix(s, "[") {
		return Reply{}, false
	}
	var parts []json.RawMessage
	if err := json.Unmarshal([]byte(s), &parts); err != nil || len(parts) != 2 {
		return Reply{}, false
	}
	var agree bool
	var msg string
	if err := json.Unmarshal(parts[0], &agree); err != nil {
		return Reply{}, false
	}
	if err := json.Unmarshal(parts[1], &msg); err != nil {
		return Reply{}, false
	}
	return Reply{Agree: agree, Message: msg, Structured: true}, true
}

func parsePythonPair(s string) (Reply, bool) {
	m := pyPairPattern.FindStringSubmatch(s)
	if m == nil {
		return Reply{}, false
	}
	msg, ok := unquotePython(m[2])
	if !ok {
		return Reply{}, false
	}
	return Reply{Agree: strings.EqualFold(m[1], "true"), Message: msg, Structured: true}, true
}

// unquotePython decodes a single Python string literal: '...', "...",
// '''...''' or """...""", with the common backslash escapes.
func unquotePython(lit string) (string, bool) {
	var body string
	// quote may not appear unescaped in body; zero for triple-quoted literals.
	var quote rune
	switch {
	case len(lit) >= 6 && (strings.HasPrefix(lit, `"""`) && strings.HasSuffix(lit, `"""`) ||
		strings.HasPrefix(lit, `'''`) && strings.HasSuffix(lit, `'''`)):
		body = lit[3 : len(lit)-3]
	case len(lit) >= 2 && (lit[0] == '"' || lit[0] == '\'') && lit[len(lit)-1] == lit[0]:
		body = lit[1 : len(lit)-1]
		quote = rune(lit[0])
	default:
		return "", false
	}

	var sb strings.Builder
	escaped := false
	for _, r := range body {
		if !escaped {
			if r == '\\' {
				escaped = true
				continue
			}
			if r == quote {
				return "", false
			}
			sb.WriteRune(r)
			continue
		}
		escaped = false
		switch r {
		case 'n':
			sb.WriteRune('\n')
		case 't':
			sb.WriteRune('\t')
		case 'r':
			sb.WriteRune('\r')
		case '\\', '\'', '"':
			sb.WriteRune(r)
		default:
			sb.WriteRune('\\')
			sb.WriteRune(r)
		}
	}
	if escaped {
		sb.WriteRune('\\')
	}
	return sb.String(), true
}
