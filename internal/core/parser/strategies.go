package parser

import (
	"path"
	"regexp"
	"strings"

	"github.com/Lin-Jiong-HDU/nlsh/internal/core/directive"
)

var (
	// refusalPattern matches first-person refusals at the start of a reply.
	refusalPattern = regexp.MustCompile(`(?i)^\s*(?:(?:i'm sorry|i am sorry|sorry|unfortunately|i apologi[sz]e)[^a-z]*)?(?:but\s+)?i(?:'m|’m| am)?\s+(?:cannot|can't|can’t|can not|won't|won’t|will not|unable to|not able to|must decline)\b`)

	jsonFencePattern = regexp.MustCompile("(?is)```json[^\\n]*\\n(.*?)```")
	backtickPattern  = regexp.MustCompile("`([^`\\n]+)`")
	cuePattern       = regexp.MustCompile(`(?im)\b(?:you can run|you could run|you can use|try running|try this|execute this|execute|run the following command|run the following|run this command|run this|run|use this command|use the command|the command is|command)\s*:[ \t]*(.*)$`)
)

// MatchRefusal short-circuits on explicit errors and refusals, unless the
// reply also carries a fenced block or a JSON object.
func MatchRefusal(text string) (Candidate, bool) {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "{") || strings.Contains(trimmed, "```") {
		return Candidate{}, false
	}

	if len(trimmed) >= 6 && strings.EqualFold(trimmed[:6], "ERROR:") {
		msg := strings.TrimSpace(trimmed[6:])
		if msg == "" {
			msg = "model reported an error"
		}
		return Candidate{Directive: directive.NewError(msg, "")}, true
	}

	if refusalPattern.MatchString(trimmed) {
		return Candidate{Directive: directive.NewError(firstLine(trimmed), "rephrase the request or run the task manually")}, true
	}
	return Candidate{}, false
}

// MatchJSON decodes a JSON object, either bare or inside a fenced block.
func MatchJSON(text string) (Candidate, bool) {
	for _, payload := range jsonCandidates(text) {
		d, err := directive.FromJSON([]byte(payload))
		if err == nil {
			return Candidate{Directive: d, Language: "json"}, true
		}
		// Tolerate prose or trailing commentary around the object.
		for _, obj := range embeddedObjects(payload) {
			if d, err := directive.FromJSON([]byte(obj)); err == nil {
				return Candidate{Directive: d, Language: "json"}, true
			}
			if d, err := directive.FromJSON([]byte(stripTrailingCommas(obj))); err == nil {
				return Candidate{Directive: d, Language: "json"}, true
			}
		}
	}
	return Candidate{}, false
}

// embeddedObjects returns the balanced object opening at the first brace,
// then the span from the first to the last brace.
func embeddedObjects(payload string) []string {
	start := strings.IndexByte(payload, '{')
	if start < 0 {
		return nil
	}
	var out []string
	if obj, ok := balancedObject(payload[start:]); ok {
		out = append(out, obj)
	}
	if end := strings.LastIndexByte(payload, '}'); end > start {
		out = append(out, payload[start:end+1])
	}
	return out
}

// balancedObject returns the prefix of s up to the brace that closes the one
// s starts with. Braces inside JSON strings are ignored.
func balancedObject(s string) (string, bool) {
	depth := 0
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return s[:i+1], true
			}
		}
	}
	return "", false
}

// stripTrailingCommas removes commas that directly precede a closing brace
// or bracket outside strings, a common slip in model-written JSON.
func stripTrailingCommas(s string) string {
	var sb strings.Builder
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case !inString && c == ',':
			j := i + 1
			for j < len(s) && strings.IndexByte(" \t\r\n", s[j]) >= 0 {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				continue
			}
		}
		sb.WriteByte(c)
	}
	return sb.String()
}

func jsonCandidates(text string) []string {
	trimmed := strings.TrimSpace(text)
	var out []string
	if strings.HasPrefix(trimmed, "{") {
		out = append(out, trimmed)
	}
	if m := jsonFencePattern.FindStringSubmatch(text); m != nil {
		out = append(out, strings.TrimSpace(m[1]))
	}
	if b, ok := firstFence(text); ok && strings.HasPrefix(strings.TrimSpace(b.body), "{") {
		out = append(out, strings.TrimSpace(b.body))
	}
	return out
}

type fence struct {
	lang string
	body string
}

// firstFence returns the first ``` block. An unterminated block runs to the
// end of the text.
func firstFence(text string) (fence, bool) {
	start := strings.Index(text, "```")
	if start < 0 {
		return fence{}, false
	}
	rest := text[start+3:]
	nl := strings.IndexByte(rest, '\n')
	if nl < 0 {
		// Single-line fence such as ```ls -la```.
		if end := strings.Index(rest, "```"); end >= 0 {
			return fence{body: rest[:end]}, true
		}
		return fence{}, false
	}
	lang := strings.ToLower(strings.TrimSpace(rest[:nl]))
	if f := strings.Fields(lang); len(f) > 0 {
		lang = f[0]
	}
	body := rest[nl+1:]
	if end := strings.Index(body, "```"); end >= 0 {
		body = body[:end]
	}
	return fence{lang: lang, body: body}, true
}

// MatchFenced takes the first command line of the first fenced block.
func MatchFenced(text string) (Candidate, bool) {
	b, ok := firstFence(text)
	if !ok || b.lang == "json" {
		return Candidate{}, false
	}
	cmd, ok := firstCommandLine(b.body)
	if !ok {
		return Candidate{}, false
	}
	return Candidate{Directive: directive.NewShell(cmd, "", nil, ConfidenceFenced), Language: b.lang}, true
}

// MatchBacktick accepts the first inline span that starts with a known
// command, so prose in backticks is not mistaken for a command.
func MatchBacktick(text string) (Candidate, bool) {
	for _, m := range backtickPattern.FindAllStringSubmatch(text, -1) {
		span := stripPrompt(strings.TrimSpace(m[1]))
		if span == "" {
			continue
		}
		if IsCommandPrefix(leadingWord(span)) {
			return Candidate{Directive: directive.NewShell(span, "", nil, ConfidenceBacktick)}, true
		}
	}
	return Candidate{}, false
}

// MatchCue captures the remainder of the line after an introductory phrase,
// or the next non-empty line when the phrase ends its line.
func MatchCue(text string) (Candidate, bool) {
	loc := cuePattern.FindStringSubmatchIndex(text)
	if loc == nil {
		return Candidate{}, false
	}
	cmd := cleanCue(text[loc[2]:loc[3]])
	if skippable(cmd) {
		cmd = ""
		for _, line := range strings.Split(text[loc[1]:], "\n") {
			if c := cleanCue(line); !skippable(c) {
				cmd = c
				break
			}
		}
	}
	if cmd == "" {
		return Candidate{}, false
	}
	return Candidate{Directive: directive.NewShell(cmd, "", nil, ConfidenceCue)}, true
}

// skippable reports lines that can never be a command: blank lines,
// comments and fence markers.
func skippable(line string) bool {
	return line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "```")
}

func cleanCue(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "`\"“”")
	return stripPrompt(strings.TrimSpace(s))
}

// MatchFallback uses the first non-empty, non-comment line, or the trimmed
// text itself when every line is a comment.
func MatchFallback(text string) (Candidate, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Candidate{}, false
	}
	if cmd, ok := firstCommandLine(text); ok {
		return Candidate{Directive: directive.NewShell(cmd, "", nil, ConfidenceFallback)}, true
	}
	return Candidate{Directive: directive.NewShell(trimmed, "", nil, ConfidenceRaw)}, true
}

// firstCommandLine returns the first non-empty line that is neither a
// comment nor a fence marker, joining backslash continuations.
func firstCommandLine(body string) (string, bool) {
	lines := strings.Split(body, "\n")
	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if skippable(line) {
			continue
		}
		for strings.HasSuffix(line, "\\") && i+1 < len(lines) {
			i++
			line = strings.TrimSpace(strings.TrimSuffix(line, "\\")) + " " + strings.TrimSpace(lines[i])
		}
		line = stripPrompt(line)
		if skippable(line) {
			continue
		}
		return line, true
	}
	return "", false
}

func stripPrompt(s string) string {
	if strings.HasPrefix(s, "$ ") {
		return strings.TrimSpace(s[2:])
	}
	return s
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}

// leadingWord returns the command word, looking through a leading sudo.
func leadingWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	w := fields[0]
	if w == "sudo" && len(fields) > 1 {
		w = fields[1]
	}
	return strings.ToLower(path.Base(w))
}
