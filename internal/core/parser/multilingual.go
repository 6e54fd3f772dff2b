package parser

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/Lin-Jiong-HDU/nlsh/internal/core/directive"
)

// template maps a verb+object pattern onto a file operation.
type template struct {
	op      string
	pattern *regexp.Regexp
	// content and file are submatch indexes; content 0 means none.
	content int
	file    int
}

// Arabic templates. Write comes first because its phrasing also names a file.
var arabicTemplates = []template{
	{
		op:      directive.OpWrite,
		pattern: regexp.MustCompile(`(?:اكتب|أكتب|إكتب)\s+(.+?)\s+(?:في|إلى|الى|داخل)\s+(?:(?:ال)?ملف\s+)?(\S+)`),
		content: 1,
		file:    2,
	},
	{
		op:      directive.OpAppend,
		pattern: regexp.MustCompile(`(?:أضف|اضف|إضف)\s+(.+?)\s+(?:إلى|الى|في)\s+(?:(?:ال)?ملف\s+)?(\S+)`),
		content: 1,
		file:    2,
	},
	{
		op:      directive.OpRead,
		pattern: regexp.MustCompile(`(?:اقرأ|إقرأ|أقرأ|اقرا|اعرض|أعرض|إعرض)\s+(?:محتوى\s+|محتويات\s+)?(?:(?:ال)?ملف\s+)?(\S+)`),
		file:    1,
	},
	{
		op:      directive.OpDelete,
		pattern: regexp.MustCompile(`(?:احذف|إحذف|أحذف|امسح|إمسح)\s+(?:(?:ال)?ملف\s+)?(\S+)`),
		file:    1,
	},
	{
		op:      directive.OpCreate,
		pattern: regexp.MustCompile(`(?:أنشئ|انشئ|إنشئ|اصنع)\s+(?:(?:ال)?ملف\s+)?(?:جديد\s+)?(?:باسم\s+)?(\S+)`),
		file:    1,
	},
}

// MatchMultilingual recognises write, append, read, delete and create
// requests phrased in Arabic and synthesizes the equivalent command.
func MatchMultilingual(text string) (Candidate, bool) {
	if !containsScript(text, unicode.Arabic) {
		return Candidate{}, false
	}

	for _, t := range arabicTemplates {
		m := t.pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		params := map[string]any{"filename": trimFilename(m[t.file])}
		if t.content > 0 {
			params["content"] = trimQuotes(m[t.content])
		}
		cmd, ok := directive.Synthesize(t.op, params)
		if !ok {
			continue
		}
		return Candidate{Directive: directive.NewShell(cmd, "", nil, ConfidenceMultilingual), Language: "ar"}, true
	}
	return Candidate{}, false
}

func containsScript(s string, table *unicode.RangeTable) bool {
	for _, r := range s {
		if unicode.Is(table, r) {
			return true
		}
	}
	return false
}

func trimFilename(s string) string {
	return strings.TrimRight(trimQuotes(s), ".,!?؟،؛")
}

func trimQuotes(s string) string {
	return strings.Trim(strings.TrimSpace(s), `"'«»“”`+"`")
}
