// Package prompt builds the instructions sent to the AI provider.
package prompt

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/Lin-Jiong-HDU/nlsh/internal/platform"
)

const defaultSystem = `You translate requests into shell commands for {{.Platform}}.

Answer with exactly one JSON object and nothing else. Use one of these shapes:

1. A single command:
   {"command": "ls -la", "explanation": "list files", "alternatives": ["ls -l"], "confidence": 0.9}

2. A file operation, when the request only creates, reads, writes, appends to, deletes, searches or lists files:
   {"file_operation": "create|read|write|append|delete|search|list",
    "operation_params": {"filename": "notes.txt", "content": "text", "directory": ".", "pattern": "*.go", "recursive": false, "force": false}}

3. Information, when the user asks a question that needs no command:
   {"info_type": "topic", "content": "markdown answer", "related_command": "optional command"}

4. An error, when the request cannot be done safely or at all:
   {"error": "why not", "suggested_approach": "what to do instead"}

5. A plan, when several commands must run in order and each depends on the previous one:
   {"plan": [{"description": "step", "operation": "shell", "parameters": {"command": "mkdir out"}}], "overall_confidence": 0.8}

Rules:
- Commands must run in {{if .Shell}}{{.Shell}} compatible {{end}}POSIX sh on {{.OS}}.
- Prefer one command over a plan.
- Never use sudo unless the user asks for it.
- Quote file names that contain spaces.
- Do not wrap the JSON in markdown fences.`

// Data is what system prompt templates can reference.
type Data struct {
	Platform string
	OS       string
	Distro   string
	Version  string
	Shell    string
}

func dataFor(info platform.Info) Data {
	return Data{
		Platform: info.String(),
		OS:       info.OSName,
		Distro:   info.Distro,
		Version:  info.OSVersion,
		Shell:    info.Shell,
	}
}

var defaultTemplate = template.Must(template.New("system").Parse(defaultSystem))

// System returns the built-in system prompt for the host.
func System(info platform.Info) string {
	out, err := render(defaultTemplate, info)
	if err != nil {
		// The built-in template only references fields of Data.
		panic(err)
	}
	return out
}

func render(tmpl *template.Template, info platform.Info) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, dataFor(info)); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}

// User wraps the request text.
func User(request string) string {
	return "Request: " + request
}
