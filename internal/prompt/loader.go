package prompt

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/Lin-Jiong-HDU/nlsh/internal/platform"
)

// Template is a system prompt override loaded from disk.
type Template struct {
	Name        string `yaml:"name"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Body        string `yaml:"-"`
}

// Loader reads prompt overrides from a directory of markdown files with an
// optional YAML front matter block.
type Loader struct {
	dir string
}

// NewLoader creates a loader for dir.
func NewLoader(dir string) *Loader {
	return &Loader{dir: dir}
}

// Load reads <dir>/<name>.md.
func (l *Loader) Load(name string) (*Template, error) {
	content, err := os.ReadFile(filepath.Join(l.dir, name+".md"))
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt: %w", err)
	}
	t, err := Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("prompt %s: %w", name, err)
	}
	if t.Name == "" {
		t.Name = name
	}
	return t, nil
}

// Parse splits the front matter from the body.
func Parse(content string) (*Template, error) {
	trimmed := strings.TrimLeft(content, "\ufeff \t\r\n")
	if !strings.HasPrefix(trimmed, "---") {
		return &Template{Body: strings.TrimSpace(content)}, nil
	}
	parts := strings.SplitN(trimmed, "---", 3)
	if len(parts) < 3 {
		return &Template{Body: strings.TrimSpace(content)}, nil
	}

	t := &Template{}
	if err := yaml.Unmarshal([]byte(parts[1]), t); err != nil {
		return nil, fmt.Errorf("front matter: %w", err)
	}
	t.Body = strings.TrimSpace(parts[2])
	return t, nil
}

// System renders the named override for the host, or the built-in prompt
// when the file does not exist.
func (l *Loader) System(name string, info platform.Info) (string, error) {
	if l == nil || l.dir == "" || name == "" {
		return System(info), nil
	}
	t, err := l.Load(name)
	if errors.Is(err, os.ErrNotExist) {
		return System(info), nil
	}
	if err != nil {
		return "", err
	}
	tmpl, err := template.New(t.Name).Parse(t.Body)
	if err != nil {
		return "", fmt.Errorf("prompt %s: %w", t.Name, err)
	}
	return render(tmpl, info)
}
