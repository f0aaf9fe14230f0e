// Package template provides per-target command templating for adfleet.
package template

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"adfleet/internal/target"
)

// PredefinedTemplates are commands shipped with the tool
var PredefinedTemplates = map[string]string{
	"ping-name":  "Write-Output {{ .Name }}",
	"check-dns":  "Resolve-DnsName {{ .Address }}",
	"tag-banner": "Write-Output 'managed host {{ lower .Name }}'",
}

// Context is the data available to command templates
type Context struct {
	Name    string
	Address string
	Domain  string
}

// Engine renders command templates against a target context
type Engine struct {
	domain    string
	templates map[string]*template.Template
}

// NewEngine creates a template engine for the session domain
func NewEngine(domain string) *Engine {
	return &Engine{
		domain:    domain,
		templates: make(map[string]*template.Template),
	}
}

// LoadPredefined registers the shipped templates
func (e *Engine) LoadPredefined() error {
	for name, body := range PredefinedTemplates {
		if err := e.Register(name, body); err != nil {
			return err
		}
	}
	return nil
}

// Register parses and stores a named template
func (e *Engine) Register(name, body string) error {
	tmpl, err := template.New(name).Funcs(templateFuncs()).Parse(body)
	if err != nil {
		return fmt.Errorf("failed to parse template '%s': %w", name, err)
	}
	e.templates[name] = tmpl
	return nil
}

// Execute renders a named template for one target
func (e *Engine) Execute(name string, t target.Target) (string, error) {
	tmpl, exists := e.templates[name]
	if !exists {
		return "", fmt.Errorf("template '%s' not found", name)
	}
	return render(tmpl, e.context(t))
}

// ExecuteInline renders an inline template string for one target
func (e *Engine) ExecuteInline(body string, t target.Target) (string, error) {
	tmpl, err := template.New("inline").Funcs(templateFuncs()).Parse(body)
	if err != nil {
		return "", fmt.Errorf("failed to parse inline template: %w", err)
	}
	return render(tmpl, e.context(t))
}

// IsTemplate reports whether a command contains template syntax
func IsTemplate(command string) bool {
	return strings.Contains(command, "{{") && strings.Contains(command, "}}")
}

func (e *Engine) context(t target.Target) Context {
	return Context{Name: t.Name, Address: t.Address, Domain: e.domain}
}

func render(tmpl *template.Template, ctx Context) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, ctx); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}

func templateFuncs() template.FuncMap {
	titleCaser := cases.Title(language.English)
	return template.FuncMap{
		"upper": strings.ToUpper,
		"lower": strings.ToLower,
		"title": titleCaser.String,
		"short": func(s string) string {
			if idx := strings.Index(s, "."); idx > 0 {
				return s[:idx]
			}
			return s
		},
	}
}
