package templates

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"text/template"
)

type Engine interface {
	Execute(name string, data any) (string, error)
}

// TextTemplateEngine renders *.tmpl files from a bundled FS. Templates in an
// optional override directory replace bundled ones of the same name.
type TextTemplateEngine struct {
	templates *template.Template
	funcs     template.FuncMap
}

func NewEngine(bundled fs.FS, overrideDir string, funcs template.FuncMap) (*TextTemplateEngine, error) {
	e := &TextTemplateEngine{
		templates: template.New("").Funcs(funcs),
		funcs:     funcs,
	}
	if err := e.loadFS(bundled, "bundled"); err != nil {
		return nil, err
	}
	if overrideDir != "" {
		if _, err := os.Stat(overrideDir); err != nil {
			return nil, fmt.Errorf("template directory: %w", err)
		}
		if err := e.loadFS(os.DirFS(overrideDir), "custom"); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func (e *TextTemplateEngine) loadFS(fsys fs.FS, kind string) error {
	err := fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".tmpl") {
			return nil
		}
		content, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("reading %s template %s: %w", kind, path, err)
		}
		if _, err := e.templates.New(path).Parse(string(content)); err != nil {
			return fmt.Errorf("parsing %s template %s: %w", kind, path, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("loading %s templates: %w", kind, err)
	}
	return nil
}

func (e *TextTemplateEngine) Execute(name string, data any) (string, error) {
	tmpl := e.templates.Lookup(name)
	if tmpl == nil {
		return "", fmt.Errorf("template not found: %s", name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing template %s: %w", name, err)
	}

	return buf.String(), nil
}
