package codegen

import (
	"fmt"
	"go/token"

	"github.com/tapis-project/tapis-go/internal/golang"
	"github.com/tapis-project/tapis-go/internal/model"
	"github.com/tapis-project/tapis-go/internal/targets/client"
	"github.com/tapis-project/tapis-go/internal/templates"
	embeddedtmpl "github.com/tapis-project/tapis-go/templates"
)

type Options struct {
	Package string
	// TemplatesDir overrides bundled templates of the same name.
	TemplatesDir string
	// Initialisms extend the default set for this generator only.
	Initialisms []string
}

type Generator struct {
	options Options
	engine  templates.Engine
	target  *client.Target
}

type Output struct {
	Filename string
	Content  string
}

func New(opts Options) (*Generator, error) {
	if !token.IsIdentifier(opts.Package) {
		return nil, fmt.Errorf("invalid package name %q", opts.Package)
	}
	namer := golang.NewNamer(opts.Initialisms...)

	engine, err := templates.NewEngine(embeddedtmpl.FS, opts.TemplatesDir, golang.TemplateFuncs(namer))
	if err != nil {
		return nil, fmt.Errorf("creating template engine: %w", err)
	}

	return &Generator{
		options: opts,
		engine:  engine,
		target:  client.New(namer),
	}, nil
}

// Generate renders the typed wrapper for one resource.
func (g *Generator) Generate(resource string, spec *model.Spec) (Output, error) {
	filename := golang.SnakeFile(resource)

	content, err := g.target.Generate(g.engine, spec, resource, g.options.Package)
	if err != nil {
		return Output{}, fmt.Errorf("generating %s: %w", resource, err)
	}
	formatted, err := golang.Format(filename, []byte(content))
	if err != nil {
		return Output{}, err
	}
	return Output{Filename: filename, Content: string(formatted)}, nil
}
