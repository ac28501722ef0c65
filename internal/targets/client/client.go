package client

import (
	"strings"

	"github.com/tapis-project/tapis-go/internal/golang"
	"github.com/tapis-project/tapis-go/internal/model"
	"github.com/tapis-project/tapis-go/internal/templates"
)

const templateName = "go/resource.tmpl"

// requestBodyArg is the argument carrying an opaque JSON body.
const requestBodyArg = "request_body"

// Target renders one typed wrapper per resource over tapis.Client.Invoke.
type Target struct {
	namer *golang.Namer
}

// New returns a Target naming identifiers with namer; the default
// initialisms when nil.
func New(namer *golang.Namer) *Target {
	if namer == nil {
		namer = golang.NewNamer()
	}
	return &Target{namer: namer}
}

func (t *Target) Name() string {
	return "client"
}

type templateData struct {
	Package    string
	Resource   string
	ClientName string
	Title      string
	Version    string
	Operations []operationData
}

type operationData struct {
	ID          string
	MethodName  string
	ParamsType  string
	Method      string
	Path        string
	Summary     string
	Deprecated  bool
	Unsupported bool
	PathParams  []parameterData
	Fields      []fieldData
	HasParams   bool
}

type parameterData struct {
	Name    string
	VarName string
	Type    string
}

type fieldData struct {
	Name        string
	GoName      string
	Type        string
	Description string
	Pointer     bool
	Nilable     bool
}

// methodVars are the identifiers a generated method declares itself.
var methodVars = map[string]bool{"c": true, "ctx": true, "params": true, "args": true, "extra": true, "e": true, "k": true, "v": true}

func (t *Target) Generate(engine templates.Engine, spec *model.Spec, resource, pkg string) (string, error) {
	data := templateData{
		Package:    pkg,
		Resource:   resource,
		ClientName: t.namer.ToGoIdentifier(resource) + "Client",
		Title:      spec.Info.Title,
		Version:    spec.Info.Version,
	}

	seen := make(map[string]int)
	for i := range spec.Operations {
		op := &spec.Operations[i]
		if op.ID == "" {
			continue
		}
		// A repeated operation-id keeps its last declaration, as the registry does.
		if idx, ok := seen[op.ID]; ok {
			data.Operations[idx] = t.buildOperation(op)
			continue
		}
		seen[op.ID] = len(data.Operations)
		data.Operations = append(data.Operations, t.buildOperation(op))
	}

	return engine.Execute(templateName, data)
}

func (t *Target) buildOperation(op *model.Operation) operationData {
	name := t.namer.ToGoIdentifier(op.ID)
	od := operationData{
		ID:         op.ID,
		MethodName: name,
		ParamsType: name + "Params",
		Method:     string(op.Method),
		Path:       op.Path,
		Summary:    strings.TrimSpace(op.Summary),
		Deprecated: op.Deprecated,
	}

	taken := make(map[string]bool, len(methodVars))
	for k := range methodVars {
		taken[k] = true
	}
	for _, p := range op.PathParameters() {
		v := t.namer.ParamName(p.Name, taken)
		taken[v] = true
		od.PathParams = append(od.PathParams, parameterData{Name: p.Name, VarName: v, Type: "string"})
	}

	fields := newFieldSet(t.namer)
	for _, p := range op.Parameters {
		if p.In != model.LocationQuery && p.In != model.LocationHeader {
			continue
		}
		fields.add(p.Name, p.Schema, p.Description, p.Required)
	}

	if op.RequestBody != nil {
		content := op.RequestBody.Find(isJSON)
		switch {
		case content == nil:
			od.Unsupported = len(op.RequestBody.Content) > 0
		case content.Schema == nil || len(content.Schema.Properties) == 0:
			fields.addNamed(requestBodyArg, "RequestBody", nil, "Body is sent as the JSON request body.", op.RequestBody.Required)
		default:
			for _, prop := range content.Schema.Properties {
				desc := ""
				if prop.Schema != nil {
					desc = prop.Schema.Description
				}
				fields.add(prop.Name, prop.Schema, desc, content.Schema.IsRequired(prop.Name))
			}
		}
	}

	od.Fields = fields.list
	od.HasParams = len(od.Fields) > 0
	return od
}

func isJSON(mediaType string) bool {
	mt, _, _ := strings.Cut(mediaType, ";")
	mt = strings.TrimSpace(mt)
	return mt == "application/json" || mt == "*/*" || strings.HasSuffix(mt, "+json")
}

// fieldSet deduplicates params-struct fields by argument name and Go name.
type fieldSet struct {
	namer   *golang.Namer
	list    []fieldData
	args    map[string]bool
	goNames map[string]bool
}

func newFieldSet(namer *golang.Namer) *fieldSet {
	return &fieldSet{namer: namer, args: make(map[string]bool), goNames: make(map[string]bool)}
}

func (s *fieldSet) add(name string, schema *model.Schema, description string, required bool) {
	s.addNamed(name, s.namer.ToGoIdentifier(name), schema, description, required)
}

func (s *fieldSet) addNamed(name, goName string, schema *model.Schema, description string, required bool) {
	if s.args[name] {
		return
	}
	for s.goNames[goName] {
		goName += "_"
	}
	s.args[name] = true
	s.goNames[goName] = true

	typ := golang.GoType(schema)
	nilable := golang.IsNilable(typ)
	s.list = append(s.list, fieldData{
		Name:        name,
		GoName:      goName,
		Type:        typ,
		Description: description,
		Pointer:     !required && !nilable,
		Nilable:     !required && nilable,
	})
}
