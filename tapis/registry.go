package tapis

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/tapis-project/tapis-go/internal/loader"
	"github.com/tapis-project/tapis-go/internal/model"
)

// Aliases exposing the descriptor and loader types to callers.
type (
	Operation = model.Operation
	Parameter = model.Parameter
	Spec      = model.Spec
	Source    = loader.Source
	Loader    = loader.Loader
)

// Resource is the set of operations declared by one service's specification.
type Resource struct {
	Name       string
	Info       model.Info
	operations map[string]*model.Operation
}

// Operation returns the descriptor registered under id.
func (r *Resource) Operation(id string) (*model.Operation, bool) {
	op, ok := r.operations[id]
	return op, ok
}

// OperationIDs returns the registered operation-ids, sorted.
func (r *Resource) OperationIDs() []string {
	ids := make([]string, 0, len(r.operations))
	for id := range r.operations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Spec rebuilds a specification from the registered operations, ordered by
// operation-id.
func (r *Resource) Spec() *model.Spec {
	spec := &model.Spec{Info: r.Info}
	for _, id := range r.OperationIDs() {
		spec.Operations = append(spec.Operations, *r.operations[id])
	}
	return spec
}

// Registry maps resource names to their operations. It is built once and
// read concurrently afterwards.
type Registry struct {
	resources map[string]*Resource
	logger    *zap.Logger
}

func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		resources: make(map[string]*Resource),
		logger:    logger,
	}
}

// LoadRegistry loads every source and registers its operations. A source
// that cannot be loaded fails the whole registry.
func LoadRegistry(ctx context.Context, l *loader.Loader, sources []loader.Source) (*Registry, error) {
	reg := NewRegistry(l.Logger)
	for _, src := range sources {
		result, err := l.Load(ctx, src)
		if err != nil {
			return nil, err
		}
		spec, err := loader.Transform(result)
		if err != nil {
			return nil, &loader.SpecLoadError{Resource: src.Name, Origin: result.Origin, Err: err}
		}
		reg.Add(src.Name, spec)
	}
	return reg, nil
}

// Add registers one resource, replacing any resource of the same name.
// Operations without an operation-id are skipped; a repeated operation-id
// replaces the earlier declaration.
func (r *Registry) Add(name string, spec *model.Spec) *Resource {
	log := r.logger.With(zap.String("resource", name))
	res := &Resource{
		Name:       name,
		Info:       spec.Info,
		operations: make(map[string]*model.Operation, len(spec.Operations)),
	}

	for i := range spec.Operations {
		op := spec.Operations[i]
		if op.ID == "" {
			log.Warn("Skipping operation without operationId",
				zap.String("method", string(op.Method)), zap.String("path", op.Path))
			continue
		}
		if prev, ok := res.operations[op.ID]; ok {
			log.Warn("Duplicate operationId, later declaration wins",
				zap.String("operation", op.ID),
				zap.String("previous", fmt.Sprintf("%s %s", prev.Method, prev.Path)),
				zap.String("current", fmt.Sprintf("%s %s", op.Method, op.Path)))
		}
		res.operations[op.ID] = &op
	}

	r.resources[name] = res
	log.Debug("Registered resource", zap.Int("operations", len(res.operations)))
	return res
}

// Resource returns the named resource.
func (r *Registry) Resource(name string) (*Resource, bool) {
	res, ok := r.resources[name]
	return res, ok
}

// Names returns the registered resource names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.resources))
	for name := range r.resources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup resolves resource and operation in one step.
func (r *Registry) Lookup(resource, operationID string) (*model.Operation, error) {
	res, ok := r.Resource(resource)
	if !ok {
		return nil, invalidInput("unknown resource %q", resource)
	}
	op, ok := res.Operation(operationID)
	if !ok {
		return nil, invalidInput("resource %q has no operation %q", resource, operationID)
	}
	return op, nil
}
