package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrToolExists     = errors.New("tool already registered")
	ErrRegistrySealed = errors.New("registry is sealed")
	ErrInvalidTool    = errors.New("invalid tool")
)

// Args are the decoded arguments of a tools/call request.
type Args map[string]any

// Handler executes a tool. The returned value is JSON encoded into the
// call result.
type Handler func(ctx context.Context, args Args) (any, error)

// Param describes one tool parameter. A parameter with a nil Default is required.
type Param struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Default     any    `json:"default,omitempty"`
}

type Tool struct {
	Name        string
	Description string
	Params      map[string]Param
	Handler     Handler
}

type Resource struct {
	URI         string
	Name        string
	Description string
	MimeType    string
	Data        any
}

// Registry maps tool and resource names to their definitions. It is filled
// during backend construction, then sealed; after Seal it is read-only and
// may be shared without locking.
type Registry struct {
	tools     map[string]*Tool
	toolOrder []string
	resources map[string]*Resource
	resOrder  []string
	sealed    bool
}

func NewRegistry() *Registry {
	return &Registry{
		tools:     make(map[string]*Tool),
		resources: make(map[string]*Resource),
	}
}

// Register adds a tool. It fails on an empty name, a nil handler, a duplicate
// name or a sealed registry.
func (r *Registry) Register(t Tool) error {
	if r.sealed {
		return fmt.Errorf("%w: cannot register %s", ErrRegistrySealed, t.Name)
	}
	if t.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidTool)
	}
	if t.Handler == nil {
		return fmt.Errorf("%w: %s has no handler", ErrInvalidTool, t.Name)
	}
	if _, exists := r.tools[t.Name]; exists {
		return fmt.Errorf("%w: %s", ErrToolExists, t.Name)
	}
	for name, p := range t.Params {
		if p.Type == "" {
			return fmt.Errorf("%w: %s.%s has no type", ErrInvalidTool, t.Name, name)
		}
	}
	if t.Params == nil {
		t.Params = map[string]Param{}
	}
	r.tools[t.Name] = &t
	r.toolOrder = append(r.toolOrder, t.Name)
	return nil
}

// MustRegister is Register for static tool tables; it panics on error.
func (r *Registry) MustRegister(tools ...Tool) {
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
}

// AddResource adds a read-only resource served at resource://<name>.
func (r *Registry) AddResource(name string, data any, description, mimeType string) error {
	if r.sealed {
		return fmt.Errorf("%w: cannot add resource %s", ErrRegistrySealed, name)
	}
	if name == "" {
		return errors.New("resource name is empty")
	}
	if mimeType == "" {
		mimeType = "application/json"
	}
	uri := "resource://" + name
	if _, exists := r.resources[uri]; exists {
		return fmt.Errorf("resource already registered: %s", name)
	}
	r.resources[uri] = &Resource{URI: uri, Name: name, Description: description, MimeType: mimeType, Data: data}
	r.resOrder = append(r.resOrder, uri)
	return nil
}

func (r *Registry) Seal() { r.sealed = true }

func (r *Registry) Tool(name string) (*Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Tools returns the tools in registration order.
func (r *Registry) Tools() []*Tool {
	out := make([]*Tool, 0, len(r.toolOrder))
	for _, name := range r.toolOrder {
		out = append(out, r.tools[name])
	}
	return out
}

func (r *Registry) Resource(uri string) (*Resource, bool) {
	res, ok := r.resources[uri]
	return res, ok
}

func (r *Registry) Resources() []*Resource {
	out := make([]*Resource, 0, len(r.resOrder))
	for _, uri := range r.resOrder {
		out = append(out, r.resources[uri])
	}
	return out
}

// InputSchema renders the tool's parameters as a JSON schema object.
func (t *Tool) InputSchema() map[string]any {
	props := make(map[string]any, len(t.Params))
	required := []string{}
	for _, name := range sortedKeys(t.Params) {
		p := t.Params[name]
		prop := map[string]any{"type": p.Type}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		if p.Default != nil {
			prop["default"] = p.Default
		} else {
			required = append(required, name)
		}
		props[name] = prop
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

// bind checks args against the schema and fills defaults for absent
// optional parameters. The returned map is a copy.
func (t *Tool) bind(args map[string]any) (Args, error) {
	bound := make(Args, len(t.Params))
	for k, v := range args {
		bound[k] = v
	}
	for _, name := range sortedKeys(t.Params) {
		p := t.Params[name]
		v, present := bound[name]
		if !present || v == nil {
			if p.Default == nil {
				return nil, fmt.Errorf("missing required argument: %s", name)
			}
			bound[name] = p.Default
			continue
		}
		if !kindMatches(p.Type, v) {
			return nil, fmt.Errorf("argument %s must be of type %s", name, p.Type)
		}
	}
	return bound, nil
}

func kindMatches(typ string, v any) bool {
	switch typ {
	case "string":
		_, ok := v.(string)
		return ok
	case "integer", "number":
		switch n := v.(type) {
		case float64:
			return typ == "number" || n == float64(int64(n))
		case int, int64, json.Number:
			return true
		}
		return false
	case "boolean":
		_, ok := v.(bool)
		return ok
	case "array":
		switch v.(type) {
		case []any, []string:
			return true
		}
		return false
	case "object":
		_, ok := v.(map[string]any)
		return ok
	}
	return true
}
