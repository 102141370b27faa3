package tools

import (
	"fmt"
	"sync"
)

// Registry holds the tools a deployment exposes, looked up by exact
// name
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool, rejecting duplicate names
func (r *Registry) Register(t Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := t.Definition().Name
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %q already registered", name)
	}
	r.tools[name] = t
	return nil
}

// Get returns the tool for an exact name
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names lists the registered tool names
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	return names
}

// Select returns the subset of tools named, skipping unknown names
func (r *Registry) Select(names []string) []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	selected := make([]Tool, 0, len(names))
	for _, name := range names {
		if t, ok := r.tools[name]; ok {
			selected = append(selected, t)
		}
	}
	return selected
}

// ToOpenAISchema renders tool definitions in the OpenAI function
// calling shape
func (r *Registry) ToOpenAISchema(names []string) []map[string]interface{} {
	schemas := make([]map[string]interface{}, 0, len(names))
	for _, t := range r.Select(names) {
		def := t.Definition()
		schemas = append(schemas, map[string]interface{}{
			"type": "function",
			"function": map[string]interface{}{
				"name":        def.Name,
				"description": def.Description,
				"parameters":  parameterSchema(def.Parameters),
			},
		})
	}
	return schemas
}

// ToDeepgramSchema renders tool definitions in the Deepgram agent
// function shape
func (r *Registry) ToDeepgramSchema(names []string) []map[string]interface{} {
	schemas := make([]map[string]interface{}, 0, len(names))
	for _, t := range r.Select(names) {
		def := t.Definition()
		schemas = append(schemas, map[string]interface{}{
			"name":        def.Name,
			"description": def.Description,
			"parameters":  parameterSchema(def.Parameters),
		})
	}
	return schemas
}

func parameterSchema(params []Parameter) map[string]interface{} {
	properties := make(map[string]interface{}, len(params))
	var required []string
	for _, p := range params {
		prop := map[string]interface{}{
			"type":        p.Type,
			"description": p.Description,
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}

	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}
