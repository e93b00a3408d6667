package tools

import (
	"context"
	"sort"
	"sync"
	"time"

	"agentic-rag-be/internal/pkg/logger"
	"agentic-rag-be/pkg/llm"
)

// Registry is the fixed set of tools offered to the primary model.
type Registry struct {
	tools  map[string]Tool
	mu     sync.RWMutex
	logger logger.ILogger
}

func NewRegistry(log logger.ILogger) *Registry {
	return &Registry{
		tools:  make(map[string]Tool),
		logger: log,
	}
}

func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name()] = tool
}

func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Execute runs a tool by name. Unknown names come back as an error result
// for the model rather than a Go error.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]interface{}) *Result {
	tool, ok := r.Get(name)
	if !ok {
		r.logger.Warn("TOOLS", "Model requested unknown tool", map[string]interface{}{"tool": name})
		return ErrorResult("unknown tool: " + name)
	}
	if args == nil {
		args = map[string]interface{}{}
	}

	start := time.Now()
	result := tool.Execute(ctx, args)

	fields := map[string]interface{}{
		"tool":        name,
		"duration_ms": time.Since(start).Milliseconds(),
		"is_error":    result.IsError,
	}
	if result.Err != nil {
		fields["error"] = result.Err.Error()
	}
	r.logger.Debug("TOOLS", "Tool executed", fields)
	return result
}

// Definitions returns provider definitions sorted by name.
func (r *Registry) Definitions() []llm.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]llm.ToolDefinition, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, llm.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}
