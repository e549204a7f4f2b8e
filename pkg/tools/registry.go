package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/zhufengning/extrautils/pkg/logger"
)

type ToolRegistry struct {
	tools map[string]Tool
	mu    sync.RWMutex
}

func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{
		tools: make(map[string]Tool),
	}
}

func (r *ToolRegistry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name()] = tool
}

func (r *ToolRegistry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

func (r *ToolRegistry) Execute(ctx context.Context, name string, args []string) (string, error) {
	return r.ExecuteAs(ctx, name, args, 0)
}

// ExecuteAs runs a tool, first handing selfID to tools that act as the bot.
func (r *ToolRegistry) ExecuteAs(ctx context.Context, name string, args []string, selfID int64) (string, error) {
	logger.DebugCF("tool", "Tool execution started",
		map[string]interface{}{
			"tool": name,
			"args": args,
		})

	tool, ok := r.Get(name)
	if !ok {
		return "", fmt.Errorf("tool '%s' not found", name)
	}

	if eventTool, ok := tool.(EventTool); ok && selfID != 0 {
		eventTool.SetSelfID(selfID)
	}

	start := time.Now()
	result, err := tool.Execute(ctx, args)
	duration := time.Since(start)

	if err != nil {
		logger.ErrorCF("tool", "Tool execution failed",
			map[string]interface{}{
				"tool":        name,
				"duration_ms": duration.Milliseconds(),
				"error":       err.Error(),
			})
	} else {
		logger.InfoCF("tool", "Tool execution completed",
			map[string]interface{}{
				"tool":          name,
				"duration_ms":   duration.Milliseconds(),
				"result_length": len(result),
			})
	}

	return result, err
}

// List returns the registered tool names in order.
func (r *ToolRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *ToolRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// GetSummaries returns one "usage - description" line per tool.
func (r *ToolRegistry) GetSummaries() []string {
	summaries := make([]string, 0, r.Count())
	for _, name := range r.List() {
		tool, _ := r.Get(name)
		summaries = append(summaries, fmt.Sprintf("  %-42s %s", tool.Usage(), tool.Description()))
	}
	return summaries
}
