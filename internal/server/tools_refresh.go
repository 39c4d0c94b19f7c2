package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// registerReloadTool registers the reload_tasks tool that re-reads the task
// definitions while the server is running.
func (s *Server) registerReloadTool() {
	tool := mcp.Tool{
		Name:        "reload_tasks",
		Description: "Reload all task definitions from disk without restarting the server.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: make(map[string]interface{}),
		},
	}

	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if err := s.Reload(); err != nil {
			result := map[string]interface{}{
				"success": false,
				"error":   err.Error(),
			}
			resultJSON, _ := json.Marshal(result)
			return mcp.NewToolResultError(string(resultJSON)), nil
		}

		result := map[string]interface{}{
			"success": true,
			"message": "Tasks reloaded successfully",
			"tasks":   s.currentRegistry().Len(),
		}
		resultJSON, _ := json.Marshal(result)
		return mcp.NewToolResultText(string(resultJSON)), nil
	}

	s.mcpServer.AddTool(tool, handler)
}

// Reload replaces the registry with a freshly loaded one. On error the
// current tasks stay in place. Runs already in progress are not disturbed.
func (s *Server) Reload() error {
	registry, err := s.load()
	if err != nil {
		return fmt.Errorf("failed to reload tasks: %w", err)
	}

	s.mu.Lock()
	s.registry = registry
	s.mu.Unlock()

	s.log.Info("reloaded tasks", "tasks", registry.Len())
	return nil
}
