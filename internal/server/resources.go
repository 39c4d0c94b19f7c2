package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

const tasksResourceURI = "overseer://tasks"

// registerResources registers MCP resources for task metadata
func (s *Server) registerResources() {
	s.mcpServer.AddResource(
		mcp.NewResource(
			tasksResourceURI,
			"Tasks",
			mcp.WithResourceDescription("Loaded tasks with their trigger, host and commands"),
			mcp.WithMIMEType("application/json"),
		),
		s.readTasksResource,
	)
}

func (s *Server) readTasksResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	tasks := s.currentRegistry().Tasks()
	summaries := make([]taskSummary, 0, len(tasks))
	for _, t := range tasks {
		summaries = append(summaries, summarize(t))
	}

	data, err := json.MarshalIndent(summaries, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tasks: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      tasksResourceURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
