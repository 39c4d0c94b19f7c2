package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"overseer.dev/internal/logs"
)

// registerSessionManagementTools registers the run session tools
func (s *Server) registerSessionManagementTools() {
	s.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List recent run sessions, newest first",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"task_name": map[string]interface{}{
					"type":        "string",
					"description": "Only list sessions of this task (default: all tasks)",
				},
				"limit": map[string]interface{}{
					"type":        "number",
					"description": "Maximum number of sessions to return (default: 20)",
				},
			},
		},
	}, s.handleListSessions)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "read_session_metadata",
		Description: "Read metadata for a specific run session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session ID to read metadata for",
				},
			},
			Required: []string{"session_id"},
		},
	}, s.handleReadSessionMetadata)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "read_session_log",
		Description: "Read command output of a run session. Without session_id the task's latest session is read.",
		InputSchema: sessionLogInputSchema(),
	}, s.handleReadSessionLog)
}

// sessionLogInputSchema returns the input schema for the read_session_log tool.
func sessionLogInputSchema() mcp.ToolInputSchema {
	return mcp.ToolInputSchema{
		Type: "object",
		Properties: map[string]interface{}{
			"task_name": map[string]interface{}{
				"type":        "string",
				"description": "Task whose latest session is read when session_id is omitted",
			},
			"session_id": map[string]interface{}{
				"type":        "string",
				"description": "Session ID to read logs for",
			},
			"command": map[string]interface{}{
				"type":        "string",
				"description": "Only read this command's output (default: every command)",
			},
			"lines": map[string]interface{}{
				"type":        "number",
				"description": "Number of lines to tail (default: 100, 0=all)",
			},
			"filter": map[string]interface{}{
				"type":        "string",
				"description": "Regex pattern to filter lines",
			},
		},
	}
}

func (s *Server) handleListSessions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	taskName, _ := args["task_name"].(string)
	limit := 20
	if l, ok := args["limit"].(float64); ok {
		limit = int(l)
	}

	sessions, err := s.sessions.ListSessions(taskName, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list sessions: %v", err)), nil
	}

	resultJSON, _ := json.Marshal(sessions)
	return mcp.NewToolResultText(string(resultJSON)), nil
}

func (s *Server) handleReadSessionMetadata(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, ok := req.GetArguments()["session_id"].(string)
	if !ok || sessionID == "" {
		return mcp.NewToolResultError("session_id is required"), nil
	}

	metadata, err := s.sessions.ReadSessionMetadata(sessionID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read session metadata: %v", err)), nil
	}

	resultJSON, _ := json.Marshal(metadata)
	return mcp.NewToolResultText(string(resultJSON)), nil
}

func (s *Server) handleReadSessionLog(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	taskName, _ := args["task_name"].(string)
	sessionID, _ := args["session_id"].(string)
	if taskName == "" && sessionID == "" {
		return mcp.NewToolResultError("task_name or session_id is required"), nil
	}

	opts := logs.ReadOptions{
		SessionID: sessionID,
		Lines:     mcpOutputMaxLines,
	}
	if command, ok := args["command"].(string); ok {
		opts.Command = command
	}
	if lines, ok := args["lines"].(float64); ok {
		opts.Lines = int(lines)
	}
	if filter, ok := args["filter"].(string); ok {
		opts.Filter = filter
	}

	logLines, err := s.sessions.ReadLog(taskName, opts)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read session log: %v", err)), nil
	}

	result := map[string]interface{}{
		"lines": logLines,
		"count": len(logLines),
	}
	resultJSON, _ := json.Marshal(result)
	return mcp.NewToolResultText(string(resultJSON)), nil
}
