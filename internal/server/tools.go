package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"overseer.dev/internal/logs"
	"overseer.dev/internal/task"
)

// mcpOutputMaxLines is the default number of log lines returned per command
const mcpOutputMaxLines = 100

// taskSummary describes a loaded task
type taskSummary struct {
	Name     string   `json:"name"`
	Trigger  string   `json:"trigger"`
	Schedule string   `json:"schedule,omitempty"`
	Paths    []string `json:"paths,omitempty"`
	Host     string   `json:"host"`
	Commands []string `json:"commands"`
}

// runTaskResponse is the MCP response for run_task. Output holds the tail
// of each command's log.
type runTaskResponse struct {
	*task.Result
	Duration string              `json:"duration"`
	Shared   bool                `json:"shared"`
	Output   map[string][]string `json:"output,omitempty"`
}

func summarize(t task.Task) taskSummary {
	sum := taskSummary{
		Name:    t.Name(),
		Trigger: t.Kind(),
		Host:    t.Host().String(),
	}
	switch t := t.(type) {
	case *task.CronTask:
		sum.Schedule = t.Schedule()
	case *task.FileEventTask:
		sum.Paths = t.Paths()
	}
	for _, cmd := range t.Commands() {
		sum.Commands = append(sum.Commands, cmd.Name)
	}
	return sum
}

// registerTools registers every MCP tool
func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.Tool{
		Name:        "list_tasks",
		Description: "List the loaded tasks with their trigger, host and commands",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, s.handleListTasks)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "run_task",
		Description: "Run a task once now and wait for every command to finish. Concurrent requests for the same task share one run.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"task_name": map[string]interface{}{
					"type":        "string",
					"description": "Name of the task to run",
				},
				"max_output_lines": map[string]interface{}{
					"type":        "number",
					"description": "Maximum log lines to return per command (default 100, 0=none)",
				},
			},
			Required: []string{"task_name"},
		},
	}, s.handleRunTask)

	s.registerSessionManagementTools()
	s.registerReloadTool()
}

func (s *Server) handleListTasks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tasks := s.currentRegistry().Tasks()
	summaries := make([]taskSummary, 0, len(tasks))
	for _, t := range tasks {
		summaries = append(summaries, summarize(t))
	}

	resultJSON, _ := json.Marshal(summaries)
	return mcp.NewToolResultText(string(resultJSON)), nil
}

func (s *Server) handleRunTask(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	taskName, ok := args["task_name"].(string)
	if !ok || taskName == "" {
		return mcp.NewToolResultError("task_name is required"), nil
	}

	maxLines := mcpOutputMaxLines
	if v, ok := args["max_output_lines"].(float64); ok {
		maxLines = int(v)
	}

	t, ok := s.currentRegistry().Get(taskName)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("task '%s' not found", taskName)), nil
	}

	s.log.Info("running task", "task", taskName)
	result, shared := s.dedup.Execute(ctx, t)
	if result == nil {
		return mcp.NewToolResultError(fmt.Sprintf("cancelled while waiting for task '%s'", taskName)), nil
	}

	resp := runTaskResponse{
		Result:   result,
		Duration: result.Duration.String(),
		Shared:   shared,
	}
	if maxLines > 0 && result.SessionID != "" {
		resp.Output = make(map[string][]string, len(result.Commands))
		for _, cmd := range result.Commands {
			lines, err := s.sessions.ReadLog(taskName, logs.ReadOptions{
				SessionID: result.SessionID,
				Command:   cmd.Name,
				Lines:     maxLines,
			})
			if err != nil {
				s.log.Error(err, "failed to read command log", "task", taskName, "command", cmd.Name)
				continue
			}
			resp.Output[cmd.Name] = lines
		}
	}

	resultJSON, _ := json.Marshal(resp)
	if !result.Success {
		return mcp.NewToolResultError(string(resultJSON)), nil
	}
	return mcp.NewToolResultText(string(resultJSON)), nil
}
