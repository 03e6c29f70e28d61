package tools

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"terramcp/internal/cromwell"
	"terramcp/internal/terra"
	"terramcp/internal/truncate"
	"terramcp/pkg/logger"
)

const defaultLogBudget = 10000

func (s *Service) registerLogTools(srv *server.MCPServer) {
	srv.AddTool(mcp.NewTool("get_workflow_logs",
		mcp.WithDescription("Get stderr/stdout log locations for each task of a workflow. "+
			"Set fetch_content with task_names to also pull the log bodies for those tasks, "+
			"truncated to max_chars per file."),
		mcp.WithString("workspace_namespace", mcp.Required()),
		mcp.WithString("workspace_name", mcp.Required()),
		mcp.WithString("submission_id", mcp.Required(), mcp.Description("Submission UUID")),
		mcp.WithString("workflow_id", mcp.Required(), mcp.Description("Workflow UUID")),
		mcp.WithBoolean("fetch_content", mcp.Description("Fetch log bodies for the tasks in task_names (default false)")),
		mcp.WithArray("task_names", mcp.Description("Tasks to fetch content for; bare names match their shard keys"),
			mcp.Items(map[string]any{"type": "string"})),
		mcp.WithNumber("max_chars", mcp.Description("Per-file truncation budget when fetching content (default 10000, <=0 disables truncation)")),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handleGetWorkflowLogs)
}

func (s *Service) handleGetWorkflowLogs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	namespace, name, submissionID, workflowID, errResult := workflowScope(req)
	if errResult != nil {
		return errResult, nil
	}
	fetchContent := req.GetBool("fetch_content", false)
	taskNames := req.GetStringSlice("task_names", nil)
	maxChars := req.GetInt("max_chars", defaultLogBudget)

	if fetchContent && len(taskNames) == 0 {
		return toolError(&terra.ValidationError{
			Message: "fetch_content requires task_names; fetching every task's logs at once is not supported",
		})
	}

	doc, err := s.platform.GetWorkflowMetadata(ctx, namespace, name, submissionID, workflowID, nil, metadataExcludeKeys)
	if err != nil {
		return toolError(err)
	}
	meta := cromwell.Decode(doc)
	index, order := cromwell.LogIndex(meta)

	if fetchContent {
		for _, key := range order {
			if !taskSelected(key, taskNames) {
				continue
			}
			s.fetchLogContent(ctx, index[key], maxChars)
		}
	}

	return jsonResult(map[string]any{
		"workflow_id":   workflowID,
		"workflow_name": meta.Name,
		"status":        meta.Status,
		"task_count":    len(index),
		"fetch_content": fetchContent,
		"task_order":    order,
		"logs":          index,
	})
}

// taskSelected matches a log key against the caller's task names. A
// bare task name selects all of its shard keys.
func taskSelected(key string, taskNames []string) bool {
	for _, want := range taskNames {
		if key == want || strings.HasPrefix(key, want+"[") {
			return true
		}
	}
	return false
}

// fetchLogContent pulls the entry's stderr and stdout bodies. A failed
// fetch leaves the entry URL-only and records a note instead of
// failing the whole call.
func (s *Service) fetchLogContent(ctx context.Context, entry *cromwell.LogEntry, maxChars int) {
	var notes []string
	if entry.StderrURL != "" {
		content, err := s.logs.Fetch(ctx, entry.StderrURL)
		if err != nil {
			logger.Warn("fetch %s: %v", entry.StderrURL, err)
			notes = append(notes, "stderr content unavailable, use stderr_url directly")
		} else {
			entry.StderrContent, entry.StderrTruncated = boundLog(content, maxChars)
		}
	}
	if entry.StdoutURL != "" {
		content, err := s.logs.Fetch(ctx, entry.StdoutURL)
		if err != nil {
			logger.Warn("fetch %s: %v", entry.StdoutURL, err)
			notes = append(notes, "stdout content unavailable, use stdout_url directly")
		} else {
			entry.StdoutContent, entry.StdoutTruncated = boundLog(content, maxChars)
		}
	}
	entry.ContentNote = strings.Join(notes, "; ")
}

// boundLog applies the per-file budget; a non-positive budget means
// unbounded.
func boundLog(content string, maxChars int) (string, bool) {
	if maxChars <= 0 {
		return content, false
	}
	return truncate.String(content, maxChars)
}
