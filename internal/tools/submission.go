package tools

import (
	"context"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"terramcp/internal/terra"
)

const (
	defaultSubmissionLimit = 20
	defaultMaxWorkflows    = 10
)

func (s *Service) registerSubmissionTools(srv *server.MCPServer) {
	srv.AddTool(mcp.NewTool("list_submissions",
		mcp.WithDescription("List workflow submissions of a workspace, most recent first. Optional filters on status, submitter and method configuration name."),
		mcp.WithString("workspace_namespace", mcp.Required()),
		mcp.WithString("workspace_name", mcp.Required()),
		mcp.WithString("status", mcp.Description("Only submissions with this exact status, e.g. Running or Done")),
		mcp.WithString("submitter", mcp.Description("Only submissions by this user")),
		mcp.WithString("workflow", mcp.Description("Only submissions whose method configuration name contains this substring")),
		mcp.WithNumber("limit", mcp.Description("Maximum submissions to return (default 20, <=0 means all)")),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handleListSubmissions)

	srv.AddTool(mcp.NewTool("get_submission_status",
		mcp.WithDescription("Get the status of one submission: overall state, per-status workflow counts and a bounded workflow list."),
		mcp.WithString("workspace_namespace", mcp.Required()),
		mcp.WithString("workspace_name", mcp.Required()),
		mcp.WithString("submission_id", mcp.Required(), mcp.Description("Submission UUID")),
		mcp.WithNumber("max_workflows", mcp.Description("Maximum workflows to list (default 10, <=0 means all)")),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handleGetSubmissionStatus)

	srv.AddTool(mcp.NewTool("submit_workflow",
		mcp.WithDescription("Launch a workflow by creating a submission from a method configuration. Requires write mode."),
		mcp.WithString("workspace_namespace", mcp.Required()),
		mcp.WithString("workspace_name", mcp.Required()),
		mcp.WithString("config_namespace", mcp.Required(), mcp.Description("Namespace of the method configuration")),
		mcp.WithString("config_name", mcp.Required(), mcp.Description("Name of the method configuration")),
		mcp.WithString("entity_type", mcp.Description("Root entity type, e.g. sample")),
		mcp.WithString("entity_name", mcp.Description("Root entity name")),
		mcp.WithString("expression", mcp.Description("Entity expression, e.g. this.samples")),
		mcp.WithBoolean("use_call_cache", mcp.Description("Reuse cached call results (default true)")),
	), s.handleSubmitWorkflow)

	srv.AddTool(mcp.NewTool("abort_submission",
		mcp.WithDescription("Abort a running submission and all of its workflows. Requires write mode."),
		mcp.WithString("workspace_namespace", mcp.Required()),
		mcp.WithString("workspace_name", mcp.Required()),
		mcp.WithString("submission_id", mcp.Required(), mcp.Description("Submission UUID")),
		mcp.WithDestructiveHintAnnotation(true),
	), s.handleAbortSubmission)
}

func (s *Service) handleListSubmissions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	namespace, err := req.RequireString("workspace_namespace")
	if err != nil {
		return toolError(err)
	}
	name, err := req.RequireString("workspace_name")
	if err != nil {
		return toolError(err)
	}
	statusFilter := req.GetString("status", "")
	submitterFilter := req.GetString("submitter", "")
	workflowFilter := req.GetString("workflow", "")
	limit := req.GetInt("limit", defaultSubmissionLimit)

	submissions, err := s.platform.ListSubmissions(ctx, namespace, name)
	if err != nil {
		return toolError(err)
	}

	filtered := submissions[:0:0]
	for _, sub := range submissions {
		if statusFilter != "" && sub.Status != statusFilter {
			continue
		}
		if submitterFilter != "" && sub.Submitter != submitterFilter {
			continue
		}
		if workflowFilter != "" && !strings.Contains(sub.MethodConfigurationName, workflowFilter) {
			continue
		}
		filtered = append(filtered, sub)
	}

	// Most recent first; the RFC 3339 timestamps sort lexically.
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].SubmissionDate > filtered[j].SubmissionDate
	})

	total := len(filtered)
	if limit > 0 && total > limit {
		filtered = filtered[:limit]
	}
	return jsonResult(map[string]any{
		"total":       total,
		"returned":    len(filtered),
		"submissions": filtered,
	})
}

func (s *Service) handleGetSubmissionStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	namespace, err := req.RequireString("workspace_namespace")
	if err != nil {
		return toolError(err)
	}
	name, err := req.RequireString("workspace_name")
	if err != nil {
		return toolError(err)
	}
	submissionID, err := req.RequireString("submission_id")
	if err != nil {
		return toolError(err)
	}
	if err := requireUUID("submission_id", submissionID); err != nil {
		return toolError(err)
	}
	maxWorkflows := req.GetInt("max_workflows", defaultMaxWorkflows)

	detail, err := s.platform.GetSubmission(ctx, namespace, name, submissionID)
	if err != nil {
		return toolError(err)
	}

	counts := make(map[string]int)
	for _, wf := range detail.Workflows {
		status, _ := wf["status"].(string)
		if status == "" {
			status = "Unknown"
		}
		counts[status]++
	}

	workflows := detail.Workflows
	total := len(workflows)
	if maxWorkflows > 0 && total > maxWorkflows {
		workflows = workflows[:maxWorkflows]
	}
	return jsonResult(map[string]any{
		"submission_id":   detail.SubmissionID,
		"status":          detail.Status,
		"submission_date": detail.SubmissionDate,
		"submitter":       detail.Submitter,
		"workflow_counts": counts,
		"total_workflows": total,
		"workflows":       workflows,
	})
}

func (s *Service) handleSubmitWorkflow(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.gate.Check(); err != nil {
		return toolError(err)
	}
	namespace, err := req.RequireString("workspace_namespace")
	if err != nil {
		return toolError(err)
	}
	name, err := req.RequireString("workspace_name")
	if err != nil {
		return toolError(err)
	}
	configNamespace, err := req.RequireString("config_namespace")
	if err != nil {
		return toolError(err)
	}
	configName, err := req.RequireString("config_name")
	if err != nil {
		return toolError(err)
	}

	request := terra.SubmissionRequest{
		MethodConfigurationNamespace: configNamespace,
		MethodConfigurationName:      configName,
		EntityType:                   req.GetString("entity_type", ""),
		EntityName:                   req.GetString("entity_name", ""),
		Expression:                   req.GetString("expression", ""),
		UseCallCache:                 req.GetBool("use_call_cache", true),
	}
	if request.EntityName != "" && request.EntityType == "" {
		return toolError(&terra.ValidationError{
			Message: "entity_type is required when entity_name is set",
		})
	}

	created, err := s.platform.CreateSubmission(ctx, namespace, name, request)
	if err != nil {
		return toolError(err)
	}
	return jsonResult(map[string]any{
		"submission_id":   created.SubmissionID,
		"status":          created.Status,
		"submission_date": created.SubmissionDate,
	})
}

func (s *Service) handleAbortSubmission(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.gate.Check(); err != nil {
		return toolError(err)
	}
	namespace, err := req.RequireString("workspace_namespace")
	if err != nil {
		return toolError(err)
	}
	name, err := req.RequireString("workspace_name")
	if err != nil {
		return toolError(err)
	}
	submissionID, err := req.RequireString("submission_id")
	if err != nil {
		return toolError(err)
	}
	if err := requireUUID("submission_id", submissionID); err != nil {
		return toolError(err)
	}
	if err := s.platform.AbortSubmission(ctx, namespace, name, submissionID); err != nil {
		return toolError(err)
	}
	return jsonResult(map[string]any{
		"submission_id": submissionID,
		"status":        "Aborting",
	})
}
