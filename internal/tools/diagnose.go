package tools

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"terramcp/internal/cromwell"
	"terramcp/internal/diagnose"
	"terramcp/internal/lifesciences"
	"terramcp/internal/terra"
	"terramcp/pkg/logger"
)

// errJobBackendUnavailable is returned when no job-status backend was
// configured for this deployment.
var errJobBackendUnavailable = errors.New("no job-status backend configured")

const defaultMaxEvents = 10

func (s *Service) registerDiagnoseTools(srv *server.MCPServer) {
	srv.AddTool(mcp.NewTool("diagnose_task_failure",
		mcp.WithDescription("Diagnose why a task execution failed: resolves the task to its backend compute job, "+
			"classifies the job's events into known infrastructure issues (preemption, OOM, docker pull failures, "+
			"quota exhaustion, network errors) and returns them with the most recent events."),
		mcp.WithString("workspace_namespace", mcp.Required()),
		mcp.WithString("workspace_name", mcp.Required()),
		mcp.WithString("submission_id", mcp.Required(), mcp.Description("Submission UUID")),
		mcp.WithString("workflow_id", mcp.Required(), mcp.Description("Workflow UUID")),
		mcp.WithString("task_name", mcp.Required(), mcp.Description("Task to diagnose; bare names match qualified call names")),
		mcp.WithNumber("shard_index", mcp.Description("Shard of a scattered task (-1 for unscattered)")),
		mcp.WithNumber("attempt", mcp.Description("Execution attempt, 1-based; defaults to the latest")),
		mcp.WithNumber("max_events", mcp.Description("Number of most recent job events to return (default 10)")),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handleDiagnoseTaskFailure)
}

func (s *Service) handleDiagnoseTaskFailure(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	namespace, name, submissionID, workflowID, errResult := workflowScope(req)
	if errResult != nil {
		return errResult, nil
	}
	taskName, err := req.RequireString("task_name")
	if err != nil {
		return toolError(err)
	}
	shardIndex, err := optionalInt(req, "shard_index")
	if err != nil {
		return toolError(err)
	}
	attempt, err := optionalInt(req, "attempt")
	if err != nil {
		return toolError(err)
	}
	maxEvents := req.GetInt("max_events", defaultMaxEvents)

	doc, err := s.platform.GetWorkflowMetadata(ctx, namespace, name, submissionID, workflowID, nil, metadataExcludeKeys)
	if err != nil {
		return toolError(err)
	}
	meta := cromwell.Decode(doc)
	exec, resolvedName, err := cromwell.Resolve(meta, taskName, shardIndex, attempt)
	if err != nil {
		return toolError(err)
	}
	if exec.JobID == "" {
		return toolError(&terra.NotFoundError{
			Resource: "backend job",
			ID:       "no job id recorded for this task execution; the task may not have started on the compute backend",
		})
	}

	logger.Debug("diagnosing %s (shard %d, attempt %d) via job %s",
		resolvedName, exec.ShardIndex, exec.Attempt, exec.JobID)

	jobs := s.jobStatus()
	if jobs == nil {
		return toolError(&terra.UpstreamError{
			Operation:  "diagnose task failure",
			StatusCode: 0,
			Cause:      errJobBackendUnavailable,
		})
	}
	job, err := jobs.GetJob(ctx, exec.JobID)
	if err != nil {
		return toolError(err)
	}

	issues := diagnose.Classify(job.Events)
	events := job.Events
	if maxEvents > 0 && len(events) > maxEvents {
		events = events[len(events)-maxEvents:]
	}

	return jsonResult(map[string]any{
		"workflow_id":   workflowID,
		"task":          resolvedName,
		"shard":         exec.ShardIndex,
		"attempt":       exec.Attempt,
		"task_status":   exec.Status,
		"stderr_url":    exec.Stderr,
		"job":           jobView(job),
		"issues":        issues,
		"recent_events": events,
		"total_events":  len(job.Events),
	})
}

func jobView(job *lifesciences.Job) map[string]any {
	return map[string]any{
		"name":         job.Name,
		"state":        job.State,
		"machine_type": job.MachineType,
		"create_time":  job.CreateTime,
		"start_time":   job.StartTime,
		"end_time":     job.EndTime,
	}
}
