package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"terramcp/internal/cromwell"
	"terramcp/internal/docpath"
	"terramcp/internal/terra"
)

// Keys excluded from every metadata fetch. submittedFiles carries the
// full WDL source and inputs JSON, which dwarfs everything else in the
// document.
var metadataExcludeKeys = []string{"submittedFiles"}

const (
	modeSummary = "summary"
	modeExtract = "extract"
	modeFull    = "full"
)

// metadataQuery is the validated form of a get_job_metadata request.
// Exactly one variant is set.
type metadataQuery struct {
	mode    string
	extract *extractQuery
}

// extractQuery targets either one task output or one document path,
// never both.
type extractQuery struct {
	outputName string
	taskName   string
	shardIndex *int
	fieldPath  string
}

func (s *Service) registerMetadataTools(srv *server.MCPServer) {
	srv.AddTool(mcp.NewTool("get_job_metadata",
		mcp.WithDescription("Get workflow execution metadata. mode=summary (default) returns a compact status digest; "+
			"mode=extract pulls one task output or one field path out of the document; "+
			"mode=full returns the entire document and is usually too large for a context window."),
		mcp.WithString("workspace_namespace", mcp.Required()),
		mcp.WithString("workspace_name", mcp.Required()),
		mcp.WithString("submission_id", mcp.Required(), mcp.Description("Submission UUID")),
		mcp.WithString("workflow_id", mcp.Required(), mcp.Description("Workflow UUID")),
		mcp.WithString("mode", mcp.Enum(modeSummary, modeExtract, modeFull), mcp.DefaultString(modeSummary)),
		mcp.WithString("output_name", mcp.Description("extract mode: name of the task output to read")),
		mcp.WithString("task_name", mcp.Description("extract mode: task whose output to read; bare names match qualified call names")),
		mcp.WithNumber("shard_index", mcp.Description("extract mode: shard of a scattered task (-1 for unscattered)")),
		mcp.WithString("field_path", mcp.Description("extract mode: dot/bracket path over the whole document, e.g. calls.*[0].runtimeAttributes")),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handleGetJobMetadata)

	srv.AddTool(mcp.NewTool("get_workflow_outputs",
		mcp.WithDescription("Get the final outputs document of a completed workflow."),
		mcp.WithString("workspace_namespace", mcp.Required()),
		mcp.WithString("workspace_name", mcp.Required()),
		mcp.WithString("submission_id", mcp.Required()),
		mcp.WithString("workflow_id", mcp.Required()),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handleGetWorkflowOutputs)

	srv.AddTool(mcp.NewTool("get_workflow_cost",
		mcp.WithDescription("Get the compute cost of one workflow run."),
		mcp.WithString("workspace_namespace", mcp.Required()),
		mcp.WithString("workspace_name", mcp.Required()),
		mcp.WithString("submission_id", mcp.Required()),
		mcp.WithString("workflow_id", mcp.Required()),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handleGetWorkflowCost)
}

// parseMetadataQuery validates the mode and its parameters into the
// closed query form.
func parseMetadataQuery(req mcp.CallToolRequest) (*metadataQuery, error) {
	mode := req.GetString("mode", modeSummary)
	switch mode {
	case modeSummary, modeFull:
		return &metadataQuery{mode: mode}, nil
	case modeExtract:
	default:
		return nil, &terra.ValidationError{
			Message: fmt.Sprintf("mode must be one of summary, extract, full; got %q", mode),
		}
	}

	outputName := req.GetString("output_name", "")
	taskName := req.GetString("task_name", "")
	fieldPath := req.GetString("field_path", "")
	shardIndex, err := optionalInt(req, "shard_index")
	if err != nil {
		return nil, err
	}

	byOutput := outputName != "" || taskName != ""
	byPath := fieldPath != ""
	switch {
	case byOutput && byPath:
		return nil, &terra.ValidationError{
			Message: "extract mode takes either output_name+task_name or field_path, not both",
		}
	case !byOutput && !byPath:
		return nil, &terra.ValidationError{
			Message: "extract mode requires either output_name (with task_name) or field_path",
		}
	case byOutput && (outputName == "" || taskName == ""):
		return nil, &terra.ValidationError{
			Message: "output extraction needs both output_name and task_name",
		}
	}
	return &metadataQuery{
		mode: modeExtract,
		extract: &extractQuery{
			outputName: outputName,
			taskName:   taskName,
			shardIndex: shardIndex,
			fieldPath:  fieldPath,
		},
	}, nil
}

func (s *Service) handleGetJobMetadata(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	namespace, name, submissionID, workflowID, errResult := workflowScope(req)
	if errResult != nil {
		return errResult, nil
	}
	query, err := parseMetadataQuery(req)
	if err != nil {
		return toolError(err)
	}

	doc, err := s.platform.GetWorkflowMetadata(ctx, namespace, name, submissionID, workflowID, nil, metadataExcludeKeys)
	if err != nil {
		return toolError(err)
	}

	switch query.mode {
	case modeSummary:
		return jsonResult(cromwell.Summarize(cromwell.Decode(doc)))
	case modeExtract:
		return s.extractFromMetadata(doc, query.extract)
	default:
		return fullMetadataResult(doc)
	}
}

func (s *Service) extractFromMetadata(doc map[string]any, q *extractQuery) (*mcp.CallToolResult, error) {
	var extracted any
	var pathUsed string

	if q.fieldPath != "" {
		value, err := docpath.Extract(doc, q.fieldPath)
		if err != nil {
			return toolError(err)
		}
		extracted = value
		pathUsed = q.fieldPath
	} else {
		meta := cromwell.Decode(doc)
		exec, resolvedName, err := cromwell.Resolve(meta, q.taskName, q.shardIndex, nil)
		if err != nil {
			return toolError(err)
		}
		value, ok := exec.Outputs[q.outputName]
		if !ok {
			return toolError(&terra.NotFoundError{
				Resource: "output",
				ID: fmt.Sprintf("Output %q not found in task %q. Available outputs: %v",
					q.outputName, resolvedName, sortedKeys(exec.Outputs)),
			})
		}
		extracted = value
		pathUsed = fmt.Sprintf("calls.%s[shard %d].outputs.%s", resolvedName, exec.ShardIndex, q.outputName)
	}

	size := encodedSize(extracted)
	return jsonResult(map[string]any{
		"mode":           modeExtract,
		"path_used":      pathUsed,
		"extracted_data": extracted,
		"size_chars":     size,
	})
}

func fullMetadataResult(doc map[string]any) (*mcp.CallToolResult, error) {
	size := encodedSize(doc)
	warning := fmt.Sprintf(
		"Full metadata is %d characters (~%d tokens). Prefer mode=summary or mode=extract; "+
			"if you need the whole document, save it first (e.g. Write('/tmp/workflow_metadata.json', ...)) "+
			"and slice it with jq instead of reading it inline.",
		size, size/4)
	return jsonResult(map[string]any{
		"mode":             modeFull,
		"size_chars":       size,
		"estimated_tokens": size / 4,
		"size_warning":     warning,
		"metadata":         doc,
	})
}

func (s *Service) handleGetWorkflowOutputs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	namespace, name, submissionID, workflowID, errResult := workflowScope(req)
	if errResult != nil {
		return errResult, nil
	}
	doc, err := s.platform.GetWorkflowOutputs(ctx, namespace, name, submissionID, workflowID)
	if err != nil {
		return toolError(err)
	}
	return jsonResult(doc)
}

func (s *Service) handleGetWorkflowCost(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	namespace, name, submissionID, workflowID, errResult := workflowScope(req)
	if errResult != nil {
		return errResult, nil
	}
	doc, err := s.platform.GetWorkflowCost(ctx, namespace, name, submissionID, workflowID)
	if err != nil {
		return toolError(err)
	}
	return jsonResult(doc)
}

// workflowScope reads and validates the four arguments shared by every
// per-workflow tool.
func workflowScope(req mcp.CallToolRequest) (namespace, name, submissionID, workflowID string, errResult *mcp.CallToolResult) {
	var err error
	if namespace, err = req.RequireString("workspace_namespace"); err != nil {
		return "", "", "", "", mcp.NewToolResultError(err.Error())
	}
	if name, err = req.RequireString("workspace_name"); err != nil {
		return "", "", "", "", mcp.NewToolResultError(err.Error())
	}
	if submissionID, err = req.RequireString("submission_id"); err != nil {
		return "", "", "", "", mcp.NewToolResultError(err.Error())
	}
	if workflowID, err = req.RequireString("workflow_id"); err != nil {
		return "", "", "", "", mcp.NewToolResultError(err.Error())
	}
	if err = requireUUID("submission_id", submissionID); err != nil {
		return "", "", "", "", mcp.NewToolResultError(err.Error())
	}
	if err = requireUUID("workflow_id", workflowID); err != nil {
		return "", "", "", "", mcp.NewToolResultError(err.Error())
	}
	return namespace, name, submissionID, workflowID, nil
}

func encodedSize(v any) int {
	raw, err := json.Marshal(v)
	if err != nil {
		return 0
	}
	return len(raw)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
