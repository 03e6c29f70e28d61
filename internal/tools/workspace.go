package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"terramcp/internal/terra"
)

const defaultMaxEntities = 100

func (s *Service) registerWorkspaceTools(srv *server.MCPServer) {
	srv.AddTool(mcp.NewTool("list_workspaces",
		mcp.WithDescription("List all workspaces the caller can read, with namespace, name, creator and creation date."),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handleListWorkspaces)

	srv.AddTool(mcp.NewTool("get_workspace_data_tables",
		mcp.WithDescription("List the data tables (entity types) of a workspace with their row counts."),
		mcp.WithString("workspace_namespace", mcp.Required(), mcp.Description("Billing namespace of the workspace")),
		mcp.WithString("workspace_name", mcp.Required(), mcp.Description("Name of the workspace")),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handleGetWorkspaceDataTables)

	srv.AddTool(mcp.NewTool("get_entities",
		mcp.WithDescription("Fetch rows of one workspace data table. The row list is bounded by max_entities."),
		mcp.WithString("workspace_namespace", mcp.Required()),
		mcp.WithString("workspace_name", mcp.Required()),
		mcp.WithString("entity_type", mcp.Required(), mcp.Description("Data table name, e.g. sample or sample_set")),
		mcp.WithNumber("max_entities", mcp.Description("Maximum rows to return (default 100, <=0 means all)")),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handleGetEntities)

	srv.AddTool(mcp.NewTool("upload_entities",
		mcp.WithDescription("Upload or update data table rows from TSV. The header line must start with \"entity:\". Requires write mode."),
		mcp.WithString("workspace_namespace", mcp.Required()),
		mcp.WithString("workspace_name", mcp.Required()),
		mcp.WithString("tsv", mcp.Required(), mcp.Description("Tab-separated entity data including the header line")),
	), s.handleUploadEntities)
}

func (s *Service) handleListWorkspaces(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workspaces, err := s.platform.ListWorkspaces(ctx)
	if err != nil {
		return toolError(err)
	}
	return jsonResult(map[string]any{
		"workspaces": workspaces,
		"count":      len(workspaces),
	})
}

func (s *Service) handleGetWorkspaceDataTables(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	namespace, err := req.RequireString("workspace_namespace")
	if err != nil {
		return toolError(err)
	}
	name, err := req.RequireString("workspace_name")
	if err != nil {
		return toolError(err)
	}
	tables, err := s.platform.ListEntityTypes(ctx, namespace, name)
	if err != nil {
		return toolError(err)
	}
	return jsonResult(map[string]any{
		"workspace": fmt.Sprintf("%s/%s", namespace, name),
		"tables":    tables,
		"count":     len(tables),
	})
}

func (s *Service) handleGetEntities(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	namespace, err := req.RequireString("workspace_namespace")
	if err != nil {
		return toolError(err)
	}
	name, err := req.RequireString("workspace_name")
	if err != nil {
		return toolError(err)
	}
	entityType, err := req.RequireString("entity_type")
	if err != nil {
		return toolError(err)
	}
	maxEntities := req.GetInt("max_entities", defaultMaxEntities)

	entities, err := s.platform.GetEntities(ctx, namespace, name, entityType)
	if err != nil {
		return toolError(err)
	}

	total := len(entities)
	truncated := false
	if maxEntities > 0 && total > maxEntities {
		entities = entities[:maxEntities]
		truncated = true
	}
	return jsonResult(map[string]any{
		"entity_type": entityType,
		"total":       total,
		"returned":    len(entities),
		"truncated":   truncated,
		"entities":    entities,
	})
}

func (s *Service) handleUploadEntities(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
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
	tsv, err := req.RequireString("tsv")
	if err != nil {
		return toolError(err)
	}
	if err := validateEntityTSV(tsv); err != nil {
		return toolError(err)
	}
	if err := s.platform.UploadEntities(ctx, namespace, name, tsv); err != nil {
		return toolError(err)
	}
	lines := strings.Count(strings.TrimRight(tsv, "\n"), "\n")
	return jsonResult(map[string]any{
		"workspace": fmt.Sprintf("%s/%s", namespace, name),
		"rows":      lines,
		"message":   "entities uploaded",
	})
}

// validateEntityTSV enforces the platform's flexible-import contract:
// a non-empty body whose header names the entity type column as
// "entity:<type>_id".
func validateEntityTSV(tsv string) error {
	trimmed := strings.TrimSpace(tsv)
	if trimmed == "" {
		return &terra.ValidationError{Message: "tsv must not be empty"}
	}
	header := trimmed
	if i := strings.IndexByte(trimmed, '\n'); i >= 0 {
		header = trimmed[:i]
	}
	if !strings.HasPrefix(header, "entity:") {
		return &terra.ValidationError{
			Message: `tsv header must start with "entity:"`,
			Detail:  fmt.Sprintf("got header %q", header),
		}
	}
	return nil
}
