package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"terramcp/internal/terra"
)

func (s *Service) registerMethodConfigTools(srv *server.MCPServer) {
	srv.AddTool(mcp.NewTool("get_method_config",
		mcp.WithDescription("Get a method configuration: inputs, outputs, root entity type and method reference."),
		mcp.WithString("workspace_namespace", mcp.Required()),
		mcp.WithString("workspace_name", mcp.Required()),
		mcp.WithString("config_namespace", mcp.Required()),
		mcp.WithString("config_name", mcp.Required()),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handleGetMethodConfig)

	srv.AddTool(mcp.NewTool("update_method_config",
		mcp.WithDescription("Replace a method configuration with the given document. Requires write mode."),
		mcp.WithString("workspace_namespace", mcp.Required()),
		mcp.WithString("workspace_name", mcp.Required()),
		mcp.WithString("config_namespace", mcp.Required()),
		mcp.WithString("config_name", mcp.Required()),
		mcp.WithObject("config", mcp.Required(), mcp.Description("Full method configuration document")),
	), s.handleUpdateMethodConfig)

	srv.AddTool(mcp.NewTool("copy_method_config",
		mcp.WithDescription("Copy a method configuration from one workspace to another. Requires write mode."),
		mcp.WithString("source_namespace", mcp.Required(), mcp.Description("Billing namespace of the source workspace")),
		mcp.WithString("source_workspace", mcp.Required()),
		mcp.WithString("dest_namespace", mcp.Required(), mcp.Description("Billing namespace of the destination workspace")),
		mcp.WithString("dest_workspace", mcp.Required()),
		mcp.WithString("config_namespace", mcp.Required()),
		mcp.WithString("config_name", mcp.Required()),
	), s.handleCopyMethodConfig)
}

func (s *Service) handleGetMethodConfig(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
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
	doc, err := s.platform.GetMethodConfig(ctx, namespace, name, configNamespace, configName)
	if err != nil {
		return toolError(err)
	}
	return jsonResult(doc)
}

func (s *Service) handleUpdateMethodConfig(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
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
	config, ok := req.GetArguments()["config"].(map[string]any)
	if !ok || len(config) == 0 {
		return toolError(&terra.ValidationError{
			Message: "config must be a non-empty object",
		})
	}
	if err := s.platform.UpdateMethodConfig(ctx, namespace, name, configNamespace, configName, config); err != nil {
		return toolError(err)
	}
	return jsonResult(map[string]any{
		"config":  configNamespace + "/" + configName,
		"message": "method configuration updated",
	})
}

func (s *Service) handleCopyMethodConfig(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.gate.Check(); err != nil {
		return toolError(err)
	}
	srcNamespace, err := req.RequireString("source_namespace")
	if err != nil {
		return toolError(err)
	}
	srcName, err := req.RequireString("source_workspace")
	if err != nil {
		return toolError(err)
	}
	dstNamespace, err := req.RequireString("dest_namespace")
	if err != nil {
		return toolError(err)
	}
	dstName, err := req.RequireString("dest_workspace")
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
	if err := s.platform.CopyMethodConfig(ctx, srcNamespace, srcName, dstNamespace, dstName, configNamespace, configName); err != nil {
		return toolError(err)
	}
	return jsonResult(map[string]any{
		"config":  configNamespace + "/" + configName,
		"from":    srcNamespace + "/" + srcName,
		"to":      dstNamespace + "/" + dstName,
		"message": "method configuration copied",
	})
}
