// Package tools registers the MCP tool surface and adapts tool
// arguments onto the platform, storage and job-status collaborators.
// Handlers are stateless; the only shared state is the write gate and
// the lazily built job-status client.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"terramcp/internal/gcslog"
	"terramcp/internal/lifesciences"
	"terramcp/internal/terra"
)

// Platform is the workflow-platform surface the handlers depend on.
// *terra.Client is the one real implementation; tests substitute a
// fake.
type Platform interface {
	ListWorkspaces(ctx context.Context) ([]terra.Workspace, error)
	ListEntityTypes(ctx context.Context, namespace, name string) ([]terra.EntityType, error)
	GetEntities(ctx context.Context, namespace, name, entityType string) ([]terra.Entity, error)
	UploadEntities(ctx context.Context, namespace, name, tsv string) error
	ListSubmissions(ctx context.Context, namespace, name string) ([]terra.Submission, error)
	GetSubmission(ctx context.Context, namespace, name, submissionID string) (*terra.SubmissionDetail, error)
	CreateSubmission(ctx context.Context, namespace, name string, req terra.SubmissionRequest) (*terra.Submission, error)
	AbortSubmission(ctx context.Context, namespace, name, submissionID string) error
	GetWorkflowMetadata(ctx context.Context, namespace, name, submissionID, workflowID string, include, exclude []string) (map[string]any, error)
	GetWorkflowOutputs(ctx context.Context, namespace, name, submissionID, workflowID string) (map[string]any, error)
	GetWorkflowCost(ctx context.Context, namespace, name, submissionID, workflowID string) (map[string]any, error)
	GetMethodConfig(ctx context.Context, namespace, name, configNamespace, configName string) (map[string]any, error)
	UpdateMethodConfig(ctx context.Context, namespace, name, configNamespace, configName string, config map[string]any) error
	CopyMethodConfig(ctx context.Context, srcNamespace, srcName, dstNamespace, dstName, configNamespace, configName string) error
}

// Service wires the tool handlers to their collaborators.
type Service struct {
	platform Platform
	logs     gcslog.Store
	gate     *Gate

	// The job-status client is only needed by diagnose_task_failure,
	// so it is built on first use and then shared.
	newJobs  func() lifesciences.Client
	jobsOnce sync.Once
	jobs     lifesciences.Client
}

// NewService builds the tool service. newJobs may be nil when the
// deployment has no job-status backend; diagnose_task_failure then
// reports the backend as unavailable.
func NewService(platform Platform, logs gcslog.Store, gate *Gate, newJobs func() lifesciences.Client) *Service {
	return &Service{
		platform: platform,
		logs:     logs,
		gate:     gate,
		newJobs:  newJobs,
	}
}

// Register adds every tool to the MCP server.
func (s *Service) Register(srv *server.MCPServer) {
	s.registerWorkspaceTools(srv)
	s.registerSubmissionTools(srv)
	s.registerMetadataTools(srv)
	s.registerLogTools(srv)
	s.registerMethodConfigTools(srv)
	s.registerDiagnoseTools(srv)
}

func (s *Service) jobStatus() lifesciences.Client {
	s.jobsOnce.Do(func() {
		if s.newJobs != nil {
			s.jobs = s.newJobs()
		}
	})
	return s.jobs
}

// jsonResult marshals v as the tool's text payload.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(raw)), nil
}

// toolError surfaces a domain error to the caller. The typed errors
// from the terra, cromwell and docpath packages render actionable
// messages on their own.
func toolError(err error) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(err.Error()), nil
}

// requireUUID rejects malformed identifiers before any network round
// trip.
func requireUUID(label, value string) error {
	if _, err := uuid.Parse(value); err != nil {
		return &terra.ValidationError{
			Message: fmt.Sprintf("%s %q is not a valid UUID", label, value),
		}
	}
	return nil
}

// optionalInt reads an argument that distinguishes "absent" from zero.
func optionalInt(req mcp.CallToolRequest, name string) (*int, error) {
	raw, ok := req.GetArguments()[name]
	if !ok || raw == nil {
		return nil, nil
	}
	switch v := raw.(type) {
	case float64:
		n := int(v)
		return &n, nil
	case int:
		return &v, nil
	case int64:
		n := int(v)
		return &n, nil
	default:
		return nil, &terra.ValidationError{
			Message: fmt.Sprintf("%s must be an integer, got %T", name, raw),
		}
	}
}
