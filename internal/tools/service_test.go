package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"

	"terramcp/internal/lifesciences"
	"terramcp/internal/terra"
)

const (
	testSubmissionID = "3a6f1f0e-5b7d-4f3a-9c8e-2d1b4a5c6e7f"
	testWorkflowID   = "9e8d7c6b-5a4f-4e3d-8c2b-1a0f9e8d7c6b"
)

// fakePlatform implements Platform with per-method function fields.
// Unset methods return zero values.
type fakePlatform struct {
	listWorkspaces      func(ctx context.Context) ([]terra.Workspace, error)
	listEntityTypes     func(ctx context.Context, namespace, name string) ([]terra.EntityType, error)
	getEntities         func(ctx context.Context, namespace, name, entityType string) ([]terra.Entity, error)
	uploadEntities      func(ctx context.Context, namespace, name, tsv string) error
	listSubmissions     func(ctx context.Context, namespace, name string) ([]terra.Submission, error)
	getSubmission       func(ctx context.Context, namespace, name, submissionID string) (*terra.SubmissionDetail, error)
	createSubmission    func(ctx context.Context, namespace, name string, req terra.SubmissionRequest) (*terra.Submission, error)
	abortSubmission     func(ctx context.Context, namespace, name, submissionID string) error
	getWorkflowMetadata func(ctx context.Context, namespace, name, submissionID, workflowID string, include, exclude []string) (map[string]any, error)
	getWorkflowOutputs  func(ctx context.Context, namespace, name, submissionID, workflowID string) (map[string]any, error)
	getWorkflowCost     func(ctx context.Context, namespace, name, submissionID, workflowID string) (map[string]any, error)
	getMethodConfig     func(ctx context.Context, namespace, name, configNamespace, configName string) (map[string]any, error)
	updateMethodConfig  func(ctx context.Context, namespace, name, configNamespace, configName string, config map[string]any) error
	copyMethodConfig    func(ctx context.Context, srcNamespace, srcName, dstNamespace, dstName, configNamespace, configName string) error
}

func (f *fakePlatform) ListWorkspaces(ctx context.Context) ([]terra.Workspace, error) {
	if f.listWorkspaces == nil {
		return nil, nil
	}
	return f.listWorkspaces(ctx)
}

func (f *fakePlatform) ListEntityTypes(ctx context.Context, namespace, name string) ([]terra.EntityType, error) {
	if f.listEntityTypes == nil {
		return nil, nil
	}
	return f.listEntityTypes(ctx, namespace, name)
}

func (f *fakePlatform) GetEntities(ctx context.Context, namespace, name, entityType string) ([]terra.Entity, error) {
	if f.getEntities == nil {
		return nil, nil
	}
	return f.getEntities(ctx, namespace, name, entityType)
}

func (f *fakePlatform) UploadEntities(ctx context.Context, namespace, name, tsv string) error {
	if f.uploadEntities == nil {
		return nil
	}
	return f.uploadEntities(ctx, namespace, name, tsv)
}

func (f *fakePlatform) ListSubmissions(ctx context.Context, namespace, name string) ([]terra.Submission, error) {
	if f.listSubmissions == nil {
		return nil, nil
	}
	return f.listSubmissions(ctx, namespace, name)
}

func (f *fakePlatform) GetSubmission(ctx context.Context, namespace, name, submissionID string) (*terra.SubmissionDetail, error) {
	if f.getSubmission == nil {
		return &terra.SubmissionDetail{}, nil
	}
	return f.getSubmission(ctx, namespace, name, submissionID)
}

func (f *fakePlatform) CreateSubmission(ctx context.Context, namespace, name string, req terra.SubmissionRequest) (*terra.Submission, error) {
	if f.createSubmission == nil {
		return &terra.Submission{}, nil
	}
	return f.createSubmission(ctx, namespace, name, req)
}

func (f *fakePlatform) AbortSubmission(ctx context.Context, namespace, name, submissionID string) error {
	if f.abortSubmission == nil {
		return nil
	}
	return f.abortSubmission(ctx, namespace, name, submissionID)
}

func (f *fakePlatform) GetWorkflowMetadata(ctx context.Context, namespace, name, submissionID, workflowID string, include, exclude []string) (map[string]any, error) {
	if f.getWorkflowMetadata == nil {
		return map[string]any{}, nil
	}
	return f.getWorkflowMetadata(ctx, namespace, name, submissionID, workflowID, include, exclude)
}

func (f *fakePlatform) GetWorkflowOutputs(ctx context.Context, namespace, name, submissionID, workflowID string) (map[string]any, error) {
	if f.getWorkflowOutputs == nil {
		return map[string]any{}, nil
	}
	return f.getWorkflowOutputs(ctx, namespace, name, submissionID, workflowID)
}

func (f *fakePlatform) GetWorkflowCost(ctx context.Context, namespace, name, submissionID, workflowID string) (map[string]any, error) {
	if f.getWorkflowCost == nil {
		return map[string]any{}, nil
	}
	return f.getWorkflowCost(ctx, namespace, name, submissionID, workflowID)
}

func (f *fakePlatform) GetMethodConfig(ctx context.Context, namespace, name, configNamespace, configName string) (map[string]any, error) {
	if f.getMethodConfig == nil {
		return map[string]any{}, nil
	}
	return f.getMethodConfig(ctx, namespace, name, configNamespace, configName)
}

func (f *fakePlatform) UpdateMethodConfig(ctx context.Context, namespace, name, configNamespace, configName string, config map[string]any) error {
	if f.updateMethodConfig == nil {
		return nil
	}
	return f.updateMethodConfig(ctx, namespace, name, configNamespace, configName, config)
}

func (f *fakePlatform) CopyMethodConfig(ctx context.Context, srcNamespace, srcName, dstNamespace, dstName, configNamespace, configName string) error {
	if f.copyMethodConfig == nil {
		return nil
	}
	return f.copyMethodConfig(ctx, srcNamespace, srcName, dstNamespace, dstName, configNamespace, configName)
}

// fakeStore serves canned log bodies by locator.
type fakeStore struct {
	objects map[string]string
	err     error
}

func (f *fakeStore) Fetch(ctx context.Context, locator string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	body, ok := f.objects[locator]
	if !ok {
		return "", context.DeadlineExceeded
	}
	return body, nil
}

// fakeJobs serves canned job status objects by job id.
type fakeJobs struct {
	jobs map[string]*lifesciences.Job
	err  error
}

func (f *fakeJobs) GetJob(ctx context.Context, jobID string) (*lifesciences.Job, error) {
	if f.err != nil {
		return nil, f.err
	}
	job, ok := f.jobs[jobID]
	if !ok {
		return nil, context.DeadlineExceeded
	}
	return job, nil
}

func newTestService(platform Platform, opts ...func(*Service)) *Service {
	svc := NewService(platform, &fakeStore{}, NewGate(false), nil)
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func withStore(store *fakeStore) func(*Service) {
	return func(s *Service) { s.logs = store }
}

func withWrites() func(*Service) {
	return func(s *Service) { s.gate = NewGate(true) }
}

func withJobs(jobs *fakeJobs) func(*Service) {
	return func(s *Service) {
		s.newJobs = func() lifesciences.Client { return jobs }
	}
}

func callReq(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// workflowArgs returns the common per-workflow arguments plus extras.
func workflowArgs(extra map[string]any) map[string]any {
	args := map[string]any{
		"workspace_namespace": "test-ns",
		"workspace_name":      "test-ws",
		"submission_id":       testSubmissionID,
		"workflow_id":         testWorkflowID,
	}
	for k, v := range extra {
		args[k] = v
	}
	return args
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.False(t, res.IsError, "unexpected tool error: %+v", res.Content)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "first content block is not text")
	return text.Text
}

func resultDoc(t *testing.T, res *mcp.CallToolResult) map[string]any {
	t.Helper()
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &doc))
	return doc
}

func errorText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.True(t, res.IsError, "expected a tool error")
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "first content block is not text")
	return text.Text
}
