// Package terra is the REST client for the workflow platform's
// FISS-style API. It is a thin pass-through: each call maps one
// endpoint, decodes the body, and translates HTTP statuses into the
// shared error taxonomy. Credentials come from the environment;
// acquiring them is out of scope here.
package terra

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"sort"
	"time"

	"github.com/ohler55/ojg/oj"
	"github.com/valyala/fasthttp"
)

// TokenSource supplies a bearer token per request.
type TokenSource func(ctx context.Context) (string, error)

// EnvTokenSource reads the token from TERRA_BEARER_TOKEN, falling back
// to GOOGLE_OAUTH_ACCESS_TOKEN.
func EnvTokenSource() TokenSource {
	return func(ctx context.Context) (string, error) {
		if tok := os.Getenv("TERRA_BEARER_TOKEN"); tok != "" {
			return tok, nil
		}
		if tok := os.Getenv("GOOGLE_OAUTH_ACCESS_TOKEN"); tok != "" {
			return tok, nil
		}
		return "", fmt.Errorf("no bearer token in TERRA_BEARER_TOKEN or GOOGLE_OAUTH_ACCESS_TOKEN")
	}
}

// StaticTokenSource returns the same token for every request.
func StaticTokenSource(token string) TokenSource {
	return func(context.Context) (string, error) { return token, nil }
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the platform API root, without a trailing slash.
	BaseURL string

	// RequestTimeout bounds each HTTP round trip.
	RequestTimeout time.Duration

	// Token supplies the bearer token. Defaults to EnvTokenSource.
	Token TokenSource
}

// Client talks to the platform over fasthttp.
type Client struct {
	baseURL string
	timeout time.Duration
	token   TokenSource
	http    *fasthttp.Client
}

// New creates a platform client.
func New(cfg Config) *Client {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	if cfg.Token == nil {
		cfg.Token = EnvTokenSource()
	}
	return &Client{
		baseURL: cfg.BaseURL,
		timeout: cfg.RequestTimeout,
		token:   cfg.Token,
		http:    &fasthttp.Client{},
	}
}

// Workspace is one workspace listing entry.
type Workspace struct {
	Namespace   string `json:"namespace"`
	Name        string `json:"name"`
	CreatedBy   string `json:"created_by"`
	CreatedDate string `json:"created_date"`
	AccessLevel string `json:"access_level,omitempty"`
}

// EntityType is one data table with its row count.
type EntityType struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Entity is one row of a data table.
type Entity struct {
	Name       string         `json:"name"`
	EntityType string         `json:"entityType"`
	Attributes map[string]any `json:"attributes"`
}

// Submission is one submission listing entry.
type Submission struct {
	SubmissionID                 string `json:"submissionId"`
	Status                       string `json:"status"`
	SubmissionDate               string `json:"submissionDate"`
	Submitter                    string `json:"submitter"`
	MethodConfigurationName      string `json:"methodConfigurationName"`
	MethodConfigurationNamespace string `json:"methodConfigurationNamespace"`
}

// SubmissionDetail is one submission with its workflows. Workflows stay
// loosely typed; the platform attaches heterogeneous per-workflow
// detail (entity, inputs, messages) that callers pass through.
type SubmissionDetail struct {
	SubmissionID   string           `json:"submissionId"`
	Status         string           `json:"status"`
	SubmissionDate string           `json:"submissionDate"`
	Submitter      string           `json:"submitter"`
	Workflows      []map[string]any `json:"workflows"`
}

// SubmissionRequest creates one submission.
type SubmissionRequest struct {
	MethodConfigurationNamespace string `json:"methodConfigurationNamespace"`
	MethodConfigurationName      string `json:"methodConfigurationName"`
	EntityType                   string `json:"entityType,omitempty"`
	EntityName                   string `json:"entityName,omitempty"`
	Expression                   string `json:"expression,omitempty"`
	UseCallCache                 bool   `json:"useCallCache"`
}

// ListWorkspaces lists all workspaces the caller can read.
func (c *Client) ListWorkspaces(ctx context.Context) ([]Workspace, error) {
	body, err := c.get(ctx, "/api/workspaces", nil, "list workspaces", "workspace list", "")
	if err != nil {
		return nil, err
	}
	var raw []struct {
		AccessLevel string `json:"accessLevel"`
		Workspace   struct {
			Namespace   string `json:"namespace"`
			Name        string `json:"name"`
			CreatedBy   string `json:"createdBy"`
			CreatedDate string `json:"createdDate"`
		} `json:"workspace"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &UpstreamError{Operation: "list workspaces", Cause: err}
	}
	out := make([]Workspace, 0, len(raw))
	for _, w := range raw {
		out = append(out, Workspace{
			Namespace:   w.Workspace.Namespace,
			Name:        w.Workspace.Name,
			CreatedBy:   w.Workspace.CreatedBy,
			CreatedDate: w.Workspace.CreatedDate,
			AccessLevel: w.AccessLevel,
		})
	}
	return out, nil
}

// ListEntityTypes lists the data tables of one workspace.
func (c *Client) ListEntityTypes(ctx context.Context, namespace, name string) ([]EntityType, error) {
	path := fmt.Sprintf("/api/workspaces/%s/%s/entities", url.PathEscape(namespace), url.PathEscape(name))
	body, err := c.get(ctx, path, nil, "list data tables", "workspace", namespace+"/"+name)
	if err != nil {
		return nil, err
	}
	var raw map[string]struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &UpstreamError{Operation: "list data tables", Cause: err}
	}
	out := make([]EntityType, 0, len(raw))
	for typeName, info := range raw {
		out = append(out, EntityType{Name: typeName, Count: info.Count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// GetEntities fetches all rows of one data table.
func (c *Client) GetEntities(ctx context.Context, namespace, name, entityType string) ([]Entity, error) {
	path := fmt.Sprintf("/api/workspaces/%s/%s/entities/%s",
		url.PathEscape(namespace), url.PathEscape(name), url.PathEscape(entityType))
	body, err := c.get(ctx, path, nil, "get entities", "data table", entityType)
	if err != nil {
		return nil, err
	}
	var out []Entity
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &UpstreamError{Operation: "get entities", Cause: err}
	}
	return out, nil
}

// UploadEntities imports entities from TSV content.
func (c *Client) UploadEntities(ctx context.Context, namespace, name, tsv string) error {
	path := fmt.Sprintf("/api/workspaces/%s/%s/flexibleImportEntities",
		url.PathEscape(namespace), url.PathEscape(name))
	form := url.Values{"entities": {tsv}}
	_, err := c.do(ctx, fasthttp.MethodPost, path, nil,
		[]byte(form.Encode()), "application/x-www-form-urlencoded",
		"upload entities", "workspace", namespace+"/"+name)
	return err
}

// ListSubmissions lists the submissions of one workspace.
func (c *Client) ListSubmissions(ctx context.Context, namespace, name string) ([]Submission, error) {
	path := fmt.Sprintf("/api/workspaces/%s/%s/submissions", url.PathEscape(namespace), url.PathEscape(name))
	body, err := c.get(ctx, path, nil, "list submissions", "workspace", namespace+"/"+name)
	if err != nil {
		return nil, err
	}
	var out []Submission
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &UpstreamError{Operation: "list submissions", Cause: err}
	}
	return out, nil
}

// GetSubmission fetches one submission with its workflows.
func (c *Client) GetSubmission(ctx context.Context, namespace, name, submissionID string) (*SubmissionDetail, error) {
	path := fmt.Sprintf("/api/workspaces/%s/%s/submissions/%s",
		url.PathEscape(namespace), url.PathEscape(name), url.PathEscape(submissionID))
	body, err := c.get(ctx, path, nil, "get submission", "submission", submissionID)
	if err != nil {
		return nil, err
	}
	var out SubmissionDetail
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &UpstreamError{Operation: "get submission", Cause: err}
	}
	return &out, nil
}

// CreateSubmission submits a method configuration for execution.
func (c *Client) CreateSubmission(ctx context.Context, namespace, name string, req SubmissionRequest) (*Submission, error) {
	path := fmt.Sprintf("/api/workspaces/%s/%s/submissions", url.PathEscape(namespace), url.PathEscape(name))
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, &ValidationError{Message: "could not encode submission request"}
	}
	body, err := c.do(ctx, fasthttp.MethodPost, path, nil, payload, "application/json",
		"submit workflow", "method config", req.MethodConfigurationNamespace+"/"+req.MethodConfigurationName)
	if err != nil {
		return nil, err
	}
	var out Submission
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &UpstreamError{Operation: "submit workflow", Cause: err}
	}
	return &out, nil
}

// AbortSubmission aborts one submission.
func (c *Client) AbortSubmission(ctx context.Context, namespace, name, submissionID string) error {
	path := fmt.Sprintf("/api/workspaces/%s/%s/submissions/%s",
		url.PathEscape(namespace), url.PathEscape(name), url.PathEscape(submissionID))
	_, err := c.do(ctx, fasthttp.MethodDelete, path, nil, nil, "",
		"abort submission", "submission", submissionID)
	return err
}

// GetWorkflowMetadata fetches Cromwell execution metadata for one
// workflow. include/exclude become repeated includeKey/excludeKey
// query parameters so verbose sections never leave the platform.
// The document is parsed with ojg; metadata bodies routinely reach
// many megabytes.
func (c *Client) GetWorkflowMetadata(ctx context.Context, namespace, name, submissionID, workflowID string, include, exclude []string) (map[string]any, error) {
	path := fmt.Sprintf("/api/workspaces/%s/%s/submissions/%s/workflows/%s",
		url.PathEscape(namespace), url.PathEscape(name),
		url.PathEscape(submissionID), url.PathEscape(workflowID))
	query := url.Values{}
	for _, k := range include {
		query.Add("includeKey", k)
	}
	for _, k := range exclude {
		query.Add("excludeKey", k)
	}
	body, err := c.get(ctx, path, query, "get workflow metadata", "workflow", workflowID)
	if err != nil {
		return nil, err
	}
	return c.parseDocument("get workflow metadata", body)
}

// GetWorkflowOutputs fetches the outputs document of one workflow.
func (c *Client) GetWorkflowOutputs(ctx context.Context, namespace, name, submissionID, workflowID string) (map[string]any, error) {
	path := fmt.Sprintf("/api/workspaces/%s/%s/submissions/%s/workflows/%s/outputs",
		url.PathEscape(namespace), url.PathEscape(name),
		url.PathEscape(submissionID), url.PathEscape(workflowID))
	body, err := c.get(ctx, path, nil, "get workflow outputs", "workflow", workflowID)
	if err != nil {
		return nil, err
	}
	return c.parseDocument("get workflow outputs", body)
}

// GetWorkflowCost fetches the cost document of one workflow.
func (c *Client) GetWorkflowCost(ctx context.Context, namespace, name, submissionID, workflowID string) (map[string]any, error) {
	path := fmt.Sprintf("/api/workspaces/%s/%s/submissions/%s/workflows/%s/cost",
		url.PathEscape(namespace), url.PathEscape(name),
		url.PathEscape(submissionID), url.PathEscape(workflowID))
	body, err := c.get(ctx, path, nil, "get workflow cost", "workflow", workflowID)
	if err != nil {
		return nil, err
	}
	return c.parseDocument("get workflow cost", body)
}

// GetMethodConfig fetches one method configuration.
func (c *Client) GetMethodConfig(ctx context.Context, namespace, name, configNamespace, configName string) (map[string]any, error) {
	path := fmt.Sprintf("/api/workspaces/%s/%s/method_configs/%s/%s",
		url.PathEscape(namespace), url.PathEscape(name),
		url.PathEscape(configNamespace), url.PathEscape(configName))
	body, err := c.get(ctx, path, nil, "get method config", "method config", configNamespace+"/"+configName)
	if err != nil {
		return nil, err
	}
	return c.parseDocument("get method config", body)
}

// UpdateMethodConfig overwrites one method configuration.
func (c *Client) UpdateMethodConfig(ctx context.Context, namespace, name, configNamespace, configName string, config map[string]any) error {
	path := fmt.Sprintf("/api/workspaces/%s/%s/method_configs/%s/%s",
		url.PathEscape(namespace), url.PathEscape(name),
		url.PathEscape(configNamespace), url.PathEscape(configName))
	payload, err := json.Marshal(config)
	if err != nil {
		return &ValidationError{Message: "could not encode method config"}
	}
	_, err = c.do(ctx, fasthttp.MethodPost, path, nil, payload, "application/json",
		"update method config", "method config", configNamespace+"/"+configName)
	return err
}

// CopyMethodConfig copies a method configuration between workspaces.
func (c *Client) CopyMethodConfig(ctx context.Context, srcNamespace, srcName, dstNamespace, dstName, configNamespace, configName string) error {
	payload, err := json.Marshal(map[string]any{
		"source": map[string]any{
			"workspace":    map[string]string{"namespace": srcNamespace, "name": srcName},
			"methodconfig": map[string]string{"namespace": configNamespace, "name": configName},
		},
		"destination": map[string]any{
			"workspace":    map[string]string{"namespace": dstNamespace, "name": dstName},
			"methodconfig": map[string]string{"namespace": configNamespace, "name": configName},
		},
	})
	if err != nil {
		return &ValidationError{Message: "could not encode copy request"}
	}
	_, err = c.do(ctx, fasthttp.MethodPost, "/api/methodconfigs/copy", nil, payload, "application/json",
		"copy method config", "method config", configNamespace+"/"+configName)
	return err
}

func (c *Client) parseDocument(operation string, body []byte) (map[string]any, error) {
	parsed, err := oj.Parse(body)
	if err != nil {
		return nil, &UpstreamError{Operation: operation, Cause: err}
	}
	doc, ok := parsed.(map[string]any)
	if !ok {
		return nil, &UpstreamError{Operation: operation, Cause: fmt.Errorf("expected a JSON object, got %T", parsed)}
	}
	return doc, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, operation, resource, id string) ([]byte, error) {
	return c.do(ctx, fasthttp.MethodGet, path, query, nil, "", operation, resource, id)
}

// do performs one HTTP round trip and applies the status mapping.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte, contentType, operation, resource, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &UpstreamError{Operation: operation, Cause: err}
	}
	token, err := c.token(ctx)
	if err != nil {
		return nil, &UpstreamError{Operation: operation, Cause: err}
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	uri := c.baseURL + path
	if len(query) > 0 {
		uri += "?" + query.Encode()
	}
	req.SetRequestURI(uri)
	req.Header.SetMethod(method)
	req.Header.Set(fasthttp.HeaderAuthorization, "Bearer "+token)
	req.Header.Set(fasthttp.HeaderAccept, "application/json")
	if contentType != "" {
		req.Header.SetContentType(contentType)
	}
	if body != nil {
		req.SetBody(body)
	}

	if err := c.http.DoTimeout(req, resp, c.timeout); err != nil {
		return nil, &UpstreamError{Operation: operation, Cause: err}
	}
	if err := mapStatus(operation, resource, id, resp.StatusCode(), resp.Body()); err != nil {
		return nil, err
	}
	// The response body is pooled; copy before release.
	out := make([]byte, len(resp.Body()))
	copy(out, resp.Body())
	return out, nil
}
