// Package lifesciences looks up backend compute job status by the
// opaque job identifier Cromwell records per task execution. Only the
// chronological event list is consumed downstream, by the infra-issue
// classifier; the rest of the job object is passed through for context.
package lifesciences

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/valyala/fasthttp"

	"terramcp/internal/diagnose"
	"terramcp/internal/terra"
)

// DefaultEndpoint is the lifesciences operations endpoint.
const DefaultEndpoint = "https://lifesciences.googleapis.com/v2beta"

// Job is the structured status of one backend compute job.
type Job struct {
	Name        string           `json:"name"`
	State       string           `json:"state"`
	CreateTime  string           `json:"create_time,omitempty"`
	StartTime   string           `json:"start_time,omitempty"`
	EndTime     string           `json:"end_time,omitempty"`
	MachineType string           `json:"machine_type,omitempty"`
	Events      []diagnose.Event `json:"events"`
	TaskCounts  map[string]int   `json:"task_counts,omitempty"`
}

// Client resolves a backend job id to its status object.
type Client interface {
	GetJob(ctx context.Context, jobID string) (*Job, error)
}

// HTTPClient implements Client against the operations HTTP API. It is
// safe for concurrent read-only use and is constructed once per
// process by the tool layer.
type HTTPClient struct {
	endpoint string
	timeout  time.Duration
	token    terra.TokenSource
	http     *fasthttp.Client
}

// Config holds the client configuration.
type Config struct {
	Endpoint       string
	RequestTimeout time.Duration
	Token          terra.TokenSource
}

// New creates an HTTPClient.
func New(cfg Config) *HTTPClient {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	if cfg.Token == nil {
		cfg.Token = terra.EnvTokenSource()
	}
	return &HTTPClient{
		endpoint: cfg.Endpoint,
		timeout:  cfg.RequestTimeout,
		token:    cfg.Token,
		http:     &fasthttp.Client{},
	}
}

// GetJob fetches one job status object.
func (c *HTTPClient) GetJob(ctx context.Context, jobID string) (*Job, error) {
	if jobID == "" {
		return nil, fmt.Errorf("empty job id")
	}
	token, err := c.token(ctx)
	if err != nil {
		return nil, fmt.Errorf("job %s: %w", jobID, err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.endpoint + "/" + url.PathEscape(jobID))
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set(fasthttp.HeaderAuthorization, "Bearer "+token)
	req.Header.Set(fasthttp.HeaderAccept, "application/json")

	if err := c.http.DoTimeout(req, resp, c.timeout); err != nil {
		return nil, fmt.Errorf("job %s: %w", jobID, err)
	}
	if resp.StatusCode() == fasthttp.StatusNotFound {
		return nil, fmt.Errorf("job %s not found; the backend may have expired its record", jobID)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("job %s: HTTP %d", jobID, resp.StatusCode())
	}
	return decodeJob(resp.Body())
}

// operationDoc is the wire shape of an operations-style job record.
type operationDoc struct {
	Name     string `json:"name"`
	Done     bool   `json:"done"`
	Metadata struct {
		CreateTime string `json:"createTime"`
		StartTime  string `json:"startTime"`
		EndTime    string `json:"endTime"`
		Pipeline   struct {
			Resources struct {
				VirtualMachine struct {
					MachineType string `json:"machineType"`
				} `json:"virtualMachine"`
			} `json:"resources"`
		} `json:"pipeline"`
		Events []struct {
			Description string `json:"description"`
			Timestamp   string `json:"timestamp"`
		} `json:"events"`
	} `json:"metadata"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func decodeJob(body []byte) (*Job, error) {
	var doc operationDoc
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode job status: %w", err)
	}

	job := &Job{
		Name:        doc.Name,
		CreateTime:  doc.Metadata.CreateTime,
		StartTime:   doc.Metadata.StartTime,
		EndTime:     doc.Metadata.EndTime,
		MachineType: doc.Metadata.Pipeline.Resources.VirtualMachine.MachineType,
	}
	switch {
	case !doc.Done:
		job.State = "Running"
	case doc.Error != nil:
		job.State = "Failed"
	default:
		job.State = "Succeeded"
	}

	// The API returns newest events first; downstream wants
	// chronological order.
	events := doc.Metadata.Events
	job.Events = make([]diagnose.Event, 0, len(events))
	for i := len(events) - 1; i >= 0; i-- {
		job.Events = append(job.Events, diagnose.Event{
			Description: events[i].Description,
			Timestamp:   events[i].Timestamp,
		})
	}
	return job, nil
}
