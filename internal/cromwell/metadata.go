// Package cromwell models Cromwell execution metadata and derives the
// bounded views served by the tool layer: status digests, task/shard/
// attempt resolution and the per-task log index. The raw document is a
// decoded JSON tree; everything here is a pure projection over it.
package cromwell

import (
	"sort"
)

// Metadata is the typed view of one workflow run's execution metadata.
type Metadata struct {
	ID       string
	Name     string
	Status   string
	Start    string
	End      string
	Calls    map[string][]TaskExecution
	Failures []Failure
}

// TaskExecution is one execution attempt of one task, possibly one
// shard of a scattered task. Within one task name the source array
// places later attempts last.
type TaskExecution struct {
	Status     string
	ShardIndex int // -1 means "not scattered"
	Attempt    int // 1-based, later attempts are retries
	Stderr     string
	Stdout     string
	Outputs    map[string]any
	Failures   []Failure
	Start      string
	End        string
	JobID      string
}

// Failure is one failure record, possibly nested.
type Failure struct {
	Message  string    `json:"message"`
	CausedBy []Failure `json:"causedBy,omitempty"`
}

// Decode builds a Metadata from a decoded metadata JSON document.
// Missing top-level fields degrade to "unknown"/"Unknown" rather than
// failing; the upstream API is free to omit almost everything.
func Decode(doc map[string]any) *Metadata {
	meta := &Metadata{
		ID:     stringField(doc, "id", "unknown"),
		Name:   stringField(doc, "workflowName", "unknown"),
		Status: stringField(doc, "status", "Unknown"),
		Start:  stringField(doc, "start", ""),
		End:    stringField(doc, "end", ""),
		Calls:  make(map[string][]TaskExecution),
	}

	if calls, ok := doc["calls"].(map[string]any); ok {
		for name, raw := range calls {
			execs, ok := raw.([]any)
			if !ok {
				continue
			}
			list := make([]TaskExecution, 0, len(execs))
			for _, e := range execs {
				if em, ok := e.(map[string]any); ok {
					list = append(list, decodeExecution(em))
				}
			}
			meta.Calls[name] = list
		}
	}
	meta.Failures = decodeFailures(doc["failures"])
	return meta
}

func decodeExecution(m map[string]any) TaskExecution {
	exec := TaskExecution{
		Status:     stringField(m, "executionStatus", "Unknown"),
		ShardIndex: intField(m, "shardIndex", -1),
		Attempt:    intField(m, "attempt", 1),
		Stderr:     stringField(m, "stderr", ""),
		Stdout:     stringField(m, "stdout", ""),
		Start:      stringField(m, "start", ""),
		End:        stringField(m, "end", ""),
		JobID:      stringField(m, "jobId", ""),
	}
	if outputs, ok := m["outputs"].(map[string]any); ok {
		exec.Outputs = outputs
	}
	exec.Failures = decodeFailures(m["failures"])
	return exec
}

func decodeFailures(raw any) []Failure {
	list, ok := raw.([]any)
	if !ok || len(list) == 0 {
		return nil
	}
	failures := make([]Failure, 0, len(list))
	for _, f := range list {
		fm, ok := f.(map[string]any)
		if !ok {
			continue
		}
		failures = append(failures, Failure{
			Message:  stringField(fm, "message", ""),
			CausedBy: decodeFailures(fm["causedBy"]),
		})
	}
	return failures
}

// TaskNames returns the call map's keys in sorted order.
func (m *Metadata) TaskNames() []string {
	names := make([]string, 0, len(m.Calls))
	for name := range m.Calls {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func stringField(m map[string]any, key, fallback string) string {
	if s, ok := m[key].(string); ok && s != "" {
		return s
	}
	return fallback
}

// intField tolerates the number representations of both encoding/json
// (float64) and ojg (int64).
func intField(m map[string]any, key string, fallback int) int {
	switch n := m[key].(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return fallback
	}
}
