package cromwell

// Summary is the fixed-shape digest of one workflow run. It must stay
// small regardless of workflow size: it is the triage entry point
// before any full-document transfer.
type Summary struct {
	WorkflowID   string        `json:"workflow_id"`
	WorkflowName string        `json:"workflow_name"`
	Status       string        `json:"status"`
	Start        string        `json:"start,omitempty"`
	End          string        `json:"end,omitempty"`
	Tasks        TaskCounts    `json:"tasks"`
	FailedTasks  []FailedTask  `json:"failed_tasks,omitempty"`
	Failures     []Failure     `json:"workflow_failures,omitempty"`
}

// TaskCounts breaks down task executions by status. Total is always
// the sum of ByStatus values.
type TaskCounts struct {
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"by_status"`
}

// FailedTask enumerates one failed task execution with everything
// needed to go fetch its logs.
type FailedTask struct {
	Name      string       `json:"name"`
	Shard     int          `json:"shard"`
	Attempt   int          `json:"attempt"`
	Error     string       `json:"error"`
	StderrURL string       `json:"stderr_url"`
	StdoutURL string       `json:"stdout_url"`
	Runtime   *RuntimeInfo `json:"runtime_info,omitempty"`
}

// RuntimeInfo carries timing for a failed execution; attached only when
// both timestamps are present.
type RuntimeInfo struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// noMessagePlaceholder is reported when a failed execution carries an
// empty failures list.
const noMessagePlaceholder = "no message available"

// Summarize produces the digest. Pure function of the metadata; task
// names are visited in sorted order so output is deterministic.
func Summarize(meta *Metadata) *Summary {
	summary := &Summary{
		WorkflowID:   meta.ID,
		WorkflowName: meta.Name,
		Status:       meta.Status,
		Start:        meta.Start,
		End:          meta.End,
		Tasks: TaskCounts{
			ByStatus: make(map[string]int),
		},
	}

	for _, name := range meta.TaskNames() {
		for _, exec := range meta.Calls[name] {
			summary.Tasks.ByStatus[exec.Status]++
			summary.Tasks.Total++
			if exec.Status != "Failed" {
				continue
			}
			failed := FailedTask{
				Name:      name,
				Shard:     exec.ShardIndex,
				Attempt:   exec.Attempt,
				Error:     noMessagePlaceholder,
				StderrURL: exec.Stderr,
				StdoutURL: exec.Stdout,
			}
			if len(exec.Failures) > 0 {
				failed.Error = exec.Failures[0].Message
			}
			if exec.Start != "" && exec.End != "" {
				failed.Runtime = &RuntimeInfo{Start: exec.Start, End: exec.End}
			}
			summary.FailedTasks = append(summary.FailedTasks, failed)
		}
	}

	if len(meta.Failures) > 0 {
		summary.Failures = meta.Failures
	}
	return summary
}
