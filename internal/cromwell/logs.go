package cromwell

import "fmt"

// LogEntry bundles the log locations and execution facts for one task
// execution key. Content fields are filled in later by the tool layer
// when the caller asks for fetched log bodies.
type LogEntry struct {
	StderrURL        string `json:"stderr_url"`
	StdoutURL        string `json:"stdout_url"`
	Status           string `json:"status"`
	Attempt          int    `json:"attempt"`
	Shard            int    `json:"shard"`
	StderrContent    string `json:"stderr_content,omitempty"`
	StderrTruncated  bool   `json:"stderr_truncated,omitempty"`
	StdoutContent    string `json:"stdout_content,omitempty"`
	StdoutTruncated  bool   `json:"stdout_truncated,omitempty"`
	ContentNote      string `json:"content_note,omitempty"`
}

// LogIndex builds the per-task log map. A task with a single execution
// keys as the bare task name; a task with several keys as
// "name[shard]". Attempts of the same shard collapse to the latest one,
// since later array entries are later attempts.
func LogIndex(meta *Metadata) (map[string]*LogEntry, []string) {
	index := make(map[string]*LogEntry)
	var order []string

	for _, name := range meta.TaskNames() {
		execs := meta.Calls[name]
		for _, exec := range execs {
			key := name
			if len(execs) > 1 {
				key = fmt.Sprintf("%s[%d]", name, exec.ShardIndex)
			}
			if _, exists := index[key]; !exists {
				order = append(order, key)
			}
			index[key] = &LogEntry{
				StderrURL: exec.Stderr,
				StdoutURL: exec.Stdout,
				Status:    exec.Status,
				Attempt:   exec.Attempt,
				Shard:     exec.ShardIndex,
			}
		}
	}
	return index, order
}
