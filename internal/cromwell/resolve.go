package cromwell

import (
	"fmt"
	"sort"
	"strings"
)

// taskListLimit caps how many task names a TaskNotFoundError lists.
const taskListLimit = 10

// TaskNotFoundError reports an unresolvable task name together with a
// capped list of the names that do exist.
type TaskNotFoundError struct {
	Name      string
	Available []string
	More      bool
}

func (e *TaskNotFoundError) Error() string {
	preview := strings.Join(e.Available, ", ")
	if e.More {
		preview += ", ..."
	}
	return fmt.Sprintf("task %q not found in workflow; available tasks: [%s]", e.Name, preview)
}

// ShardNotFoundError reports a shard index absent from a task's
// executions, listing the distinct indices present.
type ShardNotFoundError struct {
	Task      string
	Shard     int
	Available []int
}

func (e *ShardNotFoundError) Error() string {
	return fmt.Sprintf("shard %d not found for task %q; available shards: %v", e.Shard, e.Task, e.Available)
}

// AttemptNotFoundError reports an attempt number absent from a task's
// (shard-filtered) executions.
type AttemptNotFoundError struct {
	Task      string
	Attempt   int
	Available []int
}

func (e *AttemptNotFoundError) Error() string {
	return fmt.Sprintf("attempt %d not found for task %q; available attempts: %v", e.Attempt, e.Task, e.Available)
}

// Resolve disambiguates which single task execution a caller means.
// Task name matching tries, in order: exact key, "{workflowName}.{name}",
// then the first key (in sorted order) ending in ".{name}". The suffix
// fallback takes the first match even when several subworkflow-qualified
// keys share the suffix; that ambiguity is a documented limitation.
// With no shard filter given, executions of all shards are candidates;
// with no attempt filter the last list entry wins, since the source
// orders later attempts last.
func Resolve(meta *Metadata, taskName string, shardIndex, attempt *int) (*TaskExecution, string, error) {
	key, execs, err := matchTask(meta, taskName)
	if err != nil {
		return nil, "", err
	}

	if shardIndex != nil {
		filtered := make([]TaskExecution, 0, len(execs))
		for _, e := range execs {
			if e.ShardIndex == *shardIndex {
				filtered = append(filtered, e)
			}
		}
		if len(filtered) == 0 {
			return nil, "", &ShardNotFoundError{
				Task:      key,
				Shard:     *shardIndex,
				Available: distinctShards(execs),
			}
		}
		execs = filtered
	}

	if attempt != nil {
		filtered := make([]TaskExecution, 0, len(execs))
		for _, e := range execs {
			if e.Attempt == *attempt {
				filtered = append(filtered, e)
			}
		}
		if len(filtered) == 0 {
			return nil, "", &AttemptNotFoundError{
				Task:      key,
				Attempt:   *attempt,
				Available: distinctAttempts(execs),
			}
		}
		execs = filtered
	}

	chosen := execs[len(execs)-1]
	return &chosen, key, nil
}

func matchTask(meta *Metadata, taskName string) (string, []TaskExecution, error) {
	if execs, ok := meta.Calls[taskName]; ok && len(execs) > 0 {
		return taskName, execs, nil
	}

	qualified := meta.Name + "." + taskName
	if execs, ok := meta.Calls[qualified]; ok && len(execs) > 0 {
		return qualified, execs, nil
	}

	suffix := "." + taskName
	for _, key := range meta.TaskNames() {
		if strings.HasSuffix(key, suffix) && len(meta.Calls[key]) > 0 {
			return key, meta.Calls[key], nil
		}
	}

	available := meta.TaskNames()
	more := len(available) > taskListLimit
	if more {
		available = available[:taskListLimit]
	}
	return "", nil, &TaskNotFoundError{Name: taskName, Available: available, More: more}
}

func distinctShards(execs []TaskExecution) []int {
	return distinctInts(execs, func(e TaskExecution) int { return e.ShardIndex })
}

func distinctAttempts(execs []TaskExecution) []int {
	return distinctInts(execs, func(e TaskExecution) int { return e.Attempt })
}

func distinctInts(execs []TaskExecution, pick func(TaskExecution) int) []int {
	seen := make(map[int]bool)
	var out []int
	for _, e := range execs {
		v := pick(e)
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Ints(out)
	return out
}
