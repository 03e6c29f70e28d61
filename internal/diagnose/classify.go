// Package diagnose pattern-matches backend job status events against
// known infrastructure failure signatures. Detection is a data-driven
// rule table so new signatures are rows, not new branches.
package diagnose

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Severity tags an Issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Event is one chronological job status-change event.
type Event struct {
	Description string `json:"description"`
	Timestamp   string `json:"timestamp,omitempty"`
}

// Issue is one detected infrastructure problem.
type Issue struct {
	Type        string   `json:"issue_type"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
	Suggestion  string   `json:"suggestion"`
	Event       string   `json:"event"`
}

// rule matches when any of anyOf is present, or, when allOf is set,
// when every allOf substring is present. Patterns are lower-case.
type rule struct {
	issueType   string
	anyOf       []string
	allOf       []string
	severity    Severity
	description string
	suggestion  string
}

// Table order only decides emission order among categories matched by
// the same event; detection itself is independent per category.
var rules = []rule{
	{
		issueType:   "docker_pull_failure",
		anyOf:       []string{"failed to pull image", "image not found", "manifest unknown", "pull access denied"},
		severity:    SeverityError,
		description: "The container image could not be pulled",
		suggestion:  "Verify the image name and tag exist in the registry and are spelled correctly in the WDL runtime section.",
	},
	{
		issueType:   "docker_pull_rate_limit",
		anyOf:       []string{"429", "too many requests", "rate limit"},
		severity:    SeverityError,
		description: "The container registry rate-limited image pulls",
		suggestion:  "Use a mirrored or cached image, authenticate to the registry to raise the pull quota, or retry later.",
	},
	{
		issueType:   "docker_pull_unauthorized",
		allOf:       []string{"unauthorized", "pull"},
		severity:    SeverityError,
		description: "Pulling the container image was rejected as unauthorized",
		suggestion:  "Check that the registry credentials configured for the project grant access to this image.",
	},
	{
		issueType:   "preemption",
		anyOf:       []string{"preempted"},
		severity:    SeverityWarning,
		description: "The worker VM was preempted",
		suggestion:  "Preemptible instances can be reclaimed at any time; Cromwell normally retries. Use a non-preemptible machine if retries keep failing.",
	},
	{
		issueType:   "oom_killed",
		anyOf:       []string{"exit code 137", "oom", "out of memory"},
		severity:    SeverityError,
		description: "The task ran out of memory",
		suggestion:  "Raise the memory runtime attribute for this task, or reduce its working set (e.g. stream instead of loading whole files).",
	},
	{
		issueType:   "resource_exhaustion",
		anyOf:       []string{"quota", "insufficient", "resource exhausted", "exceeded"},
		severity:    SeverityError,
		description: "A cloud resource quota or capacity limit was hit",
		suggestion:  "Check the project's CPU/disk/IP quotas in the target region and request an increase or move to another region.",
	},
	{
		issueType:   "network_error",
		anyOf:       []string{"network", "connection refused", "connection timeout", "dns"},
		severity:    SeverityError,
		description: "A network problem interrupted the job",
		suggestion:  "Usually transient; resubmit. If it persists, check VPC firewall rules and private Google access configuration.",
	},
}

var exitCodeRe = regexp.MustCompile(`(?i)exit code:?\s*(\d+)`)

// Classify scans events in order and returns at most one Issue per
// category, tagged with the first event that triggered it. The generic
// exit-code fallback is only considered while no category at all has
// matched yet, so a recognized signature always suppresses it.
func Classify(events []Event) []Issue {
	var issues []Issue
	matched := make(map[string]bool)

	for _, event := range events {
		lower := strings.ToLower(event.Description)

		for _, r := range rules {
			if matched[r.issueType] || !r.matches(lower) {
				continue
			}
			matched[r.issueType] = true
			issues = append(issues, Issue{
				Type:        r.issueType,
				Description: r.description,
				Severity:    r.severity,
				Suggestion:  r.suggestion,
				Event:       event.Description,
			})
		}

		if len(matched) == 0 {
			if code, ok := nonzeroExitCode(lower); ok {
				issueType := fmt.Sprintf("exit_code_%d", code)
				matched[issueType] = true
				issues = append(issues, Issue{
					Type:        issueType,
					Description: fmt.Sprintf("The task exited with non-zero exit code %d", code),
					Severity:    SeverityError,
					Suggestion:  "Inspect the task's stderr log for the failing command; this exit code comes from the task itself, not the infrastructure.",
					Event:       event.Description,
				})
			}
		}
	}
	return issues
}

func (r rule) matches(lower string) bool {
	if len(r.allOf) > 0 {
		for _, p := range r.allOf {
			if !strings.Contains(lower, p) {
				return false
			}
		}
		return true
	}
	for _, p := range r.anyOf {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func nonzeroExitCode(lower string) (int, bool) {
	m := exitCodeRe.FindStringSubmatch(lower)
	if m == nil {
		return 0, false
	}
	code, err := strconv.Atoi(m[1])
	if err != nil || code == 0 {
		return 0, false
	}
	return code, true
}
