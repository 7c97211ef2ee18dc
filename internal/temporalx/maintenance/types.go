// Package maintenance runs the daily content jobs as Temporal workflows, one
// workflow execution per job run.
package maintenance

import "encoding/json"

const (
	WorkflowName   = "hackfeed_maintenance"
	ActivityRunJob = "hackfeed_run_job"
)

// Task names the job to run and how it was triggered.
type Task struct {
	Job     string `json:"job"`
	Trigger string `json:"trigger"`
}

type TaskResult struct {
	Job     string          `json:"job"`
	Trigger string          `json:"trigger"`
	Summary json.RawMessage `json:"summary,omitempty"`
}
