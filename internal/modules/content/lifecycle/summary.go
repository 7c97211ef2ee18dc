package lifecycle

import (
	"time"

	"github.com/google/uuid"
)

// RunSummary reports one lifecycle run.
type RunSummary struct {
	RunID      uuid.UUID `json:"run_id"`
	Trigger    string    `json:"trigger"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Skipped    bool      `json:"skipped,omitempty"`
	SkipReason string    `json:"skip_reason,omitempty"`

	CategoriesProcessed int `json:"categories_processed"`
	CategoriesFailed    int `json:"categories_failed"`
	ItemsGenerated      int `json:"items_generated"`
	GenerationFailures  int `json:"generation_failures"`
	ItemsRetired        int `json:"items_retired"`
	RetireFailures      int `json:"retire_failures"`
	ItemsPublished      int `json:"items_published"`
	PublishFailures     int `json:"publish_failures"`
	DuplicatesDetected  int `json:"duplicates_detected"`
	DuplicatesArchived  int `json:"duplicates_archived"`

	SweepError string   `json:"sweep_error,omitempty"`
	Errors     []string `json:"errors,omitempty"`
}

func (s *RunSummary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// JobSummary reports one run of a maintenance job.
type JobSummary struct {
	RunID      uuid.UUID `json:"run_id"`
	Job        string    `json:"job"`
	Trigger    string    `json:"trigger"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Skipped    bool      `json:"skipped,omitempty"`
	SkipReason string    `json:"skip_reason,omitempty"`

	Affected int            `json:"affected"`
	Failed   int            `json:"failed"`
	Details  map[string]int `json:"details,omitempty"`
	Errors   []string       `json:"errors,omitempty"`
}

// categoryReport is the per-category tally merged into RunSummary.
type categoryReport struct {
	generated      int
	genFailures    int
	retired        int
	retireFailures int
	published      int
	pubFailures    int
	failed         bool
	errs           []string
}

func (s *RunSummary) merge(r categoryReport) {
	s.CategoriesProcessed++
	if r.failed {
		s.CategoriesFailed++
	}
	s.ItemsGenerated += r.generated
	s.GenerationFailures += r.genFailures
	s.ItemsRetired += r.retired
	s.RetireFailures += r.retireFailures
	s.ItemsPublished += r.published
	s.PublishFailures += r.pubFailures
	s.Errors = append(s.Errors, r.errs...)
}
