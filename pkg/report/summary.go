package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"digital.vasic.provision/pkg/task"
)

// Process exit codes. When several apply the highest wins.
const (
	ExitSatisfied         = 0
	ExitFixed             = 1
	ExitFailed            = 2
	ExitElevationRequired = 3
)

// ExitCode maps the results of a pass to a process exit code.
// A check-mode result that would have been fixed counts as
// change; other manual-action results do not.
func ExitCode(results []*task.Result) int {
	code := ExitSatisfied
	for _, r := range results {
		if r == nil {
			continue
		}
		switch {
		case r.ElevationRequired:
			return ExitElevationRequired
		case r.Status.IsFailure():
			code = ExitFailed
		case (r.Changed() || r.WouldFix) && code < ExitFixed:
			code = ExitFixed
		}
	}
	return code
}

// Summary is an aggregated view of one pass.
type Summary struct {
	ID                string              `json:"id"`
	PassID            string              `json:"pass_id,omitempty"`
	Mode              string              `json:"mode"`
	GeneratedAt       time.Time           `json:"generated_at"`
	Tasks             []TaskSummary       `json:"tasks"`
	Total             int                 `json:"total"`
	Counts            map[task.Status]int `json:"counts"`
	ElevationRequired int                 `json:"elevation_required"`
	WouldFix          int                 `json:"would_fix"`
	TotalDuration     time.Duration       `json:"total_duration"`
	ExitCode          int                 `json:"exit_code"`
}

// TaskSummary is one row of a Summary.
type TaskSummary struct {
	Sequence          int           `json:"sequence"`
	Name              string        `json:"name"`
	Status            task.Status   `json:"status"`
	Detail            string        `json:"detail,omitempty"`
	ElevationRequired bool          `json:"elevation_required,omitempty"`
	WouldFix          bool          `json:"would_fix,omitempty"`
	Duration          time.Duration `json:"duration"`
}

// BuildSummary aggregates the results of a pass run in mode.
func BuildSummary(
	mode string,
	results []*task.Result,
) *Summary {
	s := &Summary{
		ID:          uuid.NewString(),
		Mode:        mode,
		GeneratedAt: time.Now(),
		Tasks:       make([]TaskSummary, 0, len(results)),
		Counts:      make(map[task.Status]int, len(task.Statuses)),
	}
	for _, st := range task.Statuses {
		s.Counts[st] = 0
	}

	for _, r := range results {
		if r == nil {
			continue
		}
		s.Tasks = append(s.Tasks, TaskSummary{
			Sequence:          r.Sequence,
			Name:              r.Name,
			Status:            r.Status,
			Detail:            r.Error,
			ElevationRequired: r.ElevationRequired,
			WouldFix:          r.WouldFix,
			Duration:          r.Duration,
		})
		s.Total++
		s.Counts[r.Status]++
		s.TotalDuration += r.Duration
		if r.ElevationRequired {
			s.ElevationRequired++
		}
		if r.WouldFix {
			s.WouldFix++
		}
	}
	s.ExitCode = ExitCode(results)
	return s
}

// Count returns the number of tasks that ended with status.
func (s *Summary) Count(status task.Status) int {
	return s.Counts[status]
}

// SaveSummary saves the summary to both JSON and Markdown files
// in outputDir and points latest_summary.{json,md} at them.
func SaveSummary(
	summary *Summary,
	outputDir string,
) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf(
			"failed to create output directory: %w", err,
		)
	}

	ts := summary.GeneratedAt.Format("20060102_150405")

	jsonPath := filepath.Join(
		outputDir,
		fmt.Sprintf("summary_%s.json", ts),
	)
	jsonData, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf(
			"failed to marshal summary: %w", err,
		)
	}
	if err := os.WriteFile(jsonPath, jsonData, 0o644); err != nil {
		return fmt.Errorf(
			"failed to write JSON summary: %w", err,
		)
	}

	mdPath := filepath.Join(
		outputDir,
		fmt.Sprintf("summary_%s.md", ts),
	)
	if err := os.WriteFile(
		mdPath, []byte(renderMarkdown(summary)), 0o644,
	); err != nil {
		return fmt.Errorf(
			"failed to write Markdown summary: %w", err,
		)
	}

	latestJSON := filepath.Join(outputDir, "latest_summary.json")
	latestMD := filepath.Join(outputDir, "latest_summary.md")

	_ = os.Remove(latestJSON)
	_ = os.Remove(latestMD)
	_ = os.Symlink(filepath.Base(jsonPath), latestJSON)
	_ = os.Symlink(filepath.Base(mdPath), latestMD)

	return nil
}
