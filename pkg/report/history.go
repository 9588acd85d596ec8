package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"digital.vasic.provision/pkg/task"
)

// HistoryEntry is one pass in the history log.
type HistoryEntry struct {
	Timestamp time.Time           `json:"timestamp"`
	SummaryID string              `json:"summary_id"`
	PassID    string              `json:"pass_id,omitempty"`
	Mode      string              `json:"mode"`
	Total     int                 `json:"total"`
	Counts    map[task.Status]int `json:"counts"`
	ExitCode  int                 `json:"exit_code"`
	Duration  string              `json:"duration"`
}

// AppendToHistory adds an entry for summary to the history log
// stored at historyPath. Each entry is a single JSON line.
func AppendToHistory(
	historyPath string,
	summary *Summary,
) error {
	entry := HistoryEntry{
		Timestamp: summary.GeneratedAt,
		SummaryID: summary.ID,
		PassID:    summary.PassID,
		Mode:      summary.Mode,
		Total:     summary.Total,
		Counts:    summary.Counts,
		ExitCode:  summary.ExitCode,
		Duration:  summary.TotalDuration.String(),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf(
			"failed to marshal history entry: %w", err,
		)
	}

	file, err := os.OpenFile(
		historyPath,
		os.O_CREATE|os.O_APPEND|os.O_WRONLY,
		0o644,
	)
	if err != nil {
		return fmt.Errorf(
			"failed to open history file: %w", err,
		)
	}
	defer func() { _ = file.Close() }()

	_, err = fmt.Fprintln(file, string(data))
	return err
}

// ReadHistory returns the entries of the history log in the
// order they were written. A missing log yields no entries.
func ReadHistory(historyPath string) ([]HistoryEntry, error) {
	file, err := os.Open(historyPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open history file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var entries []HistoryEntry
	scanner := bufio.NewScanner(file)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var e HistoryEntry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			return nil, fmt.Errorf("history line %d: %w", line, err)
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history file: %w", err)
	}
	return entries, nil
}
