package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/waabox/qmsdeck/internal/domain"
)

// RecordListModel is an immutable Bubbletea-compatible model for the record list panel.
type RecordListModel struct {
	records []domain.Record
	cursor  int
}

// NewRecordListModel creates a record list model with the given records.
func NewRecordListModel(records []domain.Record) RecordListModel {
	return RecordListModel{records: records}
}

// MoveDown returns a new model with the cursor moved down by one.
func (m RecordListModel) MoveDown() RecordListModel {
	if m.cursor < len(m.records)-1 {
		m.cursor++
	}
	return m
}

// MoveUp returns a new model with the cursor moved up by one.
func (m RecordListModel) MoveUp() RecordListModel {
	if m.cursor > 0 {
		m.cursor--
	}
	return m
}

// SelectedIndex returns the current cursor position.
func (m RecordListModel) SelectedIndex() int {
	return m.cursor
}

// SelectedRecord returns the currently highlighted record.
// Returns zero-value Record if the list is empty.
func (m RecordListModel) SelectedRecord() domain.Record {
	if len(m.records) == 0 {
		return domain.Record{}
	}
	return m.records[m.cursor]
}

// Records returns the full record slice.
func (m RecordListModel) Records() []domain.Record {
	return m.records
}

// UpdateRecords replaces the records and keeps the cursor on the same record ID
// when it is still present.
func (m RecordListModel) UpdateRecords(records []domain.Record) RecordListModel {
	selected := m.SelectedRecord().ID
	m.records = records
	m.cursor = 0
	for i, r := range records {
		if r.ID == selected {
			m.cursor = i
			break
		}
	}
	return m
}

// View renders the record list as a string.
func (m RecordListModel) View() string {
	if len(m.records) == 0 {
		return "No records found."
	}
	var sb strings.Builder
	for i, r := range m.records {
		prefix := "  "
		if i == m.cursor {
			prefix = "> "
		}
		sb.WriteString(fmt.Sprintf("%s%s %-8s %-40s %-10s %s\n",
			prefix,
			statusIcon(r.Status),
			r.ID,
			truncate(r.Title, 40),
			truncate(r.Owner, 10),
			formatAge(r.UpdatedAt),
		))
	}
	return sb.String()
}

func statusIcon(s domain.RecordStatus) string {
	switch s {
	case domain.StatusOpen:
		return "○"
	case domain.StatusInProgress:
		return "●"
	case domain.StatusReview:
		return "↷"
	case domain.StatusClosed:
		return "✓"
	default:
		return "?"
	}
}

func formatAge(t time.Time) string {
	if t.IsZero() {
		return "--"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 48*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
