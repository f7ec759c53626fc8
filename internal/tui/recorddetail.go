package tui

import (
	"fmt"
	"strings"

	"github.com/waabox/qmsdeck/internal/domain"
)

// RecordDetailModel is an immutable model for the record detail panel.
// The description scrolls line by line.
type RecordDetailModel struct {
	record domain.Record
	offset int
}

// NewRecordDetailModel creates a detail model for record.
func NewRecordDetailModel(record domain.Record) RecordDetailModel {
	return RecordDetailModel{record: record}
}

// Record returns the record being shown.
func (m RecordDetailModel) Record() domain.Record {
	return m.record
}

// ScrollDown returns a new model scrolled down by one line.
func (m RecordDetailModel) ScrollDown() RecordDetailModel {
	if m.offset < len(m.lines())-1 {
		m.offset++
	}
	return m
}

// ScrollUp returns a new model scrolled up by one line.
func (m RecordDetailModel) ScrollUp() RecordDetailModel {
	if m.offset > 0 {
		m.offset--
	}
	return m
}

// Offset returns the first visible description line.
func (m RecordDetailModel) Offset() int {
	return m.offset
}

func (m RecordDetailModel) lines() []string {
	return strings.Split(m.record.Description, "\n")
}

// View renders the record with at most visible description lines.
func (m RecordDetailModel) View(visible int) string {
	if m.record.ID == "" {
		return "Select a record to see its details."
	}
	r := m.record
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(" %s %s  %s\n", statusIcon(r.Status), r.ID, r.Title))
	sb.WriteString(fmt.Sprintf(" Status:   %s\n", r.Status))
	sb.WriteString(fmt.Sprintf(" Owner:    %s\n", r.Owner))
	if r.Severity != "" {
		sb.WriteString(fmt.Sprintf(" Severity: %s\n", r.Severity))
	}
	if !r.CreatedAt.IsZero() {
		sb.WriteString(fmt.Sprintf(" Created:  %s\n", r.CreatedAt.Local().Format("2006-01-02 15:04")))
	}
	sb.WriteString(fmt.Sprintf(" Updated:  %s\n\n", formatAge(r.UpdatedAt)))

	lines := m.lines()
	end := m.offset + visible
	if end > len(lines) {
		end = len(lines)
	}
	for _, l := range lines[m.offset:end] {
		sb.WriteString(" " + l + "\n")
	}
	return sb.String()
}
