package domain

import "time"

// RecordStatus is the workflow state of a quality record.
type RecordStatus string

const (
	StatusOpen       RecordStatus = "open"
	StatusInProgress RecordStatus = "in_progress"
	StatusReview     RecordStatus = "review"
	StatusClosed     RecordStatus = "closed"
)

// Valid reports whether s is one of the known workflow states.
func (s RecordStatus) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusReview, StatusClosed:
		return true
	}
	return false
}

// Next returns the state that follows s in the workflow. Closed is terminal.
func (s RecordStatus) Next() RecordStatus {
	switch s {
	case StatusOpen:
		return StatusInProgress
	case StatusInProgress:
		return StatusReview
	case StatusReview:
		return StatusClosed
	}
	return s
}

// Collection names a family of quality records exposed by the backend.
type Collection string

const (
	CollectionNonConformities   Collection = "nonconformities"
	CollectionCorrectiveActions Collection = "corrective-actions"
	CollectionAudits            Collection = "audits"
)

// Collections returns every known collection in display order.
func Collections() []Collection {
	return []Collection{CollectionNonConformities, CollectionCorrectiveActions, CollectionAudits}
}

// Valid reports whether c is a known collection.
func (c Collection) Valid() bool {
	switch c {
	case CollectionNonConformities, CollectionCorrectiveActions, CollectionAudits:
		return true
	}
	return false
}

// Record is a single quality-management record (non-conformity, CAPA, audit finding...).
type Record struct {
	ID          string       `json:"id"`
	Collection  Collection   `json:"collection"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Status      RecordStatus `json:"status"`
	Owner       string       `json:"owner"`
	Severity    string       `json:"severity,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// Summary groups the records of one collection for the dashboard.
type Summary struct {
	Collection Collection
	Records    []Record
}
