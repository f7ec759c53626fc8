package testserver

import (
	"time"

	"github.com/waabox/qmsdeck/internal/domain"
)

// DemoRecords returns the data set the server starts with when none is given.
func DemoRecords() []domain.Record {
	base := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	day := 24 * time.Hour
	return []domain.Record{
		{
			ID: "NC-101", Collection: domain.CollectionNonConformities,
			Title:       "Torque wrench calibration overdue",
			Description: "Wrench TW-14 used on line 3 past its calibration date.",
			Status:      domain.StatusOpen, Owner: "m.rossi", Severity: "major",
			CreatedAt: base, UpdatedAt: base.Add(2 * day),
		},
		{
			ID: "NC-102", Collection: domain.CollectionNonConformities,
			Title:       "Missing lot traceability on inbound resin",
			Description: "Supplier CoA not attached to goods receipt GR-5521.",
			Status:      domain.StatusInProgress, Owner: "j.lee", Severity: "minor",
			CreatedAt: base.Add(day), UpdatedAt: base.Add(3 * day),
		},
		{
			ID: "CA-201", Collection: domain.CollectionCorrectiveActions,
			Title:       "Add calibration check to shift start checklist",
			Description: "Linked to NC-101.",
			Status:      domain.StatusReview, Owner: "m.rossi",
			CreatedAt: base.Add(2 * day), UpdatedAt: base.Add(4 * day),
		},
		{
			ID: "AU-301", Collection: domain.CollectionAudits,
			Title:       "ISO 9001 internal audit, warehouse",
			Description: "Clause 8.5.2 identification and traceability.",
			Status:      domain.StatusClosed, Owner: "a.novak",
			CreatedAt: base, UpdatedAt: base.Add(5 * day),
		},
	}
}
