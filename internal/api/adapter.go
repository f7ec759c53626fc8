// Package api adapts the QMS REST API to domain.RecordService.
package api

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/waabox/qmsdeck/internal/domain"
	"github.com/waabox/qmsdeck/internal/httpclient"
	"golang.org/x/sync/errgroup"
)

// Adapter implements domain.RecordService on top of the shared HTTP client.
type Adapter struct {
	client *httpclient.Client
}

// Ensure Adapter fully implements domain.RecordService.
var _ domain.RecordService = (*Adapter)(nil)

// NewAdapter creates a QMS adapter. Authentication, refresh and retries are
// handled by client.
func NewAdapter(client *httpclient.Client) *Adapter {
	return &Adapter{client: client}
}

func recordsPath(c domain.Collection) string {
	return fmt.Sprintf("/collections/%s/records", url.PathEscape(string(c)))
}

func recordPath(c domain.Collection, id string) string {
	return recordsPath(c) + "/" + url.PathEscape(id)
}

// ListRecords returns the records of one collection, most recently updated first.
func (a *Adapter) ListRecords(ctx context.Context, c domain.Collection) ([]domain.Record, error) {
	var raw []qmsRecord
	if err := a.client.GetJSON(ctx, recordsPath(c), &raw); err != nil {
		return nil, fmt.Errorf("listing %s: %w", c, err)
	}
	records := make([]domain.Record, len(raw))
	for i, r := range raw {
		records[i] = r.toRecord(c)
	}
	return records, nil
}

// GetRecord returns a single record.
func (a *Adapter) GetRecord(ctx context.Context, c domain.Collection, id string) (domain.Record, error) {
	var raw qmsRecord
	if err := a.client.GetJSON(ctx, recordPath(c, id), &raw); err != nil {
		return domain.Record{}, fmt.Errorf("getting %s/%s: %w", c, id, err)
	}
	return raw.toRecord(c), nil
}

// UpdateStatus moves a record to status and returns the updated record.
func (a *Adapter) UpdateStatus(ctx context.Context, c domain.Collection, id string, status domain.RecordStatus) (domain.Record, error) {
	if !status.Valid() {
		return domain.Record{}, fmt.Errorf("unknown status %q", status)
	}
	body := map[string]string{"status": string(status)}
	var raw qmsRecord
	if err := a.client.PatchJSON(ctx, recordPath(c, id), body, &raw); err != nil {
		return domain.Record{}, fmt.Errorf("updating %s/%s: %w", c, id, err)
	}
	return raw.toRecord(c), nil
}

// Dashboard loads several collections at once. With no arguments it loads
// every known collection. The first failure cancels the remaining calls.
func (a *Adapter) Dashboard(ctx context.Context, cs ...domain.Collection) ([]domain.Summary, error) {
	if len(cs) == 0 {
		cs = domain.Collections()
	}
	summaries := make([]domain.Summary, len(cs))
	g, ctx := errgroup.WithContext(ctx)
	for i, c := range cs {
		g.Go(func() error {
			records, err := a.ListRecords(ctx, c)
			if err != nil {
				return err
			}
			summaries[i] = domain.Summary{Collection: c, Records: records}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summaries, nil
}

type qmsRecord struct {
	ID          string `json:"id"`
	Collection  string `json:"collection"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Owner       string `json:"owner"`
	Severity    string `json:"severity"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

func (r qmsRecord) toRecord(fallback domain.Collection) domain.Record {
	created, _ := time.Parse(time.RFC3339, r.CreatedAt)
	updated, _ := time.Parse(time.RFC3339, r.UpdatedAt)
	c := domain.Collection(r.Collection)
	if c == "" {
		c = fallback
	}
	return domain.Record{
		ID:          r.ID,
		Collection:  c,
		Title:       r.Title,
		Description: r.Description,
		Status:      mapStatus(r.Status),
		Owner:       r.Owner,
		Severity:    r.Severity,
		CreatedAt:   created,
		UpdatedAt:   updated,
	}
}

func mapStatus(status string) domain.RecordStatus {
	switch status {
	case "open", "new", "reported":
		return domain.StatusOpen
	case "in_progress", "investigating", "implementing":
		return domain.StatusInProgress
	case "review", "pending_approval", "verification":
		return domain.StatusReview
	case "closed", "done", "cancelled", "rejected":
		return domain.StatusClosed
	default:
		return domain.StatusOpen
	}
}
