package domain

import "context"

// RecordService is the port interface the dashboard uses to talk to the QMS backend.
// The domain does not know about HTTP, tokens, or retries.
type RecordService interface {
	ListRecords(ctx context.Context, c Collection) ([]Record, error)
	GetRecord(ctx context.Context, c Collection, id string) (Record, error)
	UpdateStatus(ctx context.Context, c Collection, id string, status RecordStatus) (Record, error)
	Dashboard(ctx context.Context, cs ...Collection) ([]Summary, error)
}
