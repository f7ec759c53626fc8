package api_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/waabox/qmsdeck/internal/api"
	"github.com/waabox/qmsdeck/internal/domain"
	"github.com/waabox/qmsdeck/internal/httpclient"
	"github.com/waabox/qmsdeck/internal/testserver"
	"github.com/waabox/qmsdeck/internal/tokenstore"
)

func setup(t *testing.T) (*testserver.Server, *api.Adapter, tokenstore.Store, *httpclient.Client) {
	t.Helper()
	qms := testserver.New(testserver.Options{})
	srv := httptest.NewServer(qms.Handler())
	t.Cleanup(srv.Close)

	pair, err := qms.Issue()
	if err != nil {
		t.Fatalf("issuing session: %v", err)
	}
	store := tokenstore.NewMemoryStore(pair)
	client, err := httpclient.New(httpclient.Config{
		BaseURL:   srv.URL + "/api",
		Timeout:   2 * time.Second,
		BaseDelay: time.Millisecond,
	}, store)
	if err != nil {
		t.Fatalf("creating client: %v", err)
	}
	return qms, api.NewAdapter(client), store, client
}

func TestListRecords_ReturnsRecords(t *testing.T) {
	_, adapter, _, _ := setup(t)

	records, err := adapter.ListRecords(context.Background(), domain.CollectionNonConformities)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].ID != "NC-102" {
		t.Errorf("expected most recently updated record first, got '%s'", records[0].ID)
	}
	if records[0].Status != domain.StatusInProgress {
		t.Errorf("expected status in_progress, got '%s'", records[0].Status)
	}
	if records[0].UpdatedAt.IsZero() {
		t.Error("expected UpdatedAt to be parsed")
	}
}

func TestGetRecord_NotFoundIsClientError(t *testing.T) {
	_, adapter, _, _ := setup(t)

	_, err := adapter.GetRecord(context.Background(), domain.CollectionAudits, "AU-999")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if httpclient.KindOf(err) != httpclient.KindClient {
		t.Errorf("expected client error, got %v", err)
	}
}

func TestUpdateStatus_ReturnsUpdatedRecord(t *testing.T) {
	_, adapter, _, _ := setup(t)
	ctx := context.Background()

	rec, err := adapter.UpdateStatus(ctx, domain.CollectionNonConformities, "NC-101", domain.StatusInProgress)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Status != domain.StatusInProgress {
		t.Errorf("expected in_progress, got '%s'", rec.Status)
	}

	again, err := adapter.GetRecord(ctx, domain.CollectionNonConformities, "NC-101")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again.Status != domain.StatusInProgress {
		t.Errorf("expected persisted status in_progress, got '%s'", again.Status)
	}
}

func TestUpdateStatus_RejectsUnknownStatus(t *testing.T) {
	_, adapter, _, _ := setup(t)

	_, err := adapter.UpdateStatus(context.Background(), domain.CollectionAudits, "AU-301", "archived")
	if err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestDashboard_ExpiredSessionRefreshesOnce(t *testing.T) {
	qms, adapter, store, client := setup(t)
	before, _ := store.Get(context.Background())
	qms.ExpireAccessTokens()

	summaries, err := adapter.Dashboard(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(summaries) != len(domain.Collections()) {
		t.Fatalf("expected %d summaries, got %d", len(domain.Collections()), len(summaries))
	}
	if summaries[0].Collection != domain.CollectionNonConformities || len(summaries[0].Records) != 2 {
		t.Errorf("unexpected first summary: %+v", summaries[0])
	}
	if qms.Refreshes() != 1 {
		t.Errorf("expected exactly 1 refresh call, got %d", qms.Refreshes())
	}
	if client.RefreshCount() != 1 {
		t.Errorf("expected the client to start 1 refresh, got %d", client.RefreshCount())
	}
	after, _ := store.Get(context.Background())
	if after == before {
		t.Error("expected the stored pair to be rotated")
	}
}

func TestDashboard_ManyConcurrentCallersShareRefresh(t *testing.T) {
	qms, adapter, _, _ := setup(t)
	qms.ExpireAccessTokens()
	release := qms.HoldRefresh()

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = adapter.Dashboard(context.Background())
		}()
	}
	time.Sleep(100 * time.Millisecond)
	release()
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("caller %d: unexpected error: %v", i, err)
		}
	}
	if qms.Refreshes() != 1 {
		t.Errorf("expected exactly 1 refresh call, got %d", qms.Refreshes())
	}
}

func TestDashboard_RevokedSessionFailsWithUnauthorized(t *testing.T) {
	qms, adapter, store, client := setup(t)
	qms.ExpireAccessTokens()
	qms.RevokeRefreshTokens()

	_, err := adapter.Dashboard(context.Background())
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	pair, _ := store.Get(context.Background())
	if !pair.IsZero() {
		t.Error("expected the session to be cleared")
	}
	if client.RefreshState() != httpclient.StateFailed {
		t.Errorf("expected failed refresh state, got %s", client.RefreshState())
	}
}

func TestListRecords_RetriesTransientFailures(t *testing.T) {
	qms, adapter, _, _ := setup(t)
	qms.Fail(testserver.RouteList, http.StatusServiceUnavailable, http.StatusGatewayTimeout)

	records, err := adapter.ListRecords(context.Background(), domain.CollectionAudits)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("expected 1 record, got %d", len(records))
	}
}
