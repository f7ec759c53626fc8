package domain_test

import (
	"testing"

	"github.com/waabox/qmsdeck/internal/domain"
)

func TestRecordStatus_Next(t *testing.T) {
	cases := map[domain.RecordStatus]domain.RecordStatus{
		domain.StatusOpen:       domain.StatusInProgress,
		domain.StatusInProgress: domain.StatusReview,
		domain.StatusReview:     domain.StatusClosed,
		domain.StatusClosed:     domain.StatusClosed,
	}
	for from, want := range cases {
		if got := from.Next(); got != want {
			t.Errorf("%s.Next() = %s, want %s", from, got, want)
		}
	}
}

func TestRecordStatus_Valid(t *testing.T) {
	if !domain.StatusReview.Valid() {
		t.Error("expected review to be valid")
	}
	if domain.RecordStatus("archived").Valid() {
		t.Error("expected archived to be invalid")
	}
}

func TestCollections_AreValid(t *testing.T) {
	for _, c := range domain.Collections() {
		if !c.Valid() {
			t.Errorf("collection %q reported invalid", c)
		}
	}
	if domain.Collection("invoices").Valid() {
		t.Error("expected unknown collection to be invalid")
	}
}
