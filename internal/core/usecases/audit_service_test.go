package usecases_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/samirrijal/placequest/internal/core/domain"
	"github.com/samirrijal/placequest/internal/core/usecases"
)

func TestAuditService_Recent(t *testing.T) {
	logs := &mockFetchLogs{}
	for i := 0; i < 150; i++ {
		logs.entries = append(logs.entries, domain.FetchLog{ID: int64(i + 1), Kind: "places", Request: fmt.Sprintf("r%d", i)})
	}
	svc := usecases.NewAuditService(logs)

	cases := []struct {
		n, want int
	}{
		{0, 10},
		{-3, 10},
		{25, 25},
		{500, 100},
	}
	for _, tc := range cases {
		rows, err := svc.Recent(context.Background(), tc.n)
		if err != nil {
			t.Fatalf("n=%d: unexpected error: %v", tc.n, err)
		}
		if len(rows) != tc.want {
			t.Errorf("n=%d: expected %d rows, got %d", tc.n, tc.want, len(rows))
		}
		if rows[0].ID != 150 {
			t.Errorf("n=%d: expected newest row first, got id %d", tc.n, rows[0].ID)
		}
	}
}

func TestAuditService_Empty(t *testing.T) {
	rows, err := usecases.NewAuditService(&mockFetchLogs{}).Recent(context.Background(), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rows == nil || len(rows) != 0 {
		t.Errorf("expected an empty non-nil slice, got %#v", rows)
	}
}

func TestAuditService_Error(t *testing.T) {
	_, err := usecases.NewAuditService(&mockFetchLogs{err: errors.New("db down")}).Recent(context.Background(), 5)
	if err == nil {
		t.Fatal("expected error")
	}
}
