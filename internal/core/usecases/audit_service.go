package usecases

import (
	"context"
	"fmt"

	"github.com/samirrijal/placequest/internal/core/domain"
	"github.com/samirrijal/placequest/internal/core/ports"
)

const (
	defaultAuditRows = 10
	maxAuditRows     = 100
)

// AuditService exposes the upstream fetch log to operators.
type AuditService struct {
	logs ports.FetchLogRepository
}

func NewAuditService(logs ports.FetchLogRepository) *AuditService {
	return &AuditService{logs: logs}
}

// Recent returns the n newest fetch log rows. n <= 0 selects the default
// page size; larger requests are capped.
func (s *AuditService) Recent(ctx context.Context, n int) ([]domain.FetchLog, error) {
	if n <= 0 {
		n = defaultAuditRows
	}
	if n > maxAuditRows {
		n = maxAuditRows
	}
	rows, err := s.logs.Recent(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("recent fetch logs: %w", err)
	}
	if rows == nil {
		rows = []domain.FetchLog{}
	}
	return rows, nil
}
