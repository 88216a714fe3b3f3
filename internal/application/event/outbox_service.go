// Package event exposes read-side views of the transactional outbox.
package event

import (
	"context"

	"github.com/erp/ordercore/internal/domain/shared"
	"go.uber.org/zap"
)

// OutboxService reports on outbox delivery
type OutboxService struct {
	repo   shared.OutboxRepository
	logger *zap.Logger
}

// NewOutboxService creates a new outbox service
func NewOutboxService(repo shared.OutboxRepository, logger *zap.Logger) *OutboxService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OutboxService{
		repo:   repo,
		logger: logger,
	}
}

// OutboxStatsDTO represents outbox statistics
type OutboxStatsDTO struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Sent       int64 `json:"sent"`
	Failed     int64 `json:"failed"`
	Dead       int64 `json:"dead"`
	Total      int64 `json:"total"`
}

// Backlog counts entries the relay still has to deliver
func (s OutboxStatsDTO) Backlog() int64 {
	return s.Pending + s.Processing + s.Failed
}

// GetStats counts outbox entries per delivery status
func (s *OutboxService) GetStats(ctx context.Context) (*OutboxStatsDTO, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		s.logger.Error("Failed to get outbox stats", zap.Error(err))
		return nil, err
	}

	var total int64
	for _, count := range counts {
		total += count
	}

	return &OutboxStatsDTO{
		Pending:    counts[shared.OutboxStatusPending],
		Processing: counts[shared.OutboxStatusProcessing],
		Sent:       counts[shared.OutboxStatusSent],
		Failed:     counts[shared.OutboxStatusFailed],
		Dead:       counts[shared.OutboxStatusDead],
		Total:      total,
	}, nil
}

// LogStats writes the current counts at info, or at warn when entries are dead-lettered
func (s *OutboxService) LogStats(ctx context.Context) {
	stats, err := s.GetStats(ctx)
	if err != nil {
		return
	}
	fields := []zap.Field{
		zap.Int64("pending", stats.Pending),
		zap.Int64("processing", stats.Processing),
		zap.Int64("sent", stats.Sent),
		zap.Int64("failed", stats.Failed),
		zap.Int64("dead", stats.Dead),
	}
	if stats.Dead > 0 {
		s.logger.Warn("Outbox has dead-lettered entries", fields...)
		return
	}
	s.logger.Info("Outbox status", fields...)
}
