package event

import (
	"context"
	"fmt"
	"time"

	"github.com/distribuidora/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultDeadPageSize = 20
	maxDeadPageSize     = 100
)

// OutboxService lets admins watch event delivery and requeue events the
// broker never accepted
type OutboxService struct {
	repo   shared.OutboxRepository
	logger *zap.Logger
}

func NewOutboxService(repo shared.OutboxRepository, logger *zap.Logger) *OutboxService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OutboxService{repo: repo, logger: logger.Named("outbox")}
}

type OutboxEntryDTO struct {
	ID            uuid.UUID  `json:"id"`
	EventID       uuid.UUID  `json:"event_id"`
	EventType     string     `json:"event_type"`
	AggregateID   uuid.UUID  `json:"aggregate_id"`
	AggregateType string     `json:"aggregate_type"`
	Status        string     `json:"status"`
	RetryCount    int        `json:"retry_count"`
	MaxRetries    int        `json:"max_retries"`
	LastError     string     `json:"last_error,omitempty"`
	NextRetryAt   *time.Time `json:"next_retry_at,omitempty"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type OutboxFilter struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// OutboxStatsDTO counts entries per status. Backlog is everything not yet
// delivered that will still be attempted.
type OutboxStatsDTO struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Sent       int64 `json:"sent"`
	Failed     int64 `json:"failed"`
	Dead       int64 `json:"dead"`
	Backlog    int64 `json:"backlog"`
	Total      int64 `json:"total"`
}

func (s *OutboxService) GetDeadLetterEntries(ctx context.Context, filter OutboxFilter) (shared.Paginated[OutboxEntryDTO], error) {
	page := max(filter.Page, 1)
	size := filter.PageSize
	if size < 1 {
		size = defaultDeadPageSize
	}
	size = min(size, maxDeadPageSize)

	entries, total, err := s.repo.FindDead(ctx, page, size)
	if err != nil {
		return shared.Paginated[OutboxEntryDTO]{}, fmt.Errorf("list dead outbox entries: %w", err)
	}
	items := make([]OutboxEntryDTO, 0, len(entries))
	for _, e := range entries {
		items = append(items, toOutboxEntryDTO(e))
	}
	return shared.NewPaginated(items, total, page, size), nil
}

// RetryDeadEntry gives one dead entry a fresh retry budget
func (s *OutboxService) RetryDeadEntry(ctx context.Context, id uuid.UUID) (*OutboxEntryDTO, error) {
	entry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requeue(ctx, entry); err != nil {
		return nil, err
	}
	dto := toOutboxEntryDTO(entry)
	return &dto, nil
}

// RetryAllDeadEntries requeues every dead entry and reports how many moved.
// Requeued entries leave the dead set, so the first page is read until it
// comes back empty or nothing on it could be requeued.
func (s *OutboxService) RetryAllDeadEntries(ctx context.Context) (int64, error) {
	var requeued int64
	for {
		entries, _, err := s.repo.FindDead(ctx, 1, maxDeadPageSize)
		if err != nil {
			return requeued, fmt.Errorf("list dead outbox entries: %w", err)
		}
		moved := 0
		for _, e := range entries {
			if err := s.requeue(ctx, e); err != nil {
				s.logger.Warn("Skipping dead entry", zap.Stringer("id", e.ID), zap.Error(err))
				continue
			}
			moved++
		}
		requeued += int64(moved)
		if moved == 0 || len(entries) < maxDeadPageSize {
			break
		}
	}
	if requeued > 0 {
		s.logger.Info("Dead entries requeued", zap.Int64("count", requeued))
	}
	return requeued, nil
}

func (s *OutboxService) requeue(ctx context.Context, entry *shared.OutboxEntry) error {
	if err := entry.ResetForRetry(); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, entry); err != nil {
		return fmt.Errorf("requeue outbox entry %s: %w", entry.ID, err)
	}
	s.logger.Debug("Dead entry requeued", zap.Stringer("id", entry.ID), zap.String("event_type", entry.EventType))
	return nil
}

func (s *OutboxService) GetStats(ctx context.Context) (*OutboxStatsDTO, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count outbox entries: %w", err)
	}
	stats := &OutboxStatsDTO{
		Pending:    counts[shared.OutboxStatusPending],
		Processing: counts[shared.OutboxStatusProcessing],
		Sent:       counts[shared.OutboxStatusSent],
		Failed:     counts[shared.OutboxStatusFailed],
		Dead:       counts[shared.OutboxStatusDead],
	}
	stats.Backlog = stats.Pending + stats.Processing + stats.Failed
	for _, n := range counts {
		stats.Total += n
	}
	return stats, nil
}

func toOutboxEntryDTO(e *shared.OutboxEntry) OutboxEntryDTO {
	return OutboxEntryDTO{
		ID:            e.ID,
		EventID:       e.EventID,
		EventType:     e.EventType,
		AggregateID:   e.AggregateID,
		AggregateType: e.AggregateType,
		Status:        string(e.Status),
		RetryCount:    e.RetryCount,
		MaxRetries:    e.MaxRetries,
		LastError:     e.LastError,
		NextRetryAt:   e.NextRetryAt,
		ProcessedAt:   e.ProcessedAt,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}
