package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/avelora/keygate-api/internal/domain/usage"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// UsagePruneHandler enforces the retention window on usage_daily. The
// retention must span at least the current and previous billing month or
// the quota check loses data it still needs.
type UsagePruneHandler struct {
	repo   usage.Repository
	logger *zap.Logger
}

func NewUsagePruneHandler(repo usage.Repository, logger *zap.Logger) *UsagePruneHandler {
	return &UsagePruneHandler{
		repo:   repo,
		logger: logger.Named("UsagePruneHandler"),
	}
}

func (h *UsagePruneHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	if t.Type() != TypeUsagePrune {
		return fmt.Errorf("unexpected task type: %s", t.Type())
	}

	var p UsagePrunePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		h.logger.Error("Failed to unmarshal payload for usage prune task", zap.Error(err), zap.ByteString("payload", t.Payload()))
		return fmt.Errorf("invalid payload: %v", err)
	}

	retentionDays := p.RetentionDays
	if retentionDays < 62 {
		h.logger.Warn("Retention window too small, clamping to 62 days", zap.Int("requested", retentionDays))
		retentionDays = 62
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)

	deleted, err := h.repo.DeleteBefore(ctx, cutoff)
	if err != nil {
		h.logger.Error("Failed to prune usage rows", zap.Time("cutoff", cutoff), zap.Error(err))
		return fmt.Errorf("repository error pruning usage: %w", err)
	}

	h.logger.Info("Usage retention prune finished",
		zap.Time("cutoff", cutoff),
		zap.Int64("deleted_rows", deleted),
	)
	return nil
}
