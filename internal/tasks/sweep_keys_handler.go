package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/avelora/keygate-api/internal/domain/apikey"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// APIKeySweepHandler flips long-expired keys to inactive. The gate already
// treats expiry as authoritative at read time; the sweep keeps listings and
// indexes honest without changing gate behavior.
type APIKeySweepHandler struct {
	repo   apikey.Repository
	logger *zap.Logger
}

func NewAPIKeySweepHandler(repo apikey.Repository, logger *zap.Logger) *APIKeySweepHandler {
	return &APIKeySweepHandler{
		repo:   repo,
		logger: logger.Named("APIKeySweepHandler"),
	}
}

func (h *APIKeySweepHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	if t.Type() != TypeAPIKeyExpSweep {
		return fmt.Errorf("unexpected task type: %s", t.Type())
	}

	swept, err := h.repo.DisableExpired(ctx, time.Now().UTC())
	if err != nil {
		h.logger.Error("Failed to sweep expired api keys", zap.Error(err))
		return fmt.Errorf("repository error sweeping expired keys: %w", err)
	}

	if swept > 0 {
		h.logger.Info("Expired api keys disabled", zap.Int64("count", swept))
	}
	return nil
}
