package tasks

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TypeUsagePrune     = "usage:retention:prune"
	TypeAPIKeyExpSweep = "apikey:expiry:sweep"
)

type UsagePrunePayload struct {
	RetentionDays int `json:"retention_days"`
}

type APIKeySweepPayload struct{}

func NewUsagePruneTask(retentionDays int, opts ...asynq.Option) (*asynq.Task, error) {
	payloadBytes, err := json.Marshal(UsagePrunePayload{RetentionDays: retentionDays})
	if err != nil {
		return nil, err
	}

	allOpts := append(opts, asynq.Unique(24*time.Hour))
	return asynq.NewTask(TypeUsagePrune, payloadBytes, allOpts...), nil
}

func NewAPIKeySweepTask(opts ...asynq.Option) (*asynq.Task, error) {
	payloadBytes, err := json.Marshal(APIKeySweepPayload{})
	if err != nil {
		return nil, err
	}

	allOpts := append(opts, asynq.Unique(1*time.Hour))
	return asynq.NewTask(TypeAPIKeyExpSweep, payloadBytes, allOpts...), nil
}
