package worker

import (
	"context"
	"fmt"

	"github.com/avelora/keygate-api/internal/config"
	"github.com/avelora/keygate-api/internal/domain/apikey"
	"github.com/avelora/keygate-api/internal/domain/usage"
	"github.com/avelora/keygate-api/internal/tasks"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// RunWorkers starts the asynq server and scheduler and blocks until ctx is
// canceled or either component fails.
func RunWorkers(ctx context.Context, cfg *config.Config, usageRepo usage.Repository, keyRepo apikey.Repository, logger *zap.Logger) error {
	redisConnOpts := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	srv := asynq.NewServer(
		redisConnOpts,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Named("AsynqServerErrorHandler").Error("Asynq task processing failed",
					zap.String("task_type", task.Type()),
					zap.ByteString("payload", task.Payload()),
					zap.Error(err),
				)
			}),
			Logger: NewAsynqLoggerAdapter(logger.Named("AsynqServer")),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeUsagePrune, tasks.NewUsagePruneHandler(usageRepo, logger).ProcessTask)
	mux.HandleFunc(tasks.TypeAPIKeyExpSweep, tasks.NewAPIKeySweepHandler(keyRepo, logger).ProcessTask)

	scheduler := asynq.NewScheduler(
		redisConnOpts,
		&asynq.SchedulerOpts{
			Logger: NewAsynqLoggerAdapter(logger.Named("AsynqScheduler")),
		},
	)

	pruneTask, err := tasks.NewUsagePruneTask(cfg.Gate.UsageRetentionDays)
	if err != nil {
		return fmt.Errorf("scheduler task creation error: %w", err)
	}
	if entryID, err := scheduler.Register("@every 24h", pruneTask, asynq.Queue("low")); err != nil {
		return fmt.Errorf("scheduler registration error: %w", err)
	} else {
		logger.Info("Registered periodic usage retention prune", zap.String("entry_id", entryID), zap.String("schedule", "@every 24h"))
	}

	sweepTask, err := tasks.NewAPIKeySweepTask()
	if err != nil {
		return fmt.Errorf("scheduler task creation error: %w", err)
	}
	if entryID, err := scheduler.Register("@every 1h", sweepTask, asynq.Queue("low")); err != nil {
		return fmt.Errorf("scheduler registration error: %w", err)
	} else {
		logger.Info("Registered periodic expired key sweep", zap.String("entry_id", entryID), zap.String("schedule", "@every 1h"))
	}

	errChan := make(chan error, 2)

	go func() {
		logger.Info("Starting Asynq Server...")
		if err := srv.Run(mux); err != nil {
			errChan <- fmt.Errorf("asynq server error: %w", err)
			return
		}
		errChan <- nil
	}()

	go func() {
		logger.Info("Starting Asynq Scheduler...")
		if err := scheduler.Run(); err != nil {
			errChan <- fmt.Errorf("asynq scheduler error: %w", err)
			return
		}
		errChan <- nil
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down Asynq Scheduler...")
		scheduler.Shutdown()
		logger.Info("Shutting down Asynq Server...")
		srv.Shutdown()
		return nil
	case err := <-errChan:
		scheduler.Shutdown()
		srv.Shutdown()
		return err
	}
}

type asynqLoggerAdapter struct {
	logger *zap.Logger
}

func NewAsynqLoggerAdapter(logger *zap.Logger) *asynqLoggerAdapter {
	return &asynqLoggerAdapter{logger: logger.WithOptions(zap.AddCallerSkip(1))}
}

func (l *asynqLoggerAdapter) Debug(args ...interface{}) {
	l.logger.Debug(fmt.Sprint(args...))
}
func (l *asynqLoggerAdapter) Info(args ...interface{}) {
	l.logger.Info(fmt.Sprint(args...))
}
func (l *asynqLoggerAdapter) Warn(args ...interface{}) {
	l.logger.Warn(fmt.Sprint(args...))
}
func (l *asynqLoggerAdapter) Error(args ...interface{}) {
	l.logger.Error(fmt.Sprint(args...))
}
func (l *asynqLoggerAdapter) Fatal(args ...interface{}) {
	l.logger.Fatal(fmt.Sprint(args...))
}
