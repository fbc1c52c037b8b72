package ingest

import (
	"context"
	"log/slog"
	"time"
)

// Scheduler は取り込みパイプラインを一定間隔で実行するワーカー。
type Scheduler struct {
	pipeline *Pipeline
	logger   *slog.Logger
	interval time.Duration
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
func NewScheduler(pipeline *Pipeline, logger *slog.Logger, interval time.Duration) *Scheduler {
	return &Scheduler{
		pipeline: pipeline,
		logger:   logger,
		interval: interval,
	}
}

// Start は起動直後に1回実行した後、interval間隔で取り込みを繰り返す。
// ctxがキャンセルされるまでブロックする。
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("取り込みスケジューラを開始します",
		slog.Duration("interval", s.interval),
	)

	s.run(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("取り込みスケジューラを停止します")
			return
		case <-ticker.C:
			s.run(ctx)
		}
	}
}

func (s *Scheduler) run(ctx context.Context) {
	if _, err := s.pipeline.Run(ctx); err != nil {
		s.logger.Error("定期取り込みに失敗しました",
			slog.String("error", err.Error()),
		)
	}
}
