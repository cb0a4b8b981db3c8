package observer

import (
	"context"
	"log/slog"
	"time"

	"github.com/dcshock/autodpp/pipeline"
)

// LogObserver logs run and stage progress to a slog.Logger.
type LogObserver struct {
	logger *slog.Logger
}

// NewLogObserver returns an Observer logging to logger (slog.Default when nil).
func NewLogObserver(logger *slog.Logger) *LogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogObserver{logger: logger}
}

func (o *LogObserver) BeforePipeline(ctx context.Context, runID, name string, payload interface{}) error {
	o.logger.InfoContext(ctx, "run started", "run_id", runID, "pipeline", name)
	return nil
}

func (o *LogObserver) AfterPipeline(ctx context.Context, runID string, result interface{}, err error) error {
	if err != nil {
		o.logger.ErrorContext(ctx, "run failed", "run_id", runID, "error", err)
		return nil
	}
	o.logger.InfoContext(ctx, "run finished", "run_id", runID)
	return nil
}

func (o *LogObserver) BeforeStage(ctx context.Context, runID string, stageIndex int, input interface{}) error {
	o.logger.DebugContext(ctx, "stage started", "run_id", runID, "stage", pipeline.StageName(ctx), "index", stageIndex)
	return nil
}

func (o *LogObserver) AfterStage(ctx context.Context, runID string, stageIndex int, input, output interface{}, stageErr error, duration time.Duration) error {
	attrs := []any{"run_id", runID, "stage", pipeline.StageName(ctx), "index", stageIndex, "duration", duration}
	if stageErr != nil {
		o.logger.ErrorContext(ctx, "stage failed", append(attrs, "error", stageErr)...)
		return nil
	}
	if s, ok := output.(Summarizer); ok {
		attrs = append(attrs, "output", s.Summary())
	}
	o.logger.InfoContext(ctx, "stage finished", attrs...)
	return nil
}
