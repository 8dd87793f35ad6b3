package service

import (
	"go.uber.org/zap"

	"imageResizer/worker/models"
)

// Observer is notified once per outcome, from the worker goroutine that
// produced it. Implementations must be safe for concurrent use.
type Observer interface {
	Observe(batchID string, outcome models.Outcome)
}

type ObserverFunc func(batchID string, outcome models.Outcome)

func (f ObserverFunc) Observe(batchID string, outcome models.Outcome) {
	f(batchID, outcome)
}

type LogObserver struct {
	logger *zap.Logger
}

func NewLogObserver(logger *zap.Logger) *LogObserver {
	return &LogObserver{logger: logger}
}

func (l *LogObserver) Observe(batchID string, outcome models.Outcome) {
	fields := []zap.Field{
		zap.String("batch_id", batchID),
		zap.String("source", outcome.Source()),
		zap.String("timestamp", outcome.Time().Format(models.TimestampLayout)),
	}

	switch o := outcome.(type) {
	case models.Success:
		l.logger.Info("Resized", append(fields,
			zap.String("destination", o.DestinationPath),
			zap.Int("width", o.Width),
			zap.Int("height", o.Height),
		)...)
	case models.Skipped:
		l.logger.Info("Skipped", append(fields,
			zap.String("destination", o.DestinationPath),
			zap.String("reason", o.Reason),
		)...)
	case models.Unsupported:
		l.logger.Warn("Unsupported format", append(fields,
			zap.String("reason", o.Reason),
		)...)
	case models.Failed:
		l.logger.Error("Failed", append(fields,
			zap.String("destination", o.DestinationPath),
			zap.Error(o.Err),
		)...)
	}
}
