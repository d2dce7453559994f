package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/announcement-sync/internal/models"
)

// EventSink receives a structured event for every pipeline step.
type EventSink interface {
	Record(ctx context.Context, event models.PipelineEvent)
}

type nopEventSink struct{}

func (nopEventSink) Record(context.Context, models.PipelineEvent) {}

// NopEventSink discards events.
func NopEventSink() EventSink {
	return nopEventSink{}
}

// LoggingEventSink writes events to zap and Prometheus.
type LoggingEventSink struct {
	logger  *zap.Logger
	metrics *MetricsService
}

// NewLoggingEventSink builds the production event sink; both collaborators are optional.
func NewLoggingEventSink(logger *zap.Logger, metrics *MetricsService) *LoggingEventSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoggingEventSink{logger: logger, metrics: metrics}
}

// Record logs the event and updates metrics.
func (s *LoggingEventSink) Record(_ context.Context, event models.PipelineEvent) {
	s.metrics.ObservePipelineEvent(event)

	fields := []zap.Field{
		zap.String("stage", string(event.Stage)),
		zap.Duration("duration", event.Duration),
	}
	if event.Credential != "" {
		fields = append(fields, zap.String("credential", event.Credential))
	}
	if event.AnnouncementID != "" {
		fields = append(fields, zap.String("announcement_id", event.AnnouncementID))
	}
	if event.Count > 0 {
		fields = append(fields, zap.Int("count", event.Count))
	}

	switch {
	case event.Stage == models.StageNodeSkipped:
		s.logger.Warn("pipeline_event", fields...)
	case event.Err != nil:
		s.logger.Warn("pipeline_event", append(fields, zap.Error(event.Err))...)
	default:
		s.logger.Debug("pipeline_event", fields...)
	}
}
