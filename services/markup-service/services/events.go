package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	aws_pkg "github.com/yashrajoria/markup-backend/pkg/aws"
	"github.com/yashrajoria/markup-backend/services/markup-service/models"
	"go.uber.org/zap"
)

// MetricsRecorder is satisfied by *aws_pkg.MetricsClient.
type MetricsRecorder interface {
	RecordCount(ctx context.Context, metricName string, dimensions map[string]string) error
	RecordValue(ctx context.Context, metricName string, value float64, dimensions map[string]string) error
	IsEnabled() bool
}

// telemetry publishes progress events and metrics. Both are best-effort:
// failures are logged and never fail a submission.
type telemetry struct {
	sns      aws_pkg.SNSPublisher
	topicArn string
	metrics  MetricsRecorder
	logger   *zap.Logger
}

func (t *telemetry) progressed(ctx context.Context, sessionID string, task models.TaskType, position, total int, exhausted bool) {
	t.count(models.EventMarkupProgressed, aws_pkg.MetricVerdictsSubmitted, task)
	if exhausted {
		t.count("task.exhausted", aws_pkg.MetricTasksExhausted, task)
	}

	if t.sns == nil || t.topicArn == "" {
		return
	}

	event := models.ProgressEvent{
		EventID:   uuid.NewString(),
		EventType: models.EventMarkupProgressed,
		SessionID: sessionID,
		Task:      task,
		Position:  position,
		Total:     total,
		Exhausted: exhausted,
		Timestamp: time.Now().UTC(),
	}
	body, err := json.Marshal(event)
	if err != nil {
		t.logger.Error("Failed to marshal progress event", zap.Error(err))
		return
	}
	attrs := map[string]string{
		"event_type": event.EventType,
		"task":       string(task),
	}
	if err := t.sns.Publish(ctx, t.topicArn, body, attrs); err != nil {
		t.logger.Error("Failed to publish progress event",
			zap.String("session_id", sessionID),
			zap.String("task", string(task)),
			zap.Error(err),
		)
		return
	}
	t.logger.Debug("Published progress event",
		zap.String("event_id", event.EventID),
		zap.String("task", string(task)),
		zap.Int("position", position),
	)
}

func (t *telemetry) stale(task models.TaskType) {
	t.count("submission.stale", aws_pkg.MetricStaleSubmissions, task)
}

func (t *telemetry) sessionStarted() {
	t.count("session.started", aws_pkg.MetricSessionsStarted, "")
}

func (t *telemetry) datasetLoaded(task models.TaskType, records int) {
	if t.metrics == nil || !t.metrics.IsEnabled() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := t.metrics.RecordValue(ctx, aws_pkg.MetricDatasetRecords, float64(records), map[string]string{"Task": string(task)}); err != nil {
			t.logger.Debug("Failed to record dataset size", zap.Error(err))
		}
	}()
}

func (t *telemetry) datasetReloadFailed(task models.TaskType) {
	t.count("dataset.reload_failed", aws_pkg.MetricDatasetReloadFails, task)
}

func (t *telemetry) count(what, metric string, task models.TaskType) {
	if t.metrics == nil || !t.metrics.IsEnabled() {
		return
	}
	dims := map[string]string{"Service": "markup-service"}
	if task != "" {
		dims["Task"] = string(task)
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := t.metrics.RecordCount(ctx, metric, dims); err != nil {
			t.logger.Debug("Failed to record metric", zap.String("event", what), zap.Error(err))
		}
	}()
}
