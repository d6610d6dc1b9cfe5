package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	aws_pkg "github.com/yashrajoria/markup-backend/pkg/aws"
	"github.com/yashrajoria/markup-backend/services/markup-service/models"
	"github.com/yashrajoria/markup-backend/services/markup-service/services"
	"go.uber.org/zap"
)

// snsEnvelope unwraps messages delivered through an SNS subscription.
type snsEnvelope struct {
	Type    string `json:"Type"`
	Message string `json:"Message"`
}

// DatasetRefresher reloads datasets when a refresh message arrives.
type DatasetRefresher struct {
	service services.MarkupService
	logger  *zap.Logger
}

func NewDatasetRefresher(svc services.MarkupService, logger *zap.Logger) *DatasetRefresher {
	return &DatasetRefresher{service: svc, logger: logger}
}

// Handler adapts the refresher to the SQS consumer. Messages that can never
// succeed are acknowledged so they do not loop; reload failures are returned
// so SQS redelivers them.
func (r *DatasetRefresher) Handler() aws_pkg.MessageHandler {
	return r.Handle
}

func (r *DatasetRefresher) Handle(ctx context.Context, body string) error {
	msg, err := decodeRefresh(body)
	if err != nil {
		r.logger.Error("Dropping malformed dataset refresh message", zap.Error(err))
		return nil
	}

	tasks, err := refreshTargets(msg.Task)
	if err != nil {
		r.logger.Error("Dropping dataset refresh message", zap.String("task", msg.Task), zap.Error(err))
		return nil
	}

	for _, task := range tasks {
		info, err := r.service.ReloadDataset(ctx, task)
		if err != nil {
			return fmt.Errorf("failed to reload %s dataset: %w", task, err)
		}
		r.logger.Info("Dataset reloaded from queue",
			zap.String("task", string(task)),
			zap.String("version", info.Version),
			zap.Int("records", info.Records),
		)
	}
	return nil
}

func decodeRefresh(body string) (models.DatasetRefreshMessage, error) {
	var msg models.DatasetRefreshMessage

	var envelope snsEnvelope
	if err := json.Unmarshal([]byte(body), &envelope); err != nil {
		return msg, fmt.Errorf("failed to unmarshal message body: %w", err)
	}
	if envelope.Type == "Notification" && envelope.Message != "" {
		body = envelope.Message
	}

	if err := json.Unmarshal([]byte(body), &msg); err != nil {
		return msg, fmt.Errorf("failed to unmarshal refresh payload: %w", err)
	}
	return msg, nil
}

func refreshTargets(task string) ([]models.TaskType, error) {
	task = strings.ToLower(strings.TrimSpace(task))
	if task == "" || task == "all" {
		return models.AllTasks(), nil
	}
	t, err := models.ParseTaskType(task)
	if err != nil {
		return nil, err
	}
	return []models.TaskType{t}, nil
}
