package notification

import (
	"encoding/json"
	"time"

	"engagement-controlplane/services/engine"

	"github.com/hibiken/asynq"
)

const TypeNotificationDeliver = "notification:deliver"

func NewDeliverTask(event engine.Event) (*asynq.Task, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeNotificationDeliver, payload,
		asynq.MaxRetry(3),
		asynq.Timeout(30*time.Second),
		asynq.Queue("notifications")), nil
}
