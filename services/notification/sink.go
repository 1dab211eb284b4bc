package notification

import (
	"context"

	"engagement-controlplane/services/engine"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// AsynqSink enqueues one delivery task per event. Enqueue failures are
// logged and dropped; reward state has already committed by the time
// events reach the sink.
type AsynqSink struct {
	client *asynq.Client
}

func NewAsynqSink(client *asynq.Client) *AsynqSink {
	return &AsynqSink{client: client}
}

func (s *AsynqSink) Dispatch(ctx context.Context, events []engine.Event) {
	for _, e := range events {
		task, err := NewDeliverTask(e)
		if err != nil {
			zap.L().Error("failed to build notification task",
				zap.String("kind", string(e.Kind)),
				zap.Error(err),
			)
			continue
		}

		if _, err := s.client.EnqueueContext(ctx, task); err != nil {
			zap.L().Error("failed to enqueue notification task",
				zap.String("kind", string(e.Kind)),
				zap.String("member_id", e.MemberID),
				zap.Error(err),
			)
		}
	}
}
