package notification

import (
	"engagement-controlplane/internal/config"
	"engagement-controlplane/services/engine"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
)

var Module = fx.Module("notification.service",
	fx.Provide(
		NewHandler,
		NewAsynqSink,
		provideSink,
	),
	fx.Invoke(registerHandlers),
)

// provideSink degrades to log-only delivery when redis is disabled.
func provideSink(cfg *config.Config, s *AsynqSink) engine.Sink {
	if !cfg.Redis.Enable {
		return engine.LogSink{}
	}
	return s
}

func registerHandlers(mux *asynq.ServeMux, h *Handler) {
	mux.HandleFunc(TypeNotificationDeliver, h.HandleDeliver)
}
