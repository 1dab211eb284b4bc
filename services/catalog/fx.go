package catalog

import (
	"context"

	"engagement-controlplane/internal/config"

	"go.uber.org/fx"
)

var Module = fx.Module("catalog",
	fx.Provide(provideProvider),
)

func provideProvider(lc fx.Lifecycle, cfg *config.Config) (*Provider, error) {
	p, err := NewProvider(cfg.Catalog.Path)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if cfg.Catalog.Watch {
				return p.Watch(context.Background())
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return p.Close()
		},
	})

	return p, nil
}
