package refresher

import (
	"context"
	"errors"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("permcache.refresher",
	fx.Provide(FromConfig),
	fx.Provide(NewRedisLocker),
	fx.Provide(NewWorker),
	fx.Invoke(runWorker),
)

// runWorker stops the loop before the lock client closes, so a refresh in
// flight never sees a closed redis client or cache DB.
func runWorker(lc fx.Lifecycle, worker *Worker, locker *Locker, log *zap.Logger) {
	if !worker.cfg.Enabled {
		log.Info("permission cache refresher disabled")
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			worker.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return errors.Join(worker.Stop(ctx), locker.Close())
		},
	})
}
