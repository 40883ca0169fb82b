package main

import (
	"context"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/ispreport/internal/metricspush"
	"github.com/smallbiznis/ispreport/internal/permcache/domain"
	"github.com/smallbiznis/ispreport/internal/permcache/syncer"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newSyncCmd() *cobra.Command {
	var tenant string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Refresh the permission cache from operational sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				s      *syncer.Syncer
				pusher metricspush.Pusher
				log    *zap.Logger
			)
			return runOnce(cmd.Context(), func(ctx context.Context) error {
				defer pushMetrics(ctx, pusher, log)

				if t := strings.TrimSpace(tenant); t != "" {
					run, err := s.SyncTenant(ctx, t, syncer.TriggerManual)
					if run != nil {
						_ = writeJSON([]*domain.SyncRun{run})
					}
					return err
				}
				runs, err := s.SyncAll(ctx, syncer.TriggerManual)
				if len(runs) > 0 {
					_ = writeJSON(runs)
				}
				return err
			}, &s, &pusher, &log)
		},
	}

	cmd.Flags().StringVar(&tenant, "tenant", "", "Only refresh this tenant (default: all)")
	return cmd
}

func pushMetrics(ctx context.Context, pusher metricspush.Pusher, log *zap.Logger) {
	if pusher == nil {
		return
	}
	if err := pusher.Push(context.WithoutCancel(ctx), prometheus.DefaultGatherer); err != nil {
		log.Warn("metrics push failed", zap.Error(err))
	}
}
