package main

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ispreport/internal/clock"
	"github.com/smallbiznis/ispreport/internal/config"
	"github.com/smallbiznis/ispreport/internal/metricspush"
	"github.com/smallbiznis/ispreport/internal/observability"
	"github.com/smallbiznis/ispreport/internal/permcache"
	"github.com/smallbiznis/ispreport/internal/permission"
	"github.com/smallbiznis/ispreport/internal/report"
	"github.com/smallbiznis/ispreport/internal/source"
	"github.com/smallbiznis/ispreport/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ispreport",
		Short:         "Reseller permissions and usage reports for ISP billing sources",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.AddCommand(
		newServeCmd(),
		newSyncCmd(),
		newCheckCmd(),
		newReportCmd(),
		newProfileCmd(),
	)
	return cmd
}

// coreModules wires everything a command needs except the HTTP surface and the refresher.
func coreModules() fx.Option {
	return fx.Options(
		config.Module,
		observability.Module,
		clock.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		source.Module,
		permcache.Module,
		permission.Module,
		report.Module,
		metricspush.Module,
	)
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}

// runOnce starts a short-lived app, runs fn and stops the app.
// targets are filled by fx.Populate before fn runs.
func runOnce(ctx context.Context, fn func(context.Context) error, targets ...any) error {
	app := fx.New(
		coreModules(),
		fx.Populate(targets...),
		fx.NopLogger,
	)
	if err := app.Err(); err != nil {
		return err
	}
	if err := app.Start(ctx); err != nil {
		return err
	}

	runErr := fn(ctx)

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fx.DefaultTimeout)
	defer cancel()
	if err := app.Stop(stopCtx); err != nil && runErr == nil {
		return err
	}
	return runErr
}
