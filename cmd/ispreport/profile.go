package main

import (
	"context"

	"github.com/smallbiznis/ispreport/internal/permission/domain"
	"github.com/spf13/cobra"
)

func newProfileCmd() *cobra.Command {
	var tenant, username string

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Print what a reseller may pick from, resolved from the permission cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			var svc domain.Service
			return runOnce(cmd.Context(), func(ctx context.Context) error {
				profile, err := svc.Profile(ctx, tenant, username)
				if err != nil {
					return err
				}
				return writeJSON(profile)
			}, &svc)
		},
	}

	cmd.Flags().StringVar(&tenant, "tenant", "", "Tenant (source) name (required)")
	cmd.Flags().StringVar(&username, "username", "", "Reseller username (required)")
	_ = cmd.MarkFlagRequired("tenant")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}
