package main

import (
	"context"
	"fmt"
	"time"

	"github.com/smallbiznis/ispreport/internal/source"
	"github.com/spf13/cobra"
)

type checkOutput struct {
	Tenant    string `json:"tenant"`
	OK        bool   `json:"ok"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

func newCheckCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Ping every configured operational source",
		RunE: func(cmd *cobra.Command, args []string) error {
			var registry *source.Registry
			return runOnce(cmd.Context(), func(ctx context.Context) error {
				results := registry.CheckAll(ctx, timeout)
				out := make([]checkOutput, 0, len(results))
				failed := 0
				for _, r := range results {
					row := checkOutput{Tenant: r.Tenant, OK: r.OK, LatencyMS: r.Latency.Milliseconds()}
					if !r.OK {
						row.Error = r.Error
						failed++
					}
					out = append(out, row)
				}
				if err := writeJSON(out); err != nil {
					return err
				}
				if failed > 0 {
					return fmt.Errorf("%d of %d sources unreachable", failed, len(results))
				}
				return nil
			}, &registry)
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "Per-source ping timeout")
	return cmd
}
