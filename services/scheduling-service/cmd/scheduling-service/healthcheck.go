package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/md-rashed-zaman/clinicsched/libs/config"
	"github.com/md-rashed-zaman/clinicsched/libs/grpcx"
	"github.com/md-rashed-zaman/clinicsched/services/scheduling-service/internal/grpcserver"
)

// healthcheckCmd probes the local gRPC health service. It is meant for
// container HEALTHCHECK directives where no curl is available.
func healthcheckCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "Exit non-zero unless the service reports SERVING",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				port, err := config.Port("GRPC_PORT", "9090")
				if err != nil {
					return err
				}
				addr = "127.0.0.1:" + port
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 3*time.Second)
			defer cancel()
			status, err := grpcx.Probe(ctx, addr, grpcserver.ServiceName)
			if err != nil {
				return fmt.Errorf("health check: %w", err)
			}
			if status != healthpb.HealthCheckResponse_SERVING {
				return fmt.Errorf("service is %s", status)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "SERVING")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "gRPC address (default 127.0.0.1:$GRPC_PORT)")
	return cmd
}
