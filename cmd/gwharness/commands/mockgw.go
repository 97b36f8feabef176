package commands

import (
	"github.com/spf13/cobra"

	"tengw/internal/config"
	"tengw/internal/mockgw"
)

func mockGatewayCmd(st *state) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "mock-gateway",
		Short: "Serve an in-memory gateway for running the scenarios locally",
		Long: `Serve an in-memory gateway for running the scenarios locally.

Settings come from MOCKGW_* environment variables. Fund accounts with
POST /admin/fund {"address": "0x...", "amount": "1.5"}.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := mockgw.DefaultConfig()
			if err := config.ParseEnv(&cfg); err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Addr = addr
			}

			srv, err := mockgw.New(cfg, st.logger)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address [MOCKGW_ADDR]")
	return cmd
}
