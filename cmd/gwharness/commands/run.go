package commands

import (
	"crypto/ecdsa"
	"fmt"
	"net/http"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tengw/internal/config"
	"tengw/internal/ethsign"
	"tengw/scenarios"
)

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the available scenarios",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, s := range scenarios.All() {
				fmt.Fprintf(w, "%s\t%s\n", s.Name, s.Description)
			}
			return w.Flush()
		},
	}
}

func runCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "run <scenario> [scenario...]",
		Short: "Run one or more scenarios in order, stopping at the first failure",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			selected := make([]scenarios.Scenario, 0, len(args))
			for _, name := range args {
				s, err := scenarios.Find(name)
				if err != nil {
					return err
				}
				selected = append(selected, s)
			}

			env, err := st.scenarioEnv()
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			for _, s := range selected {
				logger := st.logger.With(zap.String("scenario", s.Name))
				env.Logger = logger
				start := time.Now()

				logger.Info("Scenario started", zap.String("network", env.Network.String()))
				if err := s.Run(ctx, env); err != nil {
					logger.Error("Scenario failed", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
					return fmt.Errorf("scenario %s: %w", s.Name, err)
				}
				logger.Info("Scenario passed", zap.Duration("elapsed", time.Since(start)))
			}
			return nil
		},
	}
}

// scenarioEnv resolves the network, scenario settings and optional funded key.
func (st *state) scenarioEnv() (scenarios.Env, error) {
	network, err := st.cfg.Network()
	if err != nil {
		return scenarios.Env{}, err
	}
	settings, err := config.LoadSettings(st.cfg.ScenarioFile)
	if err != nil {
		return scenarios.Env{}, err
	}

	var key *ecdsa.PrivateKey
	if st.cfg.PrivateKey != "" {
		key, err = ethsign.ParsePrivateKey(st.cfg.PrivateKey)
		if err != nil {
			return scenarios.Env{}, fmt.Errorf("GATEWAY_PRIVATE_KEY: %w", err)
		}
	}

	return scenarios.Env{
		Network:    network,
		HTTPClient: &http.Client{Timeout: st.cfg.HTTPTimeout},
		PrivateKey: key,
		Logger:     st.logger,
		Settings:   settings,
	}, nil
}
