// Package commands implements the gwharness command line.
package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tengw/internal/config"
	"tengw/internal/logging"
)

// state is filled by the root command before any subcommand runs.
type state struct {
	cfg    config.Config
	logger *zap.Logger

	// flag values; they override the environment only when set
	env        string
	url        string
	chainID    int64
	privateKey string
	configPath string
	logLevel   string
	logFormat  string
}

// Execute runs the root command with the process arguments.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	st := &state{}

	root := &cobra.Command{
		Use:           "gwharness",
		Short:         "Exercise a privacy gateway: authentication, session keys and rate limits",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return st.load(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if st.logger != nil {
				_ = st.logger.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&st.env, "env", "", "gateway environment (local, dexynth, sepolia, uat) [GATEWAY_ENV]")
	flags.StringVar(&st.url, "url", "", "gateway URL override [GATEWAY_URL]")
	flags.Int64Var(&st.chainID, "chain-id", 0, "chain ID override [GATEWAY_CHAIN_ID]")
	flags.StringVar(&st.privateKey, "private-key", "", "hex private key of the funded account [GATEWAY_PRIVATE_KEY]")
	flags.StringVar(&st.configPath, "config", "", "scenario settings YAML file [SCENARIO_CONFIG]")
	flags.StringVar(&st.logLevel, "log-level", "", "log level [LOG_LEVEL]")
	flags.StringVar(&st.logFormat, "log-format", "", "log format, json or console [LOG_FORMAT]")

	root.AddCommand(
		listCmd(),
		runCmd(st),
		mockGatewayCmd(st),
		deriveAddressCmd(st),
		versionCmd(),
	)
	return root
}

// load reads the environment, applies flags that were set and builds the logger.
func (st *state) load(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("env") {
		cfg.Env = st.env
	}
	if flags.Changed("url") {
		cfg.URL = st.url
	}
	if flags.Changed("chain-id") {
		cfg.ChainID = st.chainID
	}
	if flags.Changed("private-key") {
		cfg.PrivateKey = st.privateKey
	}
	if flags.Changed("config") {
		cfg.ScenarioFile = st.configPath
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = st.logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = st.logFormat
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	st.cfg = cfg
	st.logger = logger
	return nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
