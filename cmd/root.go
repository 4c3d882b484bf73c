package cmd

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cosmos/cosmos-sdk/client/flags"
	"github.com/hyperledger-labs/yui-bridge-relayer/config"
	"github.com/hyperledger-labs/yui-bridge-relayer/internal/telemetry"
	"github.com/hyperledger-labs/yui-bridge-relayer/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	homePath    string
	debugLog    bool
	defaultHome = os.ExpandEnv("$HOME/.ubr")
)

const (
	appName    = "ubr"
	configPath = "config/config.yaml"
)

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute(modules ...config.ModuleI) error {
	// rootCmd represents the base command when called without any subcommands
	var rootCmd = &cobra.Command{
		Use:   appName,
		Short: "This application relays headers, messages and equivocation reports between bridged chains",
		Long: strings.TrimSpace(`ubr has:
   1. Configuration management for chains and relay pipelines
   2. A relay service running finality, parachain, message and equivocation pipelines
   3. Commands to query the bridge state of the configured chains

NOTE: Most of the commands have aliases that make typing them much quicker (i.e. 'ubr tx', 'ubr q', etc...)`),
	}

	cobra.EnableCommandSorting = false
	rootCmd.SilenceUsage = true

	// Register top level flags --home and --debug
	rootCmd.PersistentFlags().StringVar(&homePath, flags.FlagHome, defaultHome, "set home directory")
	rootCmd.PersistentFlags().BoolVar(&debugLog, "debug", false, "debug output")
	rootCmd.PersistentFlags().String(flagLogLevel, "", "overrides the log level of the configuration")
	if err := viper.BindPFlag(flags.FlagHome, rootCmd.PersistentFlags().Lookup(flags.FlagHome)); err != nil {
		return err
	}
	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		return err
	}
	if err := viper.BindPFlag(flagLogLevel, rootCmd.PersistentFlags().Lookup(flagLogLevel)); err != nil {
		return err
	}

	ctx := config.NewContext(modules, &config.Config{})
	var shutdownTelemetry func(context.Context) error

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		// reads `homeDir/config/config.yaml` into `var config *Config` before each command
		if err := initConfig(ctx, cmd); err != nil {
			return err
		}
		global := ctx.Config.Global
		level := global.Logger.Level
		if l := viper.GetString(flagLogLevel); l != "" {
			level = l
		} else if debugLog {
			level = "DEBUG"
		}
		if err := log.InitLogger(level, global.Logger.Format, global.Logger.Output, global.Telemetry.Enabled); err != nil {
			return err
		}
		if global.Telemetry.Enabled {
			shutdown, err := telemetry.SetupOTelSDK(cmd.Context(), telemetry.Options{
				ServiceName:    appName,
				PrometheusAddr: global.Telemetry.PrometheusAddr,
			})
			if err != nil {
				return errors.Wrap(err, "failed to set up OpenTelemetry SDK")
			}
			shutdownTelemetry = shutdown
		}
		return nil
	}
	rootCmd.PersistentPostRunE = func(cmd *cobra.Command, _ []string) error {
		if shutdownTelemetry == nil {
			return nil
		}
		return shutdownTelemetry(context.Background())
	}

	rootCmd.AddCommand(
		configCmd(ctx),
		chainsCmd(ctx),
		pipelinesCmd(ctx),
		flags.LineBreak,
		transactionCmd(ctx),
		queryCmd(ctx),
		serviceCmd(ctx),
		flags.LineBreak,
		modulesCmd(ctx),
	)
	for _, module := range modules {
		if cmd := module.GetCmd(ctx); cmd != nil {
			rootCmd.AddCommand(cmd)
		}
	}

	return rootCmd.ExecuteContext(context.Background())
}

func noCommand(cmd *cobra.Command, args []string) error {
	return cmd.Help()
}

func defaultConfigPath() string {
	return filepath.Join(homePath, configPath)
}
