package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/hyperledger-labs/yui-bridge-relayer/config"
	"github.com/spf13/cobra"
)

func configCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "config",
		Aliases: []string{"cfg"},
		Short:   "manage configuration file",
		RunE:    noCommand,
	}

	cmd.AddCommand(
		configShowCmd(ctx),
		configInitCmd(ctx),
	)

	return cmd
}

// Command for inititalizing an empty config at the --home location
func configInitCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "init",
		Aliases: []string{"i"},
		Short:   "Creates a default home directory at path defined by --home",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := ctx.Config.ConfigPath
			// If the config doesn't exist...
			if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
				if err := os.MkdirAll(filepath.Dir(cfgPath), os.ModePerm); err != nil {
					return err
				}
				bz, err := config.MarshalYAML(config.DefaultConfig(cfgPath))
				if err != nil {
					return err
				}
				return os.WriteFile(cfgPath, bz, 0600)
			}

			// Otherwise, the config file exists, and an error is returned...
			return errors.Newf("config already exists: %s", cfgPath)
		},
	}
	return cmd
}

// Command for printing current configuration
func configShowCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "show",
		Aliases: []string{"s", "list", "l"},
		Short:   "Prints current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := ctx.Config.ConfigPath
			if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
				return errors.Newf("config does not exist: %s", cfgPath)
			}

			asJSON, err := cmd.Flags().GetBool(flagJSON)
			if err != nil {
				return err
			}
			var out []byte
			if asJSON {
				out, err = config.MarshalJSON(*ctx.Config)
			} else {
				out, err = config.MarshalYAML(*ctx.Config)
			}
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	return jsonFlag(cmd)
}

// initConfig reads in config file and ENV variables if set.
func initConfig(ctx *config.Context, cmd *cobra.Command) error {
	cfgPath := defaultConfigPath()
	if _, err := os.Stat(cfgPath); err != nil {
		*ctx.Config = config.DefaultConfig(cfgPath)
		return nil
	}

	file, err := os.ReadFile(cfgPath)
	if err != nil {
		return errors.Wrapf(err, "failed to read %s", cfgPath)
	}
	cfg := config.DefaultConfig(cfgPath)
	if err := config.Unmarshal(cfgPath, file, &cfg); err != nil {
		return errors.Wrapf(err, "failed to unmarshal %s", cfgPath)
	}
	*ctx.Config = cfg

	// ensure config has the chains used for all chain operations
	if err := config.InitChains(ctx); err != nil {
		return errors.Wrap(err, "failed to parse chain config")
	}
	return nil
}

// overWriteConfig writes the current configuration to its file.
func overWriteConfig(ctx *config.Context) error {
	cfgPath := ctx.Config.ConfigPath
	if _, err := os.Stat(cfgPath); err != nil {
		return errors.Wrapf(err, "config does not exist: %s", cfgPath)
	}
	out, err := config.MarshalYAML(*ctx.Config)
	if err != nil {
		return err
	}
	return os.WriteFile(cfgPath, out, 0600)
}
