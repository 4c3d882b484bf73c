package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/hyperledger-labs/yui-bridge-relayer/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"
)

func chainsCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "chains",
		Aliases: []string{"ch"},
		Short:   "manage chain configurations",
		RunE:    noCommand,
	}

	cmd.AddCommand(
		chainsListCmd(ctx),
		chainsAddDirCmd(ctx),
	)

	return cmd
}

type chainSummary struct {
	ChainID string `json:"chain_id" yaml:"chain_id"`
	Account string `json:"account" yaml:"account"`
}

func chainsListCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"l"},
		Short:   "Lists the configured chains and the accounts relaying on them",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			chains := ctx.Config.GetChains()
			summaries := make([]chainSummary, 0, len(chains))
			for _, id := range chains.IDs() {
				summaries = append(summaries, chainSummary{ChainID: id, Account: chains[id].Account()})
			}
			return printOutput(cmd, summaries)
		},
	}
	return jsonFlag(cmd)
}

func chainsAddDirCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:  "add-dir [dir]",
		Args: cobra.ExactArgs(1),
		Short: `Add new chains to the configuration file from a directory
		full of chain definitions, useful for adding testnet configurations`,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if err := filesAdd(ctx, cmd, args[0]); err != nil {
				return err
			}
			return overWriteConfig(ctx)
		},
	}

	return cmd
}

func filesAdd(ctx *config.Context, cmd *cobra.Command, dir string) error {
	dir = filepath.Clean(dir)
	files, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, f := range files {
		pth := filepath.Join(dir, f.Name())
		if f.IsDir() {
			fmt.Fprintf(cmd.OutOrStdout(), "directory at %s, skipping...\n", pth)
			continue
		}
		byt, err := os.ReadFile(pth)
		if err != nil {
			return errors.Wrapf(err, "failed to read file %s", pth)
		}
		bz, err := chainDefinition(pth, byt)
		if err != nil {
			return errors.Wrapf(err, "failed to unmarshal file %s", pth)
		}
		chain, err := ctx.Config.AddChain(ctx.Registry, bz)
		if err != nil {
			return errors.Wrapf(err, "failed to add chain %s", pth)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "added %s...\n", chain.ChainID())
	}
	return nil
}

// chainDefinition returns the JSON form of a chain definition file, which may be YAML.
func chainDefinition(path string, bz []byte) (json.RawMessage, error) {
	if filepath.Ext(path) == ".json" {
		if !json.Valid(bz) {
			return nil, errors.New("invalid JSON")
		}
		return bz, nil
	}
	return config.ChainDefinitionFromYAML(bz)
}

// printOutput prints v as YAML, or as JSON if the json flag is set.
func printOutput(cmd *cobra.Command, v any) error {
	asJSON, _ := cmd.Flags().GetBool(flagJSON)
	var (
		out []byte
		err error
	)
	if asJSON {
		out, err = json.MarshalIndent(v, "", "  ")
	} else {
		out, err = yaml.Marshal(v)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
