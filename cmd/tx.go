package cmd

import (
	"strings"

	"github.com/hyperledger-labs/yui-bridge-relayer/config"
	"github.com/hyperledger-labs/yui-bridge-relayer/core"
	"github.com/spf13/cobra"
)

// transactionCmd represents the tx command
func transactionCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tx",
		Aliases: []string{"transact"},
		Short:   "Bridge Transaction Commands",
		Long: strings.TrimSpace(`Commands to submit bridge transactions on configured chains.
	Most of these commands take '[pipeline-name]' arguments. Make sure:
	1. Chains are properly configured to relay over by using the 'ubr chains list' command
	2. Pipelines are properly configured by using the 'ubr pipelines list' command`),
	}

	cmd.AddCommand(
		relayOnceCmd(ctx),
	)

	return cmd
}

func relayOnceCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "relay-once [pipeline-name...]",
		Short: "Performs a single relay cycle of the named pipelines, or of all configured pipelines",
		Long: strings.TrimSpace(`Every pipeline looks for pending work once, submits at most one transaction
	per race and waits for its outcome.`),
		RunE: func(cmd *cobra.Command, args []string) error {
			pipelines, err := ctx.Config.BuildPipelines(cmd.Context(), args...)
			if err != nil {
				return err
			}
			defer ctx.Config.Close()

			srv := core.NewRelayService(pipelines...)
			if err := srv.RunOnce(cmd.Context()); err != nil {
				return err
			}
			return printOutput(cmd, srv.Statuses())
		},
	}
	return jsonFlag(cmd)
}
