package cmd

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/hyperledger-labs/yui-bridge-relayer/config"
	"github.com/hyperledger-labs/yui-bridge-relayer/core"
	"github.com/hyperledger-labs/yui-bridge-relayer/helpers"
	"github.com/spf13/cobra"
)

// queryCmd represents the chain command
func queryCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "query",
		Aliases: []string{"q"},
		Short:   "Bridge Query Commands",
		Long:    "Commands to query the bridge state and other useful data on configured chains.",
	}

	cmd.AddCommand(
		queryBalanceCmd(ctx),
		queryHeadersCmd(ctx),
		queryRuntimeVersionCmd(ctx),
		queryLaneCmd(ctx),
		querySyncedHeadersCmd(ctx),
	)

	return cmd
}

func queryBalanceCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "balance [chain-id]",
		Aliases: []string{"bal"},
		Short:   "Query the balance of the relayer account, or of --account, on a chain",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chain, err := ctx.Config.GetChain(args[0])
			if err != nil {
				return err
			}
			denom, err := cmd.Flags().GetString(flagDenom)
			if err != nil {
				return err
			}
			account, err := cmd.Flags().GetString(flagAccount)
			if err != nil {
				return err
			}
			coin, err := helpers.QueryBalance(cmd.Context(), chain, account, denom)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), coin.String())
			return nil
		},
	}
	return balanceFlags(cmd)
}

type headersSummary struct {
	ChainID       string `json:"chain_id" yaml:"chain_id"`
	Best          uint64 `json:"best" yaml:"best"`
	BestFinalized string `json:"best_finalized" yaml:"best_finalized"`
	SyncedHeader  uint64 `json:"synced_counterparty_header" yaml:"synced_counterparty_header"`
}

func queryHeadersCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "headers [chain-id]",
		Short: "Query the best and finalized headers of a chain and the counterparty header its light client knows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chain, err := ctx.Config.GetChain(args[0])
			if err != nil {
				return err
			}
			best, err := chain.BestBlockNumber(cmd.Context())
			if err != nil {
				return err
			}
			finalized, err := chain.BestFinalizedHeaderID(cmd.Context())
			if err != nil {
				return err
			}
			synced, err := chain.SyncedHeaderNumber(cmd.Context())
			if err != nil {
				return err
			}
			return printOutput(cmd, headersSummary{
				ChainID:       chain.ChainID(),
				Best:          best,
				BestFinalized: finalized.String(),
				SyncedHeader:  synced,
			})
		},
	}
	return jsonFlag(cmd)
}

func queryRuntimeVersionCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runtime-version [chain-id]",
		Short: "Query the runtime version of a chain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chain, err := ctx.Config.GetChain(args[0])
			if err != nil {
				return err
			}
			v, err := chain.RuntimeVersion(cmd.Context())
			if err != nil {
				return err
			}
			return printOutput(cmd, v)
		},
	}
	return jsonFlag(cmd)
}

func queryLaneCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lane [pipeline-name]",
		Short: "Query the nonces of the lane relayed by a message pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := ctx.Config.Pipelines.Get(args[0])
			if err != nil {
				return err
			}
			if p.Kind != core.PipelineKindMessages {
				return errors.Newf("pipeline %s relays %s, not messages", p.Name, p.Kind)
			}
			src, err := ctx.Config.GetChain(p.Src)
			if err != nil {
				return err
			}
			dst, err := ctx.Config.GetChain(p.Dst)
			if err != nil {
				return err
			}
			summary, err := helpers.QueryLaneSummary(cmd.Context(), src, dst, p.Lane)
			if err != nil {
				return err
			}
			return printOutput(cmd, summary)
		},
	}
	return jsonFlag(cmd)
}

type syncedHeaderSummary struct {
	Header      string `json:"header" yaml:"header"`
	SetID       uint64 `json:"set_id" yaml:"set_id"`
	Authorities int    `json:"authorities" yaml:"authorities"`
	Votes       int    `json:"votes" yaml:"votes"`
	EnactsSetID uint64 `json:"enacts_set_id,omitempty" yaml:"enacts_set_id,omitempty"`
}

func querySyncedHeadersCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "synced-headers [chain-id]",
		Short: "Query the counterparty headers imported by the light client of a chain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chain, err := ctx.Config.GetChain(args[0])
			if err != nil {
				return err
			}
			from, err := cmd.Flags().GetUint64(flagFrom)
			if err != nil {
				return err
			}
			headers, err := chain.SyncedHeadersWithContext(cmd.Context(), from)
			if err != nil {
				return err
			}
			summaries := make([]syncedHeaderSummary, 0, len(headers))
			for _, h := range headers {
				s := syncedHeaderSummary{
					Header:      h.Header.String(),
					SetID:       h.Context.AuthoritySet.ID,
					Authorities: len(h.Context.AuthoritySet.Authorities),
					Votes:       len(h.Proof.Votes),
				}
				if next := h.Proof.NextAuthoritySet; next != nil {
					s.EnactsSetID = next.ID
				}
				summaries = append(summaries, s)
			}
			return printOutput(cmd, summaries)
		},
	}
	return jsonFlag(fromFlag(cmd))
}
