package cmd

import (
	"github.com/hyperledger-labs/yui-bridge-relayer/config"
	"github.com/hyperledger-labs/yui-bridge-relayer/core"
	"github.com/spf13/cobra"
)

func pipelinesCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "pipelines",
		Aliases: []string{"pth", "paths"},
		Short:   "show the configured relay pipelines",
		RunE:    noCommand,
	}

	cmd.AddCommand(
		pipelinesListCmd(ctx),
		pipelinesShowCmd(ctx),
	)

	return cmd
}

type pipelineSummary struct {
	Name string            `json:"name" yaml:"name"`
	Kind core.PipelineKind `json:"kind" yaml:"kind"`
	Src  string            `json:"src" yaml:"src"`
	Dst  string            `json:"dst" yaml:"dst"`
	Lane core.LaneID       `json:"lane,omitempty" yaml:"lane,omitempty"`
}

func pipelinesListCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"l"},
		Short:   "Lists the configured pipelines",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			summaries := make([]pipelineSummary, 0, len(ctx.Config.Pipelines))
			for _, p := range ctx.Config.Pipelines {
				summaries = append(summaries, pipelineSummary{Name: p.Name, Kind: p.Kind, Src: p.Src, Dst: p.Dst, Lane: p.Lane})
			}
			return printOutput(cmd, summaries)
		},
	}
	return jsonFlag(cmd)
}

func pipelinesShowCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "show [pipeline-name]",
		Aliases: []string{"s"},
		Short:   "Shows the configuration of a pipeline",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := ctx.Config.Pipelines.Get(args[0])
			if err != nil {
				return err
			}
			return printOutput(cmd, p)
		},
	}
	return jsonFlag(cmd)
}
