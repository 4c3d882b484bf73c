package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/hyperledger-labs/yui-bridge-relayer/config"
	"github.com/hyperledger-labs/yui-bridge-relayer/core"
	"github.com/hyperledger-labs/yui-bridge-relayer/coreutil"
	"github.com/hyperledger-labs/yui-bridge-relayer/log"
	"github.com/hyperledger-labs/yui-bridge-relayer/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func serviceCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Relay Service Commands",
		Long:  "Commands to manage the relay service",
	}
	cmd.AddCommand(
		startCmd(ctx),
	)
	return cmd
}

// runnableChain is a chain that produces its own blocks, such as a simulated chain.
type runnableChain interface {
	core.BridgeChain
	Run(ctx context.Context) error
}

func startCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start [pipeline-name...]",
		Short: "Runs the named pipelines, or all configured pipelines, until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := log.GetLogger().WithModule("cmd")
			c, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			c, cancel := context.WithCancel(c)
			defer cancel()

			if d, _ := cmd.Flags().GetDuration(flagRelayInterval); d > 0 {
				ctx.Config.Pipelines.SetRelayInterval(d)
			}
			pipelines, err := ctx.Config.BuildPipelines(c, args...)
			if err != nil {
				return err
			}
			defer func() {
				if err := ctx.Config.Close(); err != nil {
					logger.Error("failed to close journals", err)
				}
			}()
			srv := core.NewRelayService(pipelines...)

			var eg errgroup.Group
			if runChains, _ := cmd.Flags().GetBool(flagRunChains); runChains {
				for _, id := range ctx.Config.GetChains().IDs() {
					chain, err := coreutil.UnwrapChain[runnableChain](ctx.Config.GetChains()[id])
					if err != nil {
						continue
					}
					logger.Info("producing blocks", "chain_id", id)
					eg.Go(func() error {
						if err := chain.Run(c); err != nil && !errors.Is(err, context.Canceled) {
							return errors.Wrapf(err, "chain %s", id)
						}
						return nil
					})
				}
			}

			telemetryCfg := ctx.Config.Global.Telemetry
			httpAddr, grpcAddr := telemetryCfg.StatusAddr, telemetryCfg.StatusGRPCAddr
			if addr, _ := cmd.Flags().GetString(flagStatusAddr); addr != "" {
				httpAddr = addr
			}
			if addr, _ := cmd.Flags().GetString(flagStatusGRPCAddr); addr != "" {
				grpcAddr = addr
			}
			if httpAddr != "" || grpcAddr != "" {
				status := server.NewStatusServer(srv, httpAddr, grpcAddr)
				eg.Go(func() error {
					return status.Start(c)
				})
			}

			err = srv.Start(c)
			cancel()
			return errors.Join(err, eg.Wait())
		},
	}
	return serviceFlags(cmd)
}
