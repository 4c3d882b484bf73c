package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	flagJSON           = "json"
	flagLogLevel       = "log-level"
	flagDenom          = "denom"
	flagAccount        = "account"
	flagStatusAddr     = "status-addr"
	flagStatusGRPCAddr = "status-grpc-addr"
	flagRunChains      = "run-chains"
	flagFrom           = "from"
	flagRelayInterval  = "relay-interval"

	defaultDenom = "unit"
)

// bindFlags binds the named flags of fs to viper keys of the same name.
func bindFlags(fs *pflag.FlagSet, names ...string) {
	for _, name := range names {
		if err := viper.BindPFlag(name, fs.Lookup(name)); err != nil {
			panic(err)
		}
	}
}

func jsonFlag(cmd *cobra.Command) *cobra.Command {
	cmd.Flags().BoolP(flagJSON, "j", false, "returns the response in json format")
	bindFlags(cmd.Flags(), flagJSON)
	return cmd
}

func balanceFlags(cmd *cobra.Command) *cobra.Command {
	cmd.Flags().String(flagDenom, defaultDenom, "denomination the balance is shown in")
	cmd.Flags().String(flagAccount, "", "account to query, defaults to the relayer account")
	bindFlags(cmd.Flags(), flagDenom, flagAccount)
	return cmd
}

func fromFlag(cmd *cobra.Command) *cobra.Command {
	cmd.Flags().Uint64(flagFrom, 0, "lowest header number to show")
	bindFlags(cmd.Flags(), flagFrom)
	return cmd
}

func serviceFlags(cmd *cobra.Command) *cobra.Command {
	cmd.Flags().String(flagStatusAddr, "", "address of the HTTP status endpoint, overrides the configuration")
	cmd.Flags().String(flagStatusGRPCAddr, "", "address of the gRPC health endpoint, overrides the configuration")
	cmd.Flags().Bool(flagRunChains, false, "produce blocks on the simulated chains of the configuration")
	cmd.Flags().Duration(flagRelayInterval, 0, "overrides the relay interval of every pipeline")
	bindFlags(cmd.Flags(), flagStatusAddr, flagStatusGRPCAddr, flagRunChains, flagRelayInterval)
	return cmd
}
