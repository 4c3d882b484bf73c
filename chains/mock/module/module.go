package module

import (
	"fmt"

	"github.com/cosmos/go-bip39"
	"github.com/hyperledger-labs/yui-bridge-relayer/chains/mock"
	"github.com/hyperledger-labs/yui-bridge-relayer/config"
	"github.com/hyperledger-labs/yui-bridge-relayer/core"
	"github.com/hyperledger-labs/yui-bridge-relayer/coreutil"
	"github.com/spf13/cobra"
)

type Module struct{}

var _ config.ModuleI = (*Module)(nil)

// Name returns the name of the module
func (Module) Name() string {
	return mock.ChainType
}

// RegisterChainTypes registers the chain config types of the module.
func (Module) RegisterChainTypes(registry *config.ChainTypeRegistry) {
	registry.Register(mock.ChainType, func() core.ChainConfig { return &mock.ChainConfig{} })
}

// GetCmd returns the command
func (Module) GetCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mock",
		Short: "manage simulated chains",
	}
	cmd.AddCommand(
		newMnemonicCmd(),
		addressCmd(ctx),
	)
	return cmd
}

func newMnemonicCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "new-mnemonic",
		Short: "Generates a mnemonic for the signer of a mock chain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entropy, err := bip39.NewEntropy(256)
			if err != nil {
				return err
			}
			mnemonic, err := bip39.NewMnemonic(entropy)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), mnemonic)
			return nil
		},
	}
}

func addressCmd(ctx *config.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "address [chain-id]",
		Short: "Shows the address of the account signing on a mock chain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := ctx.Config.GetChain(args[0])
			if err != nil {
				return err
			}
			chain, err := coreutil.UnwrapChain[*mock.Chain](c)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), chain.Account())
			return nil
		},
	}
}
