package module

import (
	"github.com/hyperledger-labs/yui-bridge-relayer/chains/debug"
	"github.com/hyperledger-labs/yui-bridge-relayer/config"
	"github.com/hyperledger-labs/yui-bridge-relayer/core"
	"github.com/spf13/cobra"
)

type Module struct{}

var _ config.ModuleI = (*Module)(nil)

// Name returns the name of the module
func (Module) Name() string {
	return debug.ChainType
}

// RegisterChainTypes registers the chain config types of the module.
func (Module) RegisterChainTypes(registry *config.ChainTypeRegistry) {
	registry.Register(debug.ChainType, func() core.ChainConfig { return debug.NewChainConfig(registry) })
}

// GetCmd returns the command
func (Module) GetCmd(ctx *config.Context) *cobra.Command {
	return nil
}
