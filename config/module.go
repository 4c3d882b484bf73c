package config

import (
	"github.com/spf13/cobra"
)

// ModuleI defines an interface of Module
type ModuleI interface {
	// Name returns the name of the module
	Name() string

	// RegisterChainTypes registers the chain config types of the module.
	RegisterChainTypes(registry *ChainTypeRegistry)

	// GetCmd returns the command
	GetCmd(ctx *Context) *cobra.Command
}
