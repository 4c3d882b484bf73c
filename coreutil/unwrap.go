package coreutil

import (
	"fmt"

	"github.com/hyperledger-labs/yui-bridge-relayer/core"
)

// Unwrapper is implemented by chains that decorate another chain.
type Unwrapper interface {
	Unwrap() core.BridgeChain
}

// UnwrapChain finds the first chain in the decorator chain that matches the specified
// type argument.
//
// In the following example, UnwrapChain returns the *mock.Chain wrapped by tracing and debug decorators:
//
//	chain, err := coreutil.UnwrapChain[*mock.Chain](chain)
func UnwrapChain[C core.BridgeChain](c core.BridgeChain) (C, error) {
	chain := c
	for {
		switch unwrapped := chain.(type) {
		case C:
			return unwrapped, nil
		case Unwrapper:
			chain = unwrapped.Unwrap()
		default:
			var zero C
			return zero, fmt.Errorf("failed to unwrap chain: expected=%T, actual=%T", zero, unwrapped)
		}
	}
}
