package debug

import (
	"github.com/cockroachdb/errors"
	"github.com/hyperledger-labs/yui-bridge-relayer/core"
)

// ErrFakeConnection is returned by queries while a connection failure is simulated.
var ErrFakeConnection = errors.New("fake connection failure")

// Chain wraps a chain and injects the faults configured by environment variables.
type Chain struct {
	core.BridgeChain
	config ChainConfig
}

var _ core.BridgeChain = (*Chain)(nil)

func NewChain(origin core.BridgeChain, config ChainConfig) *Chain {
	return &Chain{BridgeChain: origin, config: config}
}

func (c *Chain) Config() ChainConfig {
	return c.config
}

// Unwrap returns the wrapped chain.
func (c *Chain) Unwrap() core.BridgeChain {
	return c.BridgeChain
}

func (c *Chain) IsConnectionError(err error) bool {
	return errors.Is(err, ErrFakeConnection) || c.BridgeChain.IsConnectionError(err)
}
