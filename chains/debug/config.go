package debug

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/hyperledger-labs/yui-bridge-relayer/core"
)

const ChainType = "debug"

// ChainConfigDecoder decodes the definition of the wrapped chain.
type ChainConfigDecoder interface {
	Decode(bz []byte) (core.ChainConfig, error)
}

var _ core.ChainConfig = (*ChainConfig)(nil)

type ChainConfig struct {
	OriginChain json.RawMessage `json:"origin_chain" yaml:"origin_chain"`

	decoder ChainConfigDecoder
}

func NewChainConfig(decoder ChainConfigDecoder) *ChainConfig {
	return &ChainConfig{decoder: decoder}
}

func (c ChainConfig) Build() (core.BridgeChain, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	origin, err := c.decoder.Decode(c.OriginChain)
	if err != nil {
		return nil, errors.Wrap(err, "invalid origin_chain")
	}
	originChain, err := origin.Build()
	if err != nil {
		return nil, err
	}
	return NewChain(originChain, c), nil
}

func (c ChainConfig) Validate() error {
	if len(c.OriginChain) == 0 {
		return errors.New("origin_chain must be set")
	}
	if c.decoder == nil {
		return errors.New("no decoder for origin_chain")
	}
	return nil
}
