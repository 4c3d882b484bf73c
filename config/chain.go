package config

import (
	"encoding/json"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/hyperledger-labs/yui-bridge-relayer/core"
)

// TypeKey is the field of a chain definition naming its type.
const TypeKey = "@type"

// ChainTypeRegistry maps the type names of chain definitions to their config types.
type ChainTypeRegistry struct {
	factories map[string]func() core.ChainConfig
}

func NewChainTypeRegistry() *ChainTypeRegistry {
	return &ChainTypeRegistry{factories: make(map[string]func() core.ChainConfig)}
}

// Register panics if typ is already registered.
func (r *ChainTypeRegistry) Register(typ string, factory func() core.ChainConfig) {
	if _, ok := r.factories[typ]; ok {
		panic(errors.Newf("chain type %s already registered", typ))
	}
	r.factories[typ] = factory
}

func (r *ChainTypeRegistry) Types() []string {
	types := make([]string, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Decode unmarshals a chain definition into the config type its "@type" names.
func (r *ChainTypeRegistry) Decode(bz []byte) (core.ChainConfig, error) {
	var header struct {
		Type string `json:"@type"`
	}
	if err := json.Unmarshal(bz, &header); err != nil {
		return nil, errors.Wrap(err, "failed to read the type of a chain definition")
	}
	factory, ok := r.factories[header.Type]
	if !ok {
		return nil, errors.Newf("unknown chain type '%v', registered types are %v", header.Type, r.Types())
	}
	cfg := factory()
	if err := json.Unmarshal(bz, cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal %s chain definition", header.Type)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid %s chain definition", header.Type)
	}
	return cfg, nil
}

type Chains map[string]core.BridgeChain

// Get returns the configuration for a given chain
func (cs Chains) Get(chainID string) (core.BridgeChain, error) {
	chain, ok := cs[chainID]
	if !ok {
		return nil, errors.Newf("chain with ID %s is not configured", chainID)
	}
	return chain, nil
}

// IDs returns the sorted IDs of the chains.
func (cs Chains) IDs() []string {
	ids := make([]string, 0, len(cs))
	for id := range cs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
