package mock

import (
	"sync"
	"time"

	"cosmossdk.io/math"
	"github.com/cockroachdb/errors"
	"github.com/hyperledger-labs/yui-bridge-relayer/core"
	"github.com/hyperledger-labs/yui-bridge-relayer/signer/hd"
)

const (
	ChainType = "mock"

	defaultBlockInterval = time.Second
)

var _ core.ChainConfig = (*ChainConfig)(nil)

// ChainConfig defines a simulated chain. Amounts are decimal strings.
type ChainConfig struct {
	ChainID       string   `json:"chain_id" yaml:"chain_id"`
	Counterparty  string   `json:"counterparty,omitempty" yaml:"counterparty,omitempty"`
	Authorities   []string `json:"authorities" yaml:"authorities"`
	FinalityDelay uint64   `json:"finality_delay" yaml:"finality_delay"`
	BlockInterval string   `json:"block_interval" yaml:"block_interval"`
	SpecVersion   uint32   `json:"spec_version" yaml:"spec_version"`

	InitialBalance        string `json:"initial_balance" yaml:"initial_balance"`
	TxFeeBase             string `json:"tx_fee_base" yaml:"tx_fee_base"`
	TxFeePerByte          string `json:"tx_fee_per_byte" yaml:"tx_fee_per_byte"`
	DeliveryFeeBase       string `json:"delivery_fee_base" yaml:"delivery_fee_base"`
	DeliveryFeePerMessage string `json:"delivery_fee_per_message" yaml:"delivery_fee_per_message"`

	Signer hd.SignerConfig `json:"signer" yaml:"signer"`
}

func (cfg ChainConfig) Validate() error {
	if cfg.ChainID == "" {
		return errors.New("chain_id must not be empty")
	}
	if len(cfg.Authorities) == 0 {
		return errors.New("authorities must not be empty")
	}
	if cfg.BlockInterval != "" {
		if d, err := time.ParseDuration(cfg.BlockInterval); err != nil || d <= 0 {
			return errors.Newf("invalid block_interval %q", cfg.BlockInterval)
		}
	}
	for name, v := range map[string]string{
		"initial_balance":          cfg.InitialBalance,
		"tx_fee_base":              cfg.TxFeeBase,
		"tx_fee_per_byte":          cfg.TxFeePerByte,
		"delivery_fee_base":        cfg.DeliveryFeeBase,
		"delivery_fee_per_message": cfg.DeliveryFeePerMessage,
	} {
		if _, err := parseAmount(v); err != nil {
			return errors.Wrapf(err, "invalid %s", name)
		}
	}
	return nil
}

// Build builds the chain and links it to its counterparty once both were built.
func (cfg ChainConfig) Build() (core.BridgeChain, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s, err := cfg.Signer.Build()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to build signer of %s", cfg.ChainID)
	}
	chain, err := NewChain(cfg, s)
	if err != nil {
		return nil, err
	}
	network.register(chain)
	return chain, nil
}

func (cfg ChainConfig) blockInterval() time.Duration {
	d, err := time.ParseDuration(cfg.BlockInterval)
	if err != nil || d <= 0 {
		return defaultBlockInterval
	}
	return d
}

func (cfg ChainConfig) initialBalance() (math.Int, error) {
	return parseAmount(cfg.InitialBalance)
}

func (cfg ChainConfig) txFee(size int) math.Int {
	base, _ := parseAmount(cfg.TxFeeBase)
	perByte, _ := parseAmount(cfg.TxFeePerByte)
	return base.Add(perByte.MulRaw(int64(size)))
}

// deliveryFee is the fee of a transaction delivering n messages.
func (cfg ChainConfig) deliveryFee(n uint64) math.Int {
	base, _ := parseAmount(cfg.DeliveryFeeBase)
	perMessage, _ := parseAmount(cfg.DeliveryFeePerMessage)
	return base.Add(perMessage.Mul(math.NewIntFromUint64(n)))
}

func parseAmount(s string) (math.Int, error) {
	if s == "" {
		return math.ZeroInt(), nil
	}
	v, ok := math.NewIntFromString(s)
	if !ok || v.IsNegative() {
		return math.Int{}, errors.Newf("%q is not a non-negative integer", s)
	}
	return v, nil
}

// network links the chains built from configuration by their counterparty IDs.
var network = &registry{chains: make(map[string]*Chain)}

type registry struct {
	mu     sync.Mutex
	chains map[string]*Chain
}

func (r *registry) register(c *Chain) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chains[c.ChainID()] = c
	if cp, ok := r.chains[c.config.Counterparty]; ok && cp.config.Counterparty == c.ChainID() {
		Link(c, cp)
	}
}
