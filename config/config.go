package config

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/hyperledger-labs/yui-bridge-relayer/core"
	"github.com/hyperledger-labs/yui-bridge-relayer/log"
	"github.com/hyperledger-labs/yui-bridge-relayer/otelcore"
	"github.com/hyperledger-labs/yui-bridge-relayer/store"
)

type Config struct {
	Global    GlobalConfig      `yaml:"global" json:"global"`
	Chains    []json.RawMessage `yaml:"-" json:"chains"`
	Pipelines Pipelines         `yaml:"pipelines" json:"pipelines"`

	// cache
	chains   Chains                   `yaml:"-" json:"-"`
	journals map[string]store.Journal `yaml:"-" json:"-"`

	ConfigPath string `yaml:"-" json:"-"`
}

type GlobalConfig struct {
	Timeout   string          `yaml:"timeout" json:"timeout"`
	Logger    LoggerConfig    `yaml:"logger" json:"logger"`
	Telemetry TelemetryConfig `yaml:"telemetry" json:"telemetry"`
	Store     store.Config    `yaml:"store" json:"store"`
}

type LoggerConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	Output string `yaml:"output" json:"output"`
}

type TelemetryConfig struct {
	Enabled        bool   `yaml:"enabled" json:"enabled"`
	PrometheusAddr string `yaml:"prometheus_addr,omitempty" json:"prometheus_addr,omitempty"`
	StatusAddr     string `yaml:"status_addr,omitempty" json:"status_addr,omitempty"`
	StatusGRPCAddr string `yaml:"status_grpc_addr,omitempty" json:"status_grpc_addr,omitempty"`
}

func DefaultConfig(configPath string) Config {
	return Config{
		Global:     newDefaultGlobalConfig(),
		Chains:     []json.RawMessage{},
		Pipelines:  Pipelines{},
		ConfigPath: configPath,
	}
}

// newDefaultGlobalConfig returns a global config with defaults set
func newDefaultGlobalConfig() GlobalConfig {
	return GlobalConfig{
		Timeout: "10s",
		Logger: LoggerConfig{
			Level:  "DEBUG",
			Format: "json",
			Output: "stderr",
		},
		Store: store.Config{Backend: store.BackendMemDB},
	}
}

func (c GlobalConfig) Validate() error {
	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return errors.Wrapf(err, "invalid global timeout %q", c.Timeout)
	}
	return c.Store.Validate()
}

func (c GlobalConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

type Pipelines []core.PipelineConfig

// Get returns the pipeline with the given name
func (ps Pipelines) Get(name string) (core.PipelineConfig, error) {
	for _, p := range ps {
		if p.Name == name {
			return p, nil
		}
	}
	return core.PipelineConfig{}, errors.Newf("pipeline '%v' not found", name)
}

// SetRelayInterval overrides the relay interval of every pipeline.
func (ps Pipelines) SetRelayInterval(d time.Duration) {
	for i := range ps {
		ps[i].Intervals.RelayInterval = d
	}
}

// Validate checks the global section and the pipelines against the chain IDs.
func (c *Config) Validate(chainIDs []string) error {
	if err := c.Global.Validate(); err != nil {
		return err
	}
	known := make(map[string]struct{}, len(chainIDs))
	for _, id := range chainIDs {
		known[id] = struct{}{}
	}
	names := make(map[string]struct{}, len(c.Pipelines))
	for _, p := range c.Pipelines {
		if err := p.Validate(); err != nil {
			return err
		}
		if _, ok := names[p.Name]; ok {
			return errors.Newf("duplicate pipeline name %s", p.Name)
		}
		names[p.Name] = struct{}{}
		for _, id := range []string{p.Src, p.Dst} {
			if _, ok := known[id]; !ok {
				return errors.Newf("pipeline %s references chain %s which is not configured", p.Name, id)
			}
		}
	}
	return nil
}

// InitChains builds the configured chains and validates the pipelines against them.
func InitChains(ctx *Context) error {
	c := ctx.Config
	c.chains = make(Chains, len(c.Chains))
	for i, bz := range c.Chains {
		chain, err := buildChain(ctx.Registry, bz)
		if err != nil {
			return errors.Wrapf(err, "chain definition %d", i)
		}
		if _, ok := c.chains[chain.ChainID()]; ok {
			return errors.Newf("chain with ID %s already exists in config", chain.ChainID())
		}
		c.chains[chain.ChainID()] = chain
	}
	return c.Validate(c.chains.IDs())
}

// AddChain adds a chain definition to the config
func (c *Config) AddChain(registry *ChainTypeRegistry, bz json.RawMessage) (core.BridgeChain, error) {
	chain, err := buildChain(registry, bz)
	if err != nil {
		return nil, err
	}
	if _, err := c.GetChain(chain.ChainID()); err == nil {
		return nil, errors.Newf("chain with ID %s already exists in config", chain.ChainID())
	}
	if c.chains == nil {
		c.chains = make(Chains)
	}
	c.Chains = append(c.Chains, bz)
	c.chains[chain.ChainID()] = chain
	return chain, nil
}

// buildChain builds a chain definition and wraps the chain with the tracing decorator.
func buildChain(registry *ChainTypeRegistry, bz json.RawMessage) (core.BridgeChain, error) {
	cfg, err := registry.Decode(bz)
	if err != nil {
		return nil, err
	}
	chain, err := cfg.Build()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build chain")
	}
	return otelcore.NewChain(chain, nil), nil
}

func (c *Config) GetChain(chainID string) (core.BridgeChain, error) {
	return c.chains.Get(chainID)
}

func (c *Config) GetChains() Chains {
	return c.chains
}

// journal opens the journal of a pipeline once.
func (c *Config) journal(name string) (store.Journal, error) {
	if j, ok := c.journals[name]; ok {
		return j, nil
	}
	j, err := store.Open(c.Global.Store, name)
	if err != nil {
		return nil, err
	}
	if c.journals == nil {
		c.journals = make(map[string]store.Journal)
	}
	c.journals[name] = j
	return j, nil
}

// BuildPipelines builds the named pipelines, or every pipeline if no name is given.
// Their guards run until ctx is done.
func (c *Config) BuildPipelines(ctx context.Context, names ...string) ([]core.Pipeline, error) {
	logger := log.GetLogger().WithModule("config")
	cfgs := c.Pipelines
	if len(names) > 0 {
		cfgs = nil
		for _, name := range names {
			p, err := c.Pipelines.Get(name)
			if err != nil {
				return nil, err
			}
			cfgs = append(cfgs, p)
		}
	}

	var pipelines []core.Pipeline
	for _, p := range cfgs {
		src, err := c.GetChain(p.Src)
		if err != nil {
			return nil, err
		}
		dst, err := c.GetChain(p.Dst)
		if err != nil {
			return nil, err
		}
		j, err := c.journal(p.Name)
		if err != nil {
			return nil, err
		}
		pipeline, err := p.Build(ctx, src, dst, j)
		if err != nil {
			logger.Error("failed to build pipeline", err, "pipeline", p.Name)
			return nil, err
		}
		pipelines = append(pipelines, pipeline)
	}
	return pipelines, nil
}

// Close closes the journals opened by BuildPipelines.
func (c *Config) Close() error {
	var errs []error
	for name, j := range c.journals {
		if err := j.Close(); err != nil {
			errs = append(errs, errors.Wrapf(err, "journal of %s", name))
		}
	}
	c.journals = nil
	return errors.Join(errs...)
}
