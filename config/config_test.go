package config_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/cosmos/go-bip39"
	debugmodule "github.com/hyperledger-labs/yui-bridge-relayer/chains/debug/module"
	"github.com/hyperledger-labs/yui-bridge-relayer/chains/mock"
	mockmodule "github.com/hyperledger-labs/yui-bridge-relayer/chains/mock/module"
	"github.com/hyperledger-labs/yui-bridge-relayer/config"
	"github.com/hyperledger-labs/yui-bridge-relayer/core"
	"github.com/hyperledger-labs/yui-bridge-relayer/coreutil"
	"github.com/stretchr/testify/require"
)

func newMnemonic(t *testing.T) string {
	entropy, err := bip39.NewEntropy(256)
	require.NoError(t, err)
	mnemonic, err := bip39.NewMnemonic(entropy)
	require.NoError(t, err)
	return mnemonic
}

const testConfigTemplate = `
global:
  timeout: 5s
  logger:
    level: INFO
    format: text
    output: stdout
  store:
    backend: memdb
chains:
- "@type": mock
  chain_id: %[1]s-a
  counterparty: %[1]s-b
  authorities: [alice, bob, charlie]
  block_interval: 10ms
  spec_version: 1
  initial_balance: "1000000"
  signer:
    mnemonic: %[2]s
- "@type": debug
  origin_chain:
    "@type": mock
    chain_id: %[1]s-b
    counterparty: %[1]s-a
    authorities: [dave]
    finality_delay: 1
    initial_balance: "1000000"
    signer:
      mnemonic: %[2]s
pipelines:
- name: finality-a-b
  kind: finality
  src: %[1]s-a
  dst: %[1]s-b
  only_mandatory_headers: true
  max_lag: 16
  intervals:
    relay_interval: 50ms
- name: messages-a-b
  kind: messages
  src: %[1]s-a
  dst: %[1]s-b
  lane: "00000000"
  strategy:
    type: rational
    max_messages_in_batch: 8
  guards:
    spec_version:
      expected: 1
    balance:
      max_drop: "1000"
      window: 1h
- name: equivocation-a-b
  kind: equivocation
  src: %[1]s-a
  dst: %[1]s-b
`

func newContext(t *testing.T, prefix string) *config.Context {
	cfg := config.DefaultConfig("")
	bz := []byte(fmt.Sprintf(testConfigTemplate, prefix, newMnemonic(t)))
	require.NoError(t, config.Unmarshal("config.yaml", bz, &cfg))
	ctx := config.NewContext([]config.ModuleI{mockmodule.Module{}, debugmodule.Module{}}, &cfg)
	require.NoError(t, config.InitChains(ctx))
	return ctx
}

func TestLoadYAML(t *testing.T) {
	ctx := newContext(t, "load")
	cfg := ctx.Config

	require.Equal(t, 5*time.Second, cfg.Global.GetTimeout())
	require.Equal(t, "INFO", cfg.Global.Logger.Level)
	require.Equal(t, []string{"load-a", "load-b"}, cfg.GetChains().IDs())

	p, err := cfg.Pipelines.Get("finality-a-b")
	require.NoError(t, err)
	require.True(t, p.OnlyMandatory)
	require.EqualValues(t, 16, p.MaxLag)
	require.Equal(t, 50*time.Millisecond, p.Intervals.RelayInterval)

	p, err = cfg.Pipelines.Get("messages-a-b")
	require.NoError(t, err)
	require.Equal(t, core.LaneID("00000000"), p.Lane)
	require.Equal(t, "rational", p.Strategy.Type)
	require.Equal(t, time.Hour, p.Guards.Balance.Window)

	_, err = cfg.Pipelines.Get("unknown")
	require.Error(t, err)

	a, err := cfg.GetChain("load-a")
	require.NoError(t, err)
	_, err = coreutil.UnwrapChain[*mock.Chain](a)
	require.NoError(t, err)

	b, err := cfg.GetChain("load-b")
	require.NoError(t, err)
	mb, err := coreutil.UnwrapChain[*mock.Chain](b)
	require.NoError(t, err)
	require.EqualValues(t, 1, mb.Config().FinalityDelay)
}

func TestYAMLRoundTrip(t *testing.T) {
	ctx := newContext(t, "roundtrip")

	bz, err := config.MarshalYAML(*ctx.Config)
	require.NoError(t, err)

	var cfg config.Config
	require.NoError(t, config.UnmarshalYAML(bz, &cfg))
	require.Equal(t, ctx.Config.Pipelines, cfg.Pipelines)
	require.Len(t, cfg.Chains, 2)

	bz, err = config.MarshalJSON(cfg)
	require.NoError(t, err)
	var fromJSON config.Config
	require.NoError(t, config.Unmarshal("config.json", bz, &fromJSON))
	require.Equal(t, cfg.Pipelines, fromJSON.Pipelines)
}

func TestBuildPipelines(t *testing.T) {
	ctx := newContext(t, "build")
	c, cancel := context.WithCancel(context.Background())
	defer cancel()

	pipelines, err := ctx.Config.BuildPipelines(c)
	require.NoError(t, err)
	require.Len(t, pipelines, 3)
	require.Equal(t, core.PipelineKindFinality, pipelines[0].Context().Kind)
	require.Equal(t, core.PipelineKindMessages, pipelines[1].Context().Kind)
	require.Equal(t, core.PipelineKindEquivocation, pipelines[2].Context().Kind)

	pipelines, err = ctx.Config.BuildPipelines(c, "messages-a-b")
	require.NoError(t, err)
	require.Len(t, pipelines, 1)
	require.Equal(t, "messages-a-b", pipelines[0].Context().Name)

	_, err = ctx.Config.BuildPipelines(c, "unknown")
	require.Error(t, err)

	require.NoError(t, ctx.Config.Close())
}

func TestValidate(t *testing.T) {
	pipeline := core.PipelineConfig{Name: "p", Kind: core.PipelineKindFinality, Src: "a", Dst: "b"}

	testCases := []struct {
		name      string
		pipelines config.Pipelines
		timeout   string
		wantErr   bool
	}{
		{"valid", config.Pipelines{pipeline}, "10s", false},
		{"invalid timeout", config.Pipelines{pipeline}, "ten seconds", true},
		{"duplicate name", config.Pipelines{pipeline, pipeline}, "10s", true},
		{"unknown chain", config.Pipelines{{Name: "p", Kind: core.PipelineKindFinality, Src: "a", Dst: "c"}}, "10s", true},
		{"unknown kind", config.Pipelines{{Name: "p", Kind: "ibc", Src: "a", Dst: "b"}}, "10s", true},
		{"messages without lane", config.Pipelines{{Name: "p", Kind: core.PipelineKindMessages, Src: "a", Dst: "b"}}, "10s", true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.DefaultConfig("")
			cfg.Global.Timeout = tc.timeout
			cfg.Pipelines = tc.pipelines
			err := cfg.Validate([]string{"a", "b"})
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestDecodeUnknownChainType(t *testing.T) {
	registry := config.NewChainTypeRegistry()
	mockmodule.Module{}.RegisterChainTypes(registry)

	_, err := registry.Decode([]byte(`{"@type":"tendermint","chain_id":"x"}`))
	require.ErrorContains(t, err, "unknown chain type")

	_, err = registry.Decode([]byte(`{"@type":"mock","chain_id":""}`))
	require.ErrorContains(t, err, "invalid mock chain definition")

	require.Panics(t, func() { mockmodule.Module{}.RegisterChainTypes(registry) })
}

func TestSetRelayInterval(t *testing.T) {
	ps := config.Pipelines{
		{Name: "a", Intervals: core.PipelineTiming{RelayInterval: time.Second}},
		{Name: "b"},
	}
	ps.SetRelayInterval(250 * time.Millisecond)
	for _, p := range ps {
		require.Equal(t, 250*time.Millisecond, p.Intervals.RelayInterval)
	}
	p, err := ps.Get("b")
	require.NoError(t, err)
	require.Equal(t, "b", p.Name)
	_, err = ps.Get("c")
	require.Error(t, err)
}
