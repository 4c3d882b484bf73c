package core

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/hyperledger-labs/yui-bridge-relayer/log"
)

// ChainConfig defines a chain configuration and its builder
type ChainConfig interface {
	Build() (BridgeChain, error)
	Validate() error
}

// PipelineConfig defines one relay pipeline between two configured chains.
type PipelineConfig struct {
	Name string       `json:"name" yaml:"name"`
	Kind PipelineKind `json:"kind" yaml:"kind"`
	Src  string       `json:"src" yaml:"src"`
	Dst  string       `json:"dst" yaml:"dst"`

	// messages
	Lane     LaneID       `json:"lane,omitempty" yaml:"lane,omitempty"`
	Strategy *StrategyCfg `json:"strategy,omitempty" yaml:"strategy,omitempty"`

	// parachain
	ParaID uint32 `json:"para_id,omitempty" yaml:"para_id,omitempty"`

	// finality
	FinalitySyncCfg `yaml:",inline"`

	// equivocation
	EquivocationCacheSize int `json:"equivocation_cache_size,omitempty" yaml:"equivocation_cache_size,omitempty"`

	// Guards protect the chain the pipeline submits to: dst, or src for equivocation reports.
	Guards             GuardCfg       `json:"guards" yaml:"guards"`
	// ConfirmationGuards protect src, where a message lane submits confirmations.
	// Unset, they are Guards without its chain-specific values.
	ConfirmationGuards *GuardCfg      `json:"confirmation_guards,omitempty" yaml:"confirmation_guards,omitempty"`
	Intervals          PipelineTiming `json:"intervals" yaml:"intervals"`
}

func (cfg PipelineConfig) Validate() error {
	if cfg.Name == "" {
		return errors.New("pipeline name must not be empty")
	}
	if err := cfg.Kind.Validate(); err != nil {
		return errors.Wrapf(err, "pipeline %s", cfg.Name)
	}
	if cfg.Src == "" || cfg.Dst == "" {
		return errors.Newf("pipeline %s: src and dst must be set", cfg.Name)
	}
	if cfg.Src == cfg.Dst {
		return errors.Newf("pipeline %s: src and dst must differ", cfg.Name)
	}
	switch cfg.Kind {
	case PipelineKindMessages:
		if cfg.Lane == "" {
			return errors.Newf("pipeline %s: lane must be set", cfg.Name)
		}
		if cfg.Strategy != nil {
			if _, err := GetStrategy(*cfg.Strategy); err != nil {
				return errors.Wrapf(err, "pipeline %s", cfg.Name)
			}
		}
	case PipelineKindParachain:
		if cfg.ParaID == 0 {
			return errors.Newf("pipeline %s: para_id must be set", cfg.Name)
		}
	}
	if err := cfg.Guards.Validate(); err != nil {
		return errors.Wrapf(err, "pipeline %s", cfg.Name)
	}
	if cfg.ConfirmationGuards != nil {
		if cfg.Kind != PipelineKindMessages {
			return errors.Newf("pipeline %s: confirmation_guards only apply to messages pipelines", cfg.Name)
		}
		if err := cfg.ConfirmationGuards.Validate(); err != nil {
			return errors.Wrapf(err, "pipeline %s: confirmation guards", cfg.Name)
		}
	}
	return nil
}

func (cfg PipelineConfig) confirmationGuards() GuardCfg {
	if cfg.ConfirmationGuards != nil {
		return *cfg.ConfirmationGuards
	}
	return cfg.Guards.Portable()
}

// Build assembles the pipeline and starts its guards, which run until ctx is done.
// journal is required by equivocation pipelines only.
func (cfg PipelineConfig) Build(ctx context.Context, src, dst BridgeChain, journal Journal) (Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := log.GetLogger().WithModule("core.config")
	pc := NewPipelineContext(cfg.Name, cfg.Kind, src.ChainID(), dst.ChainID(), cfg.Intervals)

	startGuards := func(chain Chain, guards GuardCfg) (*GuardSet, error) {
		conds, err := guards.Conditions(chain.Account())
		if err != nil {
			return nil, err
		}
		return StartGuards(ctx, chain, conds, pc.Timing.GuardPollInterval), nil
	}

	switch cfg.Kind {
	case PipelineKindMessages:
		stCfg := StrategyCfg{Type: AltruisticStrategyType}
		if cfg.Strategy != nil {
			stCfg = *cfg.Strategy
		}
		st, err := GetStrategy(stCfg)
		if err != nil {
			return nil, err
		}
		deliveryGuards, err := startGuards(dst, cfg.Guards)
		if err != nil {
			return nil, err
		}
		confirmationGuards, err := startGuards(src, cfg.confirmationGuards())
		if err != nil {
			return nil, err
		}
		return NewMessageLane(pc, cfg.Lane, src, dst, st, stCfg.Limits(), deliveryGuards, confirmationGuards), nil
	case PipelineKindFinality:
		guards, err := startGuards(dst, cfg.Guards)
		if err != nil {
			return nil, err
		}
		return NewProofSync(pc, NewFinalitySync(pc, src, dst, cfg.FinalitySyncCfg, journal), guards), nil
	case PipelineKindParachain:
		guards, err := startGuards(dst, cfg.Guards)
		if err != nil {
			return nil, err
		}
		return NewProofSync(pc, NewParachainSync(pc, src, dst, cfg.ParaID), guards), nil
	case PipelineKindEquivocation:
		target, err := NewEquivocationSync(pc, src, dst, NewEquivocationsFinder(cfg.EquivocationCacheSize), journal)
		if err != nil {
			logger.Error("failed to build equivocation sync", err, "pipeline", cfg.Name)
			return nil, err
		}
		guards, err := startGuards(src, cfg.Guards)
		if err != nil {
			return nil, err
		}
		return NewProofSync(pc, target, guards), nil
	default:
		return nil, errors.Newf("unknown pipeline kind '%v'", cfg.Kind)
	}
}
