package core

import (
	"context"

	"github.com/hyperledger-labs/yui-bridge-relayer/internal/telemetry"
	"github.com/hyperledger-labs/yui-bridge-relayer/log"
	"go.opentelemetry.io/otel/attribute"
	api "go.opentelemetry.io/otel/metric"
)

const AltruisticStrategyType = "altruistic"

// AltruisticStrategy delivers every candidate message regardless of its
// reward. Pricing is still attempted so that unprofitable batches are reported.
type AltruisticStrategy struct{}

var _ RelayStrategy = (*AltruisticStrategy)(nil)

func NewAltruisticStrategy() *AltruisticStrategy {
	return &AltruisticStrategy{}
}

func (st *AltruisticStrategy) GetType() string {
	return AltruisticStrategyType
}

func (st *AltruisticStrategy) Decide(ctx context.Context, ref *RelayReference) bool {
	if ref.Pricer != nil {
		if err := ref.price(ctx); err != nil {
			ref.PricingErr = err
			logger := log.GetLogger().WithModule("core.strategy")
			logger.WarnErrorContext(ctx, "failed to price messages, relaying anyway", err,
				"lane", string(ref.Lane),
				"messages", ref.Candidate.String(),
			)
			telemetry.PricingFailureCounter.Add(ctx, 1, api.WithAttributes(
				appendAttributes(ref.Attributes, AttributeKeyStrategy.String(st.GetType()))...,
			))
		}
	}
	ref.selectPrefix(int(ref.Candidate.Len()))
	recordDecision(ctx, st, ref, true)
	return true
}

func (st *AltruisticStrategy) OnFinalDecision(ctx context.Context, ref *RelayReference) {
	reportProfitability(ctx, st, ref)
}

func recordDecision(ctx context.Context, st RelayStrategy, ref *RelayReference, relay bool) {
	decision := "skip"
	if relay {
		decision = "relay"
	}
	telemetry.StrategyDecisionCounter.Add(ctx, 1, api.WithAttributes(
		appendAttributes(ref.Attributes,
			AttributeKeyStrategy.String(st.GetType()),
			attribute.String("decision", decision),
		)...,
	))
}

// reportProfitability counts the submitted batches whose reward does not cover their cost.
func reportProfitability(ctx context.Context, st RelayStrategy, ref *RelayReference) {
	if !ref.IsPriced() || ref.Selected.IsEmpty() {
		return
	}
	if ref.TotalReward.LTE(ref.TotalCost) {
		telemetry.UnprofitableBatchCounter.Add(ctx, 1, api.WithAttributes(
			appendAttributes(ref.Attributes, AttributeKeyStrategy.String(st.GetType()))...,
		))
		log.GetLogger().WithModule("core.strategy").InfoContext(ctx,
			"submitting unprofitable batch",
			"lane", string(ref.Lane),
			"messages", ref.Selected.String(),
			"reward", ref.TotalReward.String(),
			"cost", ref.TotalCost.String(),
		)
	}
}
