package core

import (
	"context"

	"github.com/hyperledger-labs/yui-bridge-relayer/log"
)

const RationalStrategyType = "rational"

// RationalStrategy delivers the longest prefix of the candidate whose total
// reward is strictly greater than the cost of delivering it.
type RationalStrategy struct{}

var _ RelayStrategy = (*RationalStrategy)(nil)

func NewRationalStrategy() *RationalStrategy {
	return &RationalStrategy{}
}

func (st *RationalStrategy) GetType() string {
	return RationalStrategyType
}

func (st *RationalStrategy) Decide(ctx context.Context, ref *RelayReference) bool {
	logger := log.GetLogger().WithModule("core.strategy")
	if err := ref.price(ctx); err != nil {
		ref.PricingErr = err
		logger.DebugContext(ctx, "failed to price messages, skipping", "lane", string(ref.Lane), "messages", ref.Candidate.String(), "error", err.Error())
		return false
	}

	best := 0
	for n := 1; n <= len(ref.Details); n++ {
		reward, cost := ref.totals(n)
		if reward.GT(cost) {
			best = n
		}
	}
	if best == 0 {
		ref.TotalReward, ref.TotalCost = ref.totals(len(ref.Details))
		logger.DebugContext(ctx, "no profitable prefix",
			"lane", string(ref.Lane),
			"messages", ref.Candidate.String(),
			"reward", ref.TotalReward.String(),
			"cost", ref.TotalCost.String(),
		)
		recordDecision(ctx, st, ref, false)
		return false
	}

	ref.selectPrefix(best)
	recordDecision(ctx, st, ref, true)
	return true
}

func (st *RationalStrategy) OnFinalDecision(ctx context.Context, ref *RelayReference) {
	reportProfitability(ctx, st, ref)
}
