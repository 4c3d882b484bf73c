package core_test

import (
	"context"
	"testing"

	"cosmossdk.io/math"
	"github.com/cockroachdb/errors"
	"github.com/hyperledger-labs/yui-bridge-relayer/core"
	"github.com/hyperledger-labs/yui-bridge-relayer/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"pgregory.net/rapid"
)

const testLane = core.LaneID("00000000")

// fixedPricer prices messages starting at nonce first with the given rewards.
// The cost of a prefix of n messages is base + perMessage*n.
type fixedPricer struct {
	first      core.Nonce
	rewards    []int64
	weights    []uint64
	base       int64
	perMessage int64
	err        error
}

func (p *fixedPricer) MessageDetails(ctx context.Context, lane core.LaneID, messages core.MessageRange) ([]core.MessageDetails, error) {
	if p.err != nil {
		return nil, p.err
	}
	var details []core.MessageDetails
	for _, n := range messages.Nonces() {
		i := int(n - p.first)
		d := core.MessageDetails{Nonce: n, SizeBytes: 10, Reward: math.NewInt(p.rewards[i])}
		if p.weights != nil {
			d.DispatchWeight = p.weights[i]
		}
		details = append(details, d)
	}
	return details, nil
}

func (p *fixedPricer) EstimateDeliveryCosts(ctx context.Context, lane core.LaneID, details []core.MessageDetails) ([]math.Int, error) {
	costs := make([]math.Int, len(details))
	for i := range details {
		costs[i] = math.NewInt(p.base + p.perMessage*int64(i+1))
	}
	return costs, nil
}

func TestRationalStrategySelectsLongestProfitablePrefix(t *testing.T) {
	ctx := context.Background()
	pricer := &fixedPricer{first: 10, rewards: []int64{40, 40, 40, 5, 5, 5}, base: 10, perMessage: 30}
	ref := core.NewRelayReference(testLane, core.NewMessageRange(10, 15), core.BatchLimits{}, pricer)

	st := core.NewRationalStrategy()
	require.True(t, st.Decide(ctx, ref))
	assert.Equal(t, core.NewMessageRange(10, 12), ref.Selected)
	assert.EqualValues(t, 3, ref.SelectedCount())
	assert.True(t, ref.TotalReward.Equal(math.NewInt(120)), ref.TotalReward.String())
	assert.True(t, ref.TotalCost.Equal(math.NewInt(100)), ref.TotalCost.String())
	assert.NoError(t, ref.PricingErr)
	st.OnFinalDecision(ctx, ref)
}

func TestRationalStrategySkipsUnprofitable(t *testing.T) {
	ctx := context.Background()
	pricer := &fixedPricer{first: 1, rewards: []int64{1, 1, 1}, base: 10, perMessage: 30}
	ref := core.NewRelayReference(testLane, core.NewMessageRange(1, 3), core.BatchLimits{}, pricer)

	assert.False(t, core.NewRationalStrategy().Decide(ctx, ref))
	assert.True(t, ref.Selected.IsEmpty())
	assert.True(t, ref.TotalReward.Equal(math.NewInt(3)))
	assert.True(t, ref.TotalCost.Equal(math.NewInt(100)))
}

func TestRationalStrategyEqualRewardIsNotProfitable(t *testing.T) {
	ctx := context.Background()
	pricer := &fixedPricer{first: 1, rewards: []int64{40}, base: 10, perMessage: 30}
	ref := core.NewRelayReference(testLane, core.NewMessageRange(1, 1), core.BatchLimits{}, pricer)
	assert.False(t, core.NewRationalStrategy().Decide(ctx, ref))
}

func TestPricingFailure(t *testing.T) {
	ctx := context.Background()
	pricer := &fixedPricer{err: errors.New("node unavailable")}

	ref := core.NewRelayReference(testLane, core.NewMessageRange(1, 3), core.BatchLimits{}, pricer)
	assert.False(t, core.NewRationalStrategy().Decide(ctx, ref))
	assert.True(t, errors.Is(ref.PricingErr, core.ErrPricing))
	assert.False(t, ref.IsPriced())

	ref = core.NewRelayReference(testLane, core.NewMessageRange(1, 3), core.BatchLimits{}, pricer)
	require.True(t, core.NewAltruisticStrategy().Decide(ctx, ref))
	assert.Equal(t, core.NewMessageRange(1, 3), ref.Selected)
	assert.True(t, errors.Is(ref.PricingErr, core.ErrPricing))
}

func TestAltruisticStrategy(t *testing.T) {
	ctx := context.Background()
	st := core.NewAltruisticStrategy()

	// unprofitable batches are still relayed
	pricer := &fixedPricer{first: 1, rewards: []int64{0, 0}, base: 10, perMessage: 30}
	ref := core.NewRelayReference(testLane, core.NewMessageRange(1, 2), core.BatchLimits{}, pricer)
	require.True(t, st.Decide(ctx, ref))
	assert.Equal(t, core.NewMessageRange(1, 2), ref.Selected)
	assert.True(t, ref.IsPriced())
	assert.True(t, ref.TotalCost.Equal(math.NewInt(70)))
	st.OnFinalDecision(ctx, ref)

	// without a pricer everything is selected
	ref = core.NewRelayReference(testLane, core.NewMessageRange(4, 9), core.BatchLimits{}, nil)
	require.True(t, st.Decide(ctx, ref))
	assert.Equal(t, core.NewMessageRange(4, 9), ref.Selected)
	assert.True(t, ref.TotalReward.IsZero())
}

func TestBatchLimits(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name    string
		limits  core.BatchLimits
		weights []uint64
		want    core.MessageRange
	}{
		{
			name:    "unlimited",
			weights: []uint64{5, 5, 5, 5},
			want:    core.NewMessageRange(1, 4),
		},
		{
			name:    "max messages",
			limits:  core.BatchLimits{MaxMessages: 2},
			weights: []uint64{5, 5, 5, 5},
			want:    core.NewMessageRange(1, 2),
		},
		{
			name:    "max weight",
			limits:  core.BatchLimits{MaxWeight: 12},
			weights: []uint64{5, 5, 5, 5},
			want:    core.NewMessageRange(1, 2),
		},
		{
			name:    "max size",
			limits:  core.BatchLimits{MaxSize: 35},
			weights: []uint64{5, 5, 5, 5},
			want:    core.NewMessageRange(1, 3),
		},
		{
			name:    "oversized first message",
			limits:  core.BatchLimits{MaxWeight: 12},
			weights: []uint64{100, 5, 5, 5},
			want:    core.NewMessageRange(1, 1),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pricer := &fixedPricer{first: 1, rewards: []int64{50, 50, 50, 50}, weights: tt.weights, base: 0, perMessage: 1}
			ref := core.NewRelayReference(testLane, core.NewMessageRange(1, 4), tt.limits, pricer)
			require.True(t, core.NewRationalStrategy().Decide(ctx, ref))
			assert.Equal(t, tt.want, ref.Selected)
		})
	}
}

func TestGetStrategy(t *testing.T) {
	st, err := core.GetStrategy(core.StrategyCfg{Type: core.RationalStrategyType})
	require.NoError(t, err)
	assert.Equal(t, core.RationalStrategyType, st.GetType())

	st, err = core.GetStrategy(core.StrategyCfg{Type: core.AltruisticStrategyType})
	require.NoError(t, err)
	assert.Equal(t, core.AltruisticStrategyType, st.GetType())

	_, err = core.GetStrategy(core.StrategyCfg{Type: "greedy"})
	assert.Error(t, err)

	limits := core.StrategyCfg{MaxMessagesInBatch: 1, MaxBatchWeight: 2, MaxBatchSize: 3}.Limits()
	assert.Equal(t, core.BatchLimits{MaxMessages: 1, MaxWeight: 2, MaxSize: 3}, limits)
}

// isPrefix reports whether selected is a leading part of candidate, possibly empty.
func isPrefix(selected, candidate core.MessageRange) bool {
	if selected.Begin != candidate.Begin {
		return false
	}
	if selected.IsEmpty() {
		return selected.End == candidate.Begin-1
	}
	return selected.End <= candidate.End
}

func TestStrategyProperties(t *testing.T) {
	ctx := context.Background()
	rapid.Check(t, func(t *rapid.T) {
		begin := core.Nonce(rapid.Uint64Range(1, 1_000_000).Draw(t, "begin"))
		n := rapid.IntRange(1, 20).Draw(t, "n")
		pricer := &fixedPricer{
			first:      begin,
			rewards:    rapid.SliceOfN(rapid.Int64Range(0, 100), n, n).Draw(t, "rewards"),
			base:       rapid.Int64Range(0, 100).Draw(t, "base"),
			perMessage: rapid.Int64Range(0, 100).Draw(t, "perMessage"),
		}
		if rapid.Bool().Draw(t, "pricingFails") {
			pricer.err = errors.New("node unavailable")
		}
		limits := core.BatchLimits{MaxMessages: rapid.Uint64Range(0, uint64(n)).Draw(t, "maxMessages")}
		candidate := core.NewMessageRange(begin, begin+core.Nonce(n)-1)

		// rational: relays only a profitable prefix, the longest one
		ref := core.NewRelayReference(testLane, candidate, limits, pricer)
		relay := core.NewRationalStrategy().Decide(ctx, ref)
		require.True(t, isPrefix(ref.Selected, candidate), "selected %s of %s", ref.Selected, candidate)
		if relay {
			require.False(t, ref.Selected.IsEmpty())
			require.True(t, ref.TotalReward.GT(ref.TotalCost), "reward %s, cost %s", ref.TotalReward, ref.TotalCost)
		} else {
			require.True(t, ref.Selected.IsEmpty())
		}
		if pricer.err != nil {
			require.False(t, relay)
		} else {
			best := 0
			var reward int64
			for k := 1; k <= int(ref.Candidate.Len()); k++ {
				reward += pricer.rewards[k-1]
				if reward > pricer.base+pricer.perMessage*int64(k) {
					best = k
				}
			}
			require.EqualValues(t, best, ref.SelectedCount())
		}

		// altruistic: always relays the whole clipped candidate
		ref = core.NewRelayReference(testLane, candidate, limits, pricer)
		require.True(t, core.NewAltruisticStrategy().Decide(ctx, ref))
		require.True(t, isPrefix(ref.Selected, candidate))
		want := uint64(n)
		if limits.MaxMessages > 0 {
			want = limits.MaxMessages
		}
		require.Equal(t, want, ref.SelectedCount())
		require.Equal(t, pricer.err != nil, ref.PricingErr != nil)
	})
}

// countDecisions replaces the decision counter for the duration of the test.
func countDecisions(t *testing.T) func() map[string]int64 {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	counter, err := provider.Meter("test").Int64Counter("relayer.strategy.decisions")
	require.NoError(t, err)
	prev := telemetry.StrategyDecisionCounter
	telemetry.StrategyDecisionCounter = counter
	t.Cleanup(func() { telemetry.StrategyDecisionCounter = prev })

	return func() map[string]int64 {
		var rm metricdata.ResourceMetrics
		require.NoError(t, reader.Collect(context.Background(), &rm))
		counts := make(map[string]int64)
		for _, sm := range rm.ScopeMetrics {
			for _, m := range sm.Metrics {
				sum, ok := m.Data.(metricdata.Sum[int64])
				require.True(t, ok)
				for _, dp := range sum.DataPoints {
					decision, _ := dp.Attributes.Value(attribute.Key("decision"))
					counts[decision.AsString()] += dp.Value
				}
			}
		}
		return counts
	}
}

func TestRationalStrategyDecisionsCounted(t *testing.T) {
	ctx := context.Background()
	decisions := countDecisions(t)
	st := core.NewRationalStrategy()

	// a batch that cannot be priced is not a decision
	failing := &fixedPricer{err: errors.New("node unavailable")}
	assert.False(t, st.Decide(ctx, core.NewRelayReference(testLane, core.NewMessageRange(1, 3), core.BatchLimits{}, failing)))
	assert.Empty(t, decisions())

	unprofitable := &fixedPricer{first: 1, rewards: []int64{1}, base: 10, perMessage: 30}
	assert.False(t, st.Decide(ctx, core.NewRelayReference(testLane, core.NewMessageRange(1, 1), core.BatchLimits{}, unprofitable)))
	profitable := &fixedPricer{first: 1, rewards: []int64{100}, base: 10, perMessage: 30}
	assert.True(t, st.Decide(ctx, core.NewRelayReference(testLane, core.NewMessageRange(1, 1), core.BatchLimits{}, profitable)))
	assert.Equal(t, map[string]int64{"skip": 1, "relay": 1}, decisions())
}
