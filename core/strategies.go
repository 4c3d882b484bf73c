package core

import (
	"context"

	"cosmossdk.io/math"
	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel/attribute"
)

// RelayStrategy decides whether (and how much of) a candidate range of
// messages is worth delivering.
type RelayStrategy interface {
	// GetType returns the type name of the strategy
	GetType() string

	// Decide prices the candidate of ref and reports whether ref.Selected should be delivered.
	Decide(ctx context.Context, ref *RelayReference) bool

	// OnFinalDecision is called once the batch that goes into a transaction is fixed.
	OnFinalDecision(ctx context.Context, ref *RelayReference)
}

// StrategyCfg defines which relaying strategy to take for a lane
type StrategyCfg struct {
	Type               string `json:"type" yaml:"type"`
	MaxMessagesInBatch uint64 `json:"max_messages_in_batch,omitempty" yaml:"max_messages_in_batch,omitempty"`
	MaxBatchWeight     uint64 `json:"max_batch_weight,omitempty" yaml:"max_batch_weight,omitempty"`
	MaxBatchSize       uint64 `json:"max_batch_size,omitempty" yaml:"max_batch_size,omitempty"`
}

func (cfg StrategyCfg) Limits() BatchLimits {
	return BatchLimits{
		MaxMessages: cfg.MaxMessagesInBatch,
		MaxWeight:   cfg.MaxBatchWeight,
		MaxSize:     cfg.MaxBatchSize,
	}
}

func GetStrategy(cfg StrategyCfg) (RelayStrategy, error) {
	switch cfg.Type {
	case AltruisticStrategyType:
		return NewAltruisticStrategy(), nil
	case RationalStrategyType:
		return NewRationalStrategy(), nil
	default:
		return nil, errors.Newf("unknown strategy type '%v'", cfg.Type)
	}
}

// BatchLimits bounds the messages delivered in one transaction. Zero means unlimited.
type BatchLimits struct {
	MaxMessages uint64
	MaxWeight   uint64
	MaxSize     uint64
}

// clipCount limits the number of messages of r.
func (l BatchLimits) clipCount(r MessageRange) MessageRange {
	if l.MaxMessages > 0 && r.Len() > l.MaxMessages {
		return r.Prefix(l.MaxMessages)
	}
	return r
}

// fit returns how many leading messages of details fit into one transaction.
// The first message is always included so that an oversized message does not block the lane.
func (l BatchLimits) fit(details []MessageDetails) int {
	var weight, size uint64
	for i, d := range details {
		weight += d.DispatchWeight
		size += uint64(d.SizeBytes)
		if i > 0 && ((l.MaxWeight > 0 && weight > l.MaxWeight) || (l.MaxSize > 0 && size > l.MaxSize)) {
			return i
		}
	}
	return len(details)
}

// Pricer gives the strategies the rewards and costs of a candidate range.
type Pricer interface {
	MessageDetails(ctx context.Context, lane LaneID, messages MessageRange) ([]MessageDetails, error)
	EstimateDeliveryCosts(ctx context.Context, lane LaneID, details []MessageDetails) ([]math.Int, error)
}

type pricer struct {
	src SourceClient
	dst TargetClient
}

// NewPricer reads rewards from src and delivery costs from dst.
func NewPricer(src SourceClient, dst TargetClient) Pricer {
	return &pricer{src: src, dst: dst}
}

func (p *pricer) MessageDetails(ctx context.Context, lane LaneID, messages MessageRange) ([]MessageDetails, error) {
	return p.src.MessageDetails(ctx, lane, messages)
}

func (p *pricer) EstimateDeliveryCosts(ctx context.Context, lane LaneID, details []MessageDetails) ([]math.Int, error) {
	return p.dst.EstimateDeliveryCosts(ctx, lane, details)
}

// RelayReference carries one decision cycle of the delivery race. A nil
// Pricer means the candidate cannot be priced (the confirmation race).
type RelayReference struct {
	Lane      LaneID
	Candidate MessageRange
	Limits    BatchLimits
	Pricer    Pricer

	Details     []MessageDetails
	PrefixCosts []math.Int
	TotalCost   math.Int
	TotalReward math.Int
	Selected    MessageRange
	PricingErr  error

	// Attributes identify the lane in metrics.
	Attributes []attribute.KeyValue
}

func NewRelayReference(lane LaneID, candidate MessageRange, limits BatchLimits, pricer Pricer, attrs ...attribute.KeyValue) *RelayReference {
	return &RelayReference{
		Lane:        lane,
		Candidate:   limits.clipCount(candidate),
		Limits:      limits,
		Pricer:      pricer,
		TotalCost:   math.ZeroInt(),
		TotalReward: math.ZeroInt(),
		Selected:    EmptyRangeAt(candidate.Begin),
		Attributes:  attrs,
	}
}

// SelectedCount returns the number of selected messages.
func (ref *RelayReference) SelectedCount() uint64 {
	return ref.Selected.Len()
}

// IsPriced reports whether rewards and costs are known for the candidate.
func (ref *RelayReference) IsPriced() bool {
	return ref.PricingErr == nil && len(ref.Details) > 0 && len(ref.Details) == len(ref.PrefixCosts)
}

// price loads the details of the candidate, clips the candidate to the weight
// and size limits, then loads the cost of every prefix.
func (ref *RelayReference) price(ctx context.Context) error {
	if ref.Pricer == nil {
		return errors.Mark(errors.New("no pricer"), ErrPricing)
	}
	details, err := ref.Pricer.MessageDetails(ctx, ref.Lane, ref.Candidate)
	if err != nil {
		return errors.Mark(errors.Wrap(err, "failed to get message details"), ErrPricing)
	}
	if uint64(len(details)) != ref.Candidate.Len() {
		return errors.Mark(errors.Newf("got details of %d messages for %s", len(details), ref.Candidate), ErrPricing)
	}
	for i, d := range details {
		if d.Nonce != ref.Candidate.Begin+Nonce(i) {
			return errors.Mark(errors.Newf("details are not contiguous: nonce %d at position %d of %s", d.Nonce, i, ref.Candidate), ErrPricing)
		}
	}
	if n := ref.Limits.fit(details); n < len(details) {
		details = details[:n]
		ref.Candidate = ref.Candidate.Prefix(uint64(n))
	}

	costs, err := ref.Pricer.EstimateDeliveryCosts(ctx, ref.Lane, details)
	if err != nil {
		return errors.Mark(errors.Wrap(err, "failed to estimate delivery costs"), ErrPricing)
	}
	if len(costs) != len(details) {
		return errors.Mark(errors.Newf("got %d costs for %d messages", len(costs), len(details)), ErrPricing)
	}

	ref.Details = details
	ref.PrefixCosts = costs
	return nil
}

// totals returns the reward and the cost of the first n priced messages.
func (ref *RelayReference) totals(n int) (reward, cost math.Int) {
	reward = math.ZeroInt()
	cost = math.ZeroInt()
	for _, d := range ref.Details[:n] {
		reward = reward.Add(d.Reward)
	}
	if n > 0 {
		cost = ref.PrefixCosts[n-1]
	}
	return reward, cost
}

func (ref *RelayReference) selectPrefix(n int) {
	ref.Selected = ref.Candidate.Prefix(uint64(n))
	if ref.IsPriced() {
		ref.TotalReward, ref.TotalCost = ref.totals(n)
	}
}
