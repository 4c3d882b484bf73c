package core

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/hyperledger-labs/yui-bridge-relayer/internal/telemetry"
	"go.opentelemetry.io/otel/codes"
	api "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	DeliveryRaceName     = "delivery"
	ConfirmationRaceName = "confirmation"
)

// raceDriver is one direction of a message lane: either delivery of messages
// to the target or confirmation of their delivery to the source.
type raceDriver interface {
	// selectRange returns the nonces awaiting relay, empty if there is none.
	selectRange(ctx context.Context) (MessageRange, error)
	newReference(candidate MessageRange) *RelayReference
	buildCall(ctx context.Context, ref *RelayReference) (Call, error)
}

// Race relays the messages of one direction of a lane, one transaction at a time.
type Race struct {
	*loop
	driver   raceDriver
	strategy RelayStrategy

	mu               sync.Mutex
	lastConfirmed    MessageRange
	confirmedBatches uint64
}

func newRace(pc *PipelineContext, name string, submitChain Chain, driver raceDriver, strategy RelayStrategy, guards *GuardSet) *Race {
	return &Race{
		loop:     newLoop(pc, name, submitChain, guards),
		driver:   driver,
		strategy: strategy,
	}
}

func (r *Race) Name() string {
	return r.name
}

// LastConfirmed returns the range of the latest finalized transaction and the
// number of finalized transactions so far. The range is meaningless while the count is 0.
func (r *Race) LastConfirmed() (MessageRange, uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastConfirmed, r.confirmedBatches
}

// Run relays until ctx is done or a guard aborts.
func (r *Race) Run(ctx context.Context) error {
	return r.run(ctx, r.Step)
}

// Step performs one cycle: select the range, let the strategy decide, submit and track.
func (r *Race) Step(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Race.Step", WithPipelineAttributes(r.pc), trace.WithAttributes(AttributeKeyRace.String(r.name)))
	defer span.End()

	if err := r.guards.Check(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	r.setState(RelayStateIdle)
	var candidate MessageRange
	if err := r.do(ctx, "select message range", func() error {
		var err error
		candidate, err = r.driver.selectRange(ctx)
		return err
	}); err != nil {
		r.logger.ErrorContext(ctx, "failed to select message range", err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if candidate.IsEmpty() {
		r.logger.DebugContext(ctx, "nothing to relay")
		return nil
	}

	r.setState(RelayStateRangeSelected)
	ref := r.driver.newReference(candidate)

	r.setState(RelayStateStrategyEvaluating)
	if !r.strategy.Decide(ctx, ref) || ref.Selected.IsEmpty() {
		r.setState(RelayStateSkipped)
		r.logger.DebugContext(ctx, "strategy skipped messages", "messages", ref.Candidate.String(), "strategy", r.strategy.GetType())
		return nil
	}
	if ref.Selected.Begin != candidate.Begin {
		err := errors.Newf("strategy selected %s which does not start the candidate %s", ref.Selected, candidate)
		r.logger.ErrorContext(ctx, "invalid selection", err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	r.setState(RelayStateBuildingCall)
	var call Call
	if err := r.do(ctx, "build call", func() error {
		var err error
		call, err = r.driver.buildCall(ctx, ref)
		return err
	}); err != nil {
		r.logger.ErrorContext(ctx, "failed to build call", err, "messages", ref.Selected.String())
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	r.strategy.OnFinalDecision(ctx, ref)

	status, err := r.submit(ctx, call)
	if err != nil {
		if !IsFatal(err) && ctx.Err() == nil {
			r.logger.ErrorContext(ctx, "failed to relay messages", err, "messages", ref.Selected.String())
		}
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if status.Kind == TxStatusFinalized {
		r.mu.Lock()
		r.lastConfirmed = ref.Selected
		r.confirmedBatches++
		r.mu.Unlock()
		telemetry.SubmittedMessagesCounter.Add(ctx, int64(ref.Selected.Len()), api.WithAttributes(r.attrs...))
		r.logger.InfoContext(ctx, "messages relayed", "messages", ref.Selected.String())
	}
	return nil
}

// deliveryRace delivers messages of the source outbound lane to the target.
type deliveryRace struct {
	pc     *PipelineContext
	lane   LaneID
	src    SourceClient
	dst    TargetClient
	limits BatchLimits
	pricer Pricer

	// source header the proof is anchored to, set by selectRange
	at HeaderID
}

var _ raceDriver = (*deliveryRace)(nil)

func (d *deliveryRace) selectRange(ctx context.Context) (MessageRange, error) {
	synced, err := d.dst.SyncedHeaderNumber(ctx)
	if err != nil {
		return MessageRange{}, errors.Wrapf(classifyChainError(d.dst, err), "failed to query synced header number on %s", d.dst.ChainID())
	}
	received, err := d.dst.LatestReceivedNonce(ctx, d.lane)
	if err != nil {
		return MessageRange{}, errors.Wrapf(classifyChainError(d.dst, err), "failed to query latest received nonce on %s", d.dst.ChainID())
	}
	telemetry.LaneNonceGauge.Set(int64(received), d.pc.attrs(AttributeKeyNonceKind.String("received"))...)
	if synced == 0 {
		// the target does not know any source header to anchor the proof to
		return EmptyRangeFrom(received), nil
	}
	at, err := d.src.HeaderByNumber(ctx, synced)
	if err != nil {
		return MessageRange{}, errors.Wrapf(classifyChainError(d.src, err), "failed to query header %d on %s", synced, d.src.ChainID())
	}
	undelivered, err := d.src.UndeliveredMessageRange(ctx, d.lane, received, at)
	if err != nil {
		return MessageRange{}, errors.Wrapf(classifyChainError(d.src, err), "failed to query undelivered messages on %s", d.src.ChainID())
	}
	if undelivered.IsEmpty() {
		return EmptyRangeFrom(received), nil
	}
	if undelivered.Begin != received+1 {
		return MessageRange{}, errors.Newf("undelivered range %s does not follow the latest received nonce %d", undelivered, received)
	}
	telemetry.LaneNonceGauge.Set(int64(undelivered.End), d.pc.attrs(AttributeKeyNonceKind.String("generated"))...)
	d.at = at
	return undelivered, nil
}

func (d *deliveryRace) newReference(candidate MessageRange) *RelayReference {
	return NewRelayReference(d.lane, candidate, d.limits, d.pricer, d.pc.attrs()...)
}

func (d *deliveryRace) buildCall(ctx context.Context, ref *RelayReference) (Call, error) {
	proof, err := d.src.GenerateMessageProof(ctx, d.lane, ref.Selected, d.at)
	if err != nil {
		return nil, errors.Wrapf(classifyChainError(d.src, err), "failed to generate proof of messages %s", ref.Selected)
	}
	confirmed, err := d.src.LatestConfirmedNonce(ctx, d.lane, d.at)
	if err != nil {
		return nil, errors.Wrapf(classifyChainError(d.src, err), "failed to query latest confirmed nonce at %s", d.at)
	}
	var weight uint64
	for _, md := range ref.Details {
		if ref.Selected.Contains(md.Nonce) {
			weight += md.DispatchWeight
		}
	}
	return &ReceiveMessagesProofCall{
		Lane:              d.lane,
		Messages:          ref.Selected,
		At:                d.at,
		ConfirmedAtSource: confirmed,
		DispatchWeight:    weight,
		Proof:             proof,
	}, nil
}

// confirmationRace confirms to the source the messages received by the target.
type confirmationRace struct {
	pc   *PipelineContext
	lane LaneID
	src  SourceClient
	dst  TargetClient

	// target header the proof is anchored to and the inbound lane state at it, set by selectRange
	at       HeaderID
	relayers UnrewardedRelayersState
}

var _ raceDriver = (*confirmationRace)(nil)

func (c *confirmationRace) selectRange(ctx context.Context) (MessageRange, error) {
	confirmed, err := c.src.LatestConfirmedNonce(ctx, c.lane, HeaderID{})
	if err != nil {
		return MessageRange{}, errors.Wrapf(classifyChainError(c.src, err), "failed to query latest confirmed nonce on %s", c.src.ChainID())
	}
	telemetry.LaneNonceGauge.Set(int64(confirmed), c.pc.attrs(AttributeKeyNonceKind.String("confirmed"))...)
	synced, err := c.src.SyncedHeaderNumber(ctx)
	if err != nil {
		return MessageRange{}, errors.Wrapf(classifyChainError(c.src, err), "failed to query synced header number on %s", c.src.ChainID())
	}
	if synced == 0 {
		return EmptyRangeFrom(confirmed), nil
	}
	at, err := c.dst.HeaderByNumber(ctx, synced)
	if err != nil {
		return MessageRange{}, errors.Wrapf(classifyChainError(c.dst, err), "failed to query header %d on %s", synced, c.dst.ChainID())
	}
	relayers, err := c.dst.UnrewardedRelayers(ctx, c.lane, at)
	if err != nil {
		return MessageRange{}, errors.Wrapf(classifyChainError(c.dst, err), "failed to query unrewarded relayers on %s", c.dst.ChainID())
	}
	c.at = at
	c.relayers = relayers
	return NewMessageRange(confirmed+1, relayers.LastDeliveredNonce), nil
}

func (c *confirmationRace) newReference(candidate MessageRange) *RelayReference {
	return NewRelayReference(c.lane, candidate, BatchLimits{}, nil, c.pc.attrs()...)
}

func (c *confirmationRace) buildCall(ctx context.Context, ref *RelayReference) (Call, error) {
	proof, err := c.dst.GenerateReceivingProof(ctx, c.lane, c.at)
	if err != nil {
		return nil, errors.Wrapf(classifyChainError(c.dst, err), "failed to generate receiving proof at %s", c.at)
	}
	return &ReceiveMessagesDeliveryProofCall{
		Lane:     c.lane,
		Messages: ref.Selected,
		At:       c.at,
		Relayers: c.relayers,
		Proof:    proof,
	}, nil
}
