package core

import (
	"context"

	"github.com/hyperledger-labs/yui-bridge-relayer/log"
	"golang.org/x/sync/errgroup"
)

// MessageLane runs the delivery and confirmation races of one lane concurrently.
// A fatal error of either race cancels the other.
type MessageLane struct {
	pc           *PipelineContext
	lane         LaneID
	delivery     *Race
	confirmation *Race
}

var _ Pipeline = (*MessageLane)(nil)

// NewMessageLane creates the race pair of lane. deliveryGuards protect dst and
// confirmationGuards protect src.
func NewMessageLane(
	pc *PipelineContext,
	lane LaneID,
	src SourceClient,
	dst TargetClient,
	strategy RelayStrategy,
	limits BatchLimits,
	deliveryGuards, confirmationGuards *GuardSet,
) *MessageLane {
	pc.Logger = log.GetLogger().WithPipeline(pc.Name, string(pc.Kind)).WithLane(string(lane), pc.SourceChainID, pc.TargetChainID)
	pc.Attributes = pc.attrs(AttributeKeyLane.String(string(lane)))
	delivery := &deliveryRace{
		pc:     pc,
		lane:   lane,
		src:    src,
		dst:    dst,
		limits: limits,
		pricer: NewPricer(src, dst),
	}
	confirmation := &confirmationRace{
		pc:   pc,
		lane: lane,
		src:  src,
		dst:  dst,
	}
	return &MessageLane{
		pc:           pc,
		lane:         lane,
		delivery:     newRace(pc, DeliveryRaceName, dst, delivery, strategy, deliveryGuards),
		confirmation: newRace(pc, ConfirmationRaceName, src, confirmation, NewAltruisticStrategy(), confirmationGuards),
	}
}

func (ml *MessageLane) Context() *PipelineContext {
	return ml.pc
}

func (ml *MessageLane) Lane() LaneID {
	return ml.lane
}

func (ml *MessageLane) Delivery() *Race {
	return ml.delivery
}

func (ml *MessageLane) Confirmation() *Race {
	return ml.confirmation
}

// Run runs both races until ctx is done or either race stops with a fatal error.
func (ml *MessageLane) Run(ctx context.Context) error {
	ml.pc.Logger.InfoContext(ctx, "starting message lane")
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return ml.delivery.Run(ctx)
	})
	eg.Go(func() error {
		return ml.confirmation.Run(ctx)
	})
	return eg.Wait()
}

// RunOnce performs one delivery cycle followed by one confirmation cycle.
func (ml *MessageLane) RunOnce(ctx context.Context) error {
	if err := ml.delivery.Step(ctx); err != nil {
		return err
	}
	return ml.confirmation.Step(ctx)
}

func (ml *MessageLane) Status() PipelineStatus {
	return PipelineStatus{
		Name:   ml.pc.Name,
		Kind:   ml.pc.Kind,
		Loops:  []LoopStatus{ml.delivery.status(), ml.confirmation.status()},
		Guards: guardStatuses(ml.delivery.guards, ml.confirmation.guards),
	}
}
