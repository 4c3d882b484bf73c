package core

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Fact is something observed on the source that the target does not know yet.
type Fact interface {
	fmt.Stringer
}

// SyncTarget is one of FinalitySync, ParachainSync and EquivocationSync.
type SyncTarget interface {
	// SubmitChain returns the chain calls are submitted to.
	SubmitChain() Chain
	// NewFacts returns the facts to relay, in order. No fact means the loop is idle.
	NewFacts(ctx context.Context) ([]Fact, error)
	BuildCall(ctx context.Context, fact Fact) (Call, error)
	// OnRelayed is called when the call of fact was finalized or rejected as already applied.
	OnRelayed(ctx context.Context, fact Fact) error

	isSyncTarget()
}

// Journal keeps what a pipeline already relayed across restarts.
type Journal interface {
	MarkReported(key string) error
	IsReported(key string) (bool, error)
	SetMark(name string, value uint64) error
	GetMark(name string) (uint64, error)
}

// ProofSync relays facts of the source to the target one transaction at a time:
// wait for a new fact, build its call, submit it and track it.
type ProofSync struct {
	*loop
	target SyncTarget
}

var _ Pipeline = (*ProofSync)(nil)

func NewProofSync(pc *PipelineContext, target SyncTarget, guards *GuardSet) *ProofSync {
	return &ProofSync{
		loop:   newLoop(pc, string(pc.Kind), target.SubmitChain(), guards),
		target: target,
	}
}

func (ps *ProofSync) Context() *PipelineContext {
	return ps.pc
}

func (ps *ProofSync) Target() SyncTarget {
	return ps.target
}

func (ps *ProofSync) Run(ctx context.Context) error {
	ps.logger.InfoContext(ctx, "starting proof sync")
	return ps.run(ctx, ps.Step)
}

func (ps *ProofSync) RunOnce(ctx context.Context) error {
	return ps.Step(ctx)
}

func (ps *ProofSync) Status() PipelineStatus {
	return PipelineStatus{
		Name:   ps.pc.Name,
		Kind:   ps.pc.Kind,
		Loops:  []LoopStatus{ps.status()},
		Guards: guardStatuses(ps.guards),
	}
}

// Step relays every fact currently observed.
func (ps *ProofSync) Step(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "ProofSync.Step", WithPipelineAttributes(ps.pc), withPackage(ps.target))
	defer span.End()

	if err := ps.guards.Check(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	ps.setState(RelayStateIdle)
	var facts []Fact
	if err := ps.do(ctx, "wait for new facts", func() error {
		var err error
		facts, err = ps.target.NewFacts(ctx)
		return err
	}); err != nil {
		ps.logger.ErrorContext(ctx, "failed to query new facts", err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if len(facts) == 0 {
		ps.logger.DebugContext(ctx, "no new fact")
		return nil
	}

	for _, fact := range facts {
		if err := ps.relay(ctx, fact); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return err
		}
	}
	return nil
}

func (ps *ProofSync) relay(ctx context.Context, fact Fact) error {
	ctx, span := tracer.Start(ctx, "ProofSync.relay", trace.WithAttributes(AttributeKeyPipeline.String(ps.pc.Name)))
	defer span.End()

	ps.setState(RelayStateBuildingCall)
	var call Call
	if err := ps.do(ctx, "build call", func() error {
		var err error
		call, err = ps.target.BuildCall(ctx, fact)
		return err
	}); err != nil {
		ps.logger.ErrorContext(ctx, "failed to build call", err, "fact", fact.String())
		return err
	}

	status, err := ps.submit(ctx, call)
	if err != nil {
		if !IsFatal(err) && ctx.Err() == nil {
			ps.logger.ErrorContext(ctx, "failed to relay fact", err, "fact", fact.String())
		}
		return err
	}

	switch {
	case status.Kind == TxStatusFinalized,
		status.Kind == TxStatusInvalid && IsBenignRejection(status.Reason):
		if err := ps.target.OnRelayed(ctx, fact); err != nil {
			ps.logger.ErrorContext(ctx, "failed to record relayed fact", err, "fact", fact.String())
			return err
		}
		ps.logger.InfoContext(ctx, "fact relayed", "fact", fact.String(), "status", status.String())
		return nil
	case status.Kind == TxStatusInvalid:
		return errors.Wrapf(status.Reason, "call relaying %s failed", fact)
	default:
		// lost: the next cycle observes the chain again
		return nil
	}
}
