package core

import (
	"bytes"
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/hyperledger-labs/yui-bridge-relayer/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// ParachainSync relays the head of one parachain, as recorded by the relay
// chain, to the target.
type ParachainSync struct {
	pc     *PipelineContext
	src    SourceClient
	dst    TargetClient
	paraID uint32
}

var _ SyncTarget = (*ParachainSync)(nil)

type parachainFact struct {
	head ParachainHead
}

func (f parachainFact) String() string {
	return fmt.Sprintf("head %s of parachain %d at relay block %s", f.head.Hash(), f.head.ParaID, f.head.AtRelayBlock)
}

func NewParachainSync(pc *PipelineContext, src SourceClient, dst TargetClient, paraID uint32) *ParachainSync {
	return &ParachainSync{pc: pc, src: src, dst: dst, paraID: paraID}
}

func (ps *ParachainSync) isSyncTarget() {}

func (ps *ParachainSync) SubmitChain() Chain {
	return ps.dst
}

func (ps *ParachainSync) NewFacts(ctx context.Context) ([]Fact, error) {
	// the head must be proven at a relay chain header the target knows
	synced, err := ps.dst.SyncedHeaderNumber(ctx)
	if err != nil {
		return nil, errors.Wrapf(classifyChainError(ps.dst, err), "failed to query synced header number on %s", ps.dst.ChainID())
	}
	if synced == 0 {
		return nil, nil
	}
	at, err := ps.src.HeaderByNumber(ctx, synced)
	if err != nil {
		return nil, errors.Wrapf(classifyChainError(ps.src, err), "failed to query header %d on %s", synced, ps.src.ChainID())
	}
	head, err := ps.src.ParachainHead(ctx, at, ps.paraID)
	if err != nil {
		return nil, errors.Wrapf(classifyChainError(ps.src, err), "failed to query head of parachain %d", ps.paraID)
	}
	if head == nil {
		return nil, nil
	}
	recorded, err := ps.dst.SyncedParachainHead(ctx, ps.paraID)
	if err != nil {
		return nil, errors.Wrapf(classifyChainError(ps.dst, err), "failed to query recorded head of parachain %d", ps.paraID)
	}
	if recorded != nil && (recorded.AtRelayBlock.Number >= at.Number || bytes.Equal(recorded.Hash(), head.Hash())) {
		return nil, nil
	}
	return []Fact{parachainFact{head: *head}}, nil
}

func (ps *ParachainSync) BuildCall(ctx context.Context, fact Fact) (Call, error) {
	f := fact.(parachainFact)
	proof, err := ps.src.ParachainHeadProof(ctx, f.head.AtRelayBlock, ps.paraID)
	if err != nil {
		return nil, errors.Wrapf(classifyChainError(ps.src, err), "failed to prove head of parachain %d", ps.paraID)
	}
	return &SubmitParachainHeadsCall{
		At:     f.head.AtRelayBlock,
		ParaID: ps.paraID,
		Head:   f.head.Head,
		Proof:  proof,
	}, nil
}

func (ps *ParachainSync) OnRelayed(ctx context.Context, fact Fact) error {
	f := fact.(parachainFact)
	telemetry.ProcessedHeaderGauge.Set(int64(f.head.AtRelayBlock.Number), ps.pc.attrs(attribute.Int64("para_id", int64(ps.paraID)))...)
	return nil
}
