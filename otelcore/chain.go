package otelcore

import (
	"context"
	"fmt"

	"cosmossdk.io/math"
	"github.com/hyperledger-labs/yui-bridge-relayer/core"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/hyperledger-labs/yui-bridge-relayer/otelcore"

// Chain records a span for every call to the wrapped chain.
type Chain struct {
	core.BridgeChain
	tracer trace.Tracer
}

var _ core.BridgeChain = (*Chain)(nil)

// NewChain wraps chain. A nil tracer selects the tracer of the global provider.
func NewChain(chain core.BridgeChain, tracer trace.Tracer) core.BridgeChain {
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return &Chain{
		BridgeChain: chain,
		tracer:      tracer,
	}
}

// Unwrap returns the wrapped chain.
func (c *Chain) Unwrap() core.BridgeChain {
	return c.BridgeChain
}

func (c *Chain) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, core.AttributeKeyChainID.String(c.ChainID()))
	return c.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func end(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func laneAttr(lane core.LaneID) attribute.KeyValue {
	return core.AttributeKeyLane.String(string(lane))
}

func rangeAttr(messages core.MessageRange) attribute.KeyValue {
	return attribute.String("messages", messages.String())
}

func numberAttr(key string, number uint64) attribute.KeyValue {
	// the attribute package does not support uint64
	return attribute.String(key, fmt.Sprint(number))
}

func (c *Chain) BestBlockNumber(ctx context.Context) (uint64, error) {
	ctx, span := c.start(ctx, "Chain.BestBlockNumber")
	n, err := c.BridgeChain.BestBlockNumber(ctx)
	end(span, err)
	return n, err
}

func (c *Chain) BestFinalizedHeaderID(ctx context.Context) (core.HeaderID, error) {
	ctx, span := c.start(ctx, "Chain.BestFinalizedHeaderID")
	id, err := c.BridgeChain.BestFinalizedHeaderID(ctx)
	end(span, err)
	return id, err
}

func (c *Chain) HeaderByNumber(ctx context.Context, number uint64) (core.HeaderID, error) {
	ctx, span := c.start(ctx, "Chain.HeaderByNumber", numberAttr("number", number))
	id, err := c.BridgeChain.HeaderByNumber(ctx, number)
	end(span, err)
	return id, err
}

func (c *Chain) SyncedHeaderNumber(ctx context.Context) (uint64, error) {
	ctx, span := c.start(ctx, "Chain.SyncedHeaderNumber")
	n, err := c.BridgeChain.SyncedHeaderNumber(ctx)
	end(span, err)
	return n, err
}

func (c *Chain) RuntimeVersion(ctx context.Context) (core.RuntimeVersion, error) {
	ctx, span := c.start(ctx, "Chain.RuntimeVersion")
	v, err := c.BridgeChain.RuntimeVersion(ctx)
	end(span, err)
	return v, err
}

func (c *Chain) AccountBalance(ctx context.Context, account string) (math.Int, error) {
	ctx, span := c.start(ctx, "Chain.AccountBalance", attribute.String("account", account))
	b, err := c.BridgeChain.AccountBalance(ctx, account)
	end(span, err)
	return b, err
}

func (c *Chain) SubmitTx(ctx context.Context, call core.Call) (core.TxHandle, error) {
	ctx, span := c.start(ctx, "Chain.SubmitTx", core.AttributeKeyCall.String(string(call.CallKind())))
	handle, err := c.BridgeChain.SubmitTx(ctx, call)
	if err == nil {
		span.SetAttributes(core.AttributeKeyTxHash.String(handle.Hash.String()))
	}
	end(span, err)
	return handle, err
}

func (c *Chain) TxStatus(ctx context.Context, handle core.TxHandle) (core.TxInclusion, error) {
	ctx, span := c.tracer.Start(ctx, "Chain.TxStatus", core.WithTxAttributes(handle))
	inclusion, err := c.BridgeChain.TxStatus(ctx, handle)
	end(span, err)
	return inclusion, err
}

func (c *Chain) HeaderAndFinalityProof(ctx context.Context, number uint64) (core.HeaderID, *core.FinalityProof, error) {
	ctx, span := c.start(ctx, "Chain.HeaderAndFinalityProof", numberAttr("number", number))
	id, proof, err := c.BridgeChain.HeaderAndFinalityProof(ctx, number)
	end(span, err)
	return id, proof, err
}

func (c *Chain) MandatoryHeadersInRange(ctx context.Context, from, to uint64) ([]uint64, error) {
	ctx, span := c.start(ctx, "Chain.MandatoryHeadersInRange", numberAttr("from", from), numberAttr("to", to))
	numbers, err := c.BridgeChain.MandatoryHeadersInRange(ctx, from, to)
	end(span, err)
	return numbers, err
}

func (c *Chain) UndeliveredMessageRange(ctx context.Context, lane core.LaneID, latestReceived core.Nonce, at core.HeaderID) (core.MessageRange, error) {
	ctx, span := c.start(ctx, "Chain.UndeliveredMessageRange", laneAttr(lane), numberAttr("latest_received", uint64(latestReceived)))
	r, err := c.BridgeChain.UndeliveredMessageRange(ctx, lane, latestReceived, at)
	end(span, err)
	return r, err
}

func (c *Chain) LatestConfirmedNonce(ctx context.Context, lane core.LaneID, at core.HeaderID) (core.Nonce, error) {
	ctx, span := c.start(ctx, "Chain.LatestConfirmedNonce", laneAttr(lane), numberAttr("at", at.Number))
	n, err := c.BridgeChain.LatestConfirmedNonce(ctx, lane, at)
	end(span, err)
	return n, err
}

func (c *Chain) MessageDetails(ctx context.Context, lane core.LaneID, messages core.MessageRange) ([]core.MessageDetails, error) {
	ctx, span := c.start(ctx, "Chain.MessageDetails", laneAttr(lane), rangeAttr(messages))
	details, err := c.BridgeChain.MessageDetails(ctx, lane, messages)
	end(span, err)
	return details, err
}

func (c *Chain) GenerateMessageProof(ctx context.Context, lane core.LaneID, messages core.MessageRange, at core.HeaderID) ([]byte, error) {
	ctx, span := c.start(ctx, "Chain.GenerateMessageProof", laneAttr(lane), rangeAttr(messages), numberAttr("at", at.Number))
	proof, err := c.BridgeChain.GenerateMessageProof(ctx, lane, messages, at)
	end(span, err)
	return proof, err
}

func (c *Chain) FinalityProofsInPeriod(ctx context.Context, from, to uint64) ([]core.FinalityProof, error) {
	ctx, span := c.start(ctx, "Chain.FinalityProofsInPeriod", numberAttr("from", from), numberAttr("to", to))
	proofs, err := c.BridgeChain.FinalityProofsInPeriod(ctx, from, to)
	end(span, err)
	return proofs, err
}

func (c *Chain) ParachainHead(ctx context.Context, at core.HeaderID, paraID uint32) (*core.ParachainHead, error) {
	ctx, span := c.start(ctx, "Chain.ParachainHead", numberAttr("at", at.Number), attribute.Int64("para_id", int64(paraID)))
	head, err := c.BridgeChain.ParachainHead(ctx, at, paraID)
	end(span, err)
	return head, err
}

func (c *Chain) ParachainHeadProof(ctx context.Context, at core.HeaderID, paraID uint32) ([]byte, error) {
	ctx, span := c.start(ctx, "Chain.ParachainHeadProof", numberAttr("at", at.Number), attribute.Int64("para_id", int64(paraID)))
	proof, err := c.BridgeChain.ParachainHeadProof(ctx, at, paraID)
	end(span, err)
	return proof, err
}

func (c *Chain) LatestReceivedNonce(ctx context.Context, lane core.LaneID) (core.Nonce, error) {
	ctx, span := c.start(ctx, "Chain.LatestReceivedNonce", laneAttr(lane))
	n, err := c.BridgeChain.LatestReceivedNonce(ctx, lane)
	end(span, err)
	return n, err
}

func (c *Chain) UnrewardedRelayers(ctx context.Context, lane core.LaneID, at core.HeaderID) (core.UnrewardedRelayersState, error) {
	ctx, span := c.start(ctx, "Chain.UnrewardedRelayers", laneAttr(lane), numberAttr("at", at.Number))
	state, err := c.BridgeChain.UnrewardedRelayers(ctx, lane, at)
	end(span, err)
	return state, err
}

func (c *Chain) GenerateReceivingProof(ctx context.Context, lane core.LaneID, at core.HeaderID) ([]byte, error) {
	ctx, span := c.start(ctx, "Chain.GenerateReceivingProof", laneAttr(lane), numberAttr("at", at.Number))
	proof, err := c.BridgeChain.GenerateReceivingProof(ctx, lane, at)
	end(span, err)
	return proof, err
}

func (c *Chain) EstimateDeliveryCosts(ctx context.Context, lane core.LaneID, details []core.MessageDetails) ([]math.Int, error) {
	ctx, span := c.start(ctx, "Chain.EstimateDeliveryCosts", laneAttr(lane), attribute.Int("messages", len(details)))
	costs, err := c.BridgeChain.EstimateDeliveryCosts(ctx, lane, details)
	end(span, err)
	return costs, err
}

func (c *Chain) SyncedHeadersWithContext(ctx context.Context, from uint64) ([]core.SyncedHeader, error) {
	ctx, span := c.start(ctx, "Chain.SyncedHeadersWithContext", numberAttr("from", from))
	headers, err := c.BridgeChain.SyncedHeadersWithContext(ctx, from)
	end(span, err)
	return headers, err
}

func (c *Chain) SyncedParachainHead(ctx context.Context, paraID uint32) (*core.ParachainHead, error) {
	ctx, span := c.start(ctx, "Chain.SyncedParachainHead", attribute.Int64("para_id", int64(paraID)))
	head, err := c.BridgeChain.SyncedParachainHead(ctx, paraID)
	end(span, err)
	return head, err
}
