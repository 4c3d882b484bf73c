package mock

import (
	"context"
	"sort"

	"cosmossdk.io/math"
	"github.com/cockroachdb/errors"
	"github.com/hyperledger-labs/yui-bridge-relayer/core"
)

func (c *Chain) BestBlockNumber(ctx context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fault(); err != nil {
		return 0, err
	}
	return c.best().header.Number, nil
}

func (c *Chain) BestFinalizedHeaderID(ctx context.Context) (core.HeaderID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fault(); err != nil {
		return core.HeaderID{}, err
	}
	return c.blocks[c.finalized].header, nil
}

func (c *Chain) HeaderByNumber(ctx context.Context, number uint64) (core.HeaderID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fault(); err != nil {
		return core.HeaderID{}, err
	}
	b, err := c.blockAt(core.HeaderID{Number: number})
	if err != nil {
		return core.HeaderID{}, err
	}
	return b.header, nil
}

func (c *Chain) SyncedHeaderNumber(ctx context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fault(); err != nil {
		return 0, err
	}
	return c.syncedNumber(), nil
}

func (c *Chain) syncedNumber() uint64 {
	if len(c.synced) == 0 {
		return 0
	}
	return c.synced[len(c.synced)-1].Header.Number
}

func (c *Chain) RuntimeVersion(ctx context.Context) (core.RuntimeVersion, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fault(); err != nil {
		return core.RuntimeVersion{}, err
	}
	return c.runtime, nil
}

func (c *Chain) AccountBalance(ctx context.Context, account string) (math.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fault(); err != nil {
		return math.Int{}, err
	}
	return c.balance(account), nil
}

func (c *Chain) balance(account string) math.Int {
	if b, ok := c.balances[account]; ok {
		return b
	}
	return math.ZeroInt()
}

// Source client.

func (c *Chain) HeaderAndFinalityProof(ctx context.Context, number uint64) (core.HeaderID, *core.FinalityProof, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fault(); err != nil {
		return core.HeaderID{}, nil, err
	}
	if number > c.finalized {
		return core.HeaderID{}, nil, errors.Newf("header %d of %s is not finalized", number, c.config.ChainID)
	}
	b := c.blocks[number]
	proof := c.proofs[number][0]
	return b.header, &proof, nil
}

func (c *Chain) MandatoryHeadersInRange(ctx context.Context, from, to uint64) ([]uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fault(); err != nil {
		return nil, err
	}
	var numbers []uint64
	for n := from; n <= to && n <= c.finalized; n++ {
		if c.blocks[n].mandatory != nil {
			numbers = append(numbers, n)
		}
	}
	return numbers, nil
}

func (c *Chain) UndeliveredMessageRange(ctx context.Context, lane core.LaneID, latestReceived core.Nonce, at core.HeaderID) (core.MessageRange, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fault(); err != nil {
		return core.MessageRange{}, err
	}
	b, err := c.blockOrBest(at)
	if err != nil {
		return core.MessageRange{}, err
	}
	return core.NewMessageRange(latestReceived+1, b.outbound[lane].generated), nil
}

func (c *Chain) LatestConfirmedNonce(ctx context.Context, lane core.LaneID, at core.HeaderID) (core.Nonce, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fault(); err != nil {
		return 0, err
	}
	b, err := c.blockOrBest(at)
	if err != nil {
		return 0, err
	}
	return b.outbound[lane].confirmed, nil
}

func (c *Chain) MessageDetails(ctx context.Context, lane core.LaneID, messages core.MessageRange) ([]core.MessageDetails, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fault(); err != nil {
		return nil, err
	}
	l := c.outboundLane(lane)
	if messages.Begin == 0 || messages.End > l.generated() {
		return nil, errors.Newf("messages %s of lane %s not generated on %s", messages, lane, c.config.ChainID)
	}
	details := make([]core.MessageDetails, 0, messages.Len())
	for _, n := range messages.Nonces() {
		details = append(details, l.messages[n-1].details)
	}
	return details, nil
}

func (c *Chain) GenerateMessageProof(ctx context.Context, lane core.LaneID, messages core.MessageRange, at core.HeaderID) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fault(); err != nil {
		return nil, err
	}
	b, err := c.blockAt(at)
	if err != nil {
		return nil, err
	}
	if messages.IsEmpty() || messages.End > b.outbound[lane].generated {
		return nil, errors.Newf("messages %s of lane %s not generated at %s", messages, lane, at)
	}
	return messageProof(c.config.ChainID, lane, messages, b.header), nil
}

func (c *Chain) FinalityProofsInPeriod(ctx context.Context, from, to uint64) ([]core.FinalityProof, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fault(); err != nil {
		return nil, err
	}
	numbers := make([]uint64, 0, len(c.proofs))
	for n := range c.proofs {
		if from <= n && n <= to && n <= c.finalized {
			numbers = append(numbers, n)
		}
	}
	sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })
	var proofs []core.FinalityProof
	for _, n := range numbers {
		proofs = append(proofs, c.proofs[n]...)
	}
	return proofs, nil
}

func (c *Chain) ParachainHead(ctx context.Context, at core.HeaderID, paraID uint32) (*core.ParachainHead, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fault(); err != nil {
		return nil, err
	}
	b, err := c.blockAt(at)
	if err != nil {
		return nil, err
	}
	head, ok := b.paraHeads[paraID]
	if !ok {
		return nil, nil
	}
	return &core.ParachainHead{ParaID: paraID, Head: head, AtRelayBlock: b.header}, nil
}

func (c *Chain) ParachainHeadProof(ctx context.Context, at core.HeaderID, paraID uint32) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fault(); err != nil {
		return nil, err
	}
	b, err := c.blockAt(at)
	if err != nil {
		return nil, err
	}
	head, ok := b.paraHeads[paraID]
	if !ok {
		return nil, errors.Newf("parachain %d has no head at %s", paraID, at)
	}
	return parachainHeadProof(c.config.ChainID, paraID, head, b.header), nil
}

// Target client.

func (c *Chain) LatestReceivedNonce(ctx context.Context, lane core.LaneID) (core.Nonce, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fault(); err != nil {
		return 0, err
	}
	return c.best().inbound[lane].LastDeliveredNonce, nil
}

func (c *Chain) UnrewardedRelayers(ctx context.Context, lane core.LaneID, at core.HeaderID) (core.UnrewardedRelayersState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fault(); err != nil {
		return core.UnrewardedRelayersState{}, err
	}
	b, err := c.blockOrBest(at)
	if err != nil {
		return core.UnrewardedRelayersState{}, err
	}
	return b.inbound[lane], nil
}

func (c *Chain) GenerateReceivingProof(ctx context.Context, lane core.LaneID, at core.HeaderID) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fault(); err != nil {
		return nil, err
	}
	b, err := c.blockAt(at)
	if err != nil {
		return nil, err
	}
	return receivingProof(c.config.ChainID, lane, b.inbound[lane], b.header), nil
}

func (c *Chain) EstimateDeliveryCosts(ctx context.Context, lane core.LaneID, details []core.MessageDetails) ([]math.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fault(); err != nil {
		return nil, err
	}
	costs := make([]math.Int, len(details))
	for i := range details {
		costs[i] = c.config.deliveryFee(uint64(i + 1))
	}
	return costs, nil
}

func (c *Chain) SyncedHeadersWithContext(ctx context.Context, from uint64) ([]core.SyncedHeader, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fault(); err != nil {
		return nil, err
	}
	var headers []core.SyncedHeader
	for _, h := range c.synced {
		if h.Header.Number >= from {
			headers = append(headers, h)
		}
	}
	return headers, nil
}

func (c *Chain) SyncedParachainHead(ctx context.Context, paraID uint32) (*core.ParachainHead, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fault(); err != nil {
		return nil, err
	}
	head, ok := c.syncedParaHeads[paraID]
	if !ok {
		return nil, nil
	}
	return &head, nil
}
