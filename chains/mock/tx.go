package mock

import (
	"bytes"
	"context"
	"encoding/binary"

	"cosmossdk.io/math"
	"github.com/cockroachdb/errors"
	"github.com/cometbft/cometbft/crypto/tmhash"
	"github.com/hyperledger-labs/yui-bridge-relayer/core"
	"github.com/hyperledger-labs/yui-bridge-relayer/signer"
)

// SubmitTx signs call and puts it in the pool. Calls that would fail at the
// current state are rejected right away, as a node's pool validation does.
func (c *Chain) SubmitTx(ctx context.Context, call core.Call) (core.TxHandle, error) {
	digest := core.CallHash(call)
	signature, err := c.signer.Sign(ctx, digest)
	if err != nil {
		return core.TxHandle{}, errors.Wrap(err, "failed to sign call")
	}
	pubKey, err := c.signer.GetPublicKey(ctx)
	if err != nil {
		return core.TxHandle{}, errors.Wrap(err, "failed to get public key")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fault(); err != nil {
		return core.TxHandle{}, err
	}
	if !signer.Verify(pubKey, digest, signature) {
		return core.TxHandle{}, errors.New("bad signature")
	}

	sender := c.signer.Address()
	if fee := c.fee(call); c.balance(sender).LT(fee) {
		return core.TxHandle{}, core.ErrInsufficientBalance.Wrapf("balance %s, fee %s", c.balance(sender), fee)
	}
	if err := c.validate(call, sender); err != nil {
		return core.TxHandle{}, err
	}

	c.txSeq++
	hash := tmhash.Sum(binary.BigEndian.AppendUint64(append([]byte(c.config.ChainID), digest...), c.txSeq))
	t := &tx{
		handle:    core.TxHandle{ChainID: c.config.ChainID, Hash: hash, Call: call.CallKind()},
		call:      call,
		sender:    sender,
		signature: signature,
	}
	if c.dropNext > 0 {
		c.dropNext--
		c.logger().Debug("dropping transaction", "tx", t.handle.String())
		return t.handle, nil
	}
	c.txs[t.handle.Hash.String()] = t
	c.pool = append(c.pool, t)
	return t.handle, nil
}

func (c *Chain) TxStatus(ctx context.Context, handle core.TxHandle) (core.TxInclusion, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fault(); err != nil {
		return core.TxInclusion{}, err
	}
	t, ok := c.txs[handle.Hash.String()]
	if !ok {
		return core.TxInclusion{Status: core.TxUnknown}, nil
	}
	if !t.included {
		return core.TxInclusion{Status: core.TxInPool}, nil
	}
	return core.TxInclusion{
		Status:       core.TxIncluded,
		Block:        t.block,
		Finalized:    t.block.Number <= c.finalized,
		ExecutionErr: t.execErr,
	}, nil
}

func (c *Chain) fee(call core.Call) math.Int {
	if m, ok := call.(*core.ReceiveMessagesProofCall); ok {
		return c.config.deliveryFee(m.Messages.Len())
	}
	return c.config.txFee(len(call.Encode()))
}

// execute charges the fee of t and applies its call. c.mu must be held.
func (c *Chain) execute(t *tx) error {
	fee := c.fee(t.call)
	balance := c.balance(t.sender)
	if balance.LT(fee) {
		return core.ErrInsufficientBalance.Wrapf("balance %s, fee %s", balance, fee)
	}
	c.balances[t.sender] = balance.Sub(fee)
	if err := c.validate(t.call, t.sender); err != nil {
		return err
	}
	c.apply(t.call, t.sender)
	return nil
}

// validate checks call against the current state. c.mu must be held.
func (c *Chain) validate(call core.Call, sender string) error {
	switch call := call.(type) {
	case *core.SubmitFinalityProofCall:
		return c.validateFinalityProof(call.Proof)
	case *core.ReceiveMessagesProofCall:
		return c.validateMessagesProof(call)
	case *core.ReceiveMessagesDeliveryProofCall:
		return c.validateDeliveryProof(call)
	case *core.SubmitParachainHeadsCall:
		return c.validateParachainHeads(call)
	case *core.ReportEquivocationCall:
		return c.validateEquivocation(call.Proof)
	default:
		return errors.Newf("unsupported call %T", call)
	}
}

func (c *Chain) requireCounterparty() (*Chain, error) {
	if c.counterparty == nil {
		return nil, errors.Newf("%s is not linked to a counterparty", c.config.ChainID)
	}
	return c.counterparty, nil
}

// syncedHeader returns the counterparty header imported by the light client. c.mu must be held.
func (c *Chain) syncedHeader(id core.HeaderID) (core.SyncedHeader, error) {
	for _, h := range c.synced {
		if h.Header.Equal(id) {
			return h, nil
		}
	}
	return core.SyncedHeader{}, core.ErrUnknownHeader.Wrapf("%s is not imported by the light client of %s", id, c.config.ChainID)
}

func (c *Chain) validateFinalityProof(proof core.FinalityProof) error {
	cp, err := c.requireCounterparty()
	if err != nil {
		return err
	}
	if best := c.syncedNumber(); proof.Header.Number <= best {
		return core.ErrStaleHeader.Wrapf("header %s, best synced #%d", proof.Header, best)
	}
	if err := verifyFinality(c.knownSet, proof); err != nil {
		return err
	}
	b, err := cp.blockAt(proof.Header)
	if err != nil {
		return core.ErrInvalidProof.Wrap(err.Error())
	}
	if (b.mandatory == nil) != (proof.NextAuthoritySet == nil) {
		return core.ErrInvalidProof.Wrap("authority set change does not match the header")
	}
	// an authority set change cannot be skipped
	for n := c.syncedNumber() + 1; n < proof.Header.Number; n++ {
		if skipped, err := cp.blockAt(core.HeaderID{Number: n}); err == nil && skipped.mandatory != nil {
			return core.ErrInvalidProof.Wrapf("mandatory header #%d must be imported first", n)
		}
	}
	return nil
}

func (c *Chain) validateMessagesProof(call *core.ReceiveMessagesProofCall) error {
	cp, err := c.requireCounterparty()
	if err != nil {
		return err
	}
	if call.Messages.IsEmpty() {
		return core.ErrInvalidProof.Wrap("empty message range")
	}
	received := c.inboundLane(call.Lane).received
	if call.Messages.Begin <= received {
		return core.ErrMessageAlreadyDelivered.Wrapf("messages %s, latest received %d", call.Messages, received)
	}
	if call.Messages.Begin > received+1 {
		return core.ErrMessageTooEarly.Wrapf("messages %s, latest received %d", call.Messages, received)
	}
	if _, err := c.syncedHeader(call.At); err != nil {
		return err
	}
	if !bytes.Equal(call.Proof, messageProof(cp.config.ChainID, call.Lane, call.Messages, call.At)) {
		return core.ErrInvalidProof.Wrapf("messages %s at %s", call.Messages, call.At)
	}
	b, err := cp.blockAt(call.At)
	if err != nil {
		return core.ErrInvalidProof.Wrap(err.Error())
	}
	if call.Messages.End > b.outbound[call.Lane].generated {
		return core.ErrInvalidProof.Wrapf("messages %s were not generated at %s", call.Messages, call.At)
	}
	return nil
}

func (c *Chain) validateDeliveryProof(call *core.ReceiveMessagesDeliveryProofCall) error {
	cp, err := c.requireCounterparty()
	if err != nil {
		return err
	}
	confirmed := c.outboundLane(call.Lane).confirmed
	if call.Messages.End <= confirmed {
		return core.ErrMessageAlreadyDelivered.Wrapf("delivery of %s already confirmed up to %d", call.Messages, confirmed)
	}
	if call.Messages.Begin != confirmed+1 {
		return core.ErrMessageTooEarly.Wrapf("confirmation of %s, latest confirmed %d", call.Messages, confirmed)
	}
	if _, err := c.syncedHeader(call.At); err != nil {
		return err
	}
	if !bytes.Equal(call.Proof, receivingProof(cp.config.ChainID, call.Lane, call.Relayers, call.At)) {
		return core.ErrInvalidProof.Wrapf("inbound lane state at %s", call.At)
	}
	if call.Messages.End > call.Relayers.LastDeliveredNonce {
		return core.ErrInvalidProof.Wrapf("%s not delivered, latest delivered %d", call.Messages, call.Relayers.LastDeliveredNonce)
	}
	return nil
}

func (c *Chain) validateParachainHeads(call *core.SubmitParachainHeadsCall) error {
	cp, err := c.requireCounterparty()
	if err != nil {
		return err
	}
	if recorded, ok := c.syncedParaHeads[call.ParaID]; ok && recorded.AtRelayBlock.Number >= call.At.Number {
		return core.ErrStaleHeader.Wrapf("head of parachain %d at %s, recorded at %s", call.ParaID, call.At, recorded.AtRelayBlock)
	}
	if _, err := c.syncedHeader(call.At); err != nil {
		return err
	}
	if !bytes.Equal(call.Proof, parachainHeadProof(cp.config.ChainID, call.ParaID, call.Head, call.At)) {
		return core.ErrInvalidProof.Wrapf("head of parachain %d at %s", call.ParaID, call.At)
	}
	return nil
}

func (c *Chain) validateEquivocation(proof core.EquivocationProof) error {
	if _, ok := c.reported[proof.Key()]; ok {
		return core.ErrEquivocationAlreadyReported.Wrap(proof.Key())
	}
	set, ok := c.setHistory[proof.SetID]
	if !ok {
		return core.ErrAuthoritySetMismatch.Wrapf("unknown authority set %d", proof.SetID)
	}
	if !set.Contains(proof.Offender) {
		return core.ErrInvalidProof.Wrapf("%s is not an authority of set %d", proof.Offender, proof.SetID)
	}
	for _, v := range []core.Vote{proof.First, proof.Second} {
		if v.Validator != proof.Offender || v.Round != proof.Round || v.SetID != proof.SetID || !validVote(v) {
			return core.ErrInvalidProof.Wrapf("vote of %s in round %d does not belong to the offence", v.Validator, v.Round)
		}
	}
	if proof.First.Target.Equal(proof.Second.Target) {
		return core.ErrInvalidProof.Wrap("votes are for the same header")
	}
	return nil
}

// apply changes the state by a validated call. c.mu must be held.
func (c *Chain) apply(call core.Call, sender string) {
	switch call := call.(type) {
	case *core.SubmitFinalityProofCall:
		c.synced = append(c.synced, core.SyncedHeader{
			Header:  call.Proof.Header,
			Context: core.FinalityVerificationContext{AuthoritySet: c.knownSet},
			Proof:   call.Proof,
		})
		if next := call.Proof.NextAuthoritySet; next != nil {
			c.knownSet = *next
		}
	case *core.ReceiveMessagesProofCall:
		l := c.inboundLane(call.Lane)
		l.relayers = pruneRelayers(l.relayers, call.ConfirmedAtSource)
		if n := len(l.relayers); n > 0 && l.relayers[n-1].Relayer == sender {
			l.relayers[n-1].Messages.End = call.Messages.End
		} else {
			l.relayers = append(l.relayers, core.UnrewardedRelayer{Relayer: sender, Messages: call.Messages})
		}
		l.received = call.Messages.End
	case *core.ReceiveMessagesDeliveryProofCall:
		l := c.outboundLane(call.Lane)
		for _, n := range call.Messages.Nonces() {
			for _, r := range call.Relayers.Relayers {
				if r.Messages.Contains(n) {
					reward := l.messages[n-1].details.Reward
					c.balances[r.Relayer] = c.balance(r.Relayer).Add(reward)
				}
			}
		}
		l.confirmed = call.Messages.End
	case *core.SubmitParachainHeadsCall:
		c.syncedParaHeads[call.ParaID] = core.ParachainHead{
			ParaID:       call.ParaID,
			Head:         append([]byte(nil), call.Head...),
			AtRelayBlock: call.At,
		}
	case *core.ReportEquivocationCall:
		c.reported[call.Proof.Key()] = struct{}{}
	}
}

// pruneRelayers drops the delivered messages whose delivery the source confirmed.
func pruneRelayers(relayers []core.UnrewardedRelayer, confirmed core.Nonce) []core.UnrewardedRelayer {
	var pruned []core.UnrewardedRelayer
	for _, r := range relayers {
		if r.Messages.End <= confirmed {
			continue
		}
		if r.Messages.Begin <= confirmed {
			r.Messages.Begin = confirmed + 1
		}
		pruned = append(pruned, r)
	}
	return pruned
}
