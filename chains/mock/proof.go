package mock

import (
	"bytes"
	"encoding/binary"

	"github.com/cometbft/cometbft/crypto/tmhash"
	"github.com/hyperledger-labs/yui-bridge-relayer/core"
)

// NewVote returns a vote of validator signed the way the mock chains verify it.
func NewVote(validator string, round, setID uint64, target core.HeaderID) core.Vote {
	v := core.Vote{Validator: validator, Round: round, SetID: setID, Target: target}
	v.Signature = voteSignature(v)
	return v
}

func voteSignature(v core.Vote) []byte {
	v.Signature = nil
	return tmhash.Sum(append([]byte("vote"), v.Encode()...))
}

func validVote(v core.Vote) bool {
	return bytes.Equal(v.Signature, voteSignature(v))
}

// canonicalProof is the proof every authority of the block's set signs. c.mu must be held.
func (c *Chain) canonicalProof(b *block) core.FinalityProof {
	set := c.setHistory[b.setID]
	round := b.header.Number
	votes := make([]core.Vote, 0, len(set.Authorities))
	for _, a := range set.Authorities {
		votes = append(votes, NewVote(a, round, set.ID, b.header))
	}
	return core.FinalityProof{
		Header:           b.header,
		SetID:            set.ID,
		Round:            round,
		Votes:            votes,
		NextAuthoritySet: b.mandatory,
	}
}

// verifyFinality checks proof against the authority set the light client knows.
func verifyFinality(set core.AuthoritySet, proof core.FinalityProof) error {
	if proof.SetID != set.ID {
		return core.ErrAuthoritySetMismatch.Wrapf("proof of set %d, light client knows set %d", proof.SetID, set.ID)
	}
	signed := make(map[string]struct{})
	for _, v := range proof.Votes {
		if v.SetID != set.ID || !set.Contains(v.Validator) || !v.Target.Equal(proof.Header) || !validVote(v) {
			continue
		}
		signed[v.Validator] = struct{}{}
	}
	if len(signed) < set.Threshold() {
		return core.ErrInvalidProof.Wrapf("%d valid votes, %d required", len(signed), set.Threshold())
	}
	return nil
}

func messageProof(chainID string, lane core.LaneID, messages core.MessageRange, at core.HeaderID) []byte {
	bz := []byte(chainID + "/messages/" + string(lane))
	bz = binary.BigEndian.AppendUint64(bz, uint64(messages.Begin))
	bz = binary.BigEndian.AppendUint64(bz, uint64(messages.End))
	return tmhash.Sum(append(bz, at.Hash...))
}

func receivingProof(chainID string, lane core.LaneID, state core.UnrewardedRelayersState, at core.HeaderID) []byte {
	bz := []byte(chainID + "/inbound/" + string(lane))
	bz = binary.BigEndian.AppendUint64(bz, uint64(state.LastDeliveredNonce))
	for _, r := range state.Relayers {
		bz = append(bz, r.Relayer...)
		bz = binary.BigEndian.AppendUint64(bz, uint64(r.Messages.Begin))
		bz = binary.BigEndian.AppendUint64(bz, uint64(r.Messages.End))
	}
	return tmhash.Sum(append(bz, at.Hash...))
}

func parachainHeadProof(chainID string, paraID uint32, head []byte, at core.HeaderID) []byte {
	bz := binary.BigEndian.AppendUint32([]byte(chainID+"/paras/"), paraID)
	bz = append(bz, head...)
	return tmhash.Sum(append(bz, at.Hash...))
}
