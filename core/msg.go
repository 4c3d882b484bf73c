package core

import (
	"encoding/binary"
	"fmt"

	"github.com/cometbft/cometbft/crypto/tmhash"
	cmtbytes "github.com/cometbft/cometbft/libs/bytes"
)

type CallKind string

const (
	CallKindSubmitFinalityProof          CallKind = "submit_finality_proof"
	CallKindReceiveMessagesProof         CallKind = "receive_messages_proof"
	CallKindReceiveMessagesDeliveryProof CallKind = "receive_messages_delivery_proof"
	CallKindSubmitParachainHeads         CallKind = "submit_parachain_heads"
	CallKindReportEquivocation           CallKind = "report_equivocation"
)

// Call is a runtime call submitted in a transaction. Encode is deterministic
// and only used for hashing and size accounting; the wire codec belongs to the chain module.
type Call interface {
	CallKind() CallKind
	Encode() []byte
}

// CallHash returns the hash identifying the call's content.
func CallHash(call Call) cmtbytes.HexBytes {
	return tmhash.Sum(call.Encode())
}

var (
	_ Call = (*SubmitFinalityProofCall)(nil)
	_ Call = (*ReceiveMessagesProofCall)(nil)
	_ Call = (*ReceiveMessagesDeliveryProofCall)(nil)
	_ Call = (*SubmitParachainHeadsCall)(nil)
	_ Call = (*ReportEquivocationCall)(nil)
)

type SubmitFinalityProofCall struct {
	Proof FinalityProof
}

func (c *SubmitFinalityProofCall) CallKind() CallKind { return CallKindSubmitFinalityProof }

func (c *SubmitFinalityProofCall) Encode() []byte {
	e := newEncoder()
	e.writeString(string(c.CallKind()))
	e.writeBytes(c.Proof.Encode())
	return e.bytes()
}

// ReceiveMessagesProofCall delivers Messages to the target. Proof is anchored
// to the source header At, which the target must already know.
// ConfirmedAtSource is the latest confirmed nonce of the source outbound lane at At.
type ReceiveMessagesProofCall struct {
	Lane              LaneID
	Messages          MessageRange
	At                HeaderID
	ConfirmedAtSource Nonce
	DispatchWeight    uint64
	Proof             []byte
}

func (c *ReceiveMessagesProofCall) CallKind() CallKind { return CallKindReceiveMessagesProof }

func (c *ReceiveMessagesProofCall) Encode() []byte {
	e := newEncoder()
	e.writeString(string(c.CallKind()))
	e.writeString(string(c.Lane))
	e.writeUint64(uint64(c.Messages.Begin))
	e.writeUint64(uint64(c.Messages.End))
	e.writeHeaderID(c.At)
	e.writeUint64(uint64(c.ConfirmedAtSource))
	e.writeUint64(c.DispatchWeight)
	e.writeBytes(c.Proof)
	return e.bytes()
}

// ReceiveMessagesDeliveryProofCall confirms to the source that Messages were
// received by the target as of the target header At.
type ReceiveMessagesDeliveryProofCall struct {
	Lane     LaneID
	Messages MessageRange
	At       HeaderID
	Relayers UnrewardedRelayersState
	Proof    []byte
}

func (c *ReceiveMessagesDeliveryProofCall) CallKind() CallKind {
	return CallKindReceiveMessagesDeliveryProof
}

func (c *ReceiveMessagesDeliveryProofCall) Encode() []byte {
	e := newEncoder()
	e.writeString(string(c.CallKind()))
	e.writeString(string(c.Lane))
	e.writeUint64(uint64(c.Messages.Begin))
	e.writeUint64(uint64(c.Messages.End))
	e.writeHeaderID(c.At)
	e.writeUint64(uint64(c.Relayers.LastDeliveredNonce))
	for _, r := range c.Relayers.Relayers {
		e.writeString(r.Relayer)
		e.writeUint64(uint64(r.Messages.Begin))
		e.writeUint64(uint64(r.Messages.End))
	}
	e.writeBytes(c.Proof)
	return e.bytes()
}

type SubmitParachainHeadsCall struct {
	At     HeaderID
	ParaID uint32
	Head   []byte
	Proof  []byte
}

func (c *SubmitParachainHeadsCall) CallKind() CallKind { return CallKindSubmitParachainHeads }

func (c *SubmitParachainHeadsCall) Encode() []byte {
	e := newEncoder()
	e.writeString(string(c.CallKind()))
	e.writeHeaderID(c.At)
	e.writeUint64(uint64(c.ParaID))
	e.writeBytes(c.Head)
	e.writeBytes(c.Proof)
	return e.bytes()
}

type ReportEquivocationCall struct {
	Proof EquivocationProof
}

func (c *ReportEquivocationCall) CallKind() CallKind { return CallKindReportEquivocation }

func (c *ReportEquivocationCall) Encode() []byte {
	e := newEncoder()
	e.writeString(string(c.CallKind()))
	e.writeBytes(c.Proof.Encode())
	return e.bytes()
}

// encoder writes length-prefixed fields.
type encoder struct {
	buf []byte
}

func newEncoder() *encoder {
	return &encoder{}
}

func (e *encoder) writeUint64(v uint64) {
	e.buf = binary.BigEndian.AppendUint64(e.buf, v)
}

func (e *encoder) writeBytes(bz []byte) {
	e.buf = binary.AppendUvarint(e.buf, uint64(len(bz)))
	e.buf = append(e.buf, bz...)
}

func (e *encoder) writeString(s string) {
	e.writeBytes([]byte(s))
}

func (e *encoder) writeHeaderID(id HeaderID) {
	e.writeUint64(id.Number)
	e.writeBytes(id.Hash)
}

func (e *encoder) bytes() []byte {
	return e.buf
}

// TxHandle identifies a submitted transaction.
type TxHandle struct {
	ChainID string
	Hash    cmtbytes.HexBytes
	Call    CallKind
}

func (h TxHandle) String() string {
	return fmt.Sprintf("%s/%s(%s)", h.ChainID, h.Call, h.Hash)
}

type TxInclusionStatus int

const (
	// TxUnknown means the chain does not know the transaction (yet). Dropped transactions stay unknown.
	TxUnknown TxInclusionStatus = iota
	TxInPool
	TxIncluded
)

// TxInclusion is the chain's view of a submitted transaction.
type TxInclusion struct {
	Status    TxInclusionStatus
	Block     HeaderID
	Finalized bool
	// ExecutionErr is set when the transaction was included but its call failed.
	ExecutionErr error
}
