package core

import (
	"bytes"
	"fmt"

	"cosmossdk.io/math"
	"github.com/cometbft/cometbft/crypto/tmhash"
	cmtbytes "github.com/cometbft/cometbft/libs/bytes"
)

// HeaderID identifies a block of a chain.
type HeaderID struct {
	Number uint64            `json:"number" yaml:"number"`
	Hash   cmtbytes.HexBytes `json:"hash" yaml:"hash"`
}

func NewHeaderID(number uint64, hash []byte) HeaderID {
	return HeaderID{Number: number, Hash: hash}
}

func (id HeaderID) IsZero() bool {
	return id.Number == 0 && len(id.Hash) == 0
}

func (id HeaderID) Equal(other HeaderID) bool {
	return id.Number == other.Number && bytes.Equal(id.Hash, other.Hash)
}

func (id HeaderID) String() string {
	h := id.Hash.String()
	if len(h) > 8 {
		h = h[:8]
	}
	return fmt.Sprintf("#%d(%s)", id.Number, h)
}

// LaneID identifies a message lane between two chains.
type LaneID string

// Nonce is the sequence number of a message within a lane. The first message of a lane has nonce 1.
type Nonce uint64

// MessageRange is an inclusive range of nonces. A range whose End is lower than its Begin is empty.
type MessageRange struct {
	Begin Nonce `json:"begin" yaml:"begin"`
	End   Nonce `json:"end" yaml:"end"`
}

func NewMessageRange(begin, end Nonce) MessageRange {
	return MessageRange{Begin: begin, End: end}
}

// EmptyRangeFrom returns an empty range positioned right after the given nonce.
func EmptyRangeFrom(after Nonce) MessageRange {
	return MessageRange{Begin: after + 1, End: after}
}

// EmptyRangeAt returns an empty range positioned right before begin. Nonces start
// at 1, so a zero begin yields the empty range before nonce 1.
func EmptyRangeAt(begin Nonce) MessageRange {
	if begin == 0 {
		return MessageRange{Begin: 1, End: 0}
	}
	return EmptyRangeFrom(begin - 1)
}

func (r MessageRange) IsEmpty() bool {
	return r.End < r.Begin
}

func (r MessageRange) Len() uint64 {
	if r.IsEmpty() {
		return 0
	}
	return uint64(r.End-r.Begin) + 1
}

func (r MessageRange) Contains(n Nonce) bool {
	return r.Begin <= n && n <= r.End
}

func (r MessageRange) Overlaps(other MessageRange) bool {
	if r.IsEmpty() || other.IsEmpty() {
		return false
	}
	return r.Begin <= other.End && other.Begin <= r.End
}

// Prefix returns the first n nonces of the range.
func (r MessageRange) Prefix(n uint64) MessageRange {
	if n == 0 {
		return EmptyRangeAt(r.Begin)
	}
	if n >= r.Len() {
		return r
	}
	return MessageRange{Begin: r.Begin, End: r.Begin + Nonce(n) - 1}
}

func (r MessageRange) Nonces() []Nonce {
	nonces := make([]Nonce, 0, r.Len())
	for n := r.Begin; n <= r.End && !r.IsEmpty(); n++ {
		nonces = append(nonces, n)
	}
	return nonces
}

func (r MessageRange) String() string {
	if r.IsEmpty() {
		return "[]"
	}
	return fmt.Sprintf("[%d,%d]", r.Begin, r.End)
}

// MessageDetails is what the source chain reports about a single outbound message.
type MessageDetails struct {
	Nonce          Nonce    `json:"nonce"`
	DispatchWeight uint64   `json:"dispatch_weight"`
	SizeBytes      uint32   `json:"size_bytes"`
	Reward         math.Int `json:"reward"`
}

type RuntimeVersion struct {
	SpecVersion        uint32 `json:"spec_version"`
	TransactionVersion uint32 `json:"transaction_version"`
}

// AuthoritySet is the set of validators allowed to sign finality votes.
type AuthoritySet struct {
	ID          uint64   `json:"id"`
	Authorities []string `json:"authorities"`
}

func (s AuthoritySet) Contains(authority string) bool {
	for _, a := range s.Authorities {
		if a == authority {
			return true
		}
	}
	return false
}

// Threshold is the number of votes that finalizes a header.
func (s AuthoritySet) Threshold() int {
	return len(s.Authorities)*2/3 + 1
}

// Vote is a single precommit of a finality round.
type Vote struct {
	Validator string   `json:"validator"`
	Round     uint64   `json:"round"`
	SetID     uint64   `json:"set_id"`
	Target    HeaderID `json:"target"`
	Signature []byte   `json:"signature"`
}

func (v Vote) Encode() []byte {
	e := newEncoder()
	e.writeString(v.Validator)
	e.writeUint64(v.Round)
	e.writeUint64(v.SetID)
	e.writeHeaderID(v.Target)
	e.writeBytes(v.Signature)
	return e.bytes()
}

// FinalityProof justifies the finality of one header. NextAuthoritySet is set
// when the header enacts an authority set change.
type FinalityProof struct {
	Header           HeaderID      `json:"header"`
	SetID            uint64        `json:"set_id"`
	Round            uint64        `json:"round"`
	Votes            []Vote        `json:"votes"`
	NextAuthoritySet *AuthoritySet `json:"next_authority_set,omitempty"`
}

func (p FinalityProof) IsMandatory() bool {
	return p.NextAuthoritySet != nil
}

func (p FinalityProof) Encode() []byte {
	e := newEncoder()
	e.writeHeaderID(p.Header)
	e.writeUint64(p.SetID)
	e.writeUint64(p.Round)
	e.writeUint64(uint64(len(p.Votes)))
	for _, v := range p.Votes {
		e.writeBytes(v.Encode())
	}
	if p.NextAuthoritySet != nil {
		e.writeUint64(p.NextAuthoritySet.ID)
		for _, a := range p.NextAuthoritySet.Authorities {
			e.writeString(a)
		}
	}
	return e.bytes()
}

// FinalityVerificationContext is what the target used to verify a synced header.
type FinalityVerificationContext struct {
	AuthoritySet AuthoritySet `json:"authority_set"`
}

// SyncedHeader is a source header recorded by the target together with the
// proof it was imported with.
type SyncedHeader struct {
	Header  HeaderID                    `json:"header"`
	Context FinalityVerificationContext `json:"context"`
	Proof   FinalityProof               `json:"proof"`
}

// EquivocationProof shows that Offender voted for two different headers in the same round.
type EquivocationProof struct {
	Offender string `json:"offender"`
	Round    uint64 `json:"round"`
	SetID    uint64 `json:"set_id"`
	First    Vote   `json:"first"`
	Second   Vote   `json:"second"`
}

// Key identifies the offence regardless of the order of the two votes.
func (p EquivocationProof) Key() string {
	return fmt.Sprintf("equivocation/%d/%d/%s", p.SetID, p.Round, p.Offender)
}

func (p EquivocationProof) Encode() []byte {
	e := newEncoder()
	e.writeString(p.Offender)
	e.writeUint64(p.Round)
	e.writeUint64(p.SetID)
	e.writeBytes(p.First.Encode())
	e.writeBytes(p.Second.Encode())
	return e.bytes()
}

type ParachainHead struct {
	ParaID       uint32   `json:"para_id"`
	Head         []byte   `json:"head"`
	AtRelayBlock HeaderID `json:"at_relay_block"`
}

func (h ParachainHead) Hash() cmtbytes.HexBytes {
	return tmhash.Sum(h.Head)
}

// UnrewardedRelayer is a relayer whose delivered messages have not been confirmed to the source yet.
type UnrewardedRelayer struct {
	Relayer  string       `json:"relayer"`
	Messages MessageRange `json:"messages"`
}

type UnrewardedRelayersState struct {
	LastDeliveredNonce Nonce               `json:"last_delivered_nonce"`
	Relayers           []UnrewardedRelayer `json:"relayers"`
}

func (s UnrewardedRelayersState) UnconfirmedMessages() uint64 {
	var total uint64
	for _, r := range s.Relayers {
		total += r.Messages.Len()
	}
	return total
}
