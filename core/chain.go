package core

//go:generate mockgen -destination=mock.go -package=core -self_package=github.com/hyperledger-labs/yui-bridge-relayer/core . GuardedChain,Pipeline

import (
	"context"

	"cosmossdk.io/math"
)

// Chain is the part of a chain client shared by every relay loop.
type Chain interface {
	// ChainID returns ID of the chain
	ChainID() string

	// Account returns the address of the account that signs submitted transactions.
	Account() string

	// IsConnectionError reports whether err is a transient failure talking to the node.
	IsConnectionError(err error) bool

	// BestBlockNumber returns the number of the best (possibly unfinalized) block.
	BestBlockNumber(ctx context.Context) (uint64, error)

	// BestFinalizedHeaderID returns the latest finalized header.
	BestFinalizedHeaderID(ctx context.Context) (HeaderID, error)

	// HeaderByNumber returns the header of the canonical block with the given number.
	HeaderByNumber(ctx context.Context, number uint64) (HeaderID, error)

	// SyncedHeaderNumber returns the number of the best counterparty header known to
	// the light client this chain runs.
	SyncedHeaderNumber(ctx context.Context) (uint64, error)

	// RuntimeVersion returns the version of the runtime at the best block.
	RuntimeVersion(ctx context.Context) (RuntimeVersion, error)

	// AccountBalance returns the free balance of the account at the best block.
	AccountBalance(ctx context.Context, account string) (math.Int, error)

	// SubmitTx signs and submits a transaction carrying call.
	SubmitTx(ctx context.Context, call Call) (TxHandle, error)

	// TxStatus returns the chain's view of a submitted transaction.
	TxStatus(ctx context.Context, handle TxHandle) (TxInclusion, error)
}

// SourceClient is the client of the chain headers, messages and proofs are read from.
type SourceClient interface {
	Chain

	// HeaderAndFinalityProof returns the finalized header with the given number and its proof.
	HeaderAndFinalityProof(ctx context.Context, number uint64) (HeaderID, *FinalityProof, error)

	// MandatoryHeadersInRange returns the numbers of the finalized headers in [from, to]
	// that enact an authority set change.
	MandatoryHeadersInRange(ctx context.Context, from, to uint64) ([]uint64, error)

	// UndeliveredMessageRange returns the messages of the outbound lane generated as of the
	// header at and not received by the target yet, given the target's latest received nonce.
	UndeliveredMessageRange(ctx context.Context, lane LaneID, latestReceived Nonce, at HeaderID) (MessageRange, error)

	// LatestConfirmedNonce returns the latest nonce whose delivery was confirmed, as of the header at.
	// A zero header means the best block.
	LatestConfirmedNonce(ctx context.Context, lane LaneID, at HeaderID) (Nonce, error)

	// MessageDetails returns the details of every message of the range in nonce order.
	MessageDetails(ctx context.Context, lane LaneID, messages MessageRange) ([]MessageDetails, error)

	// GenerateMessageProof proves the messages of the range as of the header at.
	GenerateMessageProof(ctx context.Context, lane LaneID, messages MessageRange, at HeaderID) ([]byte, error)

	// FinalityProofsInPeriod returns every finality proof observed for headers in [from, to].
	FinalityProofsInPeriod(ctx context.Context, from, to uint64) ([]FinalityProof, error)

	// ParachainHead returns the head of the parachain recorded at the relay chain header at.
	ParachainHead(ctx context.Context, at HeaderID, paraID uint32) (*ParachainHead, error)

	// ParachainHeadProof proves the parachain head as of the relay chain header at.
	ParachainHeadProof(ctx context.Context, at HeaderID, paraID uint32) ([]byte, error)
}

// TargetClient is the client of the chain proofs are submitted to.
type TargetClient interface {
	Chain

	// LatestReceivedNonce returns the latest nonce received by the inbound lane at the best block.
	LatestReceivedNonce(ctx context.Context, lane LaneID) (Nonce, error)

	// UnrewardedRelayers returns the inbound lane state as of the header at.
	UnrewardedRelayers(ctx context.Context, lane LaneID, at HeaderID) (UnrewardedRelayersState, error)

	// GenerateReceivingProof proves the inbound lane state as of the header at.
	GenerateReceivingProof(ctx context.Context, lane LaneID, at HeaderID) ([]byte, error)

	// EstimateDeliveryCosts returns, for every prefix of details, the cost of delivering
	// that prefix in a single transaction, in source fee units.
	EstimateDeliveryCosts(ctx context.Context, lane LaneID, details []MessageDetails) ([]math.Int, error)

	// SyncedHeadersWithContext returns the source headers the target imported whose
	// number is at least from, with the context they were verified with.
	SyncedHeadersWithContext(ctx context.Context, from uint64) ([]SyncedHeader, error)

	// SyncedParachainHead returns the head of the parachain recorded by the target, or nil.
	SyncedParachainHead(ctx context.Context, paraID uint32) (*ParachainHead, error)
}

// BridgeChain is a chain client that can play both roles.
type BridgeChain interface {
	SourceClient
	TargetClient
}
