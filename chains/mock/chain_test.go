package mock

import (
	"context"
	"testing"

	"cosmossdk.io/math"
	"github.com/cockroachdb/errors"
	"github.com/cosmos/go-bip39"
	"github.com/hyperledger-labs/yui-bridge-relayer/core"
	"github.com/hyperledger-labs/yui-bridge-relayer/signer/hd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const lane = core.LaneID("00000000")

func testSigner(t *testing.T) hd.SignerConfig {
	entropy, err := bip39.NewEntropy(256)
	require.NoError(t, err)
	mnemonic, err := bip39.NewMnemonic(entropy)
	require.NoError(t, err)
	return hd.SignerConfig{Mnemonic: mnemonic}
}

func testChain(t *testing.T, cfg ChainConfig) *Chain {
	if cfg.Authorities == nil {
		cfg.Authorities = []string{"alice", "bob", "charlie"}
	}
	s, err := testSigner(t).Build()
	require.NoError(t, err)
	c, err := NewChain(cfg, s)
	require.NoError(t, err)
	return c
}

func linkedChains(t *testing.T) (*Chain, *Chain) {
	a := testChain(t, ChainConfig{ChainID: "a"})
	b := testChain(t, ChainConfig{ChainID: "b"})
	Link(a, b)
	return a, b
}

// importHeader submits the finality proof of header number of src to dst and includes it.
func importHeader(t *testing.T, src, dst *Chain, number uint64) {
	ctx := context.Background()
	_, proof, err := src.HeaderAndFinalityProof(ctx, number)
	require.NoError(t, err)
	handle, err := dst.SubmitTx(ctx, &core.SubmitFinalityProofCall{Proof: *proof})
	require.NoError(t, err)
	dst.ProduceBlock()
	status, err := dst.TxStatus(ctx, handle)
	require.NoError(t, err)
	require.NoError(t, status.ExecutionErr)
}

func TestFinalityDelay(t *testing.T) {
	ctx := context.Background()
	c := testChain(t, ChainConfig{ChainID: "delayed", FinalityDelay: 2})

	c.ProduceBlocks(5)
	best, err := c.BestBlockNumber(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 5, best)
	finalized, err := c.BestFinalizedHeaderID(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, finalized.Number)

	header, err := c.HeaderByNumber(ctx, 3)
	require.NoError(t, err)
	assert.True(t, header.Equal(finalized))

	_, _, err = c.HeaderAndFinalityProof(ctx, 4)
	assert.Error(t, err)
	_, err = c.HeaderByNumber(ctx, 6)
	assert.True(t, errors.Is(err, core.ErrUnknownHeader))
}

func TestMessagesVisibleFromNextBlock(t *testing.T) {
	ctx := context.Background()
	c := testChain(t, ChainConfig{ChainID: "messages"})

	assert.EqualValues(t, 1, c.SendMessage(lane, math.NewInt(5), 1, 10))
	assert.EqualValues(t, 2, c.SendMessage(lane, math.NewInt(5), 1, 10))

	r, err := c.UndeliveredMessageRange(ctx, lane, 0, core.HeaderID{})
	require.NoError(t, err)
	assert.True(t, r.IsEmpty())

	at := c.ProduceBlock()
	r, err = c.UndeliveredMessageRange(ctx, lane, 0, at)
	require.NoError(t, err)
	assert.Equal(t, core.NewMessageRange(1, 2), r)
	r, err = c.UndeliveredMessageRange(ctx, lane, 1, at)
	require.NoError(t, err)
	assert.Equal(t, core.NewMessageRange(2, 2), r)

	details, err := c.MessageDetails(ctx, lane, core.NewMessageRange(1, 2))
	require.NoError(t, err)
	require.Len(t, details, 2)
	assert.EqualValues(t, 2, details[1].Nonce)
	_, err = c.MessageDetails(ctx, lane, core.NewMessageRange(1, 3))
	assert.Error(t, err)
}

func TestSubmitFinalityProof(t *testing.T) {
	ctx := context.Background()
	a, b := linkedChains(t)
	a.ProduceBlocks(3)

	importHeader(t, a, b, 2)
	synced, err := b.SyncedHeaderNumber(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, synced)

	// not newer than the synced header
	_, proof, err := a.HeaderAndFinalityProof(ctx, 1)
	require.NoError(t, err)
	_, err = b.SubmitTx(ctx, &core.SubmitFinalityProofCall{Proof: *proof})
	assert.True(t, errors.Is(err, core.ErrStaleHeader))

	// not enough valid votes
	_, proof, err = a.HeaderAndFinalityProof(ctx, 3)
	require.NoError(t, err)
	forged := *proof
	forged.Votes = forged.Votes[:1]
	_, err = b.SubmitTx(ctx, &core.SubmitFinalityProofCall{Proof: forged})
	assert.True(t, errors.Is(err, core.ErrInvalidProof))

	forged = *proof
	forged.Votes = append([]core.Vote(nil), proof.Votes...)
	forged.Votes[0].Signature = []byte("bad")
	forged.Votes[1].Signature = []byte("bad")
	_, err = b.SubmitTx(ctx, &core.SubmitFinalityProofCall{Proof: forged})
	assert.True(t, errors.Is(err, core.ErrInvalidProof))
}

func TestMandatoryHeaderCannotBeSkipped(t *testing.T) {
	ctx := context.Background()
	a, b := linkedChains(t)
	a.ProduceBlock()
	a.ScheduleAuthorityChange([]string{"dave", "eve", "ferdie"})
	changed := a.ProduceBlock()
	a.ProduceBlock()

	mandatory, err := a.MandatoryHeadersInRange(ctx, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, []uint64{changed.Number}, mandatory)

	_, proof, err := a.HeaderAndFinalityProof(ctx, 3)
	require.NoError(t, err)
	_, err = b.SubmitTx(ctx, &core.SubmitFinalityProofCall{Proof: *proof})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrAuthoritySetMismatch) || errors.Is(err, core.ErrInvalidProof))

	importHeader(t, a, b, changed.Number)
	importHeader(t, a, b, 3)
	headers, err := b.SyncedHeadersWithContext(ctx, 3)
	require.NoError(t, err)
	require.Len(t, headers, 1)
	assert.EqualValues(t, 1, headers[0].Context.AuthoritySet.ID)
}

func TestInsufficientBalance(t *testing.T) {
	ctx := context.Background()
	a := testChain(t, ChainConfig{ChainID: "poor-a"})
	b := testChain(t, ChainConfig{ChainID: "poor-b", TxFeeBase: "10", InitialBalance: "5"})
	Link(a, b)
	a.ProduceBlock()

	_, proof, err := a.HeaderAndFinalityProof(ctx, 1)
	require.NoError(t, err)
	_, err = b.SubmitTx(ctx, &core.SubmitFinalityProofCall{Proof: *proof})
	assert.True(t, errors.Is(err, core.ErrInsufficientBalance))

	b.SetBalance(b.Account(), math.NewInt(10))
	importHeader(t, a, b, 1)
	balance, err := b.AccountBalance(ctx, b.Account())
	require.NoError(t, err)
	assert.True(t, balance.IsZero(), balance.String())
}

func TestFaultInjection(t *testing.T) {
	ctx := context.Background()
	c := testChain(t, ChainConfig{ChainID: "faulty"})
	c.FailNextCalls(2)

	_, err := c.BestBlockNumber(ctx)
	assert.True(t, c.IsConnectionError(err))
	_, err = c.RuntimeVersion(ctx)
	assert.True(t, c.IsConnectionError(err))
	_, err = c.BestBlockNumber(ctx)
	assert.NoError(t, err)

	c.SetSpecVersion(9)
	v, err := c.RuntimeVersion(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 9, v.SpecVersion)
}

func TestDroppedTransactionStaysUnknown(t *testing.T) {
	ctx := context.Background()
	a, b := linkedChains(t)
	a.ProduceBlock()
	_, proof, err := a.HeaderAndFinalityProof(ctx, 1)
	require.NoError(t, err)

	b.DropNextTx(1)
	handle, err := b.SubmitTx(ctx, &core.SubmitFinalityProofCall{Proof: *proof})
	require.NoError(t, err)
	assert.Zero(t, b.PendingTxs())
	b.ProduceBlock()
	status, err := b.TxStatus(ctx, handle)
	require.NoError(t, err)
	assert.Equal(t, core.TxUnknown, status.Status)

	handle, err = b.SubmitTx(ctx, &core.SubmitFinalityProofCall{Proof: *proof})
	require.NoError(t, err)
	assert.Equal(t, 1, b.PendingTxs())
	status, err = b.TxStatus(ctx, handle)
	require.NoError(t, err)
	assert.Equal(t, core.TxInPool, status.Status)
	b.ProduceBlock()
	status, err = b.TxStatus(ctx, handle)
	require.NoError(t, err)
	assert.Equal(t, core.TxIncluded, status.Status)
	assert.True(t, status.Finalized)
}

func TestReportEquivocation(t *testing.T) {
	ctx := context.Background()
	c := testChain(t, ChainConfig{ChainID: "offence"})
	c.ProduceBlock()
	target := core.NewHeaderID(1, []byte("a"))
	fork := core.NewHeaderID(1, []byte("b"))
	proof := core.EquivocationProof{
		Offender: "bob",
		Round:    1,
		SetID:    0,
		First:    NewVote("bob", 1, 0, target),
		Second:   NewVote("bob", 1, 0, fork),
	}

	_, err := c.SubmitTx(ctx, &core.ReportEquivocationCall{Proof: proof})
	require.NoError(t, err)
	c.ProduceBlock()
	assert.True(t, c.IsReported(proof.Key()))

	_, err = c.SubmitTx(ctx, &core.ReportEquivocationCall{Proof: proof})
	assert.True(t, errors.Is(err, core.ErrEquivocationAlreadyReported))

	same := proof
	same.Offender, same.First, same.Second = "alice", NewVote("alice", 1, 0, target), NewVote("alice", 1, 0, target)
	_, err = c.SubmitTx(ctx, &core.ReportEquivocationCall{Proof: same})
	assert.True(t, errors.Is(err, core.ErrInvalidProof))

	outsider := proof
	outsider.Offender, outsider.First, outsider.Second = "mallory", NewVote("mallory", 1, 0, target), NewVote("mallory", 1, 0, fork)
	_, err = c.SubmitTx(ctx, &core.ReportEquivocationCall{Proof: outsider})
	assert.True(t, errors.Is(err, core.ErrInvalidProof))
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ChainConfig
		wantErr bool
	}{
		{"minimal", ChainConfig{ChainID: "x", Authorities: []string{"alice"}}, false},
		{"no chain id", ChainConfig{Authorities: []string{"alice"}}, true},
		{"no authorities", ChainConfig{ChainID: "x"}, true},
		{"bad block interval", ChainConfig{ChainID: "x", Authorities: []string{"alice"}, BlockInterval: "fast"}, true},
		{"negative fee", ChainConfig{ChainID: "x", Authorities: []string{"alice"}, TxFeeBase: "-1"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
	assert.Equal(t, defaultBlockInterval, ChainConfig{}.blockInterval())
}

func TestBuildLinksCounterparties(t *testing.T) {
	ctx := context.Background()
	signer := testSigner(t)
	bcA, err := ChainConfig{ChainID: "linked-a", Counterparty: "linked-b", Authorities: []string{"alice"}, Signer: signer}.Build()
	require.NoError(t, err)
	bcB, err := ChainConfig{ChainID: "linked-b", Counterparty: "linked-a", Authorities: []string{"bob"}, Signer: signer}.Build()
	require.NoError(t, err)
	a, b := bcA.(*Chain), bcB.(*Chain)

	a.ProduceBlock()
	importHeader(t, a, b, 1)
	synced, err := b.SyncedHeaderNumber(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, synced)
}
