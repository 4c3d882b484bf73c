package mock

import (
	"context"
	"encoding/binary"
	"sync"
	"time"

	"cosmossdk.io/math"
	"github.com/cockroachdb/errors"
	"github.com/cometbft/cometbft/crypto/tmhash"
	"github.com/hyperledger-labs/yui-bridge-relayer/core"
	"github.com/hyperledger-labs/yui-bridge-relayer/log"
	"github.com/hyperledger-labs/yui-bridge-relayer/signer"
)

// ErrNodeUnavailable is returned by a chain whose node cannot be reached.
var ErrNodeUnavailable = errors.New("mock node unavailable")

// Chain is an in-memory ledger implementing both client roles. Transactions
// are included in the block produced after their submission.
type Chain struct {
	config ChainConfig
	signer signer.Signer

	mu sync.Mutex

	// blocks are immutable once produced. blocksMu is never held while acquiring another lock.
	blocksMu  sync.RWMutex
	blocks    []*block
	finalized uint64

	runtime      core.RuntimeVersion
	balances     map[string]math.Int
	authorities  core.AuthoritySet
	setHistory   map[uint64]core.AuthoritySet
	pendingSet   *core.AuthoritySet
	proofs       map[uint64][]core.FinalityProof
	paraHeads    map[uint32][]byte
	outbound     map[core.LaneID]*outboundLane
	inbound      map[core.LaneID]*inboundLane
	reported     map[string]struct{}
	txs          map[string]*tx
	pool         []*tx
	txSeq        uint64
	dropNext     int
	failNext     int
	counterparty *Chain

	// light client of the counterparty
	synced          []core.SyncedHeader
	knownSet        core.AuthoritySet
	syncedParaHeads map[uint32]core.ParachainHead
}

var _ core.BridgeChain = (*Chain)(nil)

type block struct {
	header    core.HeaderID
	setID     uint64
	mandatory *core.AuthoritySet
	outbound  map[core.LaneID]outboundState
	inbound   map[core.LaneID]core.UnrewardedRelayersState
	paraHeads map[uint32][]byte
}

type outboundState struct {
	generated core.Nonce
	confirmed core.Nonce
}

type message struct {
	details core.MessageDetails
}

type outboundLane struct {
	messages  []message
	confirmed core.Nonce
}

func (l *outboundLane) generated() core.Nonce {
	return core.Nonce(len(l.messages))
}

type inboundLane struct {
	received core.Nonce
	relayers []core.UnrewardedRelayer
}

func (l *inboundLane) state() core.UnrewardedRelayersState {
	return core.UnrewardedRelayersState{
		LastDeliveredNonce: l.received,
		Relayers:           append([]core.UnrewardedRelayer(nil), l.relayers...),
	}
}

type tx struct {
	handle    core.TxHandle
	call      core.Call
	sender    string
	included  bool
	block     core.HeaderID
	execErr   error
	signature []byte
}

// NewChain creates a chain at its genesis block, signing with s.
func NewChain(cfg ChainConfig, s signer.Signer) (*Chain, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	balance, err := cfg.initialBalance()
	if err != nil {
		return nil, err
	}
	set := core.AuthoritySet{ID: 0, Authorities: append([]string(nil), cfg.Authorities...)}
	c := &Chain{
		config:          cfg,
		signer:          s,
		runtime:         core.RuntimeVersion{SpecVersion: cfg.SpecVersion, TransactionVersion: 1},
		balances:        map[string]math.Int{s.Address(): balance},
		authorities:     set,
		setHistory:      map[uint64]core.AuthoritySet{set.ID: set},
		proofs:          make(map[uint64][]core.FinalityProof),
		paraHeads:       make(map[uint32][]byte),
		outbound:        make(map[core.LaneID]*outboundLane),
		inbound:         make(map[core.LaneID]*inboundLane),
		reported:        make(map[string]struct{}),
		txs:             make(map[string]*tx),
		syncedParaHeads: make(map[uint32]core.ParachainHead),
	}
	c.blocks = []*block{c.snapshot(0)}
	return c, nil
}

// Link makes a and b the counterparty of each other: each one runs a light
// client of the other, initialized with the other's current authority set.
func Link(a, b *Chain) {
	a.mu.Lock()
	b.mu.Lock()
	defer a.mu.Unlock()
	defer b.mu.Unlock()
	a.counterparty, b.counterparty = b, a
	a.knownSet, b.knownSet = b.authorities, a.authorities
}

func (c *Chain) logger() *log.RelayLogger {
	return log.GetLogger().WithModule("mock").With("chain_id", c.config.ChainID)
}

func (c *Chain) ChainID() string {
	return c.config.ChainID
}

func (c *Chain) Config() ChainConfig {
	return c.config
}

func (c *Chain) Account() string {
	return c.signer.Address()
}

func (c *Chain) IsConnectionError(err error) bool {
	return errors.Is(err, ErrNodeUnavailable)
}

// Run produces a block every block interval until ctx is done.
func (c *Chain) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.config.blockInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.ProduceBlock()
		}
	}
}

// ProduceBlock includes the pending transactions in a new block and returns its header.
func (c *Chain) ProduceBlock() core.HeaderID {
	c.mu.Lock()
	defer c.mu.Unlock()

	number := c.best().header.Number + 1
	id := core.NewHeaderID(number, blockHash(c.config.ChainID, number, c.best().header.Hash))

	pool := c.pool
	c.pool = nil
	for _, t := range pool {
		t.included = true
		t.block = id
		t.execErr = c.execute(t)
		if t.execErr != nil {
			c.logger().Debug("transaction failed", "tx", t.handle.String(), "error", t.execErr.Error())
		}
	}

	// votes of the enacting block come from the outgoing set
	setID := c.authorities.ID
	var mandatory *core.AuthoritySet
	if c.pendingSet != nil {
		mandatory = c.pendingSet
		c.authorities = *c.pendingSet
		c.setHistory[c.authorities.ID] = c.authorities
		c.pendingSet = nil
	}

	b := c.snapshot(number)
	b.header = id
	b.setID = setID
	b.mandatory = mandatory
	c.proofs[number] = append([]core.FinalityProof{c.canonicalProof(b)}, c.proofs[number]...)

	c.blocksMu.Lock()
	c.blocks = append(c.blocks, b)
	if number >= c.config.FinalityDelay {
		c.finalized = number - c.config.FinalityDelay
	}
	c.blocksMu.Unlock()
	return id
}

// ProduceBlocks produces n blocks and returns the last header.
func (c *Chain) ProduceBlocks(n int) core.HeaderID {
	var id core.HeaderID
	for i := 0; i < n; i++ {
		id = c.ProduceBlock()
	}
	return id
}

// snapshot captures the state that queries at a block observe. c.mu must be held.
func (c *Chain) snapshot(number uint64) *block {
	b := &block{
		header:    core.NewHeaderID(number, blockHash(c.config.ChainID, number, nil)),
		setID:     c.authorities.ID,
		outbound:  make(map[core.LaneID]outboundState, len(c.outbound)),
		inbound:   make(map[core.LaneID]core.UnrewardedRelayersState, len(c.inbound)),
		paraHeads: make(map[uint32][]byte, len(c.paraHeads)),
	}
	for lane, l := range c.outbound {
		b.outbound[lane] = outboundState{generated: l.generated(), confirmed: l.confirmed}
	}
	for lane, l := range c.inbound {
		b.inbound[lane] = l.state()
	}
	for id, head := range c.paraHeads {
		b.paraHeads[id] = append([]byte(nil), head...)
	}
	return b
}

func (c *Chain) best() *block {
	return c.blocks[len(c.blocks)-1]
}

// blockAt returns the canonical block identified by id. It only takes blocksMu
// so that the counterparty may call it while holding its own lock.
func (c *Chain) blockAt(id core.HeaderID) (*block, error) {
	c.blocksMu.RLock()
	defer c.blocksMu.RUnlock()
	if id.Number >= uint64(len(c.blocks)) {
		return nil, errors.Wrapf(core.ErrUnknownHeader, "block %s of %s not produced yet", id, c.config.ChainID)
	}
	b := c.blocks[id.Number]
	if len(id.Hash) > 0 && !b.header.Equal(id) {
		return nil, errors.Wrapf(core.ErrUnknownHeader, "block %s is not canonical on %s", id, c.config.ChainID)
	}
	return b, nil
}

// blockOrBest returns the best block for a zero header.
func (c *Chain) blockOrBest(id core.HeaderID) (*block, error) {
	if id.IsZero() {
		c.blocksMu.RLock()
		defer c.blocksMu.RUnlock()
		return c.best(), nil
	}
	return c.blockAt(id)
}

func (c *Chain) finalizedNumber() uint64 {
	c.blocksMu.RLock()
	defer c.blocksMu.RUnlock()
	return c.finalized
}

// fault returns a connection error while injected failures remain. c.mu must be held.
func (c *Chain) fault() error {
	if c.failNext > 0 {
		c.failNext--
		return errors.Wrapf(ErrNodeUnavailable, "%s", c.config.ChainID)
	}
	return nil
}

func blockHash(chainID string, number uint64, parent []byte) []byte {
	bz := binary.BigEndian.AppendUint64([]byte(chainID), number)
	return tmhash.Sum(append(bz, parent...))
}

// Test knobs.

// SendMessage queues a message on the outbound lane and returns its nonce.
// It is visible to queries from the next block.
func (c *Chain) SendMessage(lane core.LaneID, reward math.Int, weight uint64, size uint32) core.Nonce {
	c.mu.Lock()
	defer c.mu.Unlock()
	l := c.outboundLane(lane)
	nonce := l.generated() + 1
	l.messages = append(l.messages, message{details: core.MessageDetails{
		Nonce:          nonce,
		DispatchWeight: weight,
		SizeBytes:      size,
		Reward:         reward,
	}})
	return nonce
}

// DropNextTx makes the next n submitted transactions vanish from the pool.
func (c *Chain) DropNextTx(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dropNext = n
}

// FailNextCalls makes the next n client calls fail with a connection error.
func (c *Chain) FailNextCalls(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failNext = n
}

func (c *Chain) SetSpecVersion(v uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.runtime.SpecVersion = v
}

func (c *Chain) SetBalance(account string, amount math.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.balances[account] = amount
}

// SetParachainHead records the head of a parachain from the next block.
func (c *Chain) SetParachainHead(paraID uint32, head []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paraHeads[paraID] = append([]byte(nil), head...)
}

// ScheduleAuthorityChange makes the next block enact a new authority set.
func (c *Chain) ScheduleAuthorityChange(authorities []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pendingSet = &core.AuthoritySet{ID: c.authorities.ID + 1, Authorities: append([]string(nil), authorities...)}
}

// InjectFinalityProof records an extra finality proof, such as one signed on a fork.
func (c *Chain) InjectFinalityProof(proof core.FinalityProof) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.proofs[proof.Header.Number] = append(c.proofs[proof.Header.Number], proof)
}

// IsReported reports whether the equivocation was punished on this chain.
func (c *Chain) IsReported(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.reported[key]
	return ok
}

// PendingTxs returns the number of transactions waiting for the next block.
func (c *Chain) PendingTxs() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pool)
}

func (c *Chain) outboundLane(lane core.LaneID) *outboundLane {
	l, ok := c.outbound[lane]
	if !ok {
		l = &outboundLane{}
		c.outbound[lane] = l
	}
	return l
}

func (c *Chain) inboundLane(lane core.LaneID) *inboundLane {
	l, ok := c.inbound[lane]
	if !ok {
		l = &inboundLane{}
		c.inbound[lane] = l
	}
	return l
}
