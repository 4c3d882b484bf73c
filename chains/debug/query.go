package debug

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"cosmossdk.io/math"
	"github.com/cockroachdb/errors"
	"github.com/cometbft/cometbft/crypto/tmhash"
	"github.com/hyperledger-labs/yui-bridge-relayer/core"
	"github.com/hyperledger-labs/yui-bridge-relayer/log"
)

func envBool(chain *Chain, prefix string) bool {
	env := fmt.Sprintf("%s_%s", prefix, chain.ChainID())
	val, ok := os.LookupEnv(env)
	if !ok {
		return false
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		log.GetLogger().WithModule("debug").Warn("malformed debug variable", "env", env, "value", val)
		return false
	}
	return b
}

func debugFakeConnectionFailure(chain *Chain) error {
	if envBool(chain, "DEBUG_RELAYER_CONNECTION_FAILURE") {
		return errors.Wrapf(ErrFakeConnection, "chain=%s", chain.ChainID())
	}
	return nil
}

func (c *Chain) BestFinalizedHeaderID(ctx context.Context) (core.HeaderID, error) {
	if err := debugFakeConnectionFailure(c); err != nil {
		return core.HeaderID{}, err
	}
	return c.BridgeChain.BestFinalizedHeaderID(ctx)
}

func (c *Chain) HeaderByNumber(ctx context.Context, number uint64) (core.HeaderID, error) {
	if err := debugFakeConnectionFailure(c); err != nil {
		return core.HeaderID{}, err
	}
	return c.BridgeChain.HeaderByNumber(ctx, number)
}

func (c *Chain) SyncedHeaderNumber(ctx context.Context) (uint64, error) {
	if err := debugFakeConnectionFailure(c); err != nil {
		return 0, err
	}
	return c.BridgeChain.SyncedHeaderNumber(ctx)
}

func (c *Chain) LatestReceivedNonce(ctx context.Context, lane core.LaneID) (core.Nonce, error) {
	if err := debugFakeConnectionFailure(c); err != nil {
		return 0, err
	}
	return c.BridgeChain.LatestReceivedNonce(ctx, lane)
}

func (c *Chain) LatestConfirmedNonce(ctx context.Context, lane core.LaneID, at core.HeaderID) (core.Nonce, error) {
	if err := debugFakeConnectionFailure(c); err != nil {
		return 0, err
	}
	return c.BridgeChain.LatestConfirmedNonce(ctx, lane, at)
}

func (c *Chain) TxStatus(ctx context.Context, handle core.TxHandle) (core.TxInclusion, error) {
	if err := debugFakeConnectionFailure(c); err != nil {
		return core.TxInclusion{}, err
	}
	return c.BridgeChain.TxStatus(ctx, handle)
}

func (c *Chain) AccountBalance(ctx context.Context, account string) (math.Int, error) {
	if err := debugFakeConnectionFailure(c); err != nil {
		return math.Int{}, err
	}
	return c.BridgeChain.AccountBalance(ctx, account)
}

// RuntimeVersion reports DEBUG_RELAYER_SPEC_VERSION_<chain-id> as the spec version when it is set.
func (c *Chain) RuntimeVersion(ctx context.Context) (core.RuntimeVersion, error) {
	if err := debugFakeConnectionFailure(c); err != nil {
		return core.RuntimeVersion{}, err
	}
	v, err := c.BridgeChain.RuntimeVersion(ctx)
	if err != nil {
		return v, err
	}
	env := fmt.Sprintf("DEBUG_RELAYER_SPEC_VERSION_%s", c.ChainID())
	if val, ok := os.LookupEnv(env); ok {
		spec, err := strconv.ParseUint(val, 10, 32)
		if err != nil {
			log.GetLogger().WithModule("debug").Warn("malformed debug variable", "env", env, "value", val)
			return v, nil
		}
		v.SpecVersion = uint32(spec)
	}
	return v, nil
}

// SubmitTx returns a handle of a transaction that never reaches the chain while
// DEBUG_RELAYER_DROP_TX_<chain-id> is true.
func (c *Chain) SubmitTx(ctx context.Context, call core.Call) (core.TxHandle, error) {
	if err := debugFakeConnectionFailure(c); err != nil {
		return core.TxHandle{}, err
	}
	if envBool(c, "DEBUG_RELAYER_DROP_TX") {
		handle := core.TxHandle{
			ChainID: c.ChainID(),
			Hash:    tmhash.Sum(append([]byte("dropped/"), call.Encode()...)),
			Call:    call.CallKind(),
		}
		log.GetLogger().WithModule("debug").InfoContext(ctx, "dropping transaction", "tx", handle.String())
		return handle, nil
	}
	return c.BridgeChain.SubmitTx(ctx, call)
}
