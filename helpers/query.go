package helpers

import (
	"context"

	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/hyperledger-labs/yui-bridge-relayer/core"
)

// QueryBalance is a helper function for query balance
func QueryBalance(ctx context.Context, chain core.Chain, account, denom string) (sdk.Coin, error) {
	if err := sdk.ValidateDenom(denom); err != nil {
		return sdk.Coin{}, err
	}
	if account == "" {
		account = chain.Account()
	}
	amount, err := chain.AccountBalance(ctx, account)
	if err != nil {
		return sdk.Coin{}, err
	}
	return sdk.NewCoin(denom, amount), nil
}

// LaneSummary is the state of a lane as seen by both of its ends.
type LaneSummary struct {
	Lane        core.LaneID `json:"lane" yaml:"lane"`
	Generated   core.Nonce  `json:"generated" yaml:"generated"`
	Received    core.Nonce  `json:"received" yaml:"received"`
	Confirmed   core.Nonce  `json:"confirmed" yaml:"confirmed"`
	Undelivered string      `json:"undelivered" yaml:"undelivered"`
	Unrewarded  uint64      `json:"unrewarded" yaml:"unrewarded"`
}

// QueryLaneSummary reads the nonces of the lane at the best blocks of src and dst.
func QueryLaneSummary(ctx context.Context, src core.SourceClient, dst core.TargetClient, lane core.LaneID) (LaneSummary, error) {
	received, err := dst.LatestReceivedNonce(ctx, lane)
	if err != nil {
		return LaneSummary{}, err
	}
	undelivered, err := src.UndeliveredMessageRange(ctx, lane, received, core.HeaderID{})
	if err != nil {
		return LaneSummary{}, err
	}
	confirmed, err := src.LatestConfirmedNonce(ctx, lane, core.HeaderID{})
	if err != nil {
		return LaneSummary{}, err
	}
	relayers, err := dst.UnrewardedRelayers(ctx, lane, core.HeaderID{})
	if err != nil {
		return LaneSummary{}, err
	}

	generated := received
	if !undelivered.IsEmpty() {
		generated = undelivered.End
	}
	return LaneSummary{
		Lane:        lane,
		Generated:   generated,
		Received:    received,
		Confirmed:   confirmed,
		Undelivered: undelivered.String(),
		Unrewarded:  relayers.UnconfirmedMessages(),
	}, nil
}
