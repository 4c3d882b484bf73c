package hd

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/cometbft/cometbft/crypto/ed25519"
	"github.com/cosmos/cosmos-sdk/types/bech32"
	"github.com/cosmos/go-bip39"
	"github.com/hyperledger-labs/yui-bridge-relayer/signer"
)

// Signer holds an ed25519 key derived from a BIP-39 mnemonic.
type Signer struct {
	key     ed25519.PrivKey
	address string
}

var _ signer.Signer = (*Signer)(nil)

func NewSigner(mnemonic, bech32Prefix string) (*Signer, error) {
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, "")
	if err != nil {
		return nil, errors.Wrap(err, "invalid mnemonic")
	}
	key := ed25519.GenPrivKeyFromSecret(seed)
	address, err := bech32.ConvertAndEncode(bech32Prefix, key.PubKey().Address())
	if err != nil {
		return nil, errors.Wrapf(err, "failed to encode address with prefix %q", bech32Prefix)
	}
	return &Signer{key: key, address: address}, nil
}

func (s *Signer) Sign(_ context.Context, digest []byte) ([]byte, error) {
	return s.key.Sign(digest)
}

func (s *Signer) GetPublicKey(_ context.Context) ([]byte, error) {
	return s.key.PubKey().Bytes(), nil
}

func (s *Signer) Address() string {
	return s.address
}
