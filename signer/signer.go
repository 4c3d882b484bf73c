package signer

import (
	"context"

	"github.com/cometbft/cometbft/crypto/ed25519"
)

type SignerConfig interface {
	Build() (Signer, error)
	Validate() error
}

// Signer signs the calls a relayer account submits.
type Signer interface {
	Sign(ctx context.Context, digest []byte) (signature []byte, err error)
	GetPublicKey(ctx context.Context) ([]byte, error)
	// Address returns the bech32 address of the account.
	Address() string
}

// Verify reports whether signature is the ed25519 signature of digest by pubKey.
func Verify(pubKey, digest, signature []byte) bool {
	if len(pubKey) != ed25519.PubKeySize {
		return false
	}
	return ed25519.PubKey(pubKey).VerifySignature(digest, signature)
}
