package hd

import (
	"context"
	"strings"
	"testing"

	"github.com/cosmos/go-bip39"
	"github.com/hyperledger-labs/yui-bridge-relayer/signer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMnemonic(t *testing.T) string {
	entropy, err := bip39.NewEntropy(256)
	require.NoError(t, err)
	mnemonic, err := bip39.NewMnemonic(entropy)
	require.NoError(t, err)
	return mnemonic
}

func TestSignAndVerify(t *testing.T) {
	ctx := context.Background()
	s, err := NewSigner(newMnemonic(t), "bridge")
	require.NoError(t, err)

	digest := []byte("digest of a call")
	sig, err := s.Sign(ctx, digest)
	require.NoError(t, err)
	pub, err := s.GetPublicKey(ctx)
	require.NoError(t, err)

	assert.True(t, signer.Verify(pub, digest, sig))
	assert.False(t, signer.Verify(pub, []byte("another digest"), sig))
	assert.True(t, strings.HasPrefix(s.Address(), "bridge1"))
}

func TestSignerIsDeterministic(t *testing.T) {
	mnemonic := newMnemonic(t)
	s1, err := NewSigner(mnemonic, "bridge")
	require.NoError(t, err)
	s2, err := NewSigner(mnemonic, "bridge")
	require.NoError(t, err)
	assert.Equal(t, s1.Address(), s2.Address())
}

func TestInvalidMnemonic(t *testing.T) {
	_, err := NewSigner("not a valid mnemonic", "bridge")
	assert.Error(t, err)
}

func TestSignerConfig(t *testing.T) {
	mnemonic := newMnemonic(t)
	t.Setenv("UBR_TEST_MNEMONIC", mnemonic)

	s, err := SignerConfig{MnemonicEnv: "UBR_TEST_MNEMONIC"}.Build()
	require.NoError(t, err)
	inline, err := SignerConfig{Mnemonic: mnemonic}.Build()
	require.NoError(t, err)
	assert.Equal(t, inline.Address(), s.Address())

	assert.Error(t, SignerConfig{}.Validate())
	assert.Error(t, SignerConfig{Mnemonic: mnemonic, MnemonicEnv: "X"}.Validate())
	_, err = SignerConfig{MnemonicEnv: "UBR_TEST_UNSET_MNEMONIC"}.Build()
	assert.Error(t, err)
}
