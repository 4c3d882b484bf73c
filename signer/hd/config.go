package hd

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/hyperledger-labs/yui-bridge-relayer/signer"
)

const DefaultBech32Prefix = "bridge"

var _ signer.SignerConfig = (*SignerConfig)(nil)

// SignerConfig reads the mnemonic either inline or from the environment variable MnemonicEnv.
type SignerConfig struct {
	Mnemonic     string `json:"mnemonic,omitempty" yaml:"mnemonic,omitempty"`
	MnemonicEnv  string `json:"mnemonic_env,omitempty" yaml:"mnemonic_env,omitempty"`
	Bech32Prefix string `json:"bech32_prefix,omitempty" yaml:"bech32_prefix,omitempty"`
}

func (c SignerConfig) Validate() error {
	if c.Mnemonic == "" && c.MnemonicEnv == "" {
		return errors.New("either mnemonic or mnemonic_env must be set")
	}
	if c.Mnemonic != "" && c.MnemonicEnv != "" {
		return errors.New("mnemonic and mnemonic_env are exclusive")
	}
	return nil
}

func (c SignerConfig) Build() (signer.Signer, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	mnemonic := c.Mnemonic
	if c.MnemonicEnv != "" {
		mnemonic = os.Getenv(c.MnemonicEnv)
		if mnemonic == "" {
			return nil, errors.Newf("environment variable %s is empty", c.MnemonicEnv)
		}
	}
	prefix := c.Bech32Prefix
	if prefix == "" {
		prefix = DefaultBech32Prefix
	}
	return NewSigner(mnemonic, prefix)
}
