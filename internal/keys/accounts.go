package keys

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/ChainSafe/go-schnorrkel"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// GenerateNodeKeys produces the sr/ed/ec account triple for a node's seed.
// Each scheme's keypair is derived deterministically from sha256(scheme +
// ":" + seed) so two runs with the same seed always agree with each other, but
// this is not the standard SURI/hard-junction derivation `subkey` and
// polkadot.js use for seeds like "//Alice" — see the session-key derivation
// entry in DESIGN.md's Open Question decisions.
func GenerateNodeKeys(seed string) (map[Scheme]Account, error) {
	accounts := make(map[Scheme]Account, 3)

	sr, err := deriveSr25519(seed)
	if err != nil {
		return nil, fmt.Errorf("deriving sr25519 account: %w", err)
	}
	accounts[Sr] = sr

	ed, err := deriveEd25519(seed)
	if err != nil {
		return nil, fmt.Errorf("deriving ed25519 account: %w", err)
	}
	accounts[Ed] = ed

	ec, err := deriveEcdsa(seed)
	if err != nil {
		return nil, fmt.Errorf("deriving ecdsa account: %w", err)
	}
	accounts[Ec] = ec

	return accounts, nil
}

func schemeSeed(seed string, scheme Scheme) [32]byte {
	return sha256.Sum256([]byte(string(scheme) + ":" + seed))
}

func deriveSr25519(seed string) (Account, error) {
	raw := schemeSeed(seed, Sr)
	msk := schnorrkel.NewMiniSecretKey(raw)
	secret := msk.ExpandEd25519()
	pub := msk.Public()

	pubBytes := pub.Encode()
	secretBytes := secret.Encode()

	return Account{
		Address:    ss58Encode(pubBytes),
		PublicKey:  hex.EncodeToString(pubBytes[:]),
		PrivateKey: hex.EncodeToString(secretBytes[:]),
	}, nil
}

func deriveEd25519(seed string) (Account, error) {
	raw := schemeSeed(seed, Ed)
	priv := ed25519.NewKeyFromSeed(raw[:])
	pub := priv.Public().(ed25519.PublicKey)

	var pubArr [32]byte
	copy(pubArr[:], pub)

	return Account{
		Address:    ss58Encode(pubArr),
		PublicKey:  hex.EncodeToString(pub),
		PrivateKey: hex.EncodeToString(priv.Seed()),
	}, nil
}

func deriveEcdsa(seed string) (Account, error) {
	raw := schemeSeed(seed, Ec)
	priv, err := ethcrypto.ToECDSA(raw[:])
	if err != nil {
		return Account{}, err
	}

	pubBytes := ethcrypto.CompressPubkey(&priv.PublicKey)
	addr := ethcrypto.PubkeyToAddress(priv.PublicKey)

	return Account{
		Address:    addr.Hex(),
		PublicKey:  hex.EncodeToString(pubBytes),
		PrivateKey: hex.EncodeToString(ethcrypto.FromECDSA(priv)),
	}, nil
}
