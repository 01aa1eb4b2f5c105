package keys

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	libp2pcrypto "github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/peer"
)

// Identity is a node's libp2p network identity: its 32-byte node key (used
// on the `--node-key` CLI flag) and the peer id derived from it.
type Identity struct {
	NodeKeyHex string
	PeerID     string
}

// GenerateNodeIdentity deterministically derives a libp2p Ed25519 keypair
// from the node name, per spec.md §4.2. The peer id is produced the way
// go-libp2p derives it from the public key (a base58-encoded multihash).
func GenerateNodeIdentity(name string) (*Identity, error) {
	seed := sha256.Sum256([]byte("zombienet-node-key:" + name))
	priv := ed25519.NewKeyFromSeed(seed[:])

	libp2pPriv, _, err := libp2pcrypto.KeyPairFromStdKey(priv)
	if err != nil {
		return nil, fmt.Errorf("deriving libp2p keypair: %w", err)
	}
	pub := libp2pPriv.GetPublic()

	id, err := peer.IDFromPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("deriving peer id: %w", err)
	}

	// The node-key flag takes the raw 32-byte Ed25519 seed, hex-encoded.
	return &Identity{
		NodeKeyHex: hex.EncodeToString(seed[:]),
		PeerID:     id.String(),
	}, nil
}
