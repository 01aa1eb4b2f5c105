package keys

import (
	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"
)

// genericSubstratePrefix is the SS58 network prefix used for accounts in
// local/dev chain specs (prefix 42, "generic Substrate").
const genericSubstratePrefix = 42

// ss58Encode implements the SS58 address format: a network-prefix byte, the
// 32-byte public key, and a 2-byte blake2b-512 checksum (using the
// "SS58PRE" domain separator), all base58-encoded.
func ss58Encode(pubKey [32]byte) string {
	payload := append([]byte{genericSubstratePrefix}, pubKey[:]...)

	hasher, _ := blake2b.New512(nil)
	hasher.Write([]byte("SS58PRE"))
	hasher.Write(payload)
	checksum := hasher.Sum(nil)

	full := append(payload, checksum[:2]...)
	return base58.Encode(full)
}
