package keystore

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/zombienet-go/zombienet/internal/fs"
	"github.com/zombienet-go/zombienet/internal/keys"
)

// nodeFilesPath is the directory, relative to a node's namespace base dir,
// that nodes read their keystore files from at startup.
const nodeFilesPath = "keystore"

// Materialize writes one keystore file per key type into
// <base>/<nodeFilesPath>/, named `<hex(key_type)><hex(pubkey)>` and
// containing the scheme's private key as a JSON-quoted hex string, the
// format Substrate-based nodes expect on disk.
func Materialize(ctx context.Context, sfs *fs.ScopedFilesystem, accounts map[keys.Scheme]keys.Account, keyTypes []KeyType) error {
	for _, kt := range keyTypes {
		account, ok := accounts[kt.Scheme]
		if !ok {
			return fmt.Errorf("no %s account derived for key type %q", kt.Scheme, kt.ID)
		}

		fileName := nodeFilesPath + "/" + hex.EncodeToString([]byte(kt.ID)) + account.PublicKey
		content := fmt.Sprintf("%q", "0x"+account.PrivateKey)

		if err := sfs.Write(ctx, fileName, content); err != nil {
			return fmt.Errorf("writing keystore file for %s: %w", kt.ID, err)
		}
	}
	return nil
}
