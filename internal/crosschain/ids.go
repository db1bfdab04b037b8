package crosschain

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/sha3"
)

// newIntentID mints a random 128-bit hex identifier, mirroring the
// session-id minting scheme of §4.H step 2.
func newIntentID() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

// dispatchID derives a deterministic-looking dispatch identifier from the
// connector name and intent id via Keccak-256, the same hash family the
// teacher's signature resolver uses for EVM-style digests.
func dispatchID(connector, intentID string) string {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(fmt.Sprintf("%s:%s", connector, intentID)))
	return "0x" + hex.EncodeToString(h.Sum(nil))
}

// appliedKey builds the dedup key for the (connector, message_id) applied
// set (§3 invariant "each (connector, message_id) pair is applied at most
// once").
func appliedKey(connector, messageID string) string {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(fmt.Sprintf("%s:%s", connector, messageID)))
	return hex.EncodeToString(h.Sum(nil))
}
