package codec

import "encoding/hex"

// HashToHex renders a raw digest (MD5/SHA-1/SHA-256 output) as lowercase
// hex, the textual form stored in `hash`/`xhash`/`digest` section payloads
// and reported to users.
func HashToHex(digest []byte) string {
	return hex.EncodeToString(digest)
}
