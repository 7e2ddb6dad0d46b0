package sharenode

import (
	"encoding/hex"
	"errors"
	"strings"
)

var errInvalidNodeIndex = errors.New("sharenode: node index must be >= 1")

// decodeHex accepts an optionally "0x"-prefixed hex string.
func decodeHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	return hex.DecodeString(s)
}
