package primitive

import (
	"crypto/md5"
	"encoding/hex"

	"github.com/tjfoc/gmsm/sm3"
)

// SM3Hex hashes data with SM3 and returns lowercase hex.
func SM3Hex(data []byte) string {
	return hex.EncodeToString(sm3.Sm3Sum(data))
}

// MD5Hex hashes data with MD5 and returns lowercase hex.
func MD5Hex(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}
