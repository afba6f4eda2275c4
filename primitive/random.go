package primitive

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
)

// Reader is the process-wide secure random source.
var Reader io.Reader = rand.Reader

// RandomBytes reads n bytes from r, falling back to Reader when r is nil.
func RandomBytes(r io.Reader, n int) ([]byte, error) {
	if r == nil {
		r = Reader
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("read random bytes: %w", err)
	}
	return buf, nil
}

// Uint64 draws a 64-bit value, used to seed non-cryptographic generators.
func Uint64(r io.Reader) (uint64, error) {
	buf, err := RandomBytes(r, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf), nil
}

// NonceHex returns 16 random bytes as lowercase hex.
func NonceHex(r io.Reader) (string, error) {
	buf, err := RandomBytes(r, 16)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
