package codec

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/zeromicro/go-zero/core/logx"
	"gomod.pri/codec/envelope"
)

// maxKeyLengthDigits separates key length hints from epoch timestamps, which are
// 10 or 13 digits long.
const maxKeyLengthDigits = 4

// Recover turns an encrypted key token into the session key. When timestampOrLength
// is a short decimal integer the key travels inline and Recover reports false.
func (c *Codec) Recover(token, timestampOrLength string) (string, bool) {
	key, err := c.recoverKey(token, timestampOrLength)
	if err != nil {
		logx.Debugf("recover key: %v", err)
		return "", false
	}
	return key, true
}

func (c *Codec) recoverKey(token, timestampOrLength string) (string, error) {
	if isKeyLength(timestampOrLength) {
		return "", ErrKeyLengthMode
	}
	return c.decryptToken(token, timestampOrLength)
}

func isKeyLength(s string) bool {
	s = strings.TrimSpace(s)
	if len(s) > maxKeyLengthDigits {
		return false
	}
	_, ok, _ := envelope.ParseKeyLength(s)
	return ok
}

// decryptToken uses timestamp as the AES key for base64(IV || ciphertext).
func (c *Codec) decryptToken(token, timestamp string) (string, error) {
	if token == "" || timestamp == "" {
		return "", fmt.Errorf("%w: missing token or timestamp", ErrSymmetricDecrypt)
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(token))
	if err != nil {
		return "", fmt.Errorf("%w: base64: %v", ErrSymmetricDecrypt, err)
	}

	plain, err := c.aes.Decrypt(data, []byte(timestamp))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSymmetricDecrypt, err)
	}
	if len(plain) == 0 {
		return "", fmt.Errorf("%w: empty key", ErrSymmetricDecrypt)
	}
	return string(plain), nil
}

// DecryptPayload SM2-decrypts hex ciphertext with a hex private key. Failures yield "".
func (c *Codec) DecryptPayload(cipherHex, key string) string {
	out, err := c.decryptPayload(cipherHex, key)
	if err != nil {
		logx.Errorf("decrypt payload: %v", err)
		return ""
	}
	return out
}

func (c *Codec) decryptPayload(cipherHex, key string) (string, error) {
	data, err := hex.DecodeString(cipherHex)
	if err != nil {
		return "", fmt.Errorf("%w: %v", envelope.ErrHexDecode, err)
	}

	plain, err := c.sm2.Decrypt(data, key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAsymmetricDecrypt, err)
	}
	return lossyString(plain), nil
}

// lossyString keeps valid UTF-8 as is and replaces every maximal ill-formed
// subsequence with one U+FFFD. Each bad byte counts on its own unless it starts a
// truncated multi-byte sequence.
func lossyString(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}

	var sb strings.Builder
	sb.Grow(len(b) + 8)
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r == utf8.RuneError && size <= 1 {
			sb.WriteRune(utf8.RuneError)
			b = b[illFormedLen(b):]
			continue
		}
		sb.Write(b[:size])
		b = b[size:]
	}
	return sb.String()
}

// illFormedLen returns how many bytes of b, which does not start with a valid rune,
// belong to one ill-formed subsequence: a lead byte plus the continuation bytes that
// could still have completed it.
func illFormedLen(b []byte) int {
	var (
		need   int
		lo, hi byte = 0x80, 0xBF
	)
	switch c := b[0]; {
	case c >= 0xC2 && c <= 0xDF:
		need = 1
	case c == 0xE0:
		need, lo = 2, 0xA0
	case c == 0xED:
		need, hi = 2, 0x9F
	case c >= 0xE1 && c <= 0xEF:
		need = 2
	case c == 0xF0:
		need, lo = 3, 0x90
	case c == 0xF4:
		need, hi = 3, 0x8F
	case c >= 0xF1 && c <= 0xF3:
		need = 3
	default:
		return 1
	}

	n := 1
	for n <= need && n < len(b) && b[n] >= lo && b[n] <= hi {
		lo, hi = 0x80, 0xBF
		n++
	}
	return n
}
