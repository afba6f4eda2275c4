package codec

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/zeromicro/go-zero/core/jsonx"
	"github.com/zeromicro/go-zero/core/logx"
	"gomod.pri/codec/primitive"
)

// Algorithm selects the cipher for stored values.
type Algorithm string

const (
	AlgorithmSM4 Algorithm = "SM4"
	AlgorithmAES Algorithm = "AES"
)

// ParseAlgorithm maps a config value to an Algorithm; empty means SM4.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(strings.ToUpper(strings.TrimSpace(s))) {
	case "", AlgorithmSM4:
		return AlgorithmSM4, nil
	case AlgorithmAES:
		return AlgorithmAES, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, s)
	}
}

type encryptedRequest struct {
	Data string `json:"data"`
}

// EncryptRequest wraps body as {"data":"<hex(IV||SM4 ciphertext)>"}. The body passes
// through untouched when encryption is off, the body is empty or url is the setting path.
func (c *Codec) EncryptRequest(ctx context.Context, url string, body []byte) (string, error) {
	if !c.ShouldEncrypt(url, body) {
		return string(body), nil
	}
	if c.conf.RequestKey == "" {
		return "", fmt.Errorf("request key not configured")
	}

	out, err := c.sm4.Encrypt(body, []byte(c.conf.RequestKey))
	if err != nil {
		logx.WithContext(ctx).Errorf("encrypt request %s: %v", url, err)
		return "", err
	}

	return jsonx.MarshalToString(encryptedRequest{Data: hex.EncodeToString(out)})
}

// DecryptRequest reverses EncryptRequest for a {"data":"..."} body.
func (c *Codec) DecryptRequest(body string) (string, error) {
	var req encryptedRequest
	if err := jsonx.UnmarshalFromString(body, &req); err != nil {
		return "", err
	}
	data, err := hex.DecodeString(req.Data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSymmetricDecrypt, err)
	}
	plain, err := c.sm4.Decrypt(data, []byte(c.conf.RequestKey))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSymmetricDecrypt, err)
	}
	return string(plain), nil
}

func (c *Codec) ShouldEncrypt(url string, body []byte) bool {
	if !c.conf.EncryptRequest || len(body) == 0 {
		return false
	}
	path := url
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	return !strings.HasSuffix(path, c.conf.SettingPath)
}

// Sign is md5(params + timestamp + nonce + secret) in lowercase hex.
func Sign(params string, timestamp int64, nonce, secret string) string {
	var b strings.Builder
	b.WriteString(params)
	b.WriteString(strconv.FormatInt(timestamp, 10))
	b.WriteString(nonce)
	b.WriteString(secret)
	return primitive.MD5Hex([]byte(b.String()))
}

// Nonce returns 16 secure random bytes as hex.
func (c *Codec) Nonce() (string, error) {
	return primitive.NonceHex(c.random)
}

// StorageKey prefixes key with the system code so that apps sharing a store do not clash.
func StorageKey(key, systemCode string) string {
	return systemCode + key
}

// EncryptStorageValue encrypts value for client side storage. SM4 output is hex,
// AES output is base64.
func (c *Codec) EncryptStorageValue(value, key string, algo Algorithm) (string, error) {
	switch algo {
	case AlgorithmAES:
		out, err := c.aes.Encrypt([]byte(value), []byte(key))
		if err != nil {
			return "", err
		}
		return base64.StdEncoding.EncodeToString(out), nil
	case AlgorithmSM4, "":
		out, err := c.sm4.Encrypt([]byte(value), []byte(key))
		if err != nil {
			return "", err
		}
		return hex.EncodeToString(out), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, algo)
	}
}

func (c *Codec) DecryptStorageValue(value, key string, algo Algorithm) (string, error) {
	var (
		data []byte
		err  error
	)
	switch algo {
	case AlgorithmAES:
		return c.decryptToken(value, key)
	case AlgorithmSM4, "":
		data, err = hex.DecodeString(value)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, algo)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSymmetricDecrypt, err)
	}

	plain, err := c.sm4.Decrypt(data, []byte(key))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSymmetricDecrypt, err)
	}
	return string(plain), nil
}

// DecryptWithDefaultKey AES-decrypts a base64 value with the configured fallback key.
// Failures yield "".
func (c *Codec) DecryptWithDefaultKey(value string) string {
	out, err := c.decryptToken(value, c.conf.DefaultKey)
	if err != nil {
		logx.Debugf("decrypt with default key: %v", err)
		return ""
	}
	return out
}

// EncryptWithDefaultKey is the inverse of DecryptWithDefaultKey.
func (c *Codec) EncryptWithDefaultKey(value string) (string, error) {
	return c.EncryptStorageValue(value, c.conf.DefaultKey, AlgorithmAES)
}
