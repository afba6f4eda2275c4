package primitive

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/tjfoc/gmsm/sm2"
)

// uncompressed point marker expected in front of C1
const pointPrefix = 0x04

// c1 (64) + c3 (32) without the point marker
const sm2Overhead = 96

var (
	ErrInvalidPrivateKey = errors.New("invalid sm2 private key")
	ErrInvalidPublicKey  = errors.New("invalid sm2 public key")
	ErrSM2CipherTooShort = errors.New("sm2 ciphertext too short")
)

// SM2 decrypts and encrypts with hex encoded keys in C1C2C3 order.
type SM2 struct {
	random io.Reader
}

func NewSM2(random io.Reader) *SM2 {
	if random == nil {
		random = Reader
	}
	return &SM2{random: random}
}

// Decrypt accepts C1C2C3 ciphertext with or without the 0x04 point marker.
func (s *SM2) Decrypt(data []byte, privHex string) ([]byte, error) {
	priv, err := PrivateKeyFromHex(privHex)
	if err != nil {
		return nil, err
	}

	if len(data) == 0 || data[0] != pointPrefix {
		data = append([]byte{pointPrefix}, data...)
	}
	if len(data) <= 1+sm2Overhead {
		return nil, ErrSM2CipherTooShort
	}

	out, err := sm2.Decrypt(priv, data, sm2.C1C2C3)
	if err != nil {
		return nil, fmt.Errorf("sm2 decrypt: %w", err)
	}
	return out, nil
}

// Encrypt produces 0x04 || C1C2C3.
func (s *SM2) Encrypt(plain []byte, pubHex string) ([]byte, error) {
	pub, err := PublicKeyFromHex(pubHex)
	if err != nil {
		return nil, err
	}
	return s.EncryptTo(plain, pub)
}

func (s *SM2) EncryptTo(plain []byte, pub *sm2.PublicKey) ([]byte, error) {
	out, err := sm2.Encrypt(pub, plain, s.random, sm2.C1C2C3)
	if err != nil {
		return nil, fmt.Errorf("sm2 encrypt: %w", err)
	}
	return out, nil
}

// GenerateKeyHex returns a new key pair as (private scalar hex, uncompressed public hex).
func (s *SM2) GenerateKeyHex() (string, string, error) {
	priv, err := sm2.GenerateKey(s.random)
	if err != nil {
		return "", "", fmt.Errorf("sm2 generate key: %w", err)
	}
	return fmt.Sprintf("%064x", priv.D), publicKeyHex(&priv.PublicKey), nil
}

func PrivateKeyFromHex(privHex string) (*sm2.PrivateKey, error) {
	d, ok := new(big.Int).SetString(strings.TrimSpace(privHex), 16)
	if !ok || d.Sign() <= 0 {
		return nil, ErrInvalidPrivateKey
	}

	curve := sm2.P256Sm2()
	if d.Cmp(curve.Params().N) >= 0 {
		return nil, ErrInvalidPrivateKey
	}

	priv := &sm2.PrivateKey{D: d}
	priv.PublicKey.Curve = curve
	priv.PublicKey.X, priv.PublicKey.Y = curve.ScalarBaseMult(d.Bytes())
	return priv, nil
}

// PublicKeyFromHex parses x||y, optionally prefixed with 04.
func PublicKeyFromHex(pubHex string) (*sm2.PublicKey, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(pubHex))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	if len(raw) == 65 && raw[0] == pointPrefix {
		raw = raw[1:]
	}
	if len(raw) != 64 {
		return nil, ErrInvalidPublicKey
	}

	curve := sm2.P256Sm2()
	x := new(big.Int).SetBytes(raw[:32])
	y := new(big.Int).SetBytes(raw[32:])
	if !curve.IsOnCurve(x, y) {
		return nil, ErrInvalidPublicKey
	}
	return &sm2.PublicKey{Curve: curve, X: x, Y: y}, nil
}

func publicKeyHex(pub *sm2.PublicKey) string {
	return fmt.Sprintf("04%064x%064x", pub.X, pub.Y)
}
