package primitive

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"
	"io"

	"github.com/tjfoc/gmsm/sm4"
)

const blockSize = 16

var (
	ErrCipherTooShort = errors.New("ciphertext shorter than one block")
	ErrBadPadding     = errors.New("invalid pkcs7 padding")
)

// Cipher is a CBC block cipher whose output is IV || ciphertext.
type Cipher interface {
	Encrypt(plain, key []byte) ([]byte, error)
	Decrypt(data, key []byte) ([]byte, error)
}

type blockFactory func(key []byte) (cipher.Block, error)

type cbcCipher struct {
	name     string
	newBlock blockFactory
	random   io.Reader
}

// NewAES returns AES-128-CBC with PKCS7 padding and a random IV.
func NewAES(random io.Reader) Cipher {
	return &cbcCipher{name: "aes", newBlock: aes.NewCipher, random: random}
}

// NewSM4 returns SM4-CBC with PKCS7 padding and a random IV.
func NewSM4(random io.Reader) Cipher {
	return &cbcCipher{name: "sm4", newBlock: sm4.NewCipher, random: random}
}

func (c *cbcCipher) Encrypt(plain, key []byte) ([]byte, error) {
	block, err := c.newBlock(NormalizeKey(key))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.name, err)
	}

	iv, err := RandomBytes(c.random, blockSize)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.name, err)
	}

	padded := pkcs7Pad(plain)
	out := make([]byte, blockSize+len(padded))
	copy(out, iv)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out[blockSize:], padded)
	return out, nil
}

func (c *cbcCipher) Decrypt(data, key []byte) ([]byte, error) {
	if len(data) < 2*blockSize || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("%s: %w", c.name, ErrCipherTooShort)
	}

	block, err := c.newBlock(NormalizeKey(key))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.name, err)
	}

	iv, body := data[:blockSize], data[blockSize:]
	plain := make([]byte, len(body))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, body)

	out, err := pkcs7Unpad(plain)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.name, err)
	}
	return out, nil
}

// NormalizeKey zero-pads or truncates key to 16 bytes.
func NormalizeKey(key []byte) []byte {
	out := make([]byte, blockSize)
	copy(out, key)
	return out
}

func pkcs7Pad(data []byte) []byte {
	n := blockSize - len(data)%blockSize
	return append(bytes.Clone(data), bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrBadPadding
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, ErrBadPadding
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, ErrBadPadding
		}
	}
	return data[:len(data)-n], nil
}
