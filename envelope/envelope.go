package envelope

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	Marker  = "02"
	Trailer = "ffff"

	// Separator follows the inline key. It is skipped by position and never compared.
	Separator = "200"

	DefaultFixedOffset = 6
)

var (
	ErrNotAnEnvelope   = errors.New("not an envelope")
	ErrTooShort        = errors.New("envelope too short")
	ErrIndexOutOfRange = errors.New("envelope index out of range")
	ErrHexDecode       = errors.New("invalid hex ciphertext")
	ErrKeyLengthParse  = errors.New("invalid key length hint")
)

type Variant int

const (
	VariantFixedOffset Variant = iota
	VariantInlineKey
)

func (v Variant) String() string {
	if v == VariantInlineKey {
		return "inline"
	}
	return "fixed"
}

// Envelope is the decomposed form of a response body.
type Envelope struct {
	Variant Variant
	Key     string // only set for VariantInlineKey
	Cipher  string // hex text between the framing
}

func (e *Envelope) HasKey() bool {
	return e.Variant == VariantInlineKey
}

// CipherBytes hex-decodes the ciphertext region.
func (e *Envelope) CipherBytes() ([]byte, error) {
	out, err := hex.DecodeString(e.Cipher)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHexDecode, err)
	}
	return out, nil
}

type options struct {
	fixedOffset  int
	paddingStrip int
}

type Option func(*options)

// WithFixedOffset sets how many leading characters the fixed-offset variant discards.
func WithFixedOffset(n int) Option {
	return func(o *options) {
		if n >= len(Marker) {
			o.fixedOffset = n
		}
	}
}

// WithPaddingStrip drops n throwaway characters in front of the extracted ciphertext.
func WithPaddingStrip(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.paddingStrip = n
		}
	}
}

// IsEnvelope reports whether raw carries the leading marker.
func IsEnvelope(raw string) bool {
	return strings.HasPrefix(raw, Marker)
}

// ParseKeyLength reads a key length hint. An empty hint reports ok=false without error.
func ParseKeyLength(hint string) (n int, ok bool, err error) {
	hint = strings.TrimSpace(hint)
	if hint == "" {
		return 0, false, nil
	}
	n, err = strconv.Atoi(hint)
	if err != nil || n < 0 {
		return 0, false, fmt.Errorf("%w: %q", ErrKeyLengthParse, hint)
	}
	return n, true, nil
}

// Parse splits raw into key material and ciphertext. A usable keyLenHint selects the
// inline-key variant; an absent or unparsable hint selects the fixed-offset variant.
func Parse(raw, keyLenHint string, opts ...Option) (*Envelope, error) {
	o := options{fixedOffset: DefaultFixedOffset}
	for _, opt := range opts {
		opt(&o)
	}

	if !IsEnvelope(raw) {
		return nil, ErrNotAnEnvelope
	}

	var env *Envelope
	if n, ok, _ := ParseKeyLength(keyLenHint); ok {
		// n comes from a header; compare without adding so a huge n cannot wrap
		if n > len(raw)-len(Marker)-len(Separator)-len(Trailer) {
			return nil, fmt.Errorf("%w: key length %d does not fit in %d chars", ErrTooShort, n, len(raw))
		}
		start := len(Marker) + n + len(Separator)
		env = &Envelope{
			Variant: VariantInlineKey,
			Key:     raw[len(Marker) : len(Marker)+n],
		}
		cipher, err := slice(raw, start, len(raw)-len(Trailer))
		if err != nil {
			return nil, err
		}
		env.Cipher = cipher
	} else {
		cipher, err := slice(raw, o.fixedOffset, len(raw)-len(Trailer))
		if err != nil {
			return nil, err
		}
		env = &Envelope{Variant: VariantFixedOffset, Cipher: cipher}
	}

	if o.paddingStrip > 0 {
		if o.paddingStrip >= len(env.Cipher) {
			return nil, fmt.Errorf("%w: strip %d of %d", ErrIndexOutOfRange, o.paddingStrip, len(env.Cipher))
		}
		env.Cipher = env.Cipher[o.paddingStrip:]
	}

	return env, nil
}

func slice(raw string, start, end int) (string, error) {
	if start >= end {
		return "", fmt.Errorf("%w: start %d, end %d", ErrTooShort, start, end)
	}
	return raw[start:end], nil
}
