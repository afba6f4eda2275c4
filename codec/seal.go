package codec

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"gomod.pri/codec/envelope"
	"gomod.pri/codec/primitive"
)

// Sealed is an envelope plus the headers a receiver needs to open it.
type Sealed struct {
	Body    string  `json:"body"`
	Headers Headers `json:"headers"`
}

// SealResponse builds the server side of ParseAndDecryptResponse. The payload is
// SM2-encrypted for privHex's public key. The inline variant carries privHex in the
// envelope; the fixed variant carries it as an AES token keyed by timestamp.
func (c *Codec) SealResponse(plain, privHex string, variant envelope.Variant, timestamp string) (*Sealed, error) {
	priv, err := primitive.PrivateKeyFromHex(privHex)
	if err != nil {
		return nil, err
	}

	data, err := c.sm2.EncryptTo([]byte(plain), &priv.PublicKey)
	if err != nil {
		return nil, err
	}
	cipherHex := strings.Repeat("0", c.conf.PaddingStrip) + hex.EncodeToString(data)

	switch variant {
	case envelope.VariantInlineKey:
		body, hint := envelope.SealInline(privHex, cipherHex)
		return &Sealed{Body: body, Headers: Headers{KeyLength: hint}}, nil
	case envelope.VariantFixedOffset:
		if timestamp == "" || isKeyLength(timestamp) {
			return nil, fmt.Errorf("fixed variant needs a timestamp, got %q", timestamp)
		}
		marker := strings.Repeat("0", c.conf.FixedOffset-len(envelope.Marker))
		body, err := envelope.SealFixed(marker, cipherHex, c.envelopeOptions()...)
		if err != nil {
			return nil, err
		}
		token, err := c.aes.Encrypt([]byte(privHex), []byte(timestamp))
		if err != nil {
			return nil, err
		}
		return &Sealed{
			Body: body,
			Headers: Headers{
				OriginKey: base64.StdEncoding.EncodeToString(token),
				Timestamp: timestamp,
			},
		}, nil
	default:
		return nil, fmt.Errorf("unknown variant %d", variant)
	}
}
