package codec

import (
	"io"

	"gomod.pri/codec/envelope"
	"gomod.pri/codec/primitive"
)

const (
	// DefaultSettingPath is exempt from request encryption.
	DefaultSettingPath = "/v2/setting"

	defaultStorageKey = "1234567890Oil#@1"
)

// Conf is the codec section of the service config.
type Conf struct {
	FixedOffset    int    `json:",default=6"`
	PaddingStrip   int    `json:",optional"`
	RequestKey     string `json:",optional"`
	DefaultKey     string `json:",optional"`
	SettingPath    string `json:",default=/v2/setting"`
	EncryptRequest bool   `json:",default=true"`
	SignSecret     string `json:",optional"` // empty disables request signing
}

// Codec decrypts response envelopes and encrypts outgoing requests.
// It holds no mutable state and is safe for concurrent use.
type Codec struct {
	conf   Conf
	random io.Reader
	aes    primitive.Cipher
	sm4    primitive.Cipher
	sm2    *primitive.SM2
}

type Option func(*Codec)

// WithRandom replaces the secure random source, mostly for tests.
func WithRandom(r io.Reader) Option {
	return func(c *Codec) {
		c.random = r
	}
}

// WithRequestKey overrides Conf.RequestKey, e.g. with a key pulled from the key ring.
func WithRequestKey(key string) Option {
	return func(c *Codec) {
		if key != "" {
			c.conf.RequestKey = key
		}
	}
}

func New(conf Conf, opts ...Option) *Codec {
	if conf.FixedOffset == 0 {
		conf.FixedOffset = envelope.DefaultFixedOffset
	}
	if conf.SettingPath == "" {
		conf.SettingPath = DefaultSettingPath
	}
	if conf.DefaultKey == "" {
		conf.DefaultKey = defaultStorageKey
	}

	c := &Codec{conf: conf, random: primitive.Reader}
	for _, opt := range opts {
		opt(c)
	}

	c.aes = primitive.NewAES(c.random)
	c.sm4 = primitive.NewSM4(c.random)
	c.sm2 = primitive.NewSM2(c.random)
	return c
}

func (c *Codec) Conf() Conf {
	return c.conf
}

func (c *Codec) envelopeOptions() []envelope.Option {
	return []envelope.Option{
		envelope.WithFixedOffset(c.conf.FixedOffset),
		envelope.WithPaddingStrip(c.conf.PaddingStrip),
	}
}
