package codec

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeromicro/go-zero/core/jsonx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"gomod.pri/codec/envelope"
	"gomod.pri/codec/primitive"
	"gomod.pri/codec/xerror"
)

const testTimestamp = "1734307200000"

func newTestCodec(t *testing.T, conf Conf) (*Codec, string) {
	t.Helper()
	c := New(conf)
	priv, _, err := c.sm2.GenerateKeyHex()
	require.NoError(t, err)
	return c, priv
}

func TestRecover(t *testing.T) {
	c := New(Conf{})
	token, err := c.aes.Encrypt([]byte("session-key"), []byte(testTimestamp))
	require.NoError(t, err)
	tokenB64 := base64.StdEncoding.EncodeToString(token)

	emptyToken, err := c.aes.Encrypt(nil, []byte(testTimestamp))
	require.NoError(t, err)

	tests := []struct {
		name      string
		token     string
		ts        string
		want      string
		wantFound bool
	}{
		{"正常恢复", tokenB64, testTimestamp, "session-key", true},
		{"key length mode", tokenB64, "64", "", false},
		{"not base64", "%%%", testTimestamp, "", false},
		{"empty token", "", testTimestamp, "", false},
		{"empty plaintext", base64.StdEncoding.EncodeToString(emptyToken), testTimestamp, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := c.Recover(tt.token, tt.ts)
			assert.Equal(t, tt.wantFound, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRecoverWrongTimestamp(t *testing.T) {
	c := New(Conf{})
	token, err := c.aes.Encrypt([]byte("session-key"), []byte(testTimestamp))
	require.NoError(t, err)

	got, _ := c.Recover(base64.StdEncoding.EncodeToString(token), "1734307200001")
	assert.NotEqual(t, "session-key", got)
}

func TestRecoverKeyLengthMode(t *testing.T) {
	c := New(Conf{})
	_, err := c.recoverKey("whatever", "32")
	assert.ErrorIs(t, err, ErrKeyLengthMode)

	_, err = c.recoverKey("whatever", testTimestamp)
	assert.ErrorIs(t, err, ErrSymmetricDecrypt)
}

func TestDecryptPayload(t *testing.T) {
	c, priv := newTestCodec(t, Conf{})
	other, _, err := c.sm2.GenerateKeyHex()
	require.NoError(t, err)

	pk, err := primitive.PrivateKeyFromHex(priv)
	require.NoError(t, err)
	data, err := c.sm2.EncryptTo([]byte(`{"温度":25}`), &pk.PublicKey)
	require.NoError(t, err)
	withPrefix := hex.EncodeToString(data)
	withoutPrefix := hex.EncodeToString(data[1:])

	tests := []struct {
		name      string
		cipherHex string
		key       string
		want      string
	}{
		{"with point prefix", withPrefix, priv, `{"温度":25}`},
		{"without point prefix", withoutPrefix, priv, `{"温度":25}`},
		{"invalid hex", "zz" + withPrefix, priv, ""},
		{"wrong key", withPrefix, other, ""},
		{"bad key", withPrefix, "not-a-key", ""},
		{"too short", "0411", priv, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.DecryptPayload(tt.cipherHex, tt.key))
		})
	}
}

func TestDecryptPayloadErrors(t *testing.T) {
	c, priv := newTestCodec(t, Conf{})

	_, err := c.decryptPayload("xyz", priv)
	assert.ErrorIs(t, err, envelope.ErrHexDecode)

	_, err = c.decryptPayload("04"+strings.Repeat("ab", 120), priv)
	assert.ErrorIs(t, err, ErrAsymmetricDecrypt)
}

func TestLossyString(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want string
	}{
		{"valid", []byte("hello 世界"), "hello 世界"},
		{"one per bad byte", []byte{'a', 0xff, 0xfe, 'b'}, "a\uFFFD\uFFFDb"},
		{"truncated sequence", []byte{'a', 0xe4, 0xb8, 'b'}, "a\uFFFDb"},
		{"truncated at end", []byte{'a', 0xf0, 0x9f, 0x98}, "a\uFFFD"},
		{"surrogate", []byte{0xed, 0xa0, 0x80}, "\uFFFD\uFFFD\uFFFD"},
		{"overlong", []byte{0xc0, 0xaf, 'x'}, "\uFFFD\uFFFDx"},
		{"valid after bad", []byte{0xff, 0xe4, 0xb8, 0x96}, "\uFFFD世"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, lossyString(tt.in))
		})
	}
}

func TestParseAndDecryptResponse(t *testing.T) {
	ctx := context.Background()
	plain := `{"list":[1,2,3],"name":"北京"}`

	tests := []struct {
		name    string
		conf    Conf
		variant envelope.Variant
		wrap    func(string) string
	}{
		{"inline raw", Conf{}, envelope.VariantInlineKey, func(s string) string { return s }},
		{"fixed raw", Conf{}, envelope.VariantFixedOffset, func(s string) string { return s }},
		{"fixed offset 8", Conf{FixedOffset: 8}, envelope.VariantFixedOffset, func(s string) string { return s }},
		{"padding strip", Conf{PaddingStrip: 2}, envelope.VariantInlineKey, func(s string) string { return s }},
		{"json string", Conf{}, envelope.VariantInlineKey, func(s string) string { return `"` + s + `"` }},
		{"json data field", Conf{}, envelope.VariantFixedOffset, func(s string) string {
			return `{"code":200,"data":"` + s + `"}`
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, priv := newTestCodec(t, tt.conf)
			sealed, err := c.SealResponse(plain, priv, tt.variant, testTimestamp)
			require.NoError(t, err)

			res := c.ParseAndDecryptResponse(ctx, tt.wrap(sealed.Body), sealed.Headers)
			require.True(t, res.Success, res.Error)
			assert.Equal(t, plain, res.Data)
			assert.Empty(t, res.Error)
		})
	}
}

func TestParseAndDecryptResponseFailures(t *testing.T) {
	ctx := context.Background()
	c, priv := newTestCodec(t, Conf{})
	sealed, err := c.SealResponse("payload", priv, envelope.VariantFixedOffset, testTimestamp)
	require.NoError(t, err)

	t.Run("not an envelope", func(t *testing.T) {
		body := `{"code":200,"data":{"id":1}}`
		res := c.ParseAndDecryptResponse(ctx, body, Headers{})
		assert.False(t, res.Success)
		assert.Equal(t, body, res.Data)
		assert.Contains(t, res.Error, envelope.ErrNotAnEnvelope.Error())
	})

	t.Run("too short", func(t *testing.T) {
		res := c.ParseAndDecryptResponse(ctx, "02ab", Headers{KeyLength: "10"})
		assert.False(t, res.Success)
		assert.Empty(t, res.Data)
		assert.Contains(t, res.Error, envelope.ErrTooShort.Error())
	})

	t.Run("missing origin key", func(t *testing.T) {
		res := c.ParseAndDecryptResponse(ctx, sealed.Body, Headers{Timestamp: testTimestamp})
		assert.False(t, res.Success)
		assert.Contains(t, res.Error, ErrSymmetricDecrypt.Error())
	})

	t.Run("wrong timestamp", func(t *testing.T) {
		h := sealed.Headers
		h.Timestamp = "1734307299999"
		res := c.ParseAndDecryptResponse(ctx, sealed.Body, h)
		assert.False(t, res.Success)
	})

	t.Run("corrupted cipher", func(t *testing.T) {
		body := sealed.Body[:10] + "zz" + sealed.Body[12:]
		res := c.ParseAndDecryptResponse(ctx, body, sealed.Headers)
		assert.False(t, res.Success)
		assert.Contains(t, res.Error, envelope.ErrHexDecode.Error())
	})
}

func TestParseAndDecryptResponseSpan(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)

	c := New(Conf{})
	res := c.ParseAndDecryptResponse(context.Background(), "02short", Headers{KeyLength: "40"})
	require.False(t, res.Success)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "codec.ParseAndDecryptResponse", spans[0].Name)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
}

func TestDecryptFixedOffsetResponse(t *testing.T) {
	ctx := context.Background()
	c, priv := newTestCodec(t, Conf{})
	sealed, err := c.SealResponse("固定偏移", priv, envelope.VariantFixedOffset, testTimestamp)
	require.NoError(t, err)

	assert.Equal(t, "固定偏移",
		c.DecryptFixedOffsetResponse(ctx, sealed.Body, sealed.Headers.OriginKey, testTimestamp))
	assert.Empty(t, c.DecryptFixedOffsetResponse(ctx, sealed.Body, "", testTimestamp))
	assert.Empty(t, c.DecryptFixedOffsetResponse(ctx, "plain text", sealed.Headers.OriginKey, testTimestamp))
}

func TestSealResponseErrors(t *testing.T) {
	c, priv := newTestCodec(t, Conf{})

	_, err := c.SealResponse("x", "zz", envelope.VariantInlineKey, "")
	assert.ErrorIs(t, err, primitive.ErrInvalidPrivateKey)

	_, err = c.SealResponse("x", priv, envelope.VariantFixedOffset, "")
	assert.Error(t, err)

	_, err = c.SealResponse("x", priv, envelope.Variant(9), testTimestamp)
	assert.Error(t, err)
}

func TestUnwrapBody(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"raw", "02abc200ddffff", "02abc200ddffff"},
		{"json string", `"02abcffff"`, "02abcffff"},
		{"data field", `{"data":"02abcffff","code":0}`, "02abcffff"},
		{"data object", `{"data":{"a":1}}`, `{"data":{"a":1}}`},
		{"broken json", `{"data":`, `{"data":`},
		{"padded", "  \"02ffff\" ", "02ffff"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UnwrapBody(tt.body))
		})
	}
}

func TestEncryptRequest(t *testing.T) {
	ctx := context.Background()
	c := New(Conf{EncryptRequest: true, RequestKey: "req-key-16-bytes"})

	tests := []struct {
		name      string
		url       string
		body      string
		encrypted bool
	}{
		{"encrypts", "/v2/device/list", `{"page":1}`, true},
		{"with query", "/v2/device/list?page=1", `{"page":1}`, true},
		{"setting path", "/v2/setting", `{"page":1}`, false},
		{"setting path with host", "https://api.example.com/v2/setting?x=1", `{"a":1}`, false},
		{"empty body", "/v2/device/list", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := c.EncryptRequest(ctx, tt.url, []byte(tt.body))
			require.NoError(t, err)
			if !tt.encrypted {
				assert.Equal(t, tt.body, out)
				return
			}

			var req encryptedRequest
			require.NoError(t, jsonx.UnmarshalFromString(out, &req))
			assert.NotEmpty(t, req.Data)

			plain, err := c.DecryptRequest(out)
			require.NoError(t, err)
			assert.Equal(t, tt.body, plain)
		})
	}
}

func TestEncryptRequestDisabled(t *testing.T) {
	c := New(Conf{EncryptRequest: false, RequestKey: "k"})
	out, err := c.EncryptRequest(context.Background(), "/v2/x", []byte(`{"a":1}`))
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, out)

	c = New(Conf{EncryptRequest: true})
	_, err = c.EncryptRequest(context.Background(), "/v2/x", []byte(`{"a":1}`))
	assert.Error(t, err)
}

func TestWithRequestKey(t *testing.T) {
	c := New(Conf{RequestKey: "from-config"}, WithRequestKey("from-keyring"))
	assert.Equal(t, "from-keyring", c.Conf().RequestKey)

	c = New(Conf{RequestKey: "from-config"}, WithRequestKey(""))
	assert.Equal(t, "from-config", c.Conf().RequestKey)
}

func TestSign(t *testing.T) {
	got := Sign(`{"a":1}`, 1734307200, "abc", "secret")
	assert.Equal(t, primitive.MD5Hex([]byte(`{"a":1}1734307200abcsecret`)), got)
	assert.Len(t, got, 32)
	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", primitive.MD5Hex(nil))
}

func TestNonce(t *testing.T) {
	c := New(Conf{})
	a, err := c.Nonce()
	require.NoError(t, err)
	b, err := c.Nonce()
	require.NoError(t, err)
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)

	c = New(Conf{}, WithRandom(failingReader{}))
	_, err = c.Nonce()
	assert.Error(t, err)
}

func TestStorageValue(t *testing.T) {
	c := New(Conf{})

	for _, algo := range []Algorithm{AlgorithmSM4, AlgorithmAES, ""} {
		t.Run(string(algo), func(t *testing.T) {
			enc, err := c.EncryptStorageValue("缓存值", "storage-key", algo)
			require.NoError(t, err)
			dec, err := c.DecryptStorageValue(enc, "storage-key", algo)
			require.NoError(t, err)
			assert.Equal(t, "缓存值", dec)

			// a wrong key almost always breaks the padding, and never yields the value
			if dec, err = c.DecryptStorageValue(enc, "other-key", algo); err == nil {
				assert.NotEqual(t, "缓存值", dec)
			}
		})
	}

	_, err := c.EncryptStorageValue("v", "k", "DES")
	assert.ErrorIs(t, err, ErrUnknownAlgorithm)
	_, err = c.DecryptStorageValue("v", "k", "DES")
	assert.ErrorIs(t, err, ErrUnknownAlgorithm)
	assert.Equal(t, "app:token", StorageKey("token", "app:"))
}

func TestParseAlgorithm(t *testing.T) {
	tests := []struct {
		in      string
		want    Algorithm
		wantErr bool
	}{
		{"", AlgorithmSM4, false},
		{"sm4", AlgorithmSM4, false},
		{" AES ", AlgorithmAES, false},
		{"rsa", "", true},
	}
	for _, tt := range tests {
		got, err := ParseAlgorithm(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrUnknownAlgorithm)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestDefaultKey(t *testing.T) {
	c := New(Conf{})
	assert.Equal(t, defaultStorageKey, c.Conf().DefaultKey)

	enc, err := c.EncryptWithDefaultKey("hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", c.DecryptWithDefaultKey(enc))
	assert.Empty(t, c.DecryptWithDefaultKey("not base64!"))

	custom := New(Conf{DefaultKey: "another-default"})
	assert.NotEqual(t, "hello", custom.DecryptWithDefaultKey(enc))
}

func TestErrorCodes(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{envelope.ErrNotAnEnvelope, xerror.CodeNotAnEnvelope},
		{envelope.ErrTooShort, xerror.CodeConvertFailed},
		{envelope.ErrHexDecode, xerror.CodeConvertFailed},
		{ErrSymmetricDecrypt, xerror.CodeDecryptFailed},
		{ErrAsymmetricDecrypt, xerror.CodeDecryptFailed},
		{errors.New("other"), xerror.CodeInternalError},
	}
	for _, tt := range tests {
		wrapped := xerror.FromCodec(errors.Join(errors.New("ctx"), tt.err))
		assert.Equal(t, tt.code, wrapped.Code(), tt.err.Error())
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("no entropy")
}
