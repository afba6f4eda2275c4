package xerror

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

var errUpstream = errors.New("upstream closed")

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		code      int
		err       error
		useErrMsg bool
		msg       string
	}{
		{"known code", CodeDecryptFailed, errors.New("pkcs7"), false, "decrypt failed"},
		{"own message", CodeInvalidParams, errors.New("name is required"), true, "name is required"},
		{"unknown code", 499, errors.New("closed"), false, "closed"},
		{"nil error", CodeInternalError, nil, false, "service internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ce := New(tt.code, tt.err, tt.useErrMsg)
			assert.Equal(t, tt.code, ce.Code())
			assert.Equal(t, tt.msg, ce.Message())
			assert.NotNil(t, ce.Cause())
		})
	}
}

func TestRaiseCtx(t *testing.T) {
	ce := RaiseCtx(context.Background(), CodeKeyUnavailable, errUpstream, "k1")
	assert.ErrorIs(t, ce, errUpstream)
	assert.False(t, ce.Critical())
	assert.True(t, RaiseCtx(context.Background(), CodeInternalError, errUpstream).Critical())
}

func TestFromCodec(t *testing.T) {
	RegisterCode(errUpstream, CodeNotAnEnvelope)

	assert.Nil(t, FromCodec(nil))
	assert.Equal(t, CodeNotAnEnvelope, FromCodec(fmt.Errorf("open: %w", errUpstream)).Code())
	assert.Equal(t, CodeInternalError, FromCodec(errors.New("boom")).Code())

	coded := New(CodeConvertFailed, errUpstream)
	assert.Same(t, coded, FromCodec(fmt.Errorf("wrapped: %w", coded)))

	// re-registering moves the code
	RegisterCode(errUpstream, CodeDecryptFailed)
	code, ok := CodeOf(errUpstream)
	assert.True(t, ok)
	assert.Equal(t, CodeDecryptFailed, code)
}

func TestSourceError(t *testing.T) {
	assert.Nil(t, WrapSourceError("aws", nil))

	err := fmt.Errorf("fetch: %w", WrapSourceError("aliyun", errUpstream))
	assert.Equal(t, "aliyun", GetSource(err))
	assert.ErrorIs(t, err, errUpstream)
	assert.Empty(t, GetSource(errUpstream))
}
