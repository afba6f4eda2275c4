package aliyun

import (
	"context"
	"errors"
	"testing"

	"github.com/aliyun/aliyun-secretsmanager-client-go/sdk/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gomod.pri/codec/kmscred"
)

type fakeSecrets map[string]string

func (f fakeSecrets) GetSecretInfo(name string) (*models.SecretInfo, error) {
	if name == "throttled" {
		return nil, errors.New("Throttling.User")
	}
	v, ok := f[name]
	if !ok {
		return nil, errors.New("Forbidden.ResourceNotFound")
	}
	return &models.SecretInfo{SecretName: name, SecretValue: v}, nil
}

func TestGetSecretValue(t *testing.T) {
	c := &SecretClient{client: fakeSecrets{"codec.request_key": "req-key-16-bytes"}}

	v, err := c.GetSecretValue(context.Background(), "codec.request_key")
	require.NoError(t, err)
	assert.Equal(t, "req-key-16-bytes", v)

	_, err = c.GetSecretValue(context.Background(), "missing")
	assert.ErrorIs(t, err, kmscred.ErrSecretNotFound)

	_, err = c.GetSecretValue(context.Background(), "throttled")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, kmscred.ErrSecretNotFound)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.GetSecretValue(ctx, "codec.request_key")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew(t *testing.T) {
	tests := []struct {
		name string
		cfg  kmscred.Config
	}{
		{"unknown mode", kmscred.Config{Mode: "sts"}},
		{"aksk without secret", kmscred.Config{Mode: kmscred.ModeAKSK, AccessKey: "ak", Region: "cn-hangzhou"}},
		{"aksk without region", kmscred.Config{Mode: kmscred.ModeAKSK, AccessKey: "ak", SecretKey: "sk"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			assert.Error(t, err)
		})
	}
}
