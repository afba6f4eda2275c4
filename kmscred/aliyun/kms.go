package aliyun

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aliyun/aliyun-secretsmanager-client-go/sdk"
	"github.com/aliyun/aliyun-secretsmanager-client-go/sdk/models"
	"github.com/aliyun/aliyun-secretsmanager-client-go/sdk/service"
	"gomod.pri/codec/kmscred"
)

type secretsAPI interface {
	GetSecretInfo(secretName string) (*models.SecretInfo, error)
}

// SecretClient 阿里云凭据管理（带本地缓存的客户端）
type SecretClient struct {
	client secretsAPI
}

// New 按 Mode 创建客户端。ram 模式走 ECS 元数据服务，region 可省略。
func New(cfg kmscred.Config) (*SecretClient, error) {
	switch cfg.Mode {
	case kmscred.ModeRAM:
		client, err := sdk.NewClient()
		if err != nil {
			return nil, fmt.Errorf("aliyun: create secrets client with RAM role: %w", err)
		}
		return &SecretClient{client: client}, nil
	case kmscred.ModeAKSK:
		if cfg.AccessKey == "" || cfg.SecretKey == "" {
			return nil, errors.New("aliyun: accessKey and secretKey are required for aksk mode")
		}
		if cfg.Region == "" {
			return nil, errors.New("aliyun: region is required for aksk mode")
		}
		client, err := sdk.NewSecretCacheClientBuilder(
			service.NewDefaultSecretManagerClientBuilder().
				Standard().
				WithAccessKey(cfg.AccessKey, cfg.SecretKey).
				WithRegion(cfg.Region).
				Build(),
		).Build()
		if err != nil {
			return nil, fmt.Errorf("aliyun: create secrets client with AKSK: %w", err)
		}
		return &SecretClient{client: client}, nil
	default:
		return nil, fmt.Errorf("aliyun: invalid mode %q", cfg.Mode)
	}
}

// GetSecretValue 缓存客户端不接受 ctx，这里只在调用前检查是否已取消
func (c *SecretClient) GetSecretValue(ctx context.Context, secretName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	info, err := c.client.GetSecretInfo(secretName)
	switch {
	case err != nil && strings.Contains(err.Error(), "ResourceNotFound"):
		return "", fmt.Errorf("aliyun: %w: %s", kmscred.ErrSecretNotFound, secretName)
	case err != nil:
		return "", fmt.Errorf("aliyun: get secret %s: %w", secretName, err)
	case info == nil:
		return "", fmt.Errorf("aliyun: %w: %s", kmscred.ErrSecretNotFound, secretName)
	}
	return info.SecretValue, nil
}
