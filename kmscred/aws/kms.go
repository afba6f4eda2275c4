package aws

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"gomod.pri/codec/kmscred"
)

type secretsAPI interface {
	GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// SecretClient reads secrets from AWS Secrets Manager.
type SecretClient struct {
	client secretsAPI
}

// New builds a client for cfg.Region. In ram mode credentials come from the default
// chain (env, shared file, then instance role); aksk pins static credentials.
func New(cfg kmscred.Config) (*SecretClient, error) {
	if cfg.Region == "" {
		return nil, errors.New("aws: region is required")
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	switch cfg.Mode {
	case kmscred.ModeRAM:
	case kmscred.ModeAKSK:
		if cfg.AccessKey == "" || cfg.SecretKey == "" {
			return nil, errors.New("aws: accessKey and secretKey are required for aksk mode")
		}
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	default:
		return nil, fmt.Errorf("aws: invalid mode %q", cfg.Mode)
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("aws: load config: %w", err)
	}
	return &SecretClient{client: secretsmanager.NewFromConfig(awsCfg)}, nil
}

// GetSecretValue returns SecretString, or SecretBinary as is when the secret is binary.
func (c *SecretClient) GetSecretValue(ctx context.Context, secretName string) (string, error) {
	out, err := c.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretName),
	})
	if err != nil {
		var nf *types.ResourceNotFoundException
		if errors.As(err, &nf) {
			return "", fmt.Errorf("aws: %w: %s", kmscred.ErrSecretNotFound, secretName)
		}
		return "", fmt.Errorf("aws: get secret %s: %w", secretName, err)
	}

	if out.SecretString != nil {
		return *out.SecretString, nil
	}
	return string(out.SecretBinary), nil
}
