package tablestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/aliyun/alibabacloud-oss-go-sdk-v2/oss"
	"github.com/aliyun/alibabacloud-oss-go-sdk-v2/oss/credentials"
	"gomod.pri/codec/snowflake"
)

type ossAPI interface {
	PutObject(ctx context.Context, request *oss.PutObjectRequest, optFns ...func(*oss.Options)) (*oss.PutObjectResult, error)
	GetObject(ctx context.Context, request *oss.GetObjectRequest, optFns ...func(*oss.Options)) (*oss.GetObjectResult, error)
}

type ossBucket struct {
	client ossAPI
	bucket string
}

func NewOSSStore(conf ObjectConf, ids *snowflake.Generator) *ObjectStore {
	cfg := oss.LoadDefaultConfig().
		WithCredentialsProvider(credentials.NewStaticCredentialsProvider(conf.AccessKey, conf.SecretKey)).
		WithEndpoint(conf.Endpoint).
		WithRegion(conf.Region)

	return newObjectStore(&ossBucket{client: oss.NewClient(cfg), bucket: conf.Bucket}, conf.Prefix, ids)
}

func (b *ossBucket) name() string { return string(ProviderOSS) }

func (b *ossBucket) put(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := b.client.PutObject(ctx, &oss.PutObjectRequest{
		Bucket:      oss.Ptr(b.bucket),
		Key:         oss.Ptr(key),
		ContentType: oss.Ptr(contentType),
		Body:        bytes.NewReader(body),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to OSS: %w", err)
	}
	return nil
}

func (b *ossBucket) get(ctx context.Context, key string) ([]byte, error) {
	result, err := b.client.GetObject(ctx, &oss.GetObjectRequest{
		Bucket: oss.Ptr(b.bucket),
		Key:    oss.Ptr(key),
	})
	if err != nil {
		var serr *oss.ServiceError
		if errors.As(err, &serr) && (serr.Code == "NoSuchKey" || serr.StatusCode == http.StatusNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to download from OSS: %w", err)
	}
	defer result.Body.Close()

	return io.ReadAll(result.Body)
}
