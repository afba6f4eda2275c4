package tablestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	huaweiObs "github.com/huaweicloud/huaweicloud-sdk-go-obs/obs"
	"gomod.pri/codec/snowflake"
)

// obsAPI is satisfied by obsClient; the SDK methods take extension options of an
// unexported type and cannot be matched by an interface directly.
type obsAPI interface {
	PutObject(input *huaweiObs.PutObjectInput) (*huaweiObs.PutObjectOutput, error)
	GetObject(input *huaweiObs.GetObjectInput) (*huaweiObs.GetObjectOutput, error)
}

type obsClient struct {
	c *huaweiObs.ObsClient
}

func (o obsClient) PutObject(input *huaweiObs.PutObjectInput) (*huaweiObs.PutObjectOutput, error) {
	return o.c.PutObject(input)
}

func (o obsClient) GetObject(input *huaweiObs.GetObjectInput) (*huaweiObs.GetObjectOutput, error) {
	return o.c.GetObject(input)
}

type obsBucket struct {
	client obsAPI
	bucket string
}

func NewOBSStore(conf ObjectConf, ids *snowflake.Generator) (*ObjectStore, error) {
	client, err := huaweiObs.New(conf.AccessKey, conf.SecretKey, conf.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("create obs client: %w", err)
	}

	return newObjectStore(&obsBucket{client: obsClient{c: client}, bucket: conf.Bucket}, conf.Prefix, ids), nil
}

func (b *obsBucket) name() string { return string(ProviderOBS) }

// the SDK calls are blocking and take no context
func (b *obsBucket) put(ctx context.Context, key string, body []byte, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	input := &huaweiObs.PutObjectInput{}
	input.Bucket = b.bucket
	input.Key = key
	input.ContentType = contentType
	input.Body = bytes.NewReader(body)

	if _, err := b.client.PutObject(input); err != nil {
		return fmt.Errorf("failed to upload to OBS: %w", err)
	}
	return nil
}

func (b *obsBucket) get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	input := &huaweiObs.GetObjectInput{}
	input.Bucket = b.bucket
	input.Key = key

	output, err := b.client.GetObject(input)
	if err != nil {
		var oerr huaweiObs.ObsError
		if errors.As(err, &oerr) && (oerr.Code == "NoSuchKey" || oerr.StatusCode == http.StatusNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to download from OBS: %w", err)
	}
	defer output.Body.Close()

	return io.ReadAll(output.Body)
}
