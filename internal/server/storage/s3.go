package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/complyvault/evidenced/internal/common"
	sc "github.com/complyvault/evidenced/internal/server/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
	headObject = func(c *s3.Client, ctx context.Context, in *s3.HeadObjectInput) (*s3.HeadObjectOutput, error) {
		return c.HeadObject(ctx, in)
	}
)

// S3Gateway implements Gateway over an S3-compatible backend (AWS S3, MinIO).
type S3Gateway struct {
	config *sc.Config
}

// NewS3Gateway constructs a gateway using the server configuration's
// S3 settings and credential TTLs.
func NewS3Gateway(config *sc.Config) *S3Gateway {
	return &S3Gateway{config: config}
}

func (g *S3Gateway) getClient(ctx context.Context) (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(g.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			g.config.S3RootUser,     // MINIO_ROOT_USER
			g.config.S3RootPassword, // MINIO_ROOT_PASSWORD
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(g.config.S3BaseEndpoint)
	})

	return client, nil
}

// PresignPut returns a presigned PUT credential for key. The gateway, not
// this service, enforces the credential's expiry on the actual write.
func (g *S3Gateway) PresignPut(ctx context.Context, key, contentType string) (*Credential, error) {
	client, err := g.getClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorUpstream, err)
	}
	presignClient := newS3PresignClient(client)

	bucket := g.config.S3Bucket
	ttl := g.config.UploadCredentialTTL

	req, err := presignPutObject(presignClient, ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		ContentType: &contentType,
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorUpstream, err)
	}

	return &Credential{URL: req.URL, Key: key, ExpiresAt: time.Now().Add(ttl)}, nil
}

// PresignGet returns a presigned GET credential for key.
func (g *S3Gateway) PresignGet(ctx context.Context, key string) (*Credential, error) {
	client, err := g.getClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorUpstream, err)
	}
	presignClient := newS3PresignClient(client)

	bucket := g.config.S3Bucket
	ttl := g.config.DownloadCredentialTTL

	req, err := presignGetObject(presignClient, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorUpstream, err)
	}

	return &Credential{URL: req.URL, Key: key, ExpiresAt: time.Now().Add(ttl)}, nil
}

// Head probes for the object at key. Returns common.ErrorNotFound when the
// object does not exist and an upstream error for transport failures.
func (g *S3Gateway) Head(ctx context.Context, key string) (*ObjectInfo, error) {
	client, err := g.getClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorUpstream, err)
	}

	bucket := g.config.S3Bucket

	out, err := headObject(client, ctx, &s3.HeadObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("%w: %v", common.ErrorUpstream, err)
	}

	info := &ObjectInfo{}
	if out.ContentLength != nil {
		info.Size = *out.ContentLength
	}
	if out.ContentType != nil {
		info.ContentType = *out.ContentType
	}
	return info, nil
}
