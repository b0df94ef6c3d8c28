package devserver

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	sc "github.com/dpetrenko/filekeeper/internal/devserver/config"
)

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
)

// Presigner issues a single-use upload URL for a storage key.
type Presigner interface {
	PresignPut(ctx context.Context, key string, contentType string) (string, error)
}

// S3Presigner issues real presigned PUT URLs against an S3-compatible
// backend (MinIO in development).
type S3Presigner struct {
	config *sc.Config
}

func NewS3Presigner(config *sc.Config) *S3Presigner {
	return &S3Presigner{config: config}
}

func (p *S3Presigner) getPresignClient() (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(context.Background(),
		awsconfig.WithRegion(p.config.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			p.config.S3RootUser,     // MINIO_ROOT_USER
			p.config.S3RootPassword, // MINIO_ROOT_PASSWORD
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(p.config.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	return newS3PresignClient(client), nil
}

func (p *S3Presigner) PresignPut(ctx context.Context, key string, contentType string) (string, error) {

	presignClient, err := p.getPresignClient()
	if err != nil {
		return "", err
	}

	bucket := p.config.S3Bucket

	req, err := presignPutObject(presignClient, ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		ContentType: &contentType,
	}, s3.WithPresignExpires(ttlOrDefault(p.config.PresignTTL)))
	if err != nil {
		return "", err
	}

	return req.URL, nil
}

func ttlOrDefault(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 15 * time.Minute
	}
	return ttl
}

// LocalPresigner points uploads back at the development server's own
// storage endpoint. The URL carries no signature; local mode trusts the
// caller.
type LocalPresigner struct {
	baseURL string
}

func NewLocalPresigner(baseURL string) *LocalPresigner {
	return &LocalPresigner{baseURL: baseURL}
}

func (p *LocalPresigner) PresignPut(ctx context.Context, key string, contentType string) (string, error) {
	return fmt.Sprintf("%s/storage/%s", p.baseURL, key), nil
}
