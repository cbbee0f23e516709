// Package s3 implements the S3-compatible object storage provider.
// It supports AWS S3, MinIO and other S3-compatible services.
package s3

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/yi-nology/docvault/pkg/storage"
)

// DefaultPresignExpiry is the lifetime of presigned download URLs.
const DefaultPresignExpiry = 300 * time.Second

// Options holds the resolved configuration of an S3 backend.
type Options struct {
	Bucket       string
	Region       string
	EndpointURL  string
	AccessKey    string
	SecretKey    string
	ObjectPrefix string
	ContentType  string
	PathStyle    bool // required for MinIO
}

// ParseOptions reads the S3 option keys, resolving *_env indirections.
func ParseOptions(opts storage.Options, lookup storage.LookupFunc) Options {
	return Options{
		Bucket:       strings.TrimSpace(opts.String("bucket")),
		Region:       strings.TrimSpace(opts.String("region")),
		EndpointURL:  strings.TrimSpace(opts.String("endpoint_url")),
		AccessKey:    opts.Value("access_key", "access_key_env").Resolve(lookup),
		SecretKey:    opts.Value("secret_key", "secret_key_env").Resolve(lookup),
		ObjectPrefix: strings.Trim(opts.String("object_prefix"), "/"),
		ContentType:  strings.TrimSpace(opts.String("content_type")),
		PathStyle:    opts.Bool("path_style"),
	}
}

// Validate checks the fields an upload cannot do without.
func (o Options) Validate() error {
	if o.Bucket == "" {
		return storage.Missing(storage.KindS3, "bucket")
	}
	return nil
}

// ObjectKey prefixes a logical key with the configured object prefix.
func (o Options) ObjectKey(logicalKey string) string {
	if o.ObjectPrefix == "" {
		return logicalKey
	}
	return o.ObjectPrefix + "/" + logicalKey
}

// Client is the subset of the S3 API used for uploads.
type Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Presigner is the subset of the S3 presign API used for downloads.
type Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// ClientFactory builds an upload client from resolved options.
type ClientFactory func(ctx context.Context, opts Options) (Client, error)

// PresignerFactory builds a presigner from resolved options.
type PresignerFactory func(ctx context.Context, opts Options) (Presigner, error)

// NewClient builds an SDK client from the non-empty options only, leaving
// the rest to the AWS default configuration chain.
func NewClient(ctx context.Context, opts Options) (*s3.Client, error) {
	var optFns []func(*config.LoadOptions) error
	if opts.Region != "" {
		optFns = append(optFns, config.WithRegion(opts.Region))
	}
	if opts.AccessKey != "" && opts.SecretKey != "" {
		optFns = append(optFns, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	var s3OptFns []func(*s3.Options)
	if opts.EndpointURL != "" {
		s3OptFns = append(s3OptFns, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(opts.EndpointURL)
		})
	}
	if opts.PathStyle {
		s3OptFns = append(s3OptFns, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}
	return s3.NewFromConfig(awsCfg, s3OptFns...), nil
}

// DefaultClientFactory builds real SDK clients.
func DefaultClientFactory(ctx context.Context, opts Options) (Client, error) {
	return NewClient(ctx, opts)
}

// DefaultPresignerFactory builds real SDK presign clients.
func DefaultPresignerFactory(ctx context.Context, opts Options) (Presigner, error) {
	client, err := NewClient(ctx, opts)
	if err != nil {
		return nil, err
	}
	return s3.NewPresignClient(client), nil
}

// Provider uploads staged files to a bucket.
type Provider struct {
	opts      Options
	newClient ClientFactory
}

// New creates an S3 provider. A nil factory selects DefaultClientFactory.
func New(opts storage.Options, lookup storage.LookupFunc, factory ClientFactory) (*Provider, error) {
	if factory == nil {
		factory = DefaultClientFactory
	}
	return &Provider{opts: ParseOptions(opts, lookup), newClient: factory}, nil
}

// Kind returns S3.
func (p *Provider) Kind() storage.Kind {
	return storage.KindS3
}

// Options returns the resolved options.
func (p *Provider) Options() Options {
	return p.opts
}

// Upload puts the staged file under the prefixed key and returns an
// s3://bucket/key locator.
func (p *Provider) Upload(ctx context.Context, sourcePath, logicalKey string) (string, error) {
	if err := p.opts.Validate(); err != nil {
		return "", err
	}
	key, err := storage.CleanKey(logicalKey)
	if err != nil {
		return "", err
	}
	objectKey := p.opts.ObjectKey(key)

	f, err := os.Open(sourcePath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", storage.ErrSourceMissing, sourcePath)
		}
		return "", &storage.TransferError{Kind: storage.KindS3, Op: "open source", Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", &storage.TransferError{Kind: storage.KindS3, Op: "stat source", Err: err}
	}

	client, err := p.newClient(ctx, p.opts)
	if err != nil {
		return "", &storage.TransferError{Kind: storage.KindS3, Op: "create client", Err: err}
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(p.opts.Bucket),
		Key:           aws.String(objectKey),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
	}
	if p.opts.ContentType != "" {
		input.ContentType = aws.String(p.opts.ContentType)
	}

	if _, err := client.PutObject(ctx, input); err != nil {
		return "", &storage.TransferError{Kind: storage.KindS3, Op: "put object", Err: err}
	}

	return storage.S3Locator(p.opts.Bucket, objectKey), nil
}

// PresignGet returns a time-limited GET URL for bucket/key.
func PresignGet(ctx context.Context, presigner Presigner, bucket, key string, expiry time.Duration) (string, error) {
	if expiry <= 0 {
		expiry = DefaultPresignExpiry
	}
	req, err := presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = expiry
	})
	if err != nil {
		return "", fmt.Errorf("presign url: %w", err)
	}
	return req.URL, nil
}
