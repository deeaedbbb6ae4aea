package blob

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/regenpgc/trialbase/internal/conf"
	"github.com/regenpgc/trialbase/internal/errors"
)

const (
	s3Scheme          = "s3://"
	defaultS3Region   = "us-east-1"
	defaultPresignTTL = 15 * time.Minute
)

// S3Config holds the construction parameters of an S3 store.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string // custom endpoint, e.g. MinIO
	PathStyle       bool
	AccessKeyID     string // empty falls back to the default credential chain
	SecretAccessKey string

	// HTTPClient replaces the SDK transport, used by tests.
	HTTPClient *http.Client
}

// S3ConfigFromSettings maps the blob.s3 configuration section.
func S3ConfigFromSettings(s conf.S3Settings) S3Config {
	return S3Config{
		Bucket:          s.Bucket,
		Region:          s.Region,
		Endpoint:        s.Endpoint,
		PathStyle:       s.PathStyle,
		AccessKeyID:     s.AccessKeyID,
		SecretAccessKey: s.SecretAccessKey,
	}
}

// S3Store keeps blobs in a single S3 compatible bucket.
type S3Store struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
}

// NewS3Store creates an S3 store from cfg.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.Newf("s3 bucket is required").
			Component("blob").
			Category(errors.CategoryConfiguration).
			Field("blob.s3.bucket").
			Build()
	}
	region := cfg.Region
	if region == "" {
		region = defaultS3Region
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errors.New(err).
			Component("blob").
			Category(errors.CategoryConfiguration).
			Context(errors.ContextOperation, "load_aws_config").
			Build()
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		if cfg.HTTPClient != nil {
			o.HTTPClient = cfg.HTTPClient
		}
	})
	return &S3Store{client: client, presign: s3.NewPresignClient(client), bucket: cfg.Bucket}, nil
}

func (s *S3Store) Driver() Driver { return DriverS3 }

func (s *S3Store) Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error) {
	key, err := CleanKey(key)
	if err != nil {
		return Info{}, err
	}
	// Create-only is emulated with a HEAD.
	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &s.bucket, Key: &key})
	switch {
	case err == nil:
		return Info{}, exists(key)
	case !isS3NotFound(err):
		return Info{}, storageError(err, "head", key)
	}

	// The SDK needs a seekable body to sign plain HTTP endpoints.
	data, err := io.ReadAll(r)
	if err != nil {
		return Info{}, storageError(err, "put", key)
	}
	input := &s3.PutObjectInput{
		Bucket:        &s.bucket,
		Key:           &key,
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		Metadata:      cloneMetadata(opts.Metadata),
	}
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}
	out, err := s.client.PutObject(ctx, input)
	if err != nil {
		return Info{}, storageError(err, "put", key)
	}

	info := Info{
		Key:          key,
		ContentType:  opts.ContentType,
		Metadata:     cloneMetadata(opts.Metadata),
		LastModified: time.Now().UTC(),
		URL:          s.Locator(key),
		Size:         int64(len(data)),
		ETag:         strings.Trim(aws.ToString(out.ETag), `"`),
	}
	return info, nil
}

func (s *S3Store) Get(ctx context.Context, key string) (Info, io.ReadCloser, error) {
	key, err := CleanKey(key)
	if err != nil {
		return Info{}, nil, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		if isS3NotFound(err) {
			return Info{}, nil, notFound(key)
		}
		return Info{}, nil, storageError(err, "get", key)
	}
	info := Info{
		Key:          key,
		Size:         aws.ToInt64(out.ContentLength),
		ContentType:  aws.ToString(out.ContentType),
		ETag:         strings.Trim(aws.ToString(out.ETag), `"`),
		Metadata:     cloneMetadata(out.Metadata),
		LastModified: aws.ToTime(out.LastModified),
		URL:          s.Locator(key),
	}
	return info, out.Body, nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	key, err := CleanKey(key)
	if err != nil {
		return err
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &s.bucket, Key: &key}); err != nil && !isS3NotFound(err) {
		return storageError(err, "delete", key)
	}
	return nil
}

func (s *S3Store) Locator(key string) string { return s3Scheme + s.bucket + "/" + key }

func (s *S3Store) KeyFor(locator string) (string, bool) {
	key, ok := strings.CutPrefix(locator, s3Scheme+s.bucket+"/")
	if !ok || key == "" {
		return "", false
	}
	return key, true
}

// SignedURL presigns a GET for key. A non-positive expiry selects 15 minutes.
func (s *S3Store) SignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	key, err := CleanKey(key)
	if err != nil {
		return "", err
	}
	if expiry <= 0 {
		expiry = defaultPresignTTL
	}
	req, err := s.presign.PresignGetObject(ctx,
		&s3.GetObjectInput{Bucket: &s.bucket, Key: &key},
		func(po *s3.PresignOptions) { po.Expires = expiry })
	if err != nil {
		return "", storageError(err, "presign", key)
	}
	return req.URL, nil
}

// isS3NotFound reports a 404 from any S3 operation. HEAD responses carry no
// error body, so the status code is the only reliable signal.
func isS3NotFound(err error) bool {
	var re *awshttp.ResponseError
	return errors.As(err, &re) && re.HTTPStatusCode() == http.StatusNotFound
}

var _ Store = (*S3Store)(nil)
