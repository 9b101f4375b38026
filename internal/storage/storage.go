// Package storage keeps avatar originals in an S3 compatible bucket
// (Cloudflare R2 by default).
package storage

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/petermazzocco/go-dashboard/internal/config"
)

// ErrDisabled is returned by New when the bucket is not configured.
var ErrDisabled = errors.New("object storage not configured")

type Bucket struct {
	client    *s3.Client
	name      string
	publicURL string
}

// New connects to the configured bucket.
func New(ctx context.Context, cfg config.StorageConfig) (*Bucket, error) {
	if !cfg.Enabled() {
		return nil, ErrDisabled
	}

	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
			MaxVersion: tls.VersionTLS13,
			CipherSuites: []uint16{
				tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
				tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
				tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
				tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
			},
		},
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithHTTPClient(&http.Client{Transport: tr}),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.AccessKeySecret, "")),
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("load s3 config: %w", err)
	}

	endpoint := Endpoint(cfg)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})
	return &Bucket{client: client, name: cfg.Bucket, publicURL: cfg.PublicURL}, nil
}

// Endpoint is the S3 endpoint for cfg: S3_ENDPOINT when set, else the R2
// endpoint of the account.
func Endpoint(cfg config.StorageConfig) string {
	if cfg.Endpoint != "" {
		return strings.TrimRight(cfg.Endpoint, "/")
	}
	return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)
}

func (b *Bucket) Put(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.name),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// Get returns the object's bytes and content type.
func (b *Bucket) Get(ctx context.Context, key string) ([]byte, string, error) {
	res, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.name),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, "", fmt.Errorf("get %s: %w", key, err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", key, err)
	}
	return data, aws.ToString(res.ContentType), nil
}

func (b *Bucket) PublicURL(key string) string {
	return PublicURL(b.publicURL, key)
}

// PublicURL joins a key onto the public bucket URL. A base containing %s is
// used as a format string.
func PublicURL(base, key string) string {
	if base == "" {
		return ""
	}
	if strings.Contains(base, "%s") {
		return CleanURL(fmt.Sprintf(base, key))
	}
	return CleanURL(strings.TrimRight(base, "/") + "/" + key)
}

func CleanURL(urlStr string) string {
	urlStr = strings.ReplaceAll(urlStr, " ", "%20")
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return urlStr
	}

	return parsedURL.String()
}

// AvatarKey is the object key for a user's uploaded avatar.
func AvatarKey(userID uint, filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "avatar"
	}
	return fmt.Sprintf("avatars/%d/%s_%s", userID, uuid.NewString(), name)
}
