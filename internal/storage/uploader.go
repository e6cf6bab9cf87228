package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"github.com/digkill/QuickAI/internal/apperr"
)

type Config struct {
	Endpoint         string
	Region           string
	AccessKey        string
	SecretKey        string
	Bucket           string
	PublicBaseURL    string
	UsePathStyle     bool
	Prefix           string
	TransformBaseURL string
}

// Transform names a CDN-side image transformation applied by URL.
// The zero value means no transformation.
type Transform struct {
	Effect string
	Param  string
}

func BackgroundRemoval() Transform {
	return Transform{Effect: "background_removal"}
}

// GenerativeRemove erases a single named object from the image.
func GenerativeRemove(object string) Transform {
	return Transform{Effect: "gen_remove", Param: "prompt_" + object}
}

func (t Transform) IsZero() bool {
	return t.Effect == ""
}

func (t Transform) String() string {
	if t.IsZero() {
		return ""
	}
	if t.Param == "" {
		return "e_" + t.Effect
	}
	return "e_" + t.Effect + ":" + t.Param
}

// Source is either an in-memory image or a path on local disk.
type Source struct {
	Data        []byte
	Path        string
	ContentType string
}

type Uploader struct {
	cfg    Config
	client *s3.Client
	now    func() time.Time
}

func NewUploader(cfg Config) (*Uploader, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("s3 region is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("s3 credentials are required")
	}
	if cfg.PublicBaseURL == "" {
		return nil, fmt.Errorf("s3 public base url is required")
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "creations"
	}

	options := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: cfg.UsePathStyle,
	}
	if cfg.Endpoint != "" {
		options.BaseEndpoint = aws.String(cfg.Endpoint)
	}

	return &Uploader{
		cfg:    cfg,
		client: s3.New(options),
		now:    time.Now,
	}, nil
}

// StoreImage uploads src and returns its public URL, or the transformed delivery URL
// when a transform is requested. The transform costs no extra round trip.
func (u *Uploader) StoreImage(ctx context.Context, src Source, transform Transform) (string, error) {
	data := src.Data
	if src.Path != "" {
		raw, err := os.ReadFile(src.Path)
		if err != nil {
			return "", apperr.Internal("read uploaded image", err)
		}
		data = raw
	}
	contentType := src.ContentType
	if contentType == "" && len(data) > 0 {
		contentType = http.DetectContentType(data)
	}

	key, err := u.Upload(ctx, data, contentType)
	if err != nil {
		return "", err
	}
	if transform.IsZero() {
		return u.PublicURL(key), nil
	}
	return u.TransformURL(key, transform)
}

// Upload stores data under a fresh key and returns that key.
func (u *Uploader) Upload(ctx context.Context, data []byte, contentType string) (string, error) {
	if len(data) == 0 {
		return "", apperr.Validation("image is empty")
	}
	if contentType == "" {
		contentType = "image/png"
	}

	key := u.generateKey(contentType)
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		ACL:         types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return "", apperr.Upstream("image storage upload failed", fmt.Errorf("upload to s3: %w", err))
	}
	return key, nil
}

func (u *Uploader) PublicURL(key string) string {
	return strings.TrimRight(u.cfg.PublicBaseURL, "/") + "/" + key
}

// TransformURL computes the CDN delivery URL for key with the transform applied.
func (u *Uploader) TransformURL(key string, transform Transform) (string, error) {
	return BuildTransformURL(u.cfg.TransformBaseURL, key, transform)
}

func BuildTransformURL(base, key string, transform Transform) (string, error) {
	if transform.IsZero() {
		return "", fmt.Errorf("transform is required")
	}
	if base == "" {
		return "", apperr.Upstream("image transformations are not configured", nil)
	}
	segments := append([]string{url.PathEscape(transform.String())}, strings.Split(key, "/")...)
	return strings.TrimRight(base, "/") + "/" + strings.Join(segments, "/"), nil
}

func (u *Uploader) generateKey(contentType string) string {
	ext := extensionFromContentType(contentType)
	now := u.now().UTC()
	prefix := strings.Trim(u.cfg.Prefix, "/")
	return path.Join(prefix, fmt.Sprintf("%04d/%02d/%02d", now.Year(), now.Month(), now.Day()), uuid.NewString()+ext)
}

func extensionFromContentType(contentType string) string {
	switch strings.ToLower(contentType) {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".bin"
	}
}
