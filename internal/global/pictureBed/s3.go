package pictureBed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"face-attend-system/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const defaultURLExpire = time.Hour

// Remote S3 兼容对象存储
type Remote struct {
	Bucket       string
	Prefix       string
	BaseURL      string
	Endpoint     string
	UsePathStyle bool

	s3Client *s3.Client
	uploader *manager.Uploader
	presign  *s3.PresignClient
}

// InitS3 根据配置创建 S3 客户端，Endpoint 为空时使用 AWS 默认地址
func InitS3(ctx context.Context, cfg config.S3) (*Remote, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("S3 bucket not configured")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
		// 兼容不支持新版校验和的 S3 实现（MinIO、R2 等）
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})

	return &Remote{
		Bucket:       cfg.Bucket,
		Prefix:       cfg.Prefix,
		BaseURL:      cfg.BaseURL,
		Endpoint:     cfg.Endpoint,
		UsePathStyle: cfg.UsePathStyle,
		s3Client:     client,
		uploader:     manager.NewUploader(client),
		presign:      s3.NewPresignClient(client),
	}, nil
}

func (r *Remote) Handles(pointer string) bool {
	return strings.HasPrefix(pointer, SchemeS3)
}

func (r *Remote) objectKey(key string) string {
	return strings.TrimLeft(path.Join(strings.Trim(r.Prefix, "/"), key), "/")
}

// parse 从 s3://bucket/key 中取出 bucket 与 key
func (r *Remote) parse(pointer string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(pointer, SchemeS3)
	if !ok {
		return "", "", fmt.Errorf("not an s3 pointer: %q", pointer)
	}
	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("malformed s3 pointer: %q", pointer)
	}
	return bucket, key, nil
}

func (r *Remote) Save(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	objectKey := r.objectKey(key)
	_, err = r.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.Bucket),
		Key:         aws.String(objectKey),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", objectKey, err)
	}
	return SchemeS3 + r.Bucket + "/" + objectKey, nil
}

func (r *Remote) Open(ctx context.Context, pointer string) (io.ReadCloser, error) {
	bucket, key, err := r.parse(pointer)
	if err != nil {
		return nil, err
	}
	out, err := r.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return out.Body, nil
}

func (r *Remote) Delete(ctx context.Context, pointer string) error {
	bucket, key, err := r.parse(pointer)
	if err != nil {
		return err
	}
	_, err = r.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	return err
}

// URL 配置了公开访问前缀时直接拼接，否则返回一小时有效的预签名下载地址
func (r *Remote) URL(ctx context.Context, pointer string) (string, error) {
	_, key, err := r.parse(pointer)
	if err != nil {
		return "", err
	}
	if r.BaseURL != "" {
		return r.publicURL(key), nil
	}
	return r.GeneratePresignedDownloadURL(ctx, key, int64(defaultURLExpire/time.Second))
}

func (r *Remote) publicURL(key string) string {
	base := strings.TrimRight(r.BaseURL, "/")
	if r.UsePathStyle {
		return base + "/" + r.Bucket + "/" + key
	}
	return base + "/" + key
}
