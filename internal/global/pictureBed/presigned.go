package pictureBed

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// PresignedUploadResponse 客户端直传所需的信息
type PresignedUploadResponse struct {
	UploadURL string            `json:"upload_url"`
	Pointer   string            `json:"-"`
	FileKey   string            `json:"file_key"`
	ExpiresAt time.Time         `json:"expires_at"`
	Method    string            `json:"method"`
	Headers   map[string]string `json:"headers"`
}

// GeneratePresignedUploadURL 为指定 key 生成预签名 PUT 地址，默认 15 分钟有效
func (r *Remote) GeneratePresignedUploadURL(ctx context.Context, key, contentType string, expiresIn int64) (*PresignedUploadResponse, error) {
	key, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	if expiresIn <= 0 {
		expiresIn = 900
	}
	if contentType == "" {
		contentType = "image/jpeg"
	}
	objectKey := r.objectKey(key)
	expires := time.Duration(expiresIn) * time.Second

	req, err := r.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.Bucket),
		Key:         aws.String(objectKey),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return nil, fmt.Errorf("presign upload: %w", err)
	}

	resp := &PresignedUploadResponse{
		UploadURL: req.URL,
		Pointer:   SchemeS3 + r.Bucket + "/" + objectKey,
		FileKey:   objectKey,
		ExpiresAt: time.Now().Add(expires),
		Method:    req.Method,
		Headers:   map[string]string{"Content-Type": contentType},
	}
	for k, v := range req.SignedHeader {
		if len(v) > 0 {
			resp.Headers[k] = v[0]
		}
	}
	return resp, nil
}

// GeneratePresignedDownloadURL 生成私有对象的临时下载地址
func (r *Remote) GeneratePresignedDownloadURL(ctx context.Context, key string, expiresIn int64) (string, error) {
	if expiresIn <= 0 {
		expiresIn = 3600
	}
	req, err := r.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(time.Duration(expiresIn)*time.Second))
	if err != nil {
		return "", fmt.Errorf("presign download: %w", err)
	}
	return req.URL, nil
}
