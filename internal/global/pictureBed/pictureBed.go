// Package pictureBed 保存用户参考照片，支持本地目录与 S3 兼容对象存储
package pictureBed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	SchemeLocal = "local://"
	SchemeS3    = "s3://"
)

var ErrNotFound = errors.New("image not found")

// Storage 存取图片，Save 返回的指针写入数据库，之后通过指针读取
type Storage interface {
	Save(ctx context.Context, key, contentType string, r io.Reader) (pointer string, err error)
	Open(ctx context.Context, pointer string) (io.ReadCloser, error)
	Delete(ctx context.Context, pointer string) error
	URL(ctx context.Context, pointer string) (string, error)
	// Handles 判断指针是否由该存储生成
	Handles(pointer string) bool
}

// FaceKey 用户参考照片的存储 key，同一用户固定，重复上传直接覆盖；
// 图片类型记录在对象的 Content-Type 上，不体现在 key 中
func FaceKey(userID uint) string {
	return fmt.Sprintf("faces/user_%d", userID)
}

// ReplacePointer 指针改变后删除旧对象，每个用户只保留一份参考照片
func ReplacePointer(ctx context.Context, s Storage, old, current string) error {
	if old == "" || old == current {
		return nil
	}
	if err := s.Delete(ctx, old); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("delete previous image %s: %w", old, err)
	}
	return nil
}

func cleanKey(key string) (string, error) {
	key = strings.TrimLeft(key, "/")
	if key == "" {
		return "", errors.New("empty storage key")
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return "", fmt.Errorf("invalid storage key %q", key)
		}
	}
	return key, nil
}
