package pictureBed

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	"face-attend-system/config"
	"face-attend-system/internal/global/logger"
)

var (
	// Default 进程内使用的存储，Init 之前为本地存储
	Default Storage = NewLocal(config.Default().Storage.Home, config.Default().Storage.BaseURL)
	// Uploader 配置了 S3 时非空，用于生成直传地址
	Uploader *Remote
)

// Fallback 优先写入 Primary，失败时写入 Secondary；读取按指针前缀分派
type Fallback struct {
	Primary   Storage
	Secondary Storage
	log       *slog.Logger
}

func NewFallback(primary, secondary Storage) *Fallback {
	return &Fallback{Primary: primary, Secondary: secondary, log: logger.New("Storage")}
}

func (f *Fallback) Handles(pointer string) bool {
	return f.pick(pointer) != nil
}

func (f *Fallback) pick(pointer string) Storage {
	if f.Primary != nil && f.Primary.Handles(pointer) {
		return f.Primary
	}
	if f.Secondary != nil && f.Secondary.Handles(pointer) {
		return f.Secondary
	}
	return nil
}

func (f *Fallback) Save(ctx context.Context, key, contentType string, r io.Reader) (string, error) {
	if f.Primary == nil {
		return f.Secondary.Save(ctx, key, contentType, r)
	}
	// 主存储失败后需要重读内容
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	pointer, err := f.Primary.Save(ctx, key, contentType, bytes.NewReader(data))
	if err == nil {
		return pointer, nil
	}
	f.log.Warn("主存储写入失败，改用本地存储", "key", key, "error", err)
	return f.Secondary.Save(ctx, key, contentType, bytes.NewReader(data))
}

func (f *Fallback) Open(ctx context.Context, pointer string) (io.ReadCloser, error) {
	s := f.pick(pointer)
	if s == nil {
		return nil, fmt.Errorf("unknown storage pointer %q", pointer)
	}
	return s.Open(ctx, pointer)
}

func (f *Fallback) Delete(ctx context.Context, pointer string) error {
	s := f.pick(pointer)
	if s == nil {
		return fmt.Errorf("unknown storage pointer %q", pointer)
	}
	return s.Delete(ctx, pointer)
}

func (f *Fallback) URL(ctx context.Context, pointer string) (string, error) {
	s := f.pick(pointer)
	if s == nil {
		return "", fmt.Errorf("unknown storage pointer %q", pointer)
	}
	return s.URL(ctx, pointer)
}

// Init 配置了 S3 bucket 时使用 S3 + 本地兜底，否则只用本地目录
func Init(ctx context.Context) error {
	cfg := config.Get()
	local := NewLocal(cfg.Storage.Home, cfg.Storage.BaseURL)
	if cfg.S3.Bucket == "" {
		Default = local
		return nil
	}
	remote, err := InitS3(ctx, cfg.S3)
	if err != nil {
		return err
	}
	Uploader = remote
	Default = NewFallback(remote, local)
	return nil
}

// ReadAll 读出指针对应的全部内容
func ReadAll(ctx context.Context, s Storage, pointer string) ([]byte, error) {
	rc, err := s.Open(ctx, pointer)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
