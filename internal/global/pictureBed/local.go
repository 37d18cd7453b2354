package pictureBed

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Local 图片保存到本地目录，通过静态路由访问
type Local struct {
	SaveDir string // 图片保存目录
	BaseURL string // 图片访问基础URL
}

func NewLocal(saveDir, baseURL string) *Local {
	return &Local{SaveDir: saveDir, BaseURL: baseURL}
}

func (l *Local) Handles(pointer string) bool {
	return strings.HasPrefix(pointer, SchemeLocal) || !strings.Contains(pointer, "://")
}

func (l *Local) path(pointer string) (string, error) {
	key, err := cleanKey(strings.TrimPrefix(pointer, SchemeLocal))
	if err != nil {
		return "", err
	}
	return filepath.Join(l.SaveDir, filepath.FromSlash(key)), nil
}

// Save 先写临时文件再重命名，覆盖旧文件时不会留下半截内容
func (l *Local) Save(_ context.Context, key, _ string, r io.Reader) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	target := filepath.Join(l.SaveDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(target), os.ModePerm); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", err
	}
	return SchemeLocal + key, nil
}

func (l *Local) Open(_ context.Context, pointer string) (io.ReadCloser, error) {
	p, err := l.path(pointer)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return f, err
}

func (l *Local) Delete(_ context.Context, pointer string) error {
	p, err := l.path(pointer)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (l *Local) URL(_ context.Context, pointer string) (string, error) {
	key, err := cleanKey(strings.TrimPrefix(pointer, SchemeLocal))
	if err != nil {
		return "", err
	}
	return strings.TrimRight(l.BaseURL, "/") + "/" + key, nil
}
