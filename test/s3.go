package test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"face-attend-system/config"
	"face-attend-system/internal/global/pictureBed"

	"github.com/stretchr/testify/require"
)

// S3Bucket S3 使用的 bucket 名
const S3Bucket = "faces-bucket"

// FakeS3 路径风格的内存对象存储，只实现 PUT/GET/DELETE
type FakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func (s *FakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		s.objects[r.URL.Path] = body
		s.types[r.URL.Path] = r.Header.Get("Content-Type")
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		body, ok := s.objects[r.URL.Path]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`)
			return
		}
		_, _ = w.Write(body)
	case http.MethodDelete:
		delete(s.objects, r.URL.Path)
		delete(s.types, r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// Object 返回 key 对应对象的内容与 Content-Type
func (s *FakeS3) Object(key string) (data []byte, contentType string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok = s.objects["/"+S3Bucket+"/"+key]
	return data, s.types["/"+S3Bucket+"/"+key], ok
}

// S3 启动内存 S3，并把 pictureBed 切换为 S3 加本地兜底，需在 Setup 之后调用
func S3(t *testing.T) *FakeS3 {
	t.Helper()
	fake := &FakeS3{objects: map[string][]byte{}, types: map[string]string{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	remote, err := pictureBed.InitS3(context.Background(), config.S3{
		Endpoint:        srv.URL,
		Bucket:          S3Bucket,
		Region:          "us-east-1",
		AccessKey:       "test",
		SecretAccessKey: "test",
		UsePathStyle:    true,
	})
	require.NoError(t, err)

	cfg := config.Get()
	pictureBed.Uploader = remote
	pictureBed.Default = pictureBed.NewFallback(remote, pictureBed.NewLocal(cfg.Storage.Home, cfg.Storage.BaseURL))
	return fake
}
