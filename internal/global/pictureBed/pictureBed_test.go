package pictureBed

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"face-attend-system/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFaceKey(t *testing.T) {
	assert.Equal(t, "faces/user_3", FaceKey(3))
}

func TestLocalSaveOverwriteOpenDelete(t *testing.T) {
	ctx := context.Background()
	l := NewLocal(t.TempDir(), "/static/")

	pointer, err := l.Save(ctx, "faces/user_1.jpg", "image/jpeg", strings.NewReader("first"))
	require.NoError(t, err)
	assert.Equal(t, "local://faces/user_1.jpg", pointer)

	_, err = l.Save(ctx, "faces/user_1.jpg", "image/jpeg", strings.NewReader("second"))
	require.NoError(t, err)

	data, err := ReadAll(ctx, l, pointer)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	url, err := l.URL(ctx, pointer)
	require.NoError(t, err)
	assert.Equal(t, "/static/faces/user_1.jpg", url)

	require.NoError(t, l.Delete(ctx, pointer))
	_, err = l.Open(ctx, pointer)
	assert.ErrorIs(t, err, ErrNotFound)
	// 重复删除不报错
	require.NoError(t, l.Delete(ctx, pointer))
}

func TestLocalRejectsTraversal(t *testing.T) {
	l := NewLocal(t.TempDir(), "/static")
	_, err := l.Save(context.Background(), "../etc/passwd", "", strings.NewReader("x"))
	require.Error(t, err)
	_, err = l.Open(context.Background(), "local://faces/../../x")
	require.Error(t, err)
}

type failingStorage struct{ Local }

func (failingStorage) Save(context.Context, string, string, io.Reader) (string, error) {
	return "", errors.New("bucket unreachable")
}

func (failingStorage) Handles(pointer string) bool {
	return strings.HasPrefix(pointer, SchemeS3)
}

func TestFallbackUsesSecondaryWhenPrimaryFails(t *testing.T) {
	ctx := context.Background()
	local := NewLocal(t.TempDir(), "/static")
	f := NewFallback(&failingStorage{}, local)

	pointer, err := f.Save(ctx, "faces/user_9.jpg", "image/jpeg", strings.NewReader("img"))
	require.NoError(t, err)
	assert.Equal(t, "local://faces/user_9.jpg", pointer)

	data, err := ReadAll(ctx, f, pointer)
	require.NoError(t, err)
	assert.Equal(t, "img", string(data))

	_, err = f.Open(ctx, "ftp://nowhere/x")
	require.Error(t, err)
}

// fakeS3 按 path-style 处理 PUT/GET/DELETE
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (s *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		s.objects[r.URL.Path] = body
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
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newRemote(t *testing.T) (*Remote, *fakeS3) {
	fake := &fakeS3{objects: map[string][]byte{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	r, err := InitS3(context.Background(), config.S3{
		Endpoint:        srv.URL,
		Bucket:          "faces-bucket",
		Region:          "us-east-1",
		AccessKey:       "test",
		SecretAccessKey: "test",
		UsePathStyle:    true,
	})
	require.NoError(t, err)
	return r, fake
}

func TestRemoteSaveOpenDelete(t *testing.T) {
	ctx := context.Background()
	r, fake := newRemote(t)

	pointer, err := r.Save(ctx, "faces/user_1.jpg", "image/jpeg", bytes.NewReader([]byte("jpeg")))
	require.NoError(t, err)
	assert.Equal(t, "s3://faces-bucket/faces/user_1.jpg", pointer)
	assert.Contains(t, fake.objects, "/faces-bucket/faces/user_1.jpg")

	data, err := ReadAll(ctx, r, pointer)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", string(data))

	require.NoError(t, r.Delete(ctx, pointer))
	_, err = r.Open(ctx, pointer)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRemoteURLs(t *testing.T) {
	ctx := context.Background()
	r, _ := newRemote(t)

	url, err := r.URL(ctx, "s3://faces-bucket/faces/user_1.jpg")
	require.NoError(t, err)
	assert.Contains(t, url, "/faces-bucket/faces/user_1.jpg")
	assert.Contains(t, url, "X-Amz-Signature")

	r.BaseURL = "https://cdn.example.com/"
	url, err = r.URL(ctx, "s3://faces-bucket/faces/user_1.jpg")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/faces-bucket/faces/user_1.jpg", url)

	up, err := r.GeneratePresignedUploadURL(ctx, "faces/user_2.jpg", "image/jpeg", 0)
	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, up.Method)
	assert.Equal(t, "s3://faces-bucket/faces/user_2.jpg", up.Pointer)
	assert.Contains(t, up.UploadURL, "X-Amz-Signature")

	_, err = r.URL(ctx, "s3://faces-bucket")
	require.Error(t, err)
}

func TestReplacePointerAcrossStorages(t *testing.T) {
	ctx := context.Background()
	remote, fake := newRemote(t)
	local := NewLocal(t.TempDir(), "/static")
	fb := NewFallback(remote, local)

	// 先落到本地兜底，之后主存储写入成功
	localPointer, err := local.Save(ctx, FaceKey(1), "image/png", strings.NewReader("old"))
	require.NoError(t, err)
	remotePointer, err := fb.Save(ctx, FaceKey(1), "image/jpeg", strings.NewReader("new"))
	require.NoError(t, err)
	assert.Equal(t, "s3://faces-bucket/faces/user_1", remotePointer)

	require.NoError(t, ReplacePointer(ctx, fb, localPointer, remotePointer))
	_, err = local.Open(ctx, localPointer)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, fake.objects, "/faces-bucket/faces/user_1")

	// 指针未变时不删除
	require.NoError(t, ReplacePointer(ctx, fb, remotePointer, remotePointer))
	assert.Contains(t, fake.objects, "/faces-bucket/faces/user_1")
	require.NoError(t, ReplacePointer(ctx, fb, "", remotePointer))
}

func TestInitS3RequiresBucket(t *testing.T) {
	_, err := InitS3(context.Background(), config.S3{})
	require.Error(t, err)
}
