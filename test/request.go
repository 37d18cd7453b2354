package test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"face-attend-system/internal/global/response"

	"github.com/stretchr/testify/require"
)

// File multipart 请求中的一个文件字段
type File struct {
	Name string
	Data []byte
}

// DoRequest 执行请求并解析统一响应体，文件下载等非 JSON 响应 resp 为空
func DoRequest(t *testing.T, handler http.Handler, req *http.Request) (resp response.ResponseBody, w *httptest.ResponseRecorder) {
	t.Helper()
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if ct := w.Header().Get("Content-Type"); len(ct) >= 16 && ct[:16] == "application/json" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return
}

// MultipartRequest 构造 multipart/form-data 请求
func MultipartRequest(t *testing.T, method, url string, fields map[string]string, files map[string]File) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for field, f := range files {
		fw, err := mw.CreateFormFile(field, f.Name)
		require.NoError(t, err)
		_, err = fw.Write(f.Data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, url, body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// WithToken 为请求加上 Bearer token
func WithToken(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}
