package server

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"face-attend-system/internal/global/response"
	"face-attend-system/internal/model"
	"face-attend-system/test"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouterWiresModules(t *testing.T) {
	cfg := test.Setup(t)
	cfg.Face.Skip = true
	Init()
	r := NewRouter()

	resp, w := test.DoRequest(t, r, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusOK, w.Code)
	test.NoError(t, resp)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	_, w = test.DoRequest(t, r, httptest.NewRequest(http.MethodGet, "/users/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	_, w = test.DoRequest(t, r, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouterServesLocalImages(t *testing.T) {
	cfg := test.Setup(t)
	cfg.Face.Skip = true
	require.NoError(t, os.MkdirAll(filepath.Join(cfg.Storage.Home, "faces"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Storage.Home, "faces", "user_1.jpg"), []byte("img"), 0o644))
	Init()

	w := httptest.NewRecorder()
	NewRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/static/faces/user_1.jpg", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "img", w.Body.String())
}

func markFrom(t *testing.T, r http.Handler, token, forwardedFor string) (response.ResponseBody, *httptest.ResponseRecorder) {
	req := test.MultipartRequest(t, http.MethodPost, "/attendance/mark", nil,
		map[string]test.File{"file": {Name: "live.jpg", Data: []byte("live")}})
	req.RemoteAddr = "192.0.2.1:40000"
	req.Header.Set("X-Forwarded-For", forwardedFor)
	return test.DoRequest(t, r, test.WithToken(req, token))
}

func TestRouterIgnoresForwardedForByDefault(t *testing.T) {
	cfg := test.Setup(t)
	cfg.Face.Skip = true
	cfg.Attendance.AllowedNetworks = []string{"10.0.0.0/8"}
	Init()
	r := NewRouter()
	user := test.CreateUser(t, "staff@college.edu", "pw", model.RoleStaff)

	resp, w := markFrom(t, r, test.Token(t, user), "10.1.2.3")
	assert.Equal(t, http.StatusForbidden, w.Code)
	test.ErrorEqual(t, response.ErrNetworkNotAllowed, resp)
}

func TestRouterHonorsTrustedProxy(t *testing.T) {
	cfg := test.Setup(t)
	cfg.Face.Skip = true
	cfg.Attendance.AllowedNetworks = []string{"10.0.0.0/8"}
	cfg.TrustedProxies = []string{"192.0.2.0/24"}
	Init()
	r := NewRouter()
	user := test.CreateUser(t, "staff@college.edu", "pw", model.RoleStaff)

	// 通过网段检查后因没有参考照片而失败
	resp, w := markFrom(t, r, test.Token(t, user), "10.1.2.3")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	test.ErrorCode(t, response.ErrFaceVerifyFailed, resp)
}
