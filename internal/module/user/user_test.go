package user

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"face-attend-system/internal/global/database"
	"face-attend-system/internal/global/pictureBed"
	"face-attend-system/internal/global/response"
	"face-attend-system/internal/model"
	"face-attend-system/test"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter() *gin.Engine {
	selfInit()
	r := gin.New()
	(&ModuleUser{}).InitRouter(r.Group("/"))
	return r
}

func register(t *testing.T, r http.Handler, email string) response.ResponseBody {
	req := test.MultipartRequest(t, http.MethodPost, "/register",
		map[string]string{"email": email, "full_name": "Alice", "password": "secret", "department": "Physics"},
		map[string]test.File{"file": {Name: "me.jpg", Data: []byte("jpeg-bytes")}})
	resp, _ := test.DoRequest(t, r, req)
	return resp
}

func loginForm(username, password string) *http.Request {
	form := url.Values{"username": {username}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestRegister(t *testing.T) {
	cfg := test.Setup(t)
	r := newRouter()

	resp := register(t, r, "alice@college.edu")
	test.NoError(t, resp)
	var data struct {
		Message string `json:"message"`
		UserID  uint   `json:"user_id"`
	}
	test.DecodeData(t, resp, &data)
	assert.Equal(t, "User created successfully", data.Message)

	var user model.User
	require.NoError(t, database.DB.First(&user, data.UserID).Error)
	assert.Equal(t, model.RoleStaff, user.Role)
	require.NotNil(t, user.Department)
	assert.Equal(t, "Physics", *user.Department)
	assert.NotEqual(t, "secret", user.HashedPassword)
	assert.Equal(t, "local://"+pictureBed.FaceKey(user.ID), user.FaceImage)

	stored, err := pictureBed.ReadAll(context.Background(), pictureBed.NewLocal(cfg.Storage.Home, ""), user.FaceImage)
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(stored))
}

func TestRegisterDuplicateEmail(t *testing.T) {
	test.Setup(t)
	r := newRouter()

	test.NoError(t, register(t, r, "bob@college.edu"))
	resp := register(t, r, "bob@college.edu")
	test.ErrorEqual(t, response.ErrAlreadyExists, resp)
}

func TestRegisterValidation(t *testing.T) {
	test.Setup(t)
	r := newRouter()

	noFile := test.MultipartRequest(t, http.MethodPost, "/register",
		map[string]string{"email": "c@college.edu", "full_name": "C", "password": "pw"}, nil)
	resp, w := test.DoRequest(t, r, noFile)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	test.ErrorCode(t, response.ErrInvalidRequest, resp)

	badRole := test.MultipartRequest(t, http.MethodPost, "/register",
		map[string]string{"email": "c@college.edu", "full_name": "C", "password": "pw", "role": "root"},
		map[string]test.File{"file": {Name: "c.jpg", Data: []byte("x")}})
	resp, _ = test.DoRequest(t, r, badRole)
	test.ErrorCode(t, response.ErrInvalidRequest, resp)
}

type brokenStorage struct{ *pictureBed.Local }

func (brokenStorage) Save(context.Context, string, string, io.Reader) (string, error) {
	return "", errors.New("disk full")
}

func TestRegisterRollsBackWhenImageFails(t *testing.T) {
	test.Setup(t)
	pictureBed.Default = brokenStorage{pictureBed.NewLocal(t.TempDir(), "")}
	r := newRouter()

	resp := register(t, r, "dave@college.edu")
	test.ErrorCode(t, response.ErrImageProcess, resp)
	assert.Equal(t, "Failed to process image: disk full", resp.Msg)

	var count int64
	require.NoError(t, database.DB.Unscoped().Model(&model.User{}).Where("email = ?", "dave@college.edu").Count(&count).Error)
	assert.Zero(t, count)
}

func TestLogin(t *testing.T) {
	test.Setup(t)
	r := newRouter()
	user := test.CreateUser(t, "erin@college.edu", "pw123", model.RoleStaff)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, loginForm("erin@college.edu", "pw123"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	var data tokenResp
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &data))
	assert.NotEmpty(t, data.AccessToken)
	assert.Equal(t, "bearer", data.TokenType)
	assert.Equal(t, user.ID, data.UserID)
	assert.Equal(t, user.FullName, data.FullName)
	// 令牌位于顶层，没有 code/msg 包装
	var raw map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	assert.NotContains(t, raw, "code")
	assert.NotContains(t, raw, "data")

	// 取到的令牌可直接访问受保护接口
	me, _ := test.DoRequest(t, r, test.WithToken(httptest.NewRequest(http.MethodGet, "/users/me", nil), data.AccessToken))
	test.NoError(t, me)

	resp, w := test.DoRequest(t, r, loginForm("erin@college.edu", "wrong"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
	test.ErrorEqual(t, response.ErrInvalidPassword, resp)

	resp, _ = test.DoRequest(t, r, loginForm("nobody@college.edu", "pw123"))
	test.ErrorEqual(t, response.ErrInvalidPassword, resp)
}

func TestLoginRateLimited(t *testing.T) {
	cfg := test.Setup(t)
	cfg.RateLimit.LoginPerMinute = 2
	r := newRouter()

	for i := 0; i < 2; i++ {
		_, w := test.DoRequest(t, r, loginForm("x@college.edu", "pw"))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}
	resp, w := test.DoRequest(t, r, loginForm("x@college.edu", "pw"))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	test.ErrorEqual(t, response.ErrTooManyRequests, resp)
}

func TestMeAndFace(t *testing.T) {
	test.Setup(t)
	r := newRouter()
	test.NoError(t, register(t, r, "fay@college.edu"))

	var user model.User
	require.NoError(t, database.DB.Where("email = ?", "fay@college.edu").First(&user).Error)
	token := test.Token(t, &user)

	resp, _ := test.DoRequest(t, r, test.WithToken(httptest.NewRequest(http.MethodGet, "/users/me", nil), token))
	test.NoError(t, resp)
	var me meResp
	test.DecodeData(t, resp, &me)
	assert.Equal(t, "fay@college.edu", me.Email)
	assert.Equal(t, "Alice", me.FullName)

	resp, _ = test.DoRequest(t, r, test.WithToken(httptest.NewRequest(http.MethodGet, "/users/me/face", nil), token))
	test.NoError(t, resp)
	var face struct {
		URL string `json:"url"`
	}
	test.DecodeData(t, resp, &face)
	assert.Equal(t, fmt.Sprintf("/static/faces/user_%d", user.ID), face.URL)

	resp, w := test.DoRequest(t, r, test.WithToken(httptest.NewRequest(http.MethodPost, "/users/me/face/upload-url", nil), token))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	test.ErrorCode(t, response.ErrServiceDown, resp)
}

func TestMeRequiresToken(t *testing.T) {
	test.Setup(t)
	r := newRouter()

	resp, w := test.DoRequest(t, r, httptest.NewRequest(http.MethodGet, "/users/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	test.ErrorEqual(t, response.ErrTokenInvalid, resp)
}

func TestFaceUploadURL(t *testing.T) {
	cfg := test.Setup(t)
	r := newRouter()
	test.NoError(t, register(t, r, "gil@college.edu"))

	var user model.User
	require.NoError(t, database.DB.Where("email = ?", "gil@college.edu").First(&user).Error)
	localPointer := user.FaceImage
	require.Equal(t, "local://"+pictureBed.FaceKey(user.ID), localPointer)
	token := test.Token(t, &user)

	fake := test.S3(t)

	req := httptest.NewRequest(http.MethodPost, "/users/me/face/upload-url?filename=b.png", nil)
	resp, w := test.DoRequest(t, r, test.WithToken(req, token))
	require.Equal(t, http.StatusOK, w.Code, resp.Msg)
	var up pictureBed.PresignedUploadResponse
	test.DecodeData(t, resp, &up)
	assert.Equal(t, http.MethodPut, up.Method)
	assert.Equal(t, pictureBed.FaceKey(user.ID), up.FileKey)
	assert.Equal(t, "image/png", up.Headers["Content-Type"])
	assert.Contains(t, up.UploadURL, "/"+test.S3Bucket+"/"+pictureBed.FaceKey(user.ID))
	assert.Contains(t, up.UploadURL, "X-Amz-Signature")

	// 指针改为 S3，本地的旧照片被删除
	require.NoError(t, database.DB.First(&user, user.ID).Error)
	remotePointer := fmt.Sprintf("s3://%s/%s", test.S3Bucket, pictureBed.FaceKey(user.ID))
	assert.Equal(t, remotePointer, user.FaceImage)
	_, err := pictureBed.NewLocal(cfg.Storage.Home, "").Open(context.Background(), localPointer)
	assert.ErrorIs(t, err, pictureBed.ErrNotFound)

	// 客户端按返回的地址直传
	put, err := http.NewRequest(up.Method, up.UploadURL, strings.NewReader("png-bytes"))
	require.NoError(t, err)
	for k, v := range up.Headers {
		put.Header.Set(k, v)
	}
	putResp, err := http.DefaultClient.Do(put)
	require.NoError(t, err)
	_ = putResp.Body.Close()
	require.Equal(t, http.StatusOK, putResp.StatusCode)

	data, contentType, ok := fake.Object(pictureBed.FaceKey(user.ID))
	require.True(t, ok)
	assert.Equal(t, "png-bytes", string(data))
	assert.Equal(t, "image/png", contentType)
	stored, err := pictureBed.ReadAll(context.Background(), pictureBed.Default, user.FaceImage)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(stored))

	// 显式的 content_type 优先，指针不变时不删除已上传的照片
	req = httptest.NewRequest(http.MethodPost, "/users/me/face/upload-url?filename=c.png&content_type=image/webp", nil)
	resp, w = test.DoRequest(t, r, test.WithToken(req, token))
	require.Equal(t, http.StatusOK, w.Code, resp.Msg)
	test.DecodeData(t, resp, &up)
	assert.Equal(t, "image/webp", up.Headers["Content-Type"])
	_, _, ok = fake.Object(pictureBed.FaceKey(user.ID))
	assert.True(t, ok)
}
