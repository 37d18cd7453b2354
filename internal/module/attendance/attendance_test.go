package attendance

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"face-attend-system/config"
	"face-attend-system/internal/global/database"
	"face-attend-system/internal/global/face"
	"face-attend-system/internal/global/pictureBed"
	"face-attend-system/internal/global/response"
	"face-attend-system/internal/model"
	"face-attend-system/test"
	"face-attend-system/tools"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type fakeVerifier struct {
	result *face.Result
	err    error
	calls  int
}

func (f *fakeVerifier) Verify(context.Context, face.Image, face.Image) (*face.Result, error) {
	f.calls++
	return f.result, f.err
}

func (f *fakeVerifier) Health(context.Context) error { return nil }

func verified() *fakeVerifier {
	return &fakeVerifier{result: &face.Result{Verified: true, Distance: 0.2, Threshold: 0.4, Message: face.MessageVerified}}
}

func setup(t *testing.T, mutate ...func(*config.Config)) (*gin.Engine, *model.User, string) {
	cfg := test.Setup(t)
	cfg.Attendance.Timezone = "UTC"
	for _, m := range mutate {
		m(cfg)
	}
	selfInit()
	now = func() time.Time { return time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC) }
	t.Cleanup(func() { now = time.Now })

	user := test.CreateUser(t, "staff@college.edu", "pw", model.RoleStaff)
	pointer, err := pictureBed.Default.Save(context.Background(), pictureBed.FaceKey(user.ID), "image/jpeg", strings.NewReader("reference"))
	require.NoError(t, err)
	require.NoError(t, database.DB.Model(user).Update("face_image", pointer).Error)

	r := gin.New()
	require.NoError(t, r.SetTrustedProxies(cfg.TrustedProxies))
	(&ModuleAttendance{}).InitRouter(r.Group("/"))
	return r, user, test.Token(t, user)
}

func markReq(t *testing.T, token string) *http.Request {
	req := test.MultipartRequest(t, http.MethodPost, "/attendance/mark", nil,
		map[string]test.File{"file": {Name: "live.jpg", Data: []byte("live")}})
	return test.WithToken(req, token)
}

func TestMarkPresent(t *testing.T) {
	r, user, token := setup(t)
	fv := verified()
	verifier = fv

	resp, w := test.DoRequest(t, r, markReq(t, token))
	require.Equal(t, http.StatusOK, w.Code, resp.Msg)
	var data markResp
	test.DecodeData(t, resp, &data)
	assert.Equal(t, "Attendance marked successfully", data.Message)
	assert.Equal(t, model.StatusPresent, data.Status)
	assert.Equal(t, "192.0.2.1", data.IP)
	assert.True(t, data.Verification.Verified)

	var rec model.Attendance
	require.NoError(t, database.DB.Where("user_id = ?", user.ID).First(&rec).Error)
	assert.Equal(t, model.StatusPresent, rec.Status)
	assert.Equal(t, "Dual (Wifi+Face)", rec.VerificationMethod)
	assert.Equal(t, 0.2, rec.Distance)
	assert.Equal(t, 1, fv.calls)
}

func TestMarkLate(t *testing.T) {
	r, _, token := setup(t)
	verifier = verified()
	now = func() time.Time { return time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC) }

	resp, _ := test.DoRequest(t, r, markReq(t, token))
	test.NoError(t, resp)
	var data markResp
	test.DecodeData(t, resp, &data)
	assert.Equal(t, model.StatusLate, data.Status)
}

func TestMarkMismatchReleasesLock(t *testing.T) {
	r, user, token := setup(t)
	fv := &fakeVerifier{result: &face.Result{Verified: false, Distance: 0.9, Threshold: 0.4, Message: face.MessageMismatch}}
	verifier = fv

	for i := 0; i < 2; i++ {
		resp, w := test.DoRequest(t, r, markReq(t, token))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Face verification failed: Face mismatch", resp.Msg)
	}
	assert.Equal(t, 2, fv.calls)

	var count int64
	require.NoError(t, database.DB.Model(&model.Attendance{}).Where("user_id = ?", user.ID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestMarkServiceErrorIsRejected(t *testing.T) {
	r, _, token := setup(t)
	verifier = &fakeVerifier{result: &face.Result{Message: "connection refused"}, err: assert.AnError}

	resp, w := test.DoRequest(t, r, markReq(t, token))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Face verification failed: connection refused", resp.Msg)
}

func TestMarkWithoutReference(t *testing.T) {
	r, user, token := setup(t)
	verifier = verified()
	require.NoError(t, database.DB.Model(user).Update("face_image", "").Error)

	resp, w := test.DoRequest(t, r, markReq(t, token))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Face verification failed: Reference image not found for user.", resp.Msg)
}

func TestMarkDeduplicated(t *testing.T) {
	r, _, token := setup(t)
	fv := verified()
	verifier = fv

	resp, _ := test.DoRequest(t, r, markReq(t, token))
	test.NoError(t, resp)

	resp, w := test.DoRequest(t, r, markReq(t, token))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	test.ErrorEqual(t, response.ErrCheckInInProgress, resp)
	assert.Equal(t, 1, fv.calls)
}

func TestMarkNetworkNotAllowed(t *testing.T) {
	r, _, token := setup(t, func(c *config.Config) {
		c.Attendance.AllowedNetworks = []string{"10.0.0.0/8"}
	})
	fv := verified()
	verifier = fv

	resp, w := test.DoRequest(t, r, markReq(t, token))
	assert.Equal(t, http.StatusForbidden, w.Code)
	test.ErrorEqual(t, response.ErrNetworkNotAllowed, resp)
	assert.Zero(t, fv.calls)
}

func TestMarkIgnoresSpoofedForwardedFor(t *testing.T) {
	r, _, token := setup(t, func(c *config.Config) {
		c.Attendance.AllowedNetworks = []string{"10.0.0.0/8"}
	})
	fv := verified()
	verifier = fv

	req := markReq(t, token)
	req.RemoteAddr = "192.0.2.1:40000"
	req.Header.Set("X-Forwarded-For", "10.1.2.3")
	req.Header.Set("X-Real-IP", "10.1.2.3")
	resp, w := test.DoRequest(t, r, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	test.ErrorEqual(t, response.ErrNetworkNotAllowed, resp)
	assert.Zero(t, fv.calls)

	var count int64
	require.NoError(t, database.DB.Model(&model.Attendance{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestMarkRequiresFile(t *testing.T) {
	r, _, token := setup(t)
	verifier = verified()

	req := test.WithToken(test.MultipartRequest(t, http.MethodPost, "/attendance/mark", nil, nil), token)
	resp, w := test.DoRequest(t, r, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	test.ErrorCode(t, response.ErrInvalidRequest, resp)
}

func seedRecords(t *testing.T, userID uint, n int) {
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		require.NoError(t, database.DB.Create(&model.Attendance{
			UserID:    userID,
			Timestamp: base.Add(time.Duration(i) * 24 * time.Hour),
			Status:    model.StatusPresent,
			IPAddress: "10.0.0.1",
		}).Error)
	}
}

func TestHistory(t *testing.T) {
	r, user, token := setup(t)
	other := test.CreateUser(t, "other@college.edu", "pw", model.RoleStaff)
	seedRecords(t, user.ID, 5)
	seedRecords(t, other.ID, 2)

	req := test.WithToken(httptest.NewRequest(http.MethodGet, "/attendance/history?page=1&page_size=2", nil), token)
	resp, _ := test.DoRequest(t, r, req)
	test.NoError(t, resp)

	var data pageResp[model.Attendance]
	test.DecodeData(t, resp, &data)
	assert.Equal(t, int64(5), data.Total)
	require.Len(t, data.Records, 2)
	assert.True(t, data.Records[0].Timestamp.After(data.Records[1].Timestamp))
	for _, rec := range data.Records {
		assert.Equal(t, user.ID, rec.UserID)
	}
}

func TestExportHistory(t *testing.T) {
	r, user, token := setup(t)
	seedRecords(t, user.ID, 3)

	req := test.WithToken(httptest.NewRequest(http.MethodGet, "/attendance/history/export", nil), token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, tools.ExcelContentType, w.Header().Get("Content-Type"))

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	rows, err := f.GetRows("Attendance")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "ID", rows[0][0])
	assert.Equal(t, "2026-03-03 08:00:00", rows[1][1])
}

func TestRecordsAdminOnly(t *testing.T) {
	r, user, token := setup(t)
	seedRecords(t, user.ID, 2)
	admin := test.CreateUser(t, "admin@college.edu", "pw", model.RoleAdmin)

	_, w := test.DoRequest(t, r, test.WithToken(httptest.NewRequest(http.MethodGet, "/attendance/records", nil), token))
	assert.Equal(t, http.StatusForbidden, w.Code)

	resp, _ := test.DoRequest(t, r, test.WithToken(httptest.NewRequest(http.MethodGet, fmt.Sprintf("/attendance/records?user_id=%d", user.ID), nil), test.Token(t, admin)))
	test.NoError(t, resp)
	var data pageResp[recordDto]
	test.DecodeData(t, resp, &data)
	assert.Equal(t, int64(2), data.Total)
	require.Len(t, data.Records, 2)
	assert.Equal(t, "staff@college.edu", data.Records[0].Email)

	resp, _ = test.DoRequest(t, r, test.WithToken(httptest.NewRequest(http.MethodGet, "/attendance/records?user_id=abc", nil), test.Token(t, admin)))
	test.ErrorCode(t, response.ErrInvalidRequest, resp)
}

func TestStatusAt(t *testing.T) {
	location = time.UTC
	assert.Equal(t, model.StatusPresent, statusAt(time.Date(2026, 1, 1, 9, 59, 0, 0, time.UTC), 9))
	assert.Equal(t, model.StatusLate, statusAt(time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC), 9))

	location = time.FixedZone("UTC+8", 8*3600)
	assert.Equal(t, model.StatusLate, statusAt(time.Date(2026, 1, 1, 2, 0, 0, 0, time.UTC), 9))
}

func TestIPAllowed(t *testing.T) {
	selfInit()
	networks = parseNetworks([]string{"10.0.0.0/8", "192.168.1.5", "bogus"})
	t.Cleanup(func() { networks = nil })

	assert.True(t, ipAllowed("10.1.2.3"))
	assert.True(t, ipAllowed("192.168.1.5"))
	assert.False(t, ipAllowed("192.168.1.6"))
	assert.False(t, ipAllowed("not-an-ip"))
}
