package attendance

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"time"

	"face-attend-system/config"
	"face-attend-system/internal/global/cache"
	"face-attend-system/internal/global/database"
	"face-attend-system/internal/global/face"
	"face-attend-system/internal/global/logger"
	"face-attend-system/internal/global/metrics"
	"face-attend-system/internal/global/middleware"
	"face-attend-system/internal/global/pictureBed"
	"face-attend-system/internal/global/response"
	"face-attend-system/internal/model"

	"github.com/gin-gonic/gin"
)

// maxPhotoSize 签到照片大小上限
const maxPhotoSize = 10 << 20

const rejected = "rejected"

type markResp struct {
	Message      string       `json:"message"`
	Status       string       `json:"status"`
	Verification *face.Result `json:"verification"`
	IP           string       `json:"ip"`
}

// Mark 校验网段和人脸后写入一条签到记录
func Mark(c *gin.Context) {
	user, ok := middleware.GetUser(c)
	if !ok {
		response.Fail(c, response.ErrUnauthorized)
		return
	}
	l := logger.WithContext(log, c).With("user_id", user.ID)
	ctx := c.Request.Context()
	cfg := config.Get().Attendance

	ip := c.ClientIP()
	if !ipAllowed(ip) {
		l.Warn("签到网段不在允许范围", "ip", ip)
		metrics.CheckIns.WithLabelValues(rejected).Inc()
		response.Fail(c, response.ErrNetworkNotAllowed)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Fail(c, response.ErrInvalidRequest.WithTips("file is required").WithOrigin(err))
		return
	}
	if fileHeader.Size > maxPhotoSize {
		response.Fail(c, response.ErrInvalidRequest.WithTips("file is too large"))
		return
	}

	// 同一用户在窗口期内只处理一次签到；失败时释放，成功后保留到过期
	lockKey := fmt.Sprintf("checkin:%d", user.ID)
	locked := false
	if cfg.DedupWindow > 0 {
		acquired, err := cache.Default.SetNX(ctx, lockKey, cfg.DedupWindow)
		switch {
		case err != nil:
			l.Warn("签到锁获取失败，继续处理", "error", err)
		case !acquired:
			metrics.CheckIns.WithLabelValues(rejected).Inc()
			response.Fail(c, response.ErrCheckInInProgress)
			return
		default:
			locked = true
		}
	}
	keep := false
	defer func() {
		if locked && !keep {
			if err := cache.Default.Del(context.WithoutCancel(ctx), lockKey); err != nil {
				l.Warn("签到锁释放失败", "error", err)
			}
		}
	}()

	reference, err := loadReference(ctx, user)
	if err != nil {
		metrics.CheckIns.WithLabelValues(rejected).Inc()
		if errors.Is(err, pictureBed.ErrNotFound) {
			response.Fail(c, response.ErrFaceVerifyFailed.WithTips("Reference image not found for user."))
			return
		}
		l.Error("读取参考照片失败", "error", err)
		response.Fail(c, response.ErrStorage.WithOrigin(err))
		return
	}

	live, err := readUpload(fileHeader)
	if err != nil {
		response.Fail(c, response.ErrInvalidRequest.WithOrigin(err))
		return
	}

	result, err := verifier.Verify(ctx, face.Image{Name: fileHeader.Filename, Data: live}, reference)
	if err != nil {
		l.Error("人脸比对失败", "error", err)
	}
	if result == nil || !result.Verified {
		msg := face.MessageMismatch
		if result != nil && result.Message != "" {
			msg = result.Message
		}
		l.Info("人脸比对未通过", "message", msg)
		metrics.CheckIns.WithLabelValues(rejected).Inc()
		response.Fail(c, response.ErrFaceVerifyFailed.WithTips(msg))
		return
	}

	at := now()
	record := model.Attendance{
		UserID:             user.ID,
		Timestamp:          at.UTC(),
		Status:             statusAt(at, cfg.LateAfterHour),
		IPAddress:          ip,
		VerificationMethod: cfg.Method,
		Distance:           result.Distance,
		Threshold:          result.Threshold,
	}
	if err := database.DB.WithContext(ctx).Create(&record).Error; err != nil {
		l.Error("写入签到记录失败", "error", err)
		response.Fail(c, response.ErrDatabase.WithOrigin(err))
		return
	}
	keep = true

	metrics.CheckIns.WithLabelValues(record.Status).Inc()
	l.Info("签到成功", "status", record.Status, "ip", ip, "distance", result.Distance)
	response.Success(c, markResp{
		Message:      "Attendance marked successfully",
		Status:       record.Status,
		Verification: result,
		IP:           ip,
	})
}

// statusAt 当地时间的小时数大于 lateAfterHour 记为迟到
func statusAt(t time.Time, lateAfterHour int) string {
	if t.In(location).Hour() > lateAfterHour {
		return model.StatusLate
	}
	return model.StatusPresent
}

func ipAllowed(raw string) bool {
	if len(networks) == 0 {
		return true
	}
	ip := net.ParseIP(raw)
	if ip == nil {
		return false
	}
	for _, n := range networks {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

func loadReference(ctx context.Context, user *model.User) (face.Image, error) {
	if user.FaceImage == "" {
		return face.Image{}, pictureBed.ErrNotFound
	}
	data, err := pictureBed.ReadAll(ctx, pictureBed.Default, user.FaceImage)
	if err != nil {
		return face.Image{}, err
	}
	return face.Image{Name: fmt.Sprintf("user_%d.jpg", user.ID), Data: data}, nil
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, maxPhotoSize))
}
