package user

import (
	"errors"
	"net/http"
	"strings"

	"face-attend-system/internal/global/database"
	"face-attend-system/internal/global/jwt"
	"face-attend-system/internal/global/logger"
	"face-attend-system/internal/global/middleware"
	"face-attend-system/internal/global/pictureBed"
	"face-attend-system/internal/global/response"
	"face-attend-system/internal/model"
	"face-attend-system/tools"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// loginReq OAuth2 密码模式表单，username 即邮箱
type loginReq struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
}

type tokenResp struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	UserID      uint   `json:"user_id"`
	FullName    string `json:"full_name"`
}

// Login 校验邮箱和密码并签发访问令牌
func Login(c *gin.Context) {
	l := logger.WithContext(log, c)

	var req loginReq
	if err := c.ShouldBind(&req); err != nil {
		response.Fail(c, response.ErrInvalidRequest.WithOrigin(err))
		return
	}
	email := strings.TrimSpace(req.Username)

	var user model.User
	err := database.DB.WithContext(c.Request.Context()).Where("email = ?", email).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		l.Warn("登录用户不存在", "email", email)
		response.Fail(c, response.ErrInvalidPassword)
		return
	case err != nil:
		l.Error("数据库查询失败", "error", err, "email", email)
		response.Fail(c, response.ErrDatabase.WithOrigin(err))
		return
	}

	if !tools.PasswordCompare(req.Password, user.HashedPassword) {
		l.Warn("密码错误", "email", email)
		response.Fail(c, response.ErrInvalidPassword)
		return
	}

	token, err := jwt.CreateToken(jwt.Payload{UserID: user.ID, Email: user.Email, Role: user.Role})
	if err != nil {
		response.Fail(c, response.ErrServerInternal.WithOrigin(err))
		return
	}

	l.Info("用户登录成功", "user_id", user.ID, "role", user.Role)
	// OAuth2 密码模式的客户端从顶层读取 access_token，这里不套统一响应体
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, tokenResp{
		AccessToken: token,
		TokenType:   "bearer",
		UserID:      user.ID,
		FullName:    user.FullName,
	})
}

type meResp struct {
	ID         uint    `json:"id"`
	Email      string  `json:"email"`
	FullName   string  `json:"full_name"`
	Role       string  `json:"role"`
	Department *string `json:"department"`
}

func GetMe(c *gin.Context) {
	user, ok := middleware.GetUser(c)
	if !ok {
		response.Fail(c, response.ErrUnauthorized)
		return
	}
	response.Success(c, meResp{
		ID:         user.ID,
		Email:      user.Email,
		FullName:   user.FullName,
		Role:       user.Role,
		Department: user.Department,
	})
}

// GetFace 返回当前用户参考照片的访问地址
func GetFace(c *gin.Context) {
	user, ok := middleware.GetUser(c)
	if !ok {
		response.Fail(c, response.ErrUnauthorized)
		return
	}
	if user.FaceImage == "" {
		response.Fail(c, response.ErrNotFound.WithTips("reference image"))
		return
	}
	url, err := pictureBed.Default.URL(c.Request.Context(), user.FaceImage)
	if err != nil {
		response.Fail(c, response.ErrStorage.WithOrigin(err))
		return
	}
	response.Success(c, gin.H{"url": url})
}

// FaceUploadURL 签发参考照片的直传地址，仅在配置了对象存储时可用
func FaceUploadURL(c *gin.Context) {
	user, ok := middleware.GetUser(c)
	if !ok {
		response.Fail(c, response.ErrUnauthorized)
		return
	}
	if pictureBed.Uploader == nil {
		response.Fail(c, response.ErrServiceDown.WithTips("remote storage is not configured"))
		return
	}

	ctx := c.Request.Context()
	contentType := c.Query("content_type")
	if contentType == "" {
		contentType = tools.ImageContentType(c.Query("filename"))
	}

	old := user.FaceImage
	presigned, err := pictureBed.Uploader.GeneratePresignedUploadURL(ctx, pictureBed.FaceKey(user.ID), contentType, 0)
	if err != nil {
		response.Fail(c, response.ErrStorage.WithOrigin(err))
		return
	}
	if err := database.DB.WithContext(ctx).
		Model(user).Update("face_image", presigned.Pointer).Error; err != nil {
		response.Fail(c, response.ErrDatabase.WithOrigin(err))
		return
	}
	if err := pictureBed.ReplacePointer(ctx, pictureBed.Default, old, presigned.Pointer); err != nil {
		logger.WithContext(log, c).Warn("删除旧参考照片失败", "error", err, "user_id", user.ID)
	}
	response.Success(c, presigned)
}
