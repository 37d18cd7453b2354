package user

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"

	"face-attend-system/internal/global/database"
	"face-attend-system/internal/global/logger"
	"face-attend-system/internal/global/pictureBed"
	"face-attend-system/internal/global/response"
	"face-attend-system/internal/model"
	"face-attend-system/tools"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type registerReq struct {
	Email      string `form:"email" binding:"required,email"`
	FullName   string `form:"full_name" binding:"required"`
	Password   string `form:"password" binding:"required"`
	Role       string `form:"role"`
	Department string `form:"department"`
}

// Register 创建用户并保存参考照片。照片保存失败时删除刚创建的用户
func Register(c *gin.Context) {
	l := logger.WithContext(log, c)

	var req registerReq
	if err := c.ShouldBind(&req); err != nil {
		response.Fail(c, response.ErrInvalidRequest.WithOrigin(err))
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Role == "" {
		req.Role = model.RoleStaff
	}
	if req.Role != model.RoleStaff && req.Role != model.RoleAdmin {
		response.Fail(c, response.ErrInvalidRequest.WithTips("role must be staff or admin"))
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Fail(c, response.ErrInvalidRequest.WithTips("file is required").WithOrigin(err))
		return
	}

	ctx := c.Request.Context()
	db := database.DB.WithContext(ctx)

	var count int64
	if err := db.Model(&model.User{}).Where("email = ?", req.Email).Count(&count).Error; err != nil {
		response.Fail(c, response.ErrDatabase.WithOrigin(err))
		return
	}
	if count > 0 {
		l.Warn("邮箱已注册", "email", req.Email)
		response.Fail(c, response.ErrAlreadyExists)
		return
	}

	user := model.User{
		Email:          req.Email,
		HashedPassword: tools.PasswordEncrypt(req.Password),
		FullName:       req.FullName,
		Role:           req.Role,
	}
	if req.Department != "" {
		user.Department = &req.Department
	}
	if err := db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			response.Fail(c, response.ErrAlreadyExists)
			return
		}
		l.Error("创建用户失败", "error", err, "email", req.Email)
		response.Fail(c, response.ErrDatabase.WithOrigin(err))
		return
	}

	if err := saveFace(ctx, db, &user, fileHeader); err != nil {
		l.Error("保存参考照片失败，回滚用户", "error", err, "user_id", user.ID)
		if delErr := db.Unscoped().Delete(&user).Error; delErr != nil {
			l.Error("回滚用户失败", "error", delErr, "user_id", user.ID)
		}
		response.Fail(c, response.ErrImageProcess.WithTips(err.Error()).WithOrigin(err))
		return
	}

	l.Info("用户注册成功", "user_id", user.ID, "email", user.Email, "role", user.Role)
	response.Success(c, gin.H{
		"message": "User created successfully",
		"user_id": user.ID,
	})
}

// saveFace 保存参考照片并写回指针，写库失败时删除已保存的照片
func saveFace(ctx context.Context, db *gorm.DB, user *model.User, fh *multipart.FileHeader) error {
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = tools.ImageContentType(fh.Filename)
	}

	old := user.FaceImage
	pointer, err := pictureBed.Default.Save(ctx, pictureBed.FaceKey(user.ID), contentType, f)
	if err != nil {
		return err
	}
	if err := db.Model(user).Update("face_image", pointer).Error; err != nil {
		if pointer != old {
			_ = pictureBed.Default.Delete(ctx, pointer)
		}
		return err
	}
	// 主存储恢复后新照片可能与旧照片不在同一存储
	if err := pictureBed.ReplacePointer(ctx, pictureBed.Default, old, pointer); err != nil {
		log.Warn("删除旧参考照片失败", "error", err, "user_id", user.ID)
	}
	return nil
}
