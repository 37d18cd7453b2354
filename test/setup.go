// Package test 提供 handler 测试共用的数据库、存储与请求工具
package test

import (
	"testing"

	"face-attend-system/config"
	"face-attend-system/internal/global/cache"
	"face-attend-system/internal/global/database"
	"face-attend-system/internal/global/jwt"
	"face-attend-system/internal/global/pictureBed"
	"face-attend-system/internal/model"
	"face-attend-system/tools"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

// Setup 使用内存 sqlite、进程内缓存与临时目录存储重置全局状态
func Setup(t *testing.T) *config.Config {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Default()
	cfg.Mode = config.ModeRelease
	cfg.JWT.AccessSecret = "test-secret"
	cfg.Database.Driver = database.DriverSQLite
	cfg.Database.SQLitePath = "file::memory:"
	cfg.Storage.Home = t.TempDir()
	config.Set(cfg)

	db, err := database.Open(cfg)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	database.DB = db

	cache.Default = cache.New(nil)
	pictureBed.Default = pictureBed.NewLocal(cfg.Storage.Home, cfg.Storage.BaseURL)
	pictureBed.Uploader = nil

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
		config.Set(config.Default())
	})
	return cfg
}

// CreateUser 直接写库创建用户
func CreateUser(t *testing.T, email, password, role string) *model.User {
	t.Helper()
	user := &model.User{
		Email:          email,
		HashedPassword: tools.PasswordEncrypt(password),
		FullName:       "Test " + role,
		Role:           role,
	}
	require.NoError(t, database.DB.Create(user).Error)
	return user
}

func Token(t *testing.T, user *model.User) string {
	t.Helper()
	token, err := jwt.CreateToken(jwt.Payload{UserID: user.ID, Email: user.Email, Role: user.Role})
	require.NoError(t, err)
	return token
}
