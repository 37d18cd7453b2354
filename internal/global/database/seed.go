package database

import (
	"errors"

	"face-attend-system/internal/model"
	"face-attend-system/tools"

	"gorm.io/gorm"
)

const (
	DefaultAdminEmail    = "admin@college.edu"
	DefaultAdminPassword = "admin123"
	DefaultAdminName     = "System Administrator"
)

// SeedAdmin 管理员不存在时创建，已存在则不做修改
func SeedAdmin(db *gorm.DB, email, password string) (created bool, err error) {
	var admin model.User
	err = db.Where("email = ?", email).First(&admin).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	admin = model.User{
		Email:          email,
		HashedPassword: tools.PasswordEncrypt(password),
		FullName:       DefaultAdminName,
		Role:           model.RoleAdmin,
	}
	if err := db.Create(&admin).Error; err != nil {
		return false, err
	}
	return true, nil
}
