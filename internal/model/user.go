package model

const (
	RoleStaff = "staff"
	RoleAdmin = "admin"
)

type User struct {
	Model
	Email          string  `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	HashedPassword string  `gorm:"type:varchar(255);not null" json:"-"`
	FullName       string  `gorm:"type:varchar(100);not null" json:"full_name"`
	Role           string  `gorm:"type:varchar(20);default:staff;not null" json:"role"`
	Department     *string `gorm:"type:varchar(100)" json:"department"`
	// FaceImage 参考照片在存储中的指针，如 local://faces/user_1
	FaceImage string `gorm:"type:varchar(512)" json:"-"`
}
