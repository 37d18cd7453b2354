package model

import (
	"time"

	"gorm.io/gorm"
)

const (
	StatusPresent = "Present"
	StatusLate    = "Late"
)

// Attendance 签到记录，只增不改
type Attendance struct {
	ID                 uint      `gorm:"primaryKey" json:"id" excel:"ID"`
	UserID             uint      `gorm:"not null;index" json:"user_id" excel:"-"`
	User               *User     `gorm:"constraint:OnDelete:CASCADE" json:"-" excel:"-"`
	Timestamp          time.Time `gorm:"not null;index" json:"timestamp" excel:"Time (UTC)"`
	Status             string    `gorm:"type:varchar(20);not null" json:"status" excel:"Status"`
	IPAddress          string    `gorm:"type:varchar(64)" json:"ip_address" excel:"IP Address"`
	VerificationMethod string    `gorm:"type:varchar(64)" json:"verification_method" excel:"Method"`
	Distance           float64   `json:"distance" excel:"Distance"`
	Threshold          float64   `json:"threshold" excel:"Threshold"`
}

// BeforeCreate 未指定时间时取当前 UTC 时间
func (a *Attendance) BeforeCreate(*gorm.DB) error {
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now().UTC()
	}
	return nil
}
