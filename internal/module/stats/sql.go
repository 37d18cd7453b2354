package stats

import (
	"time"

	"face-attend-system/internal/model"

	"gorm.io/gorm"
)

// 只用 COUNT 聚合，结果在 mysql、postgres、sqlite 下都是整数
const countColumns = `COUNT(*) AS total,
	COUNT(CASE WHEN attendances.status = ? THEN 1 END) AS present,
	COUNT(CASE WHEN attendances.status = ? THEN 1 END) AS late`

type counts struct {
	Total   int64 `json:"total"`
	Present int64 `json:"present"`
	Late    int64 `json:"late"`
}

type userSummary struct {
	UserID   uint   `json:"user_id" excel:"User ID"`
	Email    string `json:"email" excel:"Email"`
	FullName string `json:"full_name" excel:"Full Name"`
	Total    int64  `json:"total" excel:"Total"`
	Present  int64  `json:"present" excel:"Present"`
	Late     int64  `json:"late" excel:"Late"`
}

type period struct {
	From *time.Time
	To   *time.Time
}

// apply 时间区间为左闭右开
func (p period) apply(q *gorm.DB) *gorm.DB {
	if p.From != nil {
		q = q.Where("attendances.timestamp >= ?", *p.From)
	}
	if p.To != nil {
		q = q.Where("attendances.timestamp < ?", *p.To)
	}
	return q
}

func userCounts(db *gorm.DB, userID uint, p period) (counts, error) {
	var c counts
	err := p.apply(db.Model(&model.Attendance{})).
		Select(countColumns, model.StatusPresent, model.StatusLate).
		Where("attendances.user_id = ?", userID).
		Scan(&c).Error
	return c, err
}

// boundary 返回区间内最早和最晚的一条记录，没有记录时为 nil
func boundary(db *gorm.DB, userID uint, p period) (first, last *model.Attendance, err error) {
	q := p.apply(db.Model(&model.Attendance{})).
		Where("attendances.user_id = ?", userID).
		Session(&gorm.Session{})

	var rows []model.Attendance
	if err = q.Order("timestamp ASC").Order("id ASC").Limit(1).Find(&rows).Error; err != nil || len(rows) == 0 {
		return nil, nil, err
	}
	first = &rows[0]

	rows = nil
	if err = q.Order("timestamp DESC").Order("id DESC").Limit(1).Find(&rows).Error; err != nil || len(rows) == 0 {
		return first, nil, err
	}
	return first, &rows[0], nil
}

// summaries 按签到次数排序的每人统计，软删除的用户不计入
func summaries(db *gorm.DB, p period, offset, limit int) ([]userSummary, int64, error) {
	base := p.apply(db.Model(&model.Attendance{})).
		Joins("JOIN users ON users.id = attendances.user_id AND users.deleted_at IS NULL").
		Session(&gorm.Session{})

	var total int64
	if err := base.Distinct("attendances.user_id").Count(&total).Error; err != nil {
		return nil, 0, err
	}

	rows := make([]userSummary, 0)
	q := base.Select("attendances.user_id AS user_id, users.email AS email, users.full_name AS full_name, "+countColumns,
		model.StatusPresent, model.StatusLate).
		Group("attendances.user_id, users.email, users.full_name").
		Order("total DESC").Order("attendances.user_id ASC")
	if limit > 0 {
		q = q.Offset(offset).Limit(limit)
	}
	if err := q.Scan(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
