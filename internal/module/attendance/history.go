package attendance

import (
	"fmt"
	"strconv"
	"time"

	"face-attend-system/internal/global/database"
	"face-attend-system/internal/global/middleware"
	"face-attend-system/internal/global/response"
	"face-attend-system/internal/model"
	"face-attend-system/tools"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// maxExportRows 单次导出的最大记录数
const maxExportRows = 10000

type pageResp[T any] struct {
	Total   int64 `json:"total"`
	Records []T   `json:"records"`
}

// History 当前用户的签到记录，按时间倒序分页
func History(c *gin.Context) {
	user, ok := middleware.GetUser(c)
	if !ok {
		response.Fail(c, response.ErrUnauthorized)
		return
	}
	offset, limit := tools.GetPage(c)

	q := database.DB.WithContext(c.Request.Context()).
		Model(&model.Attendance{}).
		Where("user_id = ?", user.ID).
		Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		response.Fail(c, response.ErrDatabase.WithOrigin(err))
		return
	}
	records := make([]model.Attendance, 0)
	if err := q.Order("timestamp DESC").Order("id DESC").
		Offset(offset).Limit(limit).Find(&records).Error; err != nil {
		response.Fail(c, response.ErrDatabase.WithOrigin(err))
		return
	}
	response.Success(c, pageResp[model.Attendance]{Total: total, Records: records})
}

// ExportHistory 将当前用户的签到记录导出为 xlsx
func ExportHistory(c *gin.Context) {
	user, ok := middleware.GetUser(c)
	if !ok {
		response.Fail(c, response.ErrUnauthorized)
		return
	}

	var records []model.Attendance
	if err := database.DB.WithContext(c.Request.Context()).
		Where("user_id = ?", user.ID).
		Order("timestamp DESC").Order("id DESC").
		Limit(maxExportRows).
		Find(&records).Error; err != nil {
		response.Fail(c, response.ErrDatabase.WithOrigin(err))
		return
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := tools.ExportToExcel(f, "Attendance", records); err != nil {
		response.Fail(c, response.ErrServerInternal.WithOrigin(err))
		return
	}
	_ = f.DeleteSheet("Sheet1")

	name := fmt.Sprintf("attendance_%d_%s.xlsx", user.ID, time.Now().Format("20060102"))
	tools.SetAttachment(c, name, tools.ExcelContentType)
	if err := f.Write(c.Writer); err != nil {
		log.Error("写出 Excel 失败", "error", err, "user_id", user.ID)
	}
}

type recordDto struct {
	model.Attendance
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// Records 管理员查看全部签到记录，可按 user_id 过滤
func Records(c *gin.Context) {
	offset, limit := tools.GetPage(c)

	q := database.DB.WithContext(c.Request.Context()).Model(&model.Attendance{})
	if raw := c.Query("user_id"); raw != "" {
		userID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			response.Fail(c, response.ErrInvalidRequest.WithTips("user_id must be a number"))
			return
		}
		q = q.Where("attendances.user_id = ?", userID)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		response.Fail(c, response.ErrDatabase.WithOrigin(err))
		return
	}

	var rows []model.Attendance
	if err := q.Joins("User").
		Order("attendances.timestamp DESC").Order("attendances.id DESC").
		Offset(offset).Limit(limit).
		Find(&rows).Error; err != nil {
		response.Fail(c, response.ErrDatabase.WithOrigin(err))
		return
	}

	records := make([]recordDto, 0, len(rows))
	for _, row := range rows {
		dto := recordDto{Attendance: row}
		if row.User != nil {
			dto.Email = row.User.Email
			dto.FullName = row.User.FullName
		}
		records = append(records, dto)
	}
	response.Success(c, pageResp[recordDto]{Total: total, Records: records})
}
