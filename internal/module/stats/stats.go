package stats

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"face-attend-system/internal/global/database"
	"face-attend-system/internal/global/middleware"
	"face-attend-system/internal/global/response"
	"face-attend-system/tools"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

type meResp struct {
	counts
	OnTimeRate   float64    `json:"on_time_rate"`
	FirstCheckIn *time.Time `json:"first_check_in"`
	LastCheckIn  *time.Time `json:"last_check_in"`
}

type summaryResp struct {
	Total   int64         `json:"total"`
	Records []userSummary `json:"records"`
}

// parsePeriod 读取 from、to 查询参数（Unix 秒），缺省表示不限
func parsePeriod(c *gin.Context) (period, error) {
	var p period
	for _, item := range []struct {
		name string
		dst  **time.Time
	}{{"from", &p.From}, {"to", &p.To}} {
		raw := c.Query(item.name)
		if raw == "" {
			continue
		}
		sec, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return p, response.ErrInvalidRequest.WithTips(item.name + " must be a unix timestamp")
		}
		t := time.Unix(sec, 0).UTC()
		*item.dst = &t
	}
	if p.From != nil && p.To != nil && !p.From.Before(*p.To) {
		return p, response.ErrInvalidRequest.WithTips("from must be earlier than to")
	}
	return p, nil
}

// Me 当前用户在区间内的签到统计
func Me(c *gin.Context) {
	user, ok := middleware.GetUser(c)
	if !ok {
		response.Fail(c, response.ErrUnauthorized)
		return
	}
	p, err := parsePeriod(c)
	if err != nil {
		response.Fail(c, err)
		return
	}

	db := database.DB.WithContext(c.Request.Context())
	cnt, err := userCounts(db, user.ID, p)
	if err != nil {
		log.Error("统计签到次数失败", "error", err, "user_id", user.ID)
		response.Fail(c, response.ErrDatabase.WithOrigin(err))
		return
	}
	resp := meResp{counts: cnt, OnTimeRate: onTimeRate(cnt)}

	first, last, err := boundary(db, user.ID, p)
	if err != nil {
		response.Fail(c, response.ErrDatabase.WithOrigin(err))
		return
	}
	if first != nil {
		resp.FirstCheckIn = &first.Timestamp
	}
	if last != nil {
		resp.LastCheckIn = &last.Timestamp
	}
	response.Success(c, resp)
}

func onTimeRate(c counts) float64 {
	if c.Total == 0 {
		return 0
	}
	return math.Round(float64(c.Present)/float64(c.Total)*10000) / 10000
}

// Summary 管理员查看每个用户的签到统计
func Summary(c *gin.Context) {
	p, err := parsePeriod(c)
	if err != nil {
		response.Fail(c, err)
		return
	}
	offset, limit := tools.GetPage(c)

	rows, total, err := summaries(database.DB.WithContext(c.Request.Context()), p, offset, limit)
	if err != nil {
		log.Error("汇总签到统计失败", "error", err)
		response.Fail(c, response.ErrDatabase.WithOrigin(err))
		return
	}
	response.Success(c, summaryResp{Total: total, Records: rows})
}

// SummaryExport 导出全部用户的签到统计
func SummaryExport(c *gin.Context) {
	p, err := parsePeriod(c)
	if err != nil {
		response.Fail(c, err)
		return
	}

	rows, _, err := summaries(database.DB.WithContext(c.Request.Context()), p, 0, 0)
	if err != nil {
		response.Fail(c, response.ErrDatabase.WithOrigin(err))
		return
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := tools.ExportToExcel(f, "Summary", rows); err != nil {
		response.Fail(c, response.ErrServerInternal.WithOrigin(err))
		return
	}
	_ = f.DeleteSheet("Sheet1")

	tools.SetAttachment(c, fmt.Sprintf("attendance_summary_%s.xlsx", time.Now().Format("20060102")), tools.ExcelContentType)
	if err := f.Write(c.Writer); err != nil {
		log.Error("写出 Excel 失败", "error", err)
	}
}
