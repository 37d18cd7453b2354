package tools

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
)

// GetPage 获取分页参数 可变参数依次是 defaultPageSize, maxPageSize
// page 从 1 开始，非法值按第一页处理
func GetPage(c *gin.Context, defaults ...uint) (offset, limit int) {
	defaultPageSize, maxPageSize := 30, 300
	if len(defaults) > 0 && defaults[0] > 0 && defaults[0] <= math.MaxInt32 {
		defaultPageSize = int(defaults[0])
	}
	if len(defaults) > 1 && defaults[1] > 0 && defaults[1] <= math.MaxInt32 {
		maxPageSize = int(defaults[1])
	}

	limit, err := strconv.Atoi(c.Query("page_size"))
	if err != nil || limit < 1 {
		limit = defaultPageSize
	} else if limit > maxPageSize {
		limit = maxPageSize
	}
	page, err := strconv.Atoi(c.Query("page"))
	if err != nil || page < 1 {
		page = 1
	}
	offset = (page - 1) * limit
	return
}
