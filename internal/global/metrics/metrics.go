package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "face_attend"

var (
	// CheckIns 签到结果计数，status 为 Present、Late 或 rejected
	CheckIns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "attendance_checkins_total",
		Help:      "Number of check-in attempts by outcome.",
	}, []string{"status"})

	FaceVerifyDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "face_verify_duration_seconds",
		Help:      "Latency of calls to the face verification service.",
		Buckets:   []float64{.1, .25, .5, 1, 2, 5, 10, 30},
	}, []string{"verified"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status code.",
	}, []string{"method", "path", "code"})
)

// ObserveVerify 记录一次人脸比对耗时
func ObserveVerify(start time.Time, verified bool) {
	FaceVerifyDuration.WithLabelValues(strconv.FormatBool(verified)).Observe(time.Since(start).Seconds())
}

// Middleware 按路由模板统计请求数，未匹配路由记为 unmatched
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		HTTPRequests.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
