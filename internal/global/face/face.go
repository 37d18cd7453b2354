// Package face 调用外部人脸比对服务，对两张照片做 1:1 验证
package face

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"face-attend-system/config"
	"face-attend-system/internal/global/httpclient"
	"face-attend-system/internal/global/logger"
	"face-attend-system/internal/global/metrics"

	"github.com/go-resty/resty/v2"
)

const (
	MessageVerified = "Verification successful"
	MessageMismatch = "Face mismatch"
)

// Image 一张待比对的照片
type Image struct {
	Name string
	Data []byte
}

// Result 比对结果，Verified 为 false 时 Message 说明原因
type Result struct {
	Verified         bool    `json:"verified"`
	Distance         float64 `json:"distance"`
	Threshold        float64 `json:"threshold"`
	Model            string  `json:"model,omitempty"`
	DetectorBackend  string  `json:"detector_backend,omitempty"`
	SimilarityMetric string  `json:"similarity_metric,omitempty"`
	Message          string  `json:"message"`
}

type Verifier interface {
	Verify(ctx context.Context, live, reference Image) (*Result, error)
	Health(ctx context.Context) error
}

type Client struct {
	http     *resty.Client
	model    string
	detector string
	metric   string
	skip     bool
	log      *slog.Logger
}

var _ Verifier = (*Client)(nil)

func New(cfg config.Face) *Client {
	model, detector, metric := cfg.Model, cfg.Detector, cfg.Metric
	if model == "" {
		model = "Facenet"
	}
	if detector == "" {
		detector = "opencv"
	}
	if metric == "" {
		metric = "cosine"
	}
	return &Client{
		http:     httpclient.New(cfg.BaseURL, cfg.Timeout),
		model:    model,
		detector: detector,
		metric:   metric,
		skip:     cfg.Skip,
		log:      logger.New("Face"),
	}
}

type errorBody struct {
	Error     string `json:"error"`
	Exception string `json:"exception"`
	Message   string `json:"message"`
}

func (e errorBody) text() string {
	switch {
	case e.Error != "":
		return e.Error
	case e.Exception != "":
		return e.Exception
	default:
		return e.Message
	}
}

// Verify 比对 live 与 reference。服务不可用或返回错误时 err 非空，
// 同时返回 Verified 为 false 且带错误信息的 Result
func (c *Client) Verify(ctx context.Context, live, reference Image) (*Result, error) {
	if c.skip {
		return &Result{
			Verified:         true,
			Threshold:        0.4,
			Model:            c.model,
			DetectorBackend:  c.detector,
			SimilarityMetric: c.metric,
			Message:          MessageVerified,
		}, nil
	}

	start := time.Now()
	var (
		result Result
		failed errorBody
	)
	resp, err := c.http.R().
		SetContext(ctx).
		SetFileReader("img1", fileName(live.Name, "live.jpg"), bytes.NewReader(live.Data)).
		SetFileReader("img2", fileName(reference.Name, "reference.jpg"), bytes.NewReader(reference.Data)).
		SetFormData(map[string]string{
			"model_name":       c.model,
			"detector_backend": c.detector,
			"distance_metric":  c.metric,
		}).
		SetResult(&result).
		SetError(&failed).
		Post("/verify")
	if err != nil {
		c.log.Error("人脸比对服务调用失败", "error", err)
		metrics.ObserveVerify(start, false)
		return &Result{Message: err.Error()}, err
	}
	if resp.IsError() {
		msg := failed.text()
		if msg == "" {
			msg = fmt.Sprintf("face service returned %s", resp.Status())
		}
		c.log.Warn("人脸比对服务返回错误", "status", resp.StatusCode(), "message", msg)
		metrics.ObserveVerify(start, false)
		return &Result{Message: msg}, fmt.Errorf("face service: %s", msg)
	}

	if result.Verified {
		result.Message = MessageVerified
	} else {
		result.Message = MessageMismatch
	}
	metrics.ObserveVerify(start, result.Verified)
	return &result, nil
}

// Health 探测比对服务是否可达
func (c *Client) Health(ctx context.Context) error {
	if c.skip {
		return nil
	}
	resp, err := c.http.R().SetContext(ctx).Get("/")
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("face service returned %s", resp.Status())
	}
	return nil
}

func fileName(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}
