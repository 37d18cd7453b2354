package config

import "time"

type Mode string

const (
	ModeDebug   Mode = "debug"
	ModeRelease Mode = "release"
)

type Config struct {
	Host           string   `envconfig:"HOST"`
	Port           string   `envconfig:"PORT"`
	Domain         string   `envconfig:"DOMAIN"`
	Prefix         string   `envconfig:"PREFIX"`
	Mode           Mode     `envconfig:"MODE"`
	MaxConns       int      `envconfig:"MAX_CONNS" mapstructure:"max_conns"` // 同时处理的最大连接数，0 表示不限制
	// 信任其 X-Forwarded-For 的反向代理（IP 或 CIDR），为空时客户端 IP 取连接的对端地址
	TrustedProxies []string `envconfig:"TRUSTED_PROXIES" mapstructure:"trusted_proxies"`
	Storage        Storage
	Database       Database
	Redis          Redis
	JWT            JWT
	Log            Log `mapstructure:"Log"`
	S3             S3
	Face           Face
	Attendance     Attendance
	RateLimit      RateLimit `mapstructure:"rate_limit" envconfig:"RATE_LIMIT"`
	Sentry         Sentry
	OTel           OTel
}

// Storage 本地图片存储
type Storage struct {
	Home    string `envconfig:"DIR"` // 本地图片保存目录
	BaseURL string `envconfig:"BASE_URL" mapstructure:"base_url"` // 本地图片的访问前缀
}

type S3 struct {
	Endpoint        string `envconfig:"ENDPOINT" mapstructure:"endpoint"`
	BaseURL         string `envconfig:"BASE_URL" mapstructure:"base_url"`
	Bucket          string `envconfig:"BUCKET" mapstructure:"bucket"`
	Region          string `envconfig:"REGION" mapstructure:"region"`
	AccessKey       string `envconfig:"ACCESS_KEY" mapstructure:"access_key"`
	SecretAccessKey string `envconfig:"SECRET_KEY" mapstructure:"secret_key"`
	Prefix          string `envconfig:"PREFIX" mapstructure:"prefix"`
	UsePathStyle    bool   `envconfig:"PATH_STYLE" mapstructure:"path_style"`
}

// Database Driver 为空时按 DSN/Host 推断，都没有则回退到 sqlite
type Database struct {
	Driver       string `envconfig:"DRIVER" mapstructure:"driver"` // mysql | postgres | sqlite
	DSN          string `envconfig:"URL" mapstructure:"dsn"`
	Host         string `envconfig:"HOST"`
	Port         string `envconfig:"PORT"`
	Username     string `envconfig:"USERNAME"`
	Password     string `envconfig:"PASSWORD"`
	DBName       string `envconfig:"DB_NAME" mapstructure:"db_name"`
	SQLitePath   string `envconfig:"SQLITE_PATH" mapstructure:"sqlite_path"`
	MaxOpenConns int    `envconfig:"MAX_OPEN_CONNS" mapstructure:"max_open_conns"`
	MaxIdleConns int    `envconfig:"MAX_IDLE_CONNS" mapstructure:"max_idle_conns"`
}

type Redis struct {
	Host     string `envconfig:"HOST" yaml:"host"`
	Port     string `envconfig:"PORT" yaml:"port"`
	Password string `envconfig:"PASSWORD" yaml:"password"`
	DB       int    `envconfig:"DB" yaml:"db"`
}

type JWT struct {
	AccessSecret string `envconfig:"ACCESS_SECRET" mapstructure:"access_secret"`
	AccessExpire int64  `envconfig:"ACCESS_EXPIRE" mapstructure:"access_expire"` // 秒
	Issuer       string `envconfig:"ISSUER"`
}

type Log struct {
	FilePath   string `envconfig:"FILE_PATH" mapstructure:"file_path"`     // 日志文件路径
	Level      string `envconfig:"LEVEL" mapstructure:"level"`             // 日志级别：debug, info, warn, error
	MaxSize    int    `envconfig:"MAX_SIZE" mapstructure:"max_size"`       // 日志文件最大大小（MB）
	MaxBackups int    `envconfig:"MAX_BACKUPS" mapstructure:"max_backups"` // 保留的旧日志文件数
	MaxAge     int    `envconfig:"MAX_AGE" mapstructure:"max_age"`         // 日志文件保留天数
	Compress   bool   `envconfig:"COMPRESS" mapstructure:"compress"`       // 是否压缩旧日志文件
}

// Face 人脸比对服务
type Face struct {
	BaseURL  string        `envconfig:"BASE_URL" mapstructure:"base_url"`
	Model    string        `envconfig:"MODEL"`
	Detector string        `envconfig:"DETECTOR"`
	Metric   string        `envconfig:"METRIC"`
	Timeout  time.Duration `envconfig:"TIMEOUT"`
	Skip     bool          `envconfig:"SKIP"` // 不调用比对服务，直接返回通过（仅用于开发）
}

type Attendance struct {
	LateAfterHour   int           `envconfig:"LATE_AFTER_HOUR" mapstructure:"late_after_hour"`
	Timezone        string        `envconfig:"TIMEZONE"`
	AllowedNetworks []string      `envconfig:"ALLOWED_NETWORKS" mapstructure:"allowed_networks"` // 允许签到的网段（CIDR），为空不限制
	DedupWindow     time.Duration `envconfig:"DEDUP_WINDOW" mapstructure:"dedup_window"`
	Method          string        `envconfig:"METHOD"`
}

type RateLimit struct {
	LoginPerMinute int `envconfig:"LOGIN_PER_MINUTE" mapstructure:"login_per_minute"`
}

type Sentry struct {
	Dsn         string  `envconfig:"DSN"`
	Environment string  `envconfig:"ENVIRONMENT"`
	SampleRate  float64 `envconfig:"SAMPLE_RATE" mapstructure:"sample_rate"`
	Tracing     SentryTracing
}

type SentryTracing struct {
	TraceHTTPCalls       bool `envconfig:"TRACE_HTTP_CALLS" mapstructure:"trace_http_calls"`
	DBSlowThresholdMs    int  `envconfig:"DB_SLOW_THRESHOLD_MS" mapstructure:"db_slow_threshold_ms"`
	RedisSlowThresholdMs int  `envconfig:"REDIS_SLOW_THRESHOLD_MS" mapstructure:"redis_slow_threshold_ms"`
}

type OTel struct {
	Enable      bool   `envconfig:"ENABLE"`
	AgentHost   string `envconfig:"AGENT_HOST" mapstructure:"agent_host"`
	AgentPort   string `envconfig:"AGENT_PORT" mapstructure:"agent_port"`
	ServiceName string `envconfig:"SERVICE_NAME" mapstructure:"service_name"`
}
