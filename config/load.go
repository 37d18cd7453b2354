package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀，如 APP_PORT、APP_DATABASE_URL
const EnvPrefix = "APP"

var cfg = Default()

// Default 返回带默认值的配置，未调用 Init 时 Get 返回的就是它
func Default() *Config {
	return &Config{
		Host:   "0.0.0.0",
		Port:   "8000",
		Prefix: "",
		Mode:   ModeDebug,
		Storage: Storage{
			Home:    "./upload",
			BaseURL: "/static",
		},
		Database: Database{
			SQLitePath:   "attendance.db",
			MaxOpenConns: 25,
			MaxIdleConns: 5,
		},
		JWT: JWT{
			AccessSecret: "change-me",
			AccessExpire: 30 * 60,
			Issuer:       "face-attend-system",
		},
		Log: Log{
			Level:      "info",
			MaxSize:    100,
			MaxBackups: 7,
			MaxAge:     30,
		},
		Face: Face{
			BaseURL:  "http://localhost:5005",
			Model:    "Facenet",
			Detector: "opencv",
			Metric:   "cosine",
			Timeout:  30 * time.Second,
		},
		Attendance: Attendance{
			LateAfterHour: 9,
			Timezone:      "Local",
			DedupWindow:   time.Minute,
			Method:        "Dual (Wifi+Face)",
		},
		RateLimit: RateLimit{
			LoginPerMinute: 20,
		},
		OTel: OTel{
			ServiceName: "face-attend-system",
		},
	}
}

// Init 依次加载默认值、配置文件、.env 与环境变量，后者覆盖前者
func Init() {
	c := Default()

	// .env 可选，不存在时忽略
	_ = godotenv.Load()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err == nil {
		if err := v.Unmarshal(c); err != nil {
			panic(err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}

	if err := envconfig.Process(EnvPrefix, c); err != nil {
		panic(err)
	}
	cfg = c
}

func Get() *Config {
	return cfg
}

// Set 替换全局配置，用于测试
func Set(c *Config) {
	cfg = c
}
