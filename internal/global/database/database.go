package database

import (
	"context"
	"fmt"
	"strings"

	"face-attend-system/config"
	"face-attend-system/internal/global/sentry/tracing"
	"face-attend-system/internal/model"
	"face-attend-system/tools"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// autoMigrateModels 需要自动迁移的模型
var autoMigrateModels = []any{
	&model.User{},
	&model.Attendance{},
}

func Init() {
	db, err := Open(config.Get())
	tools.PanicOnErr(err)
	DB = db
	tools.PanicOnErr(Migrate(DB))
}

// Open 按配置选择驱动并建立连接
func Open(cfg *config.Config) (*gorm.DB, error) {
	dialector, err := Dialector(cfg.Database)
	if err != nil {
		return nil, err
	}

	gormConfig := &gorm.Config{TranslateError: true}
	switch cfg.Mode {
	case config.ModeDebug:
		gormConfig.Logger = logger.Default.LogMode(logger.Info)
	case config.ModeRelease:
		gormConfig.Logger = logger.Discard
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, err
	}

	if tracing.IsEnabled() {
		if err := db.Use(tracing.NewGormTracingPlugin()); err != nil {
			return nil, err
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// sqlite 只允许单写连接，内存库也依赖同一连接
	if dialector.Name() == DriverSQLite {
		sqlDB.SetMaxOpenConns(1)
	} else {
		if cfg.Database.MaxOpenConns > 0 {
			sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		}
		if cfg.Database.MaxIdleConns > 0 {
			sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		}
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(autoMigrateModels...)
}

// Dialector Driver 为空时按 DSN 前缀或 Host 推断，都没有则使用 sqlite 文件
func Dialector(c config.Database) (gorm.Dialector, error) {
	driver := strings.ToLower(c.Driver)
	if driver == "" {
		driver = detectDriver(c)
	}

	switch driver {
	case DriverMySQL:
		dsn := strings.TrimPrefix(c.DSN, "mysql://")
		if dsn == "" {
			dsn = mysqlDSN(c)
		}
		return mysql.Open(dsn), nil
	case DriverPostgres, "postgresql":
		dsn := NormalizePostgresURL(c.DSN)
		if dsn == "" {
			dsn = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
				c.Host, c.Port, c.Username, c.Password, c.DBName)
		}
		return postgres.Open(dsn), nil
	case DriverSQLite:
		path := strings.TrimPrefix(c.DSN, "sqlite://")
		if path == "" {
			path = c.SQLitePath
		}
		if path == "" {
			path = "attendance.db"
		}
		return sqlite.Open(path), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", c.Driver)
	}
}

func detectDriver(c config.Database) string {
	switch {
	case strings.HasPrefix(c.DSN, "postgres://"), strings.HasPrefix(c.DSN, "postgresql://"):
		return DriverPostgres
	case strings.HasPrefix(c.DSN, "mysql://"):
		return DriverMySQL
	case c.DSN == "" && c.Host != "":
		return DriverMySQL
	default:
		return DriverSQLite
	}
}

// NormalizePostgresURL 旧式 postgres:// 前缀统一改为 postgresql://
func NormalizePostgresURL(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") {
		return "postgresql://" + strings.TrimPrefix(dsn, "postgres://")
	}
	return dsn
}

func mysqlDSN(c config.Database) string {
	mc := mysqldriver.NewConfig()
	mc.User = c.Username
	mc.Passwd = c.Password
	mc.Net = "tcp"
	mc.Addr = c.Host + ":" + c.Port
	mc.DBName = c.DBName
	mc.ParseTime = true
	mc.Params = map[string]string{"charset": "utf8mb4"}
	return mc.FormatDSN()
}

// Ping 用于健康检查
func Ping(ctx context.Context) error {
	if DB == nil {
		return fmt.Errorf("database not initialised")
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
