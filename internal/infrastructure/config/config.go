package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 全局配置结构
// 设计说明：使用Viper管理配置，支持YAML文件、.env文件、环境变量覆盖
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Log       LogConfig       `mapstructure:"log"`
	Inventory InventoryConfig `mapstructure:"inventory"`
	MQ        MQConfig        `mapstructure:"mq"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"` // debug | release | test
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // mysql | sqlite
	Path            string        `mapstructure:"path"`   // sqlite数据库文件
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	Charset         string        `mapstructure:"charset"`
	ParseTime       bool          `mapstructure:"parse_time"`
	Loc             string        `mapstructure:"loc"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN 生成MySQL连接字符串
// 格式：user:password@tcp(host:port)/dbname?charset=utf8mb4&parseTime=True&loc=Local
// 注意：loc参数需要URL编码（Asia/Shanghai → Asia%2FShanghai）
func (d DatabaseConfig) DSN() string {
	loc := url.QueryEscape(d.Loc)
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.Charset, d.ParseTime, loc)
}

// IsSQLite 是否使用SQLite(本地开发、测试)
func (d DatabaseConfig) IsSQLite() bool {
	return strings.EqualFold(d.Driver, "sqlite")
}

type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Addr 返回Redis地址
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type LogConfig struct {
	Level        string `mapstructure:"level"`  // debug | info | warn | error
	Format       string `mapstructure:"format"` // console | json
	Output       string `mapstructure:"output"` // stdout | stderr | /path/to/file
	EnableCaller bool   `mapstructure:"enable_caller"`
}

// InventoryConfig 库存核心策略
type InventoryConfig struct {
	ReservationTTL    time.Duration `mapstructure:"reservation_ttl"`     // 默认预占时长(结算会话生命周期)
	ReservationMaxTTL time.Duration `mapstructure:"reservation_max_ttl"` // 调用方可申请的最长预占时长
	SweepSchedule     string        `mapstructure:"sweep_schedule"`      // 过期预占清理的cron表达式
	SweepBatch        int           `mapstructure:"sweep_batch"`         // 每次清理的最大条数
	ReconcileSchedule string        `mapstructure:"reconcile_schedule"`  // 快照对账的cron表达式,为空不执行
	LockBackend       string        `mapstructure:"lock_backend"`        // local | redis
	LockTimeout       time.Duration `mapstructure:"lock_timeout"`        // 等待锁的最长时间
	LockTTL           time.Duration `mapstructure:"lock_ttl"`            // Redis锁的自动过期时间
	CacheEnabled      bool          `mapstructure:"cache_enabled"`       // 是否启用Redis库存缓存
	CacheTTL          time.Duration `mapstructure:"cache_ttl"`
}

// MQConfig RabbitMQ配置
type MQConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	URL          string `mapstructure:"url"`
	Exchange     string `mapstructure:"exchange"`
	ExchangeType string `mapstructure:"exchange_type"`
}

// TracingConfig OpenTelemetry配置
type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
	Endpoint    string `mapstructure:"endpoint"` // OTLP gRPC地址,如 localhost:4317
}

// Load 加载配置文件
// 支持：
// 1. 默认加载config/config.yaml
// 2. 通过环境变量STOCKCORE_ENV指定环境（如config.prod.yaml）
// 3. 环境变量覆盖（如STOCKCORE_DATABASE_PASSWORD），.env文件中的变量同样生效
func Load() (*Config, error) {
	return LoadFrom("./config", ".")
}

// LoadFrom 从指定目录加载配置
func LoadFrom(paths ...string) (*Config, error) {
	// .env不存在时忽略
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	if env := os.Getenv("STOCKCORE_ENV"); env != "" {
		v.SetConfigName("config." + env)
	}
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !asConfigNotFound(err, &notFound) {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 没有配置文件时只使用默认值+环境变量
	}

	// 环境变量绑定（STOCKCORE_DATABASE_PASSWORD → database.password）
	v.SetEnvPrefix("STOCKCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.host", "127.0.0.1")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.charset", "utf8mb4")
	v.SetDefault("database.parse_time", true)
	v.SetDefault("database.loc", "Local")
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)

	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.pool_size", 20)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stdout")

	v.SetDefault("inventory.reservation_ttl", 15*time.Minute)
	v.SetDefault("inventory.reservation_max_ttl", 2*time.Hour)
	v.SetDefault("inventory.sweep_schedule", "@every 1m")
	v.SetDefault("inventory.sweep_batch", 200)
	v.SetDefault("inventory.reconcile_schedule", "@every 10m")
	v.SetDefault("inventory.lock_backend", "local")
	v.SetDefault("inventory.lock_timeout", 3*time.Second)
	v.SetDefault("inventory.lock_ttl", 30*time.Second)
	v.SetDefault("inventory.cache_ttl", 30*time.Second)

	v.SetDefault("mq.exchange", "stockcore.events")
	v.SetDefault("mq.exchange_type", "topic")

	v.SetDefault("tracing.service_name", "stockcore")
	v.SetDefault("tracing.endpoint", "localhost:4317")
}

// validate 配置校验
func validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("无效的服务端口: %d", cfg.Server.Port)
	}

	switch strings.ToLower(cfg.Database.Driver) {
	case "mysql":
	case "sqlite":
		if cfg.Database.Path == "" {
			return fmt.Errorf("sqlite模式必须配置database.path")
		}
	default:
		return fmt.Errorf("不支持的数据库驱动: %s", cfg.Database.Driver)
	}

	inv := cfg.Inventory
	if inv.ReservationTTL <= 0 {
		return fmt.Errorf("inventory.reservation_ttl必须大于0")
	}
	if inv.ReservationMaxTTL < inv.ReservationTTL {
		return fmt.Errorf("inventory.reservation_max_ttl不能小于reservation_ttl")
	}
	if inv.LockBackend != "local" && inv.LockBackend != "redis" {
		return fmt.Errorf("不支持的锁实现: %s", inv.LockBackend)
	}
	if (inv.LockBackend == "redis" || inv.CacheEnabled) && !cfg.Redis.Enabled {
		return fmt.Errorf("使用Redis锁或缓存时必须启用redis")
	}
	if inv.LockBackend == "redis" && inv.LockTTL <= inv.LockTimeout {
		return fmt.Errorf("inventory.lock_ttl必须大于lock_timeout")
	}

	if cfg.MQ.Enabled && cfg.MQ.URL == "" {
		return fmt.Errorf("启用消息队列时必须配置mq.url")
	}

	return nil
}

func asConfigNotFound(err error, target *viper.ConfigFileNotFoundError) bool {
	e, ok := err.(viper.ConfigFileNotFoundError)
	if ok {
		*target = e
	}
	return ok
}
