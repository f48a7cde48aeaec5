package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"db"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Log      LogConfig      `mapstructure:"log"`
	Booking  BookingConfig  `mapstructure:"booking"`
	Payment  PaymentConfig  `mapstructure:"payment"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	BaseURL      string        `mapstructure:"base_url"`
	BodyLimitMB  int64         `mapstructure:"body_limit_mb"`
	CORS         CORSConfig    `mapstructure:"cors"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig PostgreSQL 数据库配置
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // 连接最大生命周期（分钟）
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // 空闲连接最大存活时间（分钟）
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig JWT 校验配置（Token 由身份服务签发，本服务只负责校验）
type AuthConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	Issuer         string        `mapstructure:"issuer"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// BookingConfig 预约相关配置
type BookingConfig struct {
	Timezone string `mapstructure:"timezone"`
	// SlotLockTTL Redis 时段锁的过期时间，只用于快速失败，真正的互斥由数据库唯一索引保证
	SlotLockTTL time.Duration `mapstructure:"slot_lock_ttl"`
	// StrictTransitions 为 false 时 UpdateStatus 退回旧的宽松行为
	StrictTransitions bool          `mapstructure:"strict_transitions"`
	RateLimit         int           `mapstructure:"rate_limit"`
	RateWindow        time.Duration `mapstructure:"rate_window"`
}

// Location 返回预约时区，配置非法时回退到 UTC（Validate 已提前拦截）
func (c *BookingConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// PaymentConfig 支付网关（VNPay）配置
type PaymentConfig struct {
	TmnCode     string        `mapstructure:"tmn_code"`
	HashSecret  string        `mapstructure:"hash_secret"`
	PayURL      string        `mapstructure:"pay_url"`
	ReturnURL   string        `mapstructure:"return_url"`
	Version     string        `mapstructure:"version"`
	Command     string        `mapstructure:"command"`
	CurrCode    string        `mapstructure:"curr_code"`
	OrderType   string        `mapstructure:"order_type"`
	Locale      string        `mapstructure:"locale"`
	Timezone    string        `mapstructure:"timezone"`
	SuccessCode string        `mapstructure:"success_code"`
	ExpireAfter time.Duration `mapstructure:"expire_after"`
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.body_limit_mb", 2)
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:5173"})
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "clinic")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "Asia/Ho_Chi_Minh")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)
	v.SetDefault("db.conn_max_idle_time", 30)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// 无默认值的敏感项也需注册，AutomaticEnv 才能在 Unmarshal 时生效
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("payment.tmn_code", "")
	v.SetDefault("payment.hash_secret", "")

	v.SetDefault("auth.issuer", "clinic-identity")
	v.SetDefault("auth.access_token_ttl", "15m")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("booking.timezone", "Asia/Ho_Chi_Minh")
	v.SetDefault("booking.slot_lock_ttl", "5s")
	v.SetDefault("booking.strict_transitions", true)
	v.SetDefault("booking.rate_limit", 20)
	v.SetDefault("booking.rate_window", "1m")

	v.SetDefault("payment.pay_url", "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html")
	v.SetDefault("payment.return_url", "http://localhost:5173/payment/result")
	v.SetDefault("payment.version", "2.1.0")
	v.SetDefault("payment.command", "pay")
	v.SetDefault("payment.curr_code", "VND")
	v.SetDefault("payment.order_type", "other")
	v.SetDefault("payment.locale", "vn")
	v.SetDefault("payment.timezone", "Asia/Ho_Chi_Minh")
	v.SetDefault("payment.success_code", "00")
	v.SetDefault("payment.expire_after", "15m")

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("CLINIC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 配置文件不存在时仅依赖默认值和环境变量
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 不能为空")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 长度不能少于 16 字符")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	if c.Payment.HashSecret == "" {
		return fmt.Errorf("配置校验失败: payment.hash_secret 不能为空")
	}
	if c.Payment.TmnCode == "" {
		return fmt.Errorf("配置校验失败: payment.tmn_code 不能为空")
	}
	if _, err := time.LoadLocation(c.Booking.Timezone); err != nil {
		return fmt.Errorf("配置校验失败: booking.timezone 无效: %w", err)
	}
	if _, err := time.LoadLocation(c.Payment.Timezone); err != nil {
		return fmt.Errorf("配置校验失败: payment.timezone 无效: %w", err)
	}
	return nil
}
