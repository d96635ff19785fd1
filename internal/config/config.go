package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/blues/crowdfund/internal/campaign"
	"github.com/blues/crowdfund/internal/logger"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Store    StoreConfig    `mapstructure:"store"`
	Database DatabaseConfig `mapstructure:"database"`
	Policy   PolicyConfig   `mapstructure:"policy"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Lock     LockConfig     `mapstructure:"lock"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Rail     RailConfig     `mapstructure:"rail"`
	Task     TaskConfig     `mapstructure:"task"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// StoreConfig 存储配置
type StoreConfig struct {
	Driver string `mapstructure:"driver"` // postgres, memory
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	DBName       string `mapstructure:"dbname"`
	SSLMode      string `mapstructure:"sslmode"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

// DSN postgres 连接串
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

// PolicyConfig 新建活动时快照的规则参数
type PolicyConfig struct {
	OwnerSplitPercent uint64 `mapstructure:"owner_split_percent"` // 发起人分成百分比
	HardCapInclusive  bool   `mapstructure:"hard_cap_inclusive"`  // 认筹可恰好达到硬顶
	ImmediateSuccess  bool   `mapstructure:"immediate_success"`   // 截止前达到软顶即成功
}

// Campaign 转换为活动规则
func (p PolicyConfig) Campaign() campaign.Policy {
	return campaign.Policy{
		OwnerSplitPercent: p.OwnerSplitPercent,
		HardCapInclusive:  p.HardCapInclusive,
		ImmediateSuccess:  p.ImmediateSuccess,
	}
}

// AuthConfig 调用方身份校验
type AuthConfig struct {
	Mode    string `mapstructure:"mode"`     // signature, header
	MaxSkew int    `mapstructure:"max_skew"` // 签名时间戳允许偏差（秒）
}

// Skew 时间戳允许偏差
func (a AuthConfig) Skew() time.Duration {
	return time.Duration(a.MaxSkew) * time.Second
}

// LockConfig 活动互斥锁
type LockConfig struct {
	Driver  string `mapstructure:"driver"`  // memory, redis
	TTL     int    `mapstructure:"ttl"`     // redis 锁过期时间（秒）
	Timeout int    `mapstructure:"timeout"` // 获取锁的最长等待（秒）
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

// RailConfig 资金通道
type RailConfig struct {
	AllowDeposit bool `mapstructure:"allow_deposit"` // 是否开放充值接口
}

type TaskConfig struct {
	Interval   int  `mapstructure:"interval"`    // 秒
	AutoSettle bool `mapstructure:"auto_settle"` // 截止后由平台自动结算或退款
	Workers    int  `mapstructure:"workers"`     // 并发处理活动数
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // 日志级别: debug, info, warn, error, fatal
	Output string `mapstructure:"output"` // 输出目标: stdout, stderr, file
	File   string `mapstructure:"file"`   // 日志文件路径（当output为file时使用）
}

// GetLevel 实现 logger.LogConfig 接口
func (l LogConfig) GetLevel() string {
	return l.Level
}

// GetOutput 实现 logger.LogConfig 接口
func (l LogConfig) GetOutput() string {
	return l.Output
}

// GetFile 实现 logger.LogConfig 接口
func (l LogConfig) GetFile() string {
	return l.File
}

// SetDefaults 写入全部默认值
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "crowdfund")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("policy.owner_split_percent", 90)
	v.SetDefault("policy.hard_cap_inclusive", true)
	v.SetDefault("policy.immediate_success", false)
	v.SetDefault("auth.mode", "signature")
	v.SetDefault("auth.max_skew", 300)
	v.SetDefault("lock.driver", "memory")
	v.SetDefault("lock.ttl", 30)
	v.SetDefault("lock.timeout", 10)
	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("rail.allow_deposit", false)
	v.SetDefault("task.interval", 60)
	v.SetDefault("task.auto_settle", false)
	v.SetDefault("task.workers", 8)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.file", "logs/app.log")
}

// Load 加载配置：默认值 < 配置文件 < CROWDFUND_ 前缀环境变量
func Load() *Config {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/crowdfund")

	SetDefaults(v)

	// 自动读取环境变量，如 CROWDFUND_STORE_DRIVER
	v.SetEnvPrefix("CROWDFUND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		logger.Warn("Warning: Could not read config file: %v", err)
	}

	config, err := decode(v)
	if err != nil {
		logger.Fatal("Unable to decode config into struct: %v", err)
	}
	return config
}

func decode(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate 校验配置组合
func (c *Config) Validate() error {
	var errs []error
	switch c.Store.Driver {
	case "postgres", "memory":
	default:
		errs = append(errs, fmt.Errorf("store.driver must be postgres or memory, got %q", c.Store.Driver))
	}
	switch c.Lock.Driver {
	case "memory":
	case "redis":
		if c.Redis.URL == "" {
			errs = append(errs, errors.New("redis.url is required when lock.driver is redis"))
		}
		if c.Lock.TTL <= 0 {
			errs = append(errs, errors.New("lock.ttl must be positive"))
		}
	default:
		errs = append(errs, fmt.Errorf("lock.driver must be memory or redis, got %q", c.Lock.Driver))
	}
	switch c.Auth.Mode {
	case "signature", "header":
	default:
		errs = append(errs, fmt.Errorf("auth.mode must be signature or header, got %q", c.Auth.Mode))
	}
	if c.Auth.MaxSkew <= 0 {
		errs = append(errs, errors.New("auth.max_skew must be positive"))
	}
	if err := c.Policy.Campaign().Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Task.Interval <= 0 {
		errs = append(errs, errors.New("task.interval must be positive"))
	}
	if c.Task.Workers <= 0 {
		errs = append(errs, errors.New("task.workers must be positive"))
	}
	return errors.Join(errs...)
}
