// Package config 提供应用配置的加载、默认值与校验。
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"sectorpulse/pkg/scheduler"
)

// Config 主配置结构
type Config struct {
	// 数据源配置
	Provider ProviderConfig `mapstructure:"provider"`

	// 调度配置
	Scheduler scheduler.Config `mapstructure:"scheduler"`

	// HTTP 服务配置
	Server ServerConfig `mapstructure:"server"`

	// Redis 发布配置（可选，Addr 为空时关闭）
	Redis RedisConfig `mapstructure:"redis"`

	// InfluxDB 写入配置（可选，URL 为空时关闭）
	Influx InfluxConfig `mapstructure:"influx"`

	// 解读生成配置（可选，APIKey 为空时相关接口返回缺少凭证错误）
	Advisor AdvisorConfig `mapstructure:"advisor"`

	// 日志配置
	Logger LoggerConfig `mapstructure:"logger"`
}

// ProviderConfig 数据源配置
type ProviderConfig struct {
	Timeout            time.Duration `mapstructure:"timeout"`               // 单请求超时
	BreakerReadyToTrip uint32        `mapstructure:"breaker_ready_to_trip"` // 连续失败熔断阈值
	BreakerTimeout     time.Duration `mapstructure:"breaker_timeout"`       // 熔断打开时长
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Addr string `mapstructure:"addr"` // 监听地址，空串时不启动 HTTP 服务
}

// RedisConfig Redis 发布配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Channel  string `mapstructure:"channel"`
	Key      string `mapstructure:"key"`
}

// InfluxConfig InfluxDB 写入配置
type InfluxConfig struct {
	URL    string `mapstructure:"url"`
	Token  string `mapstructure:"token"`
	Org    string `mapstructure:"org"`
	Bucket string `mapstructure:"bucket"`
}

// AdvisorConfig 解读生成配置
type AdvisorConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// LoggerConfig 日志配置
type LoggerConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // text, json
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		Provider: ProviderConfig{
			Timeout:            10 * time.Second,
			BreakerReadyToTrip: 5,
			BreakerTimeout:     30 * time.Second,
		},
		Scheduler: scheduler.DefaultConfig(),
		Server: ServerConfig{
			Addr: ":8090",
		},
		Redis: RedisConfig{
			Channel: "sectorpulse:cycles",
			Key:     "sectorpulse:latest",
		},
		Advisor: AdvisorConfig{
			BaseURL: "https://api.deepseek.com/v1",
			Model:   "deepseek-chat",
			Timeout: 60 * time.Second,
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load 从配置文件加载配置，缺失项回落默认值
// 环境变量以 SECTORPULSE_ 为前缀覆盖同名配置项
func Load(configPath string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetEnvPrefix("SECTORPULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// AutomaticEnv 只对 viper 已知的键生效，必须先注册全部默认键
	registerDefaults(v, cfg)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// registerDefaults 把默认配置逐键注册到 viper，使环境变量和文件均可按键覆盖
func registerDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("provider.timeout", cfg.Provider.Timeout)
	v.SetDefault("provider.breaker_ready_to_trip", cfg.Provider.BreakerReadyToTrip)
	v.SetDefault("provider.breaker_timeout", cfg.Provider.BreakerTimeout)

	v.SetDefault("scheduler.trading_interval", cfg.Scheduler.TradingInterval)
	v.SetDefault("scheduler.idle_interval", cfg.Scheduler.IdleInterval)
	v.SetDefault("scheduler.primary_filter", cfg.Scheduler.PrimaryFilter)
	v.SetDefault("scheduler.primary_limit", cfg.Scheduler.PrimaryLimit)
	v.SetDefault("scheduler.sector_filter", cfg.Scheduler.SectorFilter)
	v.SetDefault("scheduler.sector_limit", cfg.Scheduler.SectorLimit)
	v.SetDefault("scheduler.member_prefix", cfg.Scheduler.MemberPrefix)
	v.SetDefault("scheduler.member_limit", cfg.Scheduler.MemberLimit)
	v.SetDefault("scheduler.sort_field", cfg.Scheduler.SortField)
	v.SetDefault("scheduler.fetch_timeout", cfg.Scheduler.FetchTimeout)

	v.SetDefault("server.addr", cfg.Server.Addr)

	v.SetDefault("redis.addr", cfg.Redis.Addr)
	v.SetDefault("redis.password", cfg.Redis.Password)
	v.SetDefault("redis.db", cfg.Redis.DB)
	v.SetDefault("redis.channel", cfg.Redis.Channel)
	v.SetDefault("redis.key", cfg.Redis.Key)

	v.SetDefault("influx.url", cfg.Influx.URL)
	v.SetDefault("influx.token", cfg.Influx.Token)
	v.SetDefault("influx.org", cfg.Influx.Org)
	v.SetDefault("influx.bucket", cfg.Influx.Bucket)

	v.SetDefault("advisor.api_key", cfg.Advisor.APIKey)
	v.SetDefault("advisor.base_url", cfg.Advisor.BaseURL)
	v.SetDefault("advisor.model", cfg.Advisor.Model)
	v.SetDefault("advisor.timeout", cfg.Advisor.Timeout)

	v.SetDefault("logger.level", cfg.Logger.Level)
	v.SetDefault("logger.format", cfg.Logger.Format)
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.Provider.Timeout <= 0 {
		return errors.New("provider timeout must be positive")
	}

	if c.Scheduler.TradingInterval <= 0 {
		return errors.New("trading_interval must be positive")
	}

	if c.Scheduler.IdleInterval <= 0 {
		return errors.New("idle_interval must be positive")
	}

	if c.Scheduler.PrimaryFilter == "" {
		return errors.New("primary_filter cannot be empty")
	}

	if c.Scheduler.SectorFilter == "" {
		return errors.New("sector_filter cannot be empty")
	}

	if c.Scheduler.SectorLimit <= 0 {
		return errors.New("sector_limit must be positive")
	}

	if c.Scheduler.MemberLimit <= 0 {
		return errors.New("member_limit must be positive")
	}

	if c.Influx.URL != "" && c.Influx.Bucket == "" {
		return errors.New("influx bucket cannot be empty when influx url is set")
	}

	return nil
}
