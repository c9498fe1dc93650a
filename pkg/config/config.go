// Package config 提供 TOML 配置加载、环境变量覆盖与校验
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config 服务配置
type Config struct {
	// 服务名称
	ServiceName string `mapstructure:"service_name"`
	// 服务版本
	Version string `mapstructure:"version"`
	// 环境：dev, staging, prod
	Environment string `mapstructure:"environment"`
	// HTTP 服务配置
	HTTP HTTPConfig `mapstructure:"http"`
	// Kafka 配置
	Kafka KafkaConfig `mapstructure:"kafka"`
	// 日志配置
	Logger LoggerConfig `mapstructure:"logger"`
	// 指标配置
	Metrics MetricsConfig `mapstructure:"metrics"`
	// 定价计算限制
	Pricing PricingConfig `mapstructure:"pricing"`
}

// HTTPConfig HTTP 服务配置
type HTTPConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// 读超时（秒）
	ReadTimeout int `mapstructure:"read_timeout"`
	// 写超时（秒），需覆盖最慢的蒙特卡洛请求
	WriteTimeout int `mapstructure:"write_timeout"`
	// 优雅停机等待时间（秒）
	ShutdownTimeout int             `mapstructure:"shutdown_timeout"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit"`
}

// Addr 监听地址
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RateLimitConfig 按客户端 IP 的令牌桶限流
type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	QPS     float64 `mapstructure:"qps"`
	Burst   int     `mapstructure:"burst"`
}

// KafkaConfig Kafka 配置，Enabled=false 时不发布定价事件
type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	// 最大重试次数
	MaxRetries int `mapstructure:"max_retries"`
	// 重试退避（毫秒）
	RetryBackoff int `mapstructure:"retry_backoff"`
	// 写超时（毫秒）
	WriteTimeout int `mapstructure:"write_timeout"`
}

// LoggerConfig 日志配置
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
	WithCaller bool   `mapstructure:"with_caller"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// PricingConfig 单次请求的计算量上限与默认值
type PricingConfig struct {
	DefaultBinomialSteps int `mapstructure:"default_binomial_steps"`
	MaxBinomialSteps     int `mapstructure:"max_binomial_steps"`
	DefaultSimulations   int `mapstructure:"default_simulations"`
	MaxSimulations       int `mapstructure:"max_simulations"`
	MaxPaths             int `mapstructure:"max_paths"`
	MaxPathSteps         int `mapstructure:"max_path_steps"`
	MaxGridPoints        int `mapstructure:"max_grid_points"`
	MaxBatchSize         int `mapstructure:"max_batch_size"`
	// 蒙特卡洛与路径模拟的并行协程数，0 表示 GOMAXPROCS
	Workers int `mapstructure:"workers"`
}

// Load 从 TOML 文件加载配置，文件必须存在
func Load(configPath string) (*Config, error) {
	return load(configPath, true)
}

// LoadWithDefaults 从 TOML 文件加载配置，文件不存在时仅使用默认值与环境变量
func LoadWithDefaults(configPath string) (*Config, error) {
	return load(configPath, false)
}

func load(configPath string, required bool) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(configPath)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if required || !(errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// APP_HTTP_PORT 覆盖 http.port
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate 验证配置的有效性
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("service_name is required")
	}
	if c.Environment == "" {
		c.Environment = "dev"
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTP.Port)
	}
	if c.HTTP.RateLimit.Enabled && (c.HTTP.RateLimit.QPS <= 0 || c.HTTP.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate limit requires positive qps and burst")
	}
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka brokers are required when kafka is enabled")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("kafka topic is required when kafka is enabled")
		}
	}

	p := c.Pricing
	limits := map[string]int{
		"default_binomial_steps": p.DefaultBinomialSteps,
		"max_binomial_steps":     p.MaxBinomialSteps,
		"default_simulations":    p.DefaultSimulations,
		"max_simulations":        p.MaxSimulations,
		"max_paths":              p.MaxPaths,
		"max_path_steps":         p.MaxPathSteps,
		"max_grid_points":        p.MaxGridPoints,
		"max_batch_size":         p.MaxBatchSize,
	}
	for name, v := range limits {
		if v <= 0 {
			return fmt.Errorf("pricing.%s must be > 0, got %d", name, v)
		}
	}
	if p.DefaultBinomialSteps > p.MaxBinomialSteps {
		return fmt.Errorf("pricing.default_binomial_steps exceeds max_binomial_steps")
	}
	if p.DefaultSimulations > p.MaxSimulations {
		return fmt.Errorf("pricing.default_simulations exceeds max_simulations")
	}
	if p.Workers < 0 {
		return fmt.Errorf("pricing.workers must be >= 0, got %d", p.Workers)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service_name", "optionpricing")
	v.SetDefault("version", "dev")
	v.SetDefault("environment", "dev")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", 30)
	v.SetDefault("http.write_timeout", 60)
	v.SetDefault("http.shutdown_timeout", 10)
	v.SetDefault("http.rate_limit.enabled", false)
	v.SetDefault("http.rate_limit.qps", 50.0)
	v.SetDefault("http.rate_limit.burst", 100)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "pricing-events")
	v.SetDefault("kafka.max_retries", 3)
	v.SetDefault("kafka.retry_backoff", 100)
	v.SetDefault("kafka.write_timeout", 5000)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.output", "stdout")
	v.SetDefault("logger.file_path", "logs/optionpricing.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 10)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.with_caller", false)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("pricing.default_binomial_steps", 500)
	v.SetDefault("pricing.max_binomial_steps", 5000)
	v.SetDefault("pricing.default_simulations", 100000)
	v.SetDefault("pricing.max_simulations", 5000000)
	v.SetDefault("pricing.max_paths", 10000)
	v.SetDefault("pricing.max_path_steps", 2520)
	v.SetDefault("pricing.max_grid_points", 2001)
	v.SetDefault("pricing.max_batch_size", 500)
	v.SetDefault("pricing.workers", 0)
}

// GetEnv 获取环境变量，支持默认值
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
