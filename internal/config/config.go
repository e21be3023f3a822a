package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config 应用配置结构
type Config struct {
	Vault  VaultConfig  `mapstructure:"vault"`
	Oracle OracleConfig `mapstructure:"oracle"`
	Fees   FeesConfig   `mapstructure:"fees"`
	Server ServerConfig `mapstructure:"server"`
	Redis  RedisConfig  `mapstructure:"redis"`
	System SystemConfig `mapstructure:"system"`
}

// VaultConfig 金库再平衡策略配置
// 阈值梯度是策略常量，统一从这里下发，调用方不允许自行硬编码
type VaultConfig struct {
	TargetHotRatio      float64  `mapstructure:"target_hot_ratio"`     // 默认20
	TargetColdRatio     float64  `mapstructure:"target_cold_ratio"`    // 默认80
	OptimalDeviation    float64  `mapstructure:"optimal_deviation"`    // abs(deviation) <= 2 → OPTIMAL
	AcceptableDeviation float64  `mapstructure:"acceptable_deviation"` // <= 5 → ACCEPTABLE
	WarningDeviation    float64  `mapstructure:"warning_deviation"`    // <= 10 → WARNING, 超过 → CRITICAL
	RebalanceThreshold  float64  `mapstructure:"rebalance_threshold"`  // abs(deviation) > 5 时需要再平衡
	MonitorIntervalSecs int      `mapstructure:"monitor_interval_seconds"`
	StatsIntervalSecs   int      `mapstructure:"stats_interval_seconds"`
	AllowedSymbols      []string `mapstructure:"allowed_symbols"`
}

// OracleConfig 价格预言机配置
type OracleConfig struct {
	Binance BinanceOracleConfig `mapstructure:"binance"`
	Upbit   UpbitOracleConfig   `mapstructure:"upbit"`
	// 临时性网络错误的重试预算
	MaxRetries       int `mapstructure:"max_retries"`
	RetryBackoffMsec int `mapstructure:"retry_backoff_msec"`
}

// BinanceOracleConfig Binance行情源配置（USD侧报价）
type BinanceOracleConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
}

// UpbitOracleConfig Upbit行情源配置（KRW侧报价）
type UpbitOracleConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
}

// FeesConfig 手续费估算配置
type FeesConfig struct {
	// 按网络维度配置的费率（基点）与最低手续费（KRW）
	DefaultRateBps float64                     `mapstructure:"default_rate_bps"`
	MinFeeKRW      float64                     `mapstructure:"min_fee_krw"`
	Networks       map[string]NetworkFeeConfig `mapstructure:"networks"`
}

// NetworkFeeConfig 单个网络的手续费配置
type NetworkFeeConfig struct {
	RateBps   float64 `mapstructure:"rate_bps"`
	MinFeeKRW float64 `mapstructure:"min_fee_krw"`
}

// ServerConfig HTTP服务配置
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// SystemConfig 系统配置
type SystemConfig struct {
	LogLevel string `mapstructure:"log_level"`
	LogDir   string `mapstructure:"log_dir"`
}

// LoadConfig 从文件加载配置
func LoadConfig(filePath string) (*Config, error) {
	// 使用Viper读取配置
	v := viper.New()
	v.SetConfigFile(filePath)

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	// 绑定环境变量，前缀如VAULT_REDIS_PASSWORD
	v.AutomaticEnv()
	v.SetEnvPrefix("VAULT")

	// 特定环境变量映射，存在时优先使用
	if binanceApiKey := os.Getenv("BINANCE_API_KEY"); binanceApiKey != "" {
		v.Set("oracle.binance.api_key", binanceApiKey)
	}
	if binanceApiSecret := os.Getenv("BINANCE_API_SECRET"); binanceApiSecret != "" {
		v.Set("oracle.binance.api_secret", binanceApiSecret)
	}
	if upbitApiKey := os.Getenv("UPBIT_API_KEY"); upbitApiKey != "" {
		v.Set("oracle.upbit.api_key", upbitApiKey)
	}
	if upbitApiSecret := os.Getenv("UPBIT_API_SECRET"); upbitApiSecret != "" {
		v.Set("oracle.upbit.api_secret", upbitApiSecret)
	}
	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		v.Set("redis.password", redisPassword)
	}

	// 解析配置到结构体
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	// 验证配置有效性
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}

	return &config, nil
}

// LoadConfigFromYAML 保留原有的yaml加载函数以备不时之需
func LoadConfigFromYAML(filePath string) (*Config, error) {
	yamlFile, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(yamlFile, &config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}

	return &config, nil
}

// validateConfig 验证配置有效性
func validateConfig(config *Config) error {
	// 目标比例必须合计100
	if config.Vault.TargetHotRatio+config.Vault.TargetColdRatio != 100 {
		return fmt.Errorf("热冷钱包目标比例之和必须为100，当前为%.2f",
			config.Vault.TargetHotRatio+config.Vault.TargetColdRatio)
	}

	if config.Vault.TargetHotRatio <= 0 || config.Vault.TargetHotRatio >= 100 {
		return fmt.Errorf("热钱包目标比例必须在0到100之间")
	}

	// 阈值梯度必须单调递增
	if config.Vault.OptimalDeviation <= 0 {
		return fmt.Errorf("OPTIMAL偏差阈值必须大于0")
	}
	if config.Vault.AcceptableDeviation <= config.Vault.OptimalDeviation {
		return fmt.Errorf("ACCEPTABLE偏差阈值必须大于OPTIMAL阈值")
	}
	if config.Vault.WarningDeviation <= config.Vault.AcceptableDeviation {
		return fmt.Errorf("WARNING偏差阈值必须大于ACCEPTABLE阈值")
	}

	if config.Vault.RebalanceThreshold <= 0 {
		return fmt.Errorf("再平衡触发阈值必须大于0")
	}

	if config.Vault.MonitorIntervalSecs <= 0 {
		return fmt.Errorf("监控间隔必须大于0秒")
	}

	// 至少启用一个行情源
	if !config.Oracle.Binance.Enabled && !config.Oracle.Upbit.Enabled {
		return fmt.Errorf("至少需要启用一个行情源")
	}

	// 验证Redis配置
	if config.Redis.Host == "" {
		return fmt.Errorf("Redis主机不能为空")
	}
	if config.Redis.Port <= 0 || config.Redis.Port > 65535 {
		return fmt.Errorf("无效的Redis端口")
	}

	// 验证服务端口
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("无效的HTTP服务端口")
	}

	return nil
}

// GetDefaultConfig 获取默认配置（用于生成示例配置）
// 阈值默认值来自托管运营策略：目标20/80，梯度2/5/10，触发阈值5
func GetDefaultConfig() *Config {
	return &Config{
		Vault: VaultConfig{
			TargetHotRatio:      20,
			TargetColdRatio:     80,
			OptimalDeviation:    2,
			AcceptableDeviation: 5,
			WarningDeviation:    10,
			RebalanceThreshold:  5,
			MonitorIntervalSecs: 10,
			StatsIntervalSecs:   30,
			AllowedSymbols:      []string{"BTC", "ETH", "SOL", "USDT"},
		},
		Oracle: OracleConfig{
			Binance: BinanceOracleConfig{
				Enabled: true,
			},
			Upbit: UpbitOracleConfig{
				Enabled: true,
			},
			MaxRetries:       3,
			RetryBackoffMsec: 500,
		},
		Fees: FeesConfig{
			DefaultRateBps: 10,
			MinFeeKRW:      1000,
			Networks: map[string]NetworkFeeConfig{
				"BTC": {RateBps: 15, MinFeeKRW: 5000},
				"ETH": {RateBps: 12, MinFeeKRW: 3000},
			},
		},
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Redis: RedisConfig{
			Host:      "localhost",
			Port:      6379,
			Password:  "",
			DB:        0,
			KeyPrefix: "vault:",
		},
		System: SystemConfig{
			LogLevel: "INFO",
			LogDir:   "./logs",
		},
	}
}
