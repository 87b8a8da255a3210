package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Config 应用配置
type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	Consul   ConsulConfig   `json:"consul"`
	Jaeger   JaegerConfig   `json:"jaeger"`
	Log      LogConfig      `json:"log"`
	Auth     AuthConfig     `json:"auth"`
	Backends BackendsConfig `json:"backends"`
}

// ServerConfig 服务配置
type ServerConfig struct {
	Name     string `json:"name"`      // 服务名称
	Host     string `json:"host"`      // 服务地址
	HTTPPort int    `json:"http_port"` // 业务 HTTP 端口
	GRPCPort int    `json:"grpc_port"` // gRPC 健康检查端口（供 Consul GRPC check 探测）
}

// DatabaseConfig 数据库配置（流转审计表使用）
type DatabaseConfig struct {
	Driver   string `json:"driver"`   // 数据库驱动
	Host     string `json:"host"`     // 数据库地址
	Port     int    `json:"port"`     // 数据库端口
	User     string `json:"user"`     // 用户名
	Password string `json:"password"` // 密码
	Database string `json:"database"` // 数据库名
	MaxIdle  int    `json:"max_idle"` // 最大空闲连接
	MaxOpen  int    `json:"max_open"` // 最大打开连接
}

// ConsulConfig Consul配置
type ConsulConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// JaegerConfig Jaeger配置
type JaegerConfig struct {
	Endpoint string  `json:"endpoint"`
	Sampler  float64 `json:"sampler"` // 采样率 0.0-1.0
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
	Output string `json:"output"` // stdout, file
	Path   string `json:"path"`   // 日志文件路径
}

// AuthConfig 网关入站鉴权配置（HS256 JWT）
type AuthConfig struct {
	Enabled     bool     `json:"enabled"`
	JWTSecret   string   `json:"jwt_secret"`
	Issuer      string   `json:"issuer"`
	Audience    string   `json:"audience"`
	PublicPaths []string `json:"public_paths"` // 免鉴权路径，例如 /healthz
}

// BackendConfig 单个后端的访问入口。
// BaseURL 为空时按 ServiceName 走 Consul 解析健康实例。
type BackendConfig struct {
	ServiceName string `json:"service_name"`
	BaseURL     string `json:"base_url"`
}

// BackendsConfig 后端访问与容错配置
type BackendsConfig struct {
	Receipt BackendConfig `json:"receipt"` // 接车单后端
	Order   BackendConfig `json:"order"`   // 采购单后端

	TimeoutSeconds      int `json:"timeout_seconds"`       // 单次请求超时（秒）
	RetryMax            int `json:"retry_max"`             // 瞬时失败最多追加重试次数
	BreakerMaxFailures  int `json:"breaker_max_failures"`  // 熔断阈值
	BreakerResetSeconds int `json:"breaker_reset_seconds"` // 熔断恢复窗口（秒）
}

// Timeout 单次后端请求超时，未配置时取 5s。
func (b BackendsConfig) Timeout() time.Duration {
	if b.TimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(b.TimeoutSeconds) * time.Second
}

// BreakerReset 熔断恢复窗口，未配置时取 30s。
func (b BackendsConfig) BreakerReset() time.Duration {
	if b.BreakerResetSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(b.BreakerResetSeconds) * time.Second
}

var (
	globalConfig *Config
	configOnce   sync.Once
)

// LoadConfig 加载配置
func LoadConfig(configPath string) (*Config, error) {
	var err error
	configOnce.Do(func() {
		globalConfig = &Config{}
		// 如果配置文件不存在，使用默认配置
		if _, err = os.Stat(configPath); os.IsNotExist(err) {
			logrus.Warnf("Config file not found: %s, using default config", configPath)
			globalConfig = defaultConfig()
			err = nil
			return
		}

		data, readErr := os.ReadFile(configPath)
		if readErr != nil {
			err = fmt.Errorf("failed to read config file: %w", readErr)
			return
		}

		if unmarshalErr := json.Unmarshal(data, globalConfig); unmarshalErr != nil {
			err = fmt.Errorf("failed to parse config file: %w", unmarshalErr)
			return
		}
	})

	if err != nil {
		return nil, err
	}

	return globalConfig, nil
}

// GetConfig 获取全局配置
func GetConfig() *Config {
	if globalConfig == nil {
		return defaultConfig()
	}
	return globalConfig
}

// defaultConfig 默认配置（开发环境）
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Name:     "engineer-gateway",
			Host:     "0.0.0.0",
			HTTPPort: 8080,
			GRPCPort: 50051,
		},
		Database: DatabaseConfig{
			Driver:   "mysql",
			Host:     "localhost",
			Port:     3306,
			User:     "root",
			Password: "root",
			Database: "autofixlink",
			MaxIdle:  10,
			MaxOpen:  100,
		},
		Consul: ConsulConfig{
			Host: "localhost",
			Port: 8500,
		},
		Jaeger: JaegerConfig{
			Endpoint: "http://localhost:14268/api/traces",
			Sampler:  1.0,
		},
		Log: LogConfig{
			Level:  "debug",
			Format: "text",
			Output: "stdout",
			Path:   "logs/app.log",
		},
		Auth: AuthConfig{
			Enabled:     false,
			Issuer:      "autofixlink",
			Audience:    "autofixlink",
			PublicPaths: []string{"/healthz"},
		},
		Backends: BackendsConfig{
			Receipt: BackendConfig{
				ServiceName: "receipt-backend",
				BaseURL:     "http://localhost:9001",
			},
			Order: BackendConfig{
				ServiceName: "order-backend",
				BaseURL:     "http://localhost:9002",
			},
			TimeoutSeconds:      5,
			RetryMax:            1,
			BreakerMaxFailures:  5,
			BreakerResetSeconds: 30,
		},
	}
}
