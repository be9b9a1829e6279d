// =============================================================================
// 📦 GenBridge 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config.yaml").
//	    WithEnvPrefix("GENBRIDGE").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 通用环境变量（PORT 等）→ 带前缀环境变量
// =============================================================================
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是 GenBridge 的完整配置结构
type Config struct {
	// Server 服务器配置
	Server ServerConfig `yaml:"server" envPrefix:"SERVER_"`

	// LLM 推理服务配置
	LLM LLMConfig `yaml:"llm" envPrefix:"LLM_"`

	// Log 日志配置
	Log LogConfig `yaml:"log" envPrefix:"LOG_"`

	// Telemetry 遥测配置
	Telemetry TelemetryConfig `yaml:"telemetry" envPrefix:"TELEMETRY_"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	// HTTP 端口
	HTTPPort int `yaml:"http_port" env:"HTTP_PORT"`
	// Metrics 端口，0 表示不启动独立的 metrics 服务
	MetricsPort int `yaml:"metrics_port" env:"METRICS_PORT"`
	// 读取超时
	ReadTimeout time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	// 写入超时，需大于 llm.timeout
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	// 优雅关闭超时
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	// 单个请求体上限（字节）
	MaxUploadBytes int64 `yaml:"max_upload_bytes" env:"MAX_UPLOAD_BYTES"`
	// 上传文件暂存目录
	UploadDir string `yaml:"upload_dir" env:"UPLOAD_DIR"`
	// 允许的跨域来源，为空时拒绝跨域
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins" env:"CORS_ALLOWED_ORIGINS"`
	// 每个 IP 的限流速率，<= 0 表示关闭
	RateLimitRPS float64 `yaml:"rate_limit_rps" env:"RATE_LIMIT_RPS"`
	// 限流突发容量
	RateLimitBurst int `yaml:"rate_limit_burst" env:"RATE_LIMIT_BURST"`
}

// LLMConfig 推理服务配置
type LLMConfig struct {
	// Provider: gemini, openai, echo
	Provider string `yaml:"provider" env:"PROVIDER"`
	// API Key
	APIKey string `yaml:"api_key" env:"API_KEY"`
	// 基础 URL（可选）
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	// 模型名称
	Model string `yaml:"model" env:"MODEL"`
	// 单次推理调用超时，0 表示不限制
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLP 端点
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// 服务名称
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// 采样率
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// conventionalEnv 是不带前缀的通用环境变量，兼容常见的部署习惯
type conventionalEnv struct {
	Port         int    `env:"PORT"`
	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	GoogleAPIKey string `env:"GOOGLE_API_KEY"`
	LegacyAPIKey string `env:"api_key"`
}

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "GENBRIDGE",
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator 添加配置验证器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 加载配置
func (l *Loader) Load() (*Config, error) {
	// 1. 从默认值开始
	cfg := DefaultConfig()

	// 2. 如果指定了配置文件，从文件加载
	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// 3. 通用环境变量
	if err := loadConventionalEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	// 4. 带前缀的环境变量
	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	// 5. 运行验证器
	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile 从 YAML 文件加载配置
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// 文件不存在，使用默认值
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// loadFromEnv 从带前缀的环境变量加载配置
func (l *Loader) loadFromEnv(cfg *Config) error {
	prefix := ""
	if l.envPrefix != "" {
		prefix = strings.TrimSuffix(l.envPrefix, "_") + "_"
	}
	return env.ParseWithOptions(cfg, env.Options{Prefix: prefix})
}

// loadConventionalEnv 读取 PORT 与各类 API Key 变量
func loadConventionalEnv(cfg *Config) error {
	var conv conventionalEnv
	if err := env.Parse(&conv); err != nil {
		return err
	}

	if conv.Port != 0 {
		cfg.Server.HTTPPort = conv.Port
	}

	// 优先级: GEMINI_API_KEY > GOOGLE_API_KEY > api_key
	for _, key := range []string{conv.GeminiAPIKey, conv.GoogleAPIKey, conv.LegacyAPIKey} {
		if key != "" {
			cfg.LLM.APIKey = key
			break
		}
	}

	return nil
}

// =============================================================================
// 🔍 辅助函数
// =============================================================================

// LoadFromEnv 仅从环境变量加载配置
func LoadFromEnv() (*Config, error) {
	return NewLoader().Load()
}

// Validate 验证配置
func (c *Config) Validate() error {
	var errs []string

	// 验证服务器配置
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		errs = append(errs, "invalid HTTP port")
	}
	if c.Server.MetricsPort < 0 || c.Server.MetricsPort > 65535 {
		errs = append(errs, "invalid metrics port")
	}
	if c.Server.MetricsPort != 0 && c.Server.MetricsPort == c.Server.HTTPPort {
		errs = append(errs, "metrics port must differ from HTTP port")
	}
	if c.Server.MaxUploadBytes <= 0 {
		errs = append(errs, "max_upload_bytes must be positive")
	}
	if strings.TrimSpace(c.Server.UploadDir) == "" {
		errs = append(errs, "upload_dir is required")
	}

	// 验证 LLM 配置
	switch c.LLM.Provider {
	case ProviderGemini, ProviderOpenAI:
		if c.LLM.APIKey == "" {
			errs = append(errs, fmt.Sprintf("llm.api_key is required for provider %q", c.LLM.Provider))
		}
	case ProviderEcho:
	default:
		errs = append(errs, fmt.Sprintf("unsupported llm provider %q", c.LLM.Provider))
	}
	if c.LLM.Timeout < 0 {
		errs = append(errs, "llm.timeout must not be negative")
	}

	// 验证日志配置
	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Sprintf("unsupported log format %q", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
