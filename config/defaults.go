// =============================================================================
// 📦 GenBridge 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import (
	"os"
	"path/filepath"
	"time"
)

// 支持的推理服务
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderEcho   = "echo"
)

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:    DefaultServerConfig(),
		LLM:       DefaultLLMConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultServerConfig 返回默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        3000,
		MetricsPort:     9091,
		ReadTimeout:     60 * time.Second,
		WriteTimeout:    3 * time.Minute,
		ShutdownTimeout: 15 * time.Second,
		MaxUploadBytes:  32 << 20, // 32 MiB
		UploadDir:       filepath.Join(os.TempDir(), "genbridge", "uploads"),
		RateLimitRPS:    0,
		RateLimitBurst:  20,
	}
}

// DefaultLLMConfig 返回默认 LLM 配置
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Provider: ProviderGemini,
		APIKey:   "",
		BaseURL:  "",
		Model:    "gemini-1.5-flash",
		Timeout:  2 * time.Minute,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:       "info",
		Format:      "json",
		OutputPaths: []string{"stdout"},
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "genbridge",
		SampleRate:   0.1,
	}
}
