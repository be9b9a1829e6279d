// Package config 提供 GenBridge 的配置管理功能。
//
// 支持从 YAML 文件、通用环境变量（PORT、GEMINI_API_KEY 等）
// 和带 GENBRIDGE_ 前缀的环境变量加载配置。
package config
