// Package tlsutil 为访问模型服务商的 HTTP 客户端提供统一的 Transport，
// 包含安全加固的 TLS 设置（TLS 1.2+，仅 AEAD 密码套件）与连接池参数。
package tlsutil
