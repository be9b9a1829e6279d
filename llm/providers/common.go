package providers

import (
	"net/http"
	"strings"

	"github.com/BaSui01/genbridge/llm"
	"github.com/BaSui01/genbridge/types"
)

// MapHTTPError 将上游 HTTP 状态码映射为 types.Error，Message 保留上游原文
// 这是所有提供者使用的通用错误映射函数
func MapHTTPError(status int, msg string, provider string) *types.Error {
	code := types.ErrUpstreamError

	switch status {
	case http.StatusUnauthorized:
		code = types.ErrUnauthorized
	case http.StatusForbidden:
		code = types.ErrForbidden
	case http.StatusNotFound:
		code = types.ErrModelNotFound
	case http.StatusTooManyRequests:
		code = types.ErrRateLimited
		if isQuotaMessage(msg) {
			code = types.ErrQuotaExceeded
		}
	case http.StatusBadRequest:
		// 检查配额/信用关键字
		code = types.ErrInvalidRequest
		if isQuotaMessage(msg) {
			code = types.ErrQuotaExceeded
		}
	case http.StatusGatewayTimeout, http.StatusRequestTimeout:
		code = types.ErrUpstreamTimeout
	}

	if msg == "" {
		msg = http.StatusText(status)
	}
	if msg == "" {
		msg = "upstream request failed"
	}

	return types.NewError(code, msg).
		WithHTTPStatus(status).
		WithProvider(provider)
}

func isQuotaMessage(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "quota") ||
		strings.Contains(lower, "credit") ||
		strings.Contains(lower, "resource_exhausted") ||
		strings.Contains(lower, "resource has been exhausted")
}

// ChooseModel 按优先级选择模型：配置值 > 兜底值
func ChooseModel(configured, fallback string) string {
	if m := strings.TrimSpace(configured); m != "" {
		return m
	}
	return fallback
}

// DataURL 把二进制片段编码为 data URL
func DataURL(p llm.Part) string {
	mimeType := p.MIMEType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return "data:" + mimeType + ";base64," + p.Base64()
}

// EmptyResponseError 上游返回成功但没有可用文本时使用
func EmptyResponseError(provider, reason string) *types.Error {
	msg := "empty response from model"
	if reason != "" {
		msg += ": " + reason
	}
	return types.NewError(types.ErrEmptyResponse, msg).WithProvider(provider)
}
