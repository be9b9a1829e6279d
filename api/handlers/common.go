package handlers

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	"go.uber.org/zap"

	"github.com/BaSui01/genbridge/api"
	"github.com/BaSui01/genbridge/types"
)

// maxJSONBodyBytes JSON 请求体上限
const maxJSONBodyBytes = 1 << 20

// =============================================================================
// 🎯 响应辅助函数
// =============================================================================

// WriteJSON 写入 JSON 响应
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// 响应头已写出，只能放弃
		return
	}
}

// WriteOutput 写入成功响应 {"output": ...}
func WriteOutput(w http.ResponseWriter, output string) {
	WriteJSON(w, http.StatusOK, api.OutputResponse{Output: output})
}

// WriteError 写入错误响应 {"error": ...}（从 types.Error）
func WriteError(w http.ResponseWriter, err *types.Error, logger *zap.Logger) {
	status := err.HTTPStatus
	if status == 0 {
		status = mapErrorCodeToHTTPStatus(err.Code)
	}

	if logger != nil {
		fields := []zap.Field{
			zap.String("code", string(err.Code)),
			zap.String("message", err.Message),
			zap.Int("status", status),
		}
		if err.Cause != nil {
			fields = append(fields, zap.Error(err.Cause))
		}
		if status >= http.StatusInternalServerError {
			logger.Error("API error", fields...)
		} else {
			logger.Warn("API error", fields...)
		}
	}

	WriteJSON(w, status, api.ErrorResponse{Error: err.Message})
}

// WriteErrorMessage 写入简单错误消息
func WriteErrorMessage(w http.ResponseWriter, status int, code types.ErrorCode, message string, logger *zap.Logger) {
	err := types.NewError(code, message).WithHTTPStatus(status)
	WriteError(w, err, logger)
}

// =============================================================================
// 🔄 错误码到 HTTP 状态码映射
// =============================================================================

// 上游错误一律为 500，客户端只看到上游消息
func mapErrorCodeToHTTPStatus(code types.ErrorCode) int {
	switch code {
	case types.ErrInvalidRequest:
		return http.StatusBadRequest
	case types.ErrRequestTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// =============================================================================
// 🛡️ 请求验证辅助函数
// =============================================================================

// DecodeJSONBody 解码 JSON 请求体，失败时已写出错误响应
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, dst any, logger *zap.Logger) error {
	if r.Body == nil || r.Body == http.NoBody {
		err := types.NewInvalidRequestError("request body is empty")
		WriteError(w, err, logger)
		return err
	}

	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes))
	if err := decoder.Decode(dst); err != nil {
		apiErr := requestBodyError(err, "invalid JSON body")
		WriteError(w, apiErr, logger)
		return apiErr
	}

	return nil
}

// ValidateContentType 验证媒体类型，忽略 charset 等参数
func ValidateContentType(w http.ResponseWriter, r *http.Request, want string, logger *zap.Logger) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != want {
		WriteError(w, types.NewInvalidRequestError("Content-Type must be "+want), logger)
		return false
	}
	return true
}

// requestBodyError 区分请求体超限与格式错误
func requestBodyError(err error, message string) *types.Error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return types.NewError(types.ErrRequestTooLarge, "request body too large").WithCause(err)
	}
	return types.NewInvalidRequestError(message).WithCause(err)
}
