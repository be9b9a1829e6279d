package api

// =============================================================================
// 生成接口类型
// =============================================================================

// GenerateTextRequest 是 /generate-text 的请求体。
// @Description 文本生成请求
type GenerateTextRequest struct {
	// 原样发送给模型的提示词
	Prompt string `json:"prompt" example:"Write a haiku about autumn" binding:"required"`
}

// OutputResponse 是所有生成接口的成功响应。
// @Description 模型输出
type OutputResponse struct {
	// 模型返回的文本，未经修改
	Output string `json:"output" example:"Crisp leaves drift and fall"`
}

// ErrorResponse 是所有接口的失败响应。
// @Description 错误响应
type ErrorResponse struct {
	// 错误描述；推理失败时为上游错误的原文
	Error string `json:"error" example:"quota exceeded"`
}

// =============================================================================
// multipart 字段
// =============================================================================

const (
	// FieldPrompt 图片接口可选的提示词字段
	FieldPrompt = "prompt"
	// FieldImage 图片接口的文件字段
	FieldImage = "image"
	// FieldDocument 文档接口的文件字段
	FieldDocument = "document"
	// FieldAudio 音频接口的文件字段
	FieldAudio = "audio"
)
