package llm

import (
	"context"
	"encoding/base64"
	"errors"

	"github.com/BaSui01/genbridge/types"
)

// =============================================================================
// 📦 内容片段
// =============================================================================

// PartKind 区分内容片段的类型
type PartKind string

const (
	PartText   PartKind = "text"
	PartBinary PartKind = "binary"
)

// Part 是发送给模型的一个输入单元：纯文本，或带 MIME 类型的二进制数据。
// 构造后不应再修改。
type Part struct {
	Kind     PartKind
	Text     string
	Data     []byte
	MIMEType string
}

// Text 创建文本片段，内容原样保留
func Text(s string) Part {
	return Part{Kind: PartText, Text: s}
}

// Binary 创建二进制片段
func Binary(data []byte, mimeType string) Part {
	return Part{Kind: PartBinary, Data: data, MIMEType: mimeType}
}

// IsText 判断是否为文本片段
func (p Part) IsText() bool {
	return p.Kind == PartText
}

// Base64 返回二进制数据的标准 base64 编码
func (p Part) Base64() string {
	return base64.StdEncoding.EncodeToString(p.Data)
}

// =============================================================================
// 📨 请求与结果
// =============================================================================

// Modality 标识请求来自哪一类接口
type Modality string

const (
	ModalityText     Modality = "text"
	ModalityImage    Modality = "image"
	ModalityDocument Modality = "document"
	ModalityAudio    Modality = "audio"
)

// Request 是一次推理请求，Parts 按顺序呈现给模型
type Request struct {
	Modality Modality
	Parts    []Part
}

// NewRequest 创建推理请求
func NewRequest(modality Modality, parts ...Part) Request {
	return Request{Modality: modality, Parts: parts}
}

// Failure 描述一次失败的推理调用
type Failure struct {
	Code    types.ErrorCode
	Message string
	Cause   error
}

// Error 实现 error 接口
func (f *Failure) Error() string {
	return f.Message
}

// Unwrap 返回原始错误
func (f *Failure) Unwrap() error {
	return f.Cause
}

// Result 是推理结果：Failure 为 nil 时 Output 有效
type Result struct {
	Output  string
	Failure *Failure
}

// OK 判断是否成功
func (r Result) OK() bool {
	return r.Failure == nil
}

// Succeeded 构造成功结果
func Succeeded(output string) Result {
	return Result{Output: output}
}

// Failed 由错误构造失败结果，Message 保留 provider 的原始信息
func Failed(err error) Result {
	if err == nil {
		err = errors.New("unknown inference failure")
	}

	code := types.GetErrorCode(err)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		code = types.ErrUpstreamTimeout
	case code == "":
		code = types.ErrUpstreamError
	}

	return Result{Failure: &Failure{
		Code:    code,
		Message: types.Message(err),
		Cause:   err,
	}}
}
