package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/BaSui01/genbridge/api"
	"github.com/BaSui01/genbridge/internal/upload"
	"github.com/BaSui01/genbridge/llm"
	"github.com/BaSui01/genbridge/types"
)

// 发送给模型的固定指令
const (
	DefaultImageInstruction = "Describe the image"
	DocumentInstruction     = "Analyze this document: "
	AudioInstruction        = "Transcribe or analyze the following audio: "
)

// DefaultMaxUploadBytes multipart 请求体默认上限
const DefaultMaxUploadBytes int64 = 32 << 20

// =============================================================================
// 🎯 生成 Handler
// =============================================================================

// Inferer 执行一次推理，llm.Dispatcher 是其实现
type Inferer interface {
	Infer(ctx context.Context, req llm.Request) llm.Result
}

// UploadStore 暂存上传文件，upload.Store 是其实现
type UploadStore interface {
	Save(ctx context.Context, src io.Reader, filename, declaredType string) (*upload.Upload, error)
	Release(u *upload.Upload)
}

// GenerateHandler 处理四个生成接口
type GenerateHandler struct {
	inferer        Inferer
	store          UploadStore
	logger         *zap.Logger
	maxUploadBytes int64
}

// GenerateOption 配置 GenerateHandler
type GenerateOption func(*GenerateHandler)

// WithMaxUploadBytes 设置 multipart 请求体上限，<= 0 时使用默认值
func WithMaxUploadBytes(n int64) GenerateOption {
	return func(h *GenerateHandler) {
		if n > 0 {
			h.maxUploadBytes = n
		}
	}
}

// NewGenerateHandler 创建生成处理器
func NewGenerateHandler(inferer Inferer, store UploadStore, logger *zap.Logger, opts ...GenerateOption) *GenerateHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &GenerateHandler{
		inferer:        inferer,
		store:          store,
		logger:         logger.With(zap.String("handler", "generate")),
		maxUploadBytes: DefaultMaxUploadBytes,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// uploadRoute 描述一个文件上传接口
type uploadRoute struct {
	modality    llm.Modality
	field       string
	instruction string
	// acceptPrompt 为 true 时，非空的 prompt 字段替换 instruction
	acceptPrompt bool
}

var (
	imageRoute = uploadRoute{
		modality:     llm.ModalityImage,
		field:        api.FieldImage,
		instruction:  DefaultImageInstruction,
		acceptPrompt: true,
	}
	documentRoute = uploadRoute{
		modality:    llm.ModalityDocument,
		field:       api.FieldDocument,
		instruction: DocumentInstruction,
	}
	audioRoute = uploadRoute{
		modality:    llm.ModalityAudio,
		field:       api.FieldAudio,
		instruction: AudioInstruction,
	}
)

// =============================================================================
// 🌐 HTTP 处理程序
// =============================================================================

// HandleText 处理 /generate-text 请求
// @Summary 文本生成
// @Description 把 prompt 原样发送给模型
// @Tags 生成
// @Accept json
// @Produce json
// @Param request body api.GenerateTextRequest true "提示词"
// @Success 200 {object} api.OutputResponse "模型输出"
// @Failure 400 {object} api.ErrorResponse "请求无效"
// @Failure 500 {object} api.ErrorResponse "推理失败"
// @Router /generate-text [post]
func (h *GenerateHandler) HandleText(w http.ResponseWriter, r *http.Request) {
	if !ValidateContentType(w, r, "application/json", h.logger) {
		return
	}

	var req api.GenerateTextRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	if req.Prompt == "" {
		WriteError(w, types.NewInvalidRequestError("prompt is required"), h.logger)
		return
	}

	h.infer(w, r, llm.NewRequest(llm.ModalityText, llm.EncodeText(req.Prompt)))
}

// HandleImage 处理 /generate-from-image 请求
// @Summary 图片理解
// @Description 上传图片，可选 prompt，缺省时使用 "Describe the image"
// @Tags 生成
// @Accept multipart/form-data
// @Produce json
// @Param image formData file true "图片文件"
// @Param prompt formData string false "提示词"
// @Success 200 {object} api.OutputResponse "模型输出"
// @Failure 400 {object} api.ErrorResponse "请求无效"
// @Failure 413 {object} api.ErrorResponse "请求体过大"
// @Failure 500 {object} api.ErrorResponse "推理失败"
// @Router /generate-from-image [post]
func (h *GenerateHandler) HandleImage(w http.ResponseWriter, r *http.Request) {
	h.handleUpload(w, r, imageRoute)
}

// HandleDocument 处理 /generate-from-document 请求
// @Summary 文档分析
// @Tags 生成
// @Accept multipart/form-data
// @Produce json
// @Param document formData file true "文档文件"
// @Success 200 {object} api.OutputResponse "模型输出"
// @Failure 400 {object} api.ErrorResponse "请求无效"
// @Failure 413 {object} api.ErrorResponse "请求体过大"
// @Failure 500 {object} api.ErrorResponse "推理失败"
// @Router /generate-from-document [post]
func (h *GenerateHandler) HandleDocument(w http.ResponseWriter, r *http.Request) {
	h.handleUpload(w, r, documentRoute)
}

// HandleAudio 处理 /generate-from-audio 请求
// @Summary 音频转写与分析
// @Tags 生成
// @Accept multipart/form-data
// @Produce json
// @Param audio formData file true "音频文件"
// @Success 200 {object} api.OutputResponse "模型输出"
// @Failure 400 {object} api.ErrorResponse "请求无效"
// @Failure 413 {object} api.ErrorResponse "请求体过大"
// @Failure 500 {object} api.ErrorResponse "推理失败"
// @Router /generate-from-audio [post]
func (h *GenerateHandler) HandleAudio(w http.ResponseWriter, r *http.Request) {
	h.handleUpload(w, r, audioRoute)
}

// =============================================================================
// 🔧 内部实现
// =============================================================================

func (h *GenerateHandler) handleUpload(w http.ResponseWriter, r *http.Request, route uploadRoute) {
	form, apiErr := h.readForm(w, r, route)
	if apiErr != nil {
		WriteError(w, apiErr, h.logger)
		return
	}
	// 无论推理成功与否，暂存文件都在响应前删除
	defer h.store.Release(form.file)

	part, err := llm.EncodeBinary(form.file)
	if err != nil {
		WriteError(w, asError(err), h.logger)
		return
	}

	instruction := route.instruction
	if route.acceptPrompt && form.prompt != "" {
		instruction = form.prompt
	}

	h.infer(w, r, llm.NewRequest(route.modality, llm.Text(instruction), part))
}

// uploadForm 是解析后的 multipart 表单
type uploadForm struct {
	file   *upload.Upload
	prompt string
}

// readForm 流式读取 multipart 请求体：文件字段写入 UploadStore，
// prompt 字段按需读取，其他字段丢弃。返回错误时不会遗留暂存文件。
func (h *GenerateHandler) readForm(w http.ResponseWriter, r *http.Request, route uploadRoute) (form uploadForm, apiErr *types.Error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	mr, err := r.MultipartReader()
	if err != nil {
		return form, types.NewInvalidRequestError("request must be multipart/form-data").WithCause(err)
	}

	defer func() {
		if apiErr != nil && form.file != nil {
			h.store.Release(form.file)
			form.file = nil
		}
	}()

	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return form, requestBodyError(err, "malformed multipart body")
		}

		switch name := p.FormName(); {
		case name == route.field:
			if form.file != nil {
				p.Close()
				return form, types.NewInvalidRequestError(fmt.Sprintf("only one file is accepted in field %q", route.field))
			}
			saved, err := h.store.Save(r.Context(), p, p.FileName(), p.Header.Get("Content-Type"))
			p.Close()
			if err != nil {
				return form, uploadError(err)
			}
			form.file = saved
			if saved.Size == 0 {
				return form, types.NewInvalidRequestError(fmt.Sprintf("uploaded file in field %q is empty", route.field))
			}

		case route.acceptPrompt && name == api.FieldPrompt:
			data, err := io.ReadAll(p)
			p.Close()
			if err != nil {
				return form, requestBodyError(err, "malformed multipart body")
			}
			form.prompt = string(data)

		default:
			_, err := io.Copy(io.Discard, p)
			p.Close()
			if err != nil {
				return form, requestBodyError(err, "malformed multipart body")
			}
		}
	}

	if form.file == nil {
		return form, types.NewInvalidRequestError(fmt.Sprintf("no file uploaded in field %q", route.field))
	}
	return form, nil
}

func (h *GenerateHandler) infer(w http.ResponseWriter, r *http.Request, req llm.Request) {
	result := h.inferer.Infer(r.Context(), req)
	if !result.OK() {
		// 推理失败一律 500，错误消息保持上游原文
		err := types.NewError(result.Failure.Code, result.Failure.Message).
			WithHTTPStatus(http.StatusInternalServerError).
			WithCause(result.Failure.Cause)
		WriteError(w, err, h.logger)
		return
	}

	WriteOutput(w, result.Output)
}

// uploadError 把暂存失败转换为 API 错误，请求体超限优先识别
func uploadError(err error) *types.Error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return types.NewError(types.ErrRequestTooLarge, "request body too large").WithCause(err)
	}
	return asError(err)
}

func asError(err error) *types.Error {
	if e, ok := types.AsError(err); ok {
		return e
	}
	return types.NewError(types.ErrInternalError, err.Error()).WithCause(err)
}
