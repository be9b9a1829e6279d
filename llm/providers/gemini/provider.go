package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/BaSui01/genbridge/internal/tlsutil"
	"github.com/BaSui01/genbridge/llm"
	"github.com/BaSui01/genbridge/llm/providers"
	"github.com/BaSui01/genbridge/types"
)

const (
	providerName = "gemini"
	defaultModel = "gemini-1.5-flash"
)

// GeminiProvider 通过 google.golang.org/genai 调用 Gemini generateContent 接口
type GeminiProvider struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

// NewGeminiProvider 创建 Gemini Provider。
// BaseURL 为空时使用 SDK 默认地址 https://generativelanguage.googleapis.com/。
func NewGeminiProvider(ctx context.Context, cfg providers.GeminiConfig, logger *zap.Logger) (*GeminiProvider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, types.NewInvalidRequestError("gemini api key is required")
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions.BaseURL = cfg.BaseURL
	}
	cc.HTTPClient = tlsutil.UpstreamClient()

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	model := providers.ChooseModel(cfg.Model, defaultModel)
	logger.Info("gemini provider initialized", zap.String("model", model))

	return &GeminiProvider{
		client: client,
		model:  model,
		logger: logger.With(zap.String("provider", providerName)),
	}, nil
}

// Name 返回 Provider 名称
func (p *GeminiProvider) Name() string { return providerName }

// Model 返回使用的模型名
func (p *GeminiProvider) Model() string { return p.model }

// Generate 把 parts 作为一条 user 消息发送，返回首个候选的文本
func (p *GeminiProvider) Generate(ctx context.Context, parts []llm.Part) (string, error) {
	contents := []*genai.Content{{
		Role:  genai.RoleUser,
		Parts: convertParts(parts),
	}}

	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, nil)
	if err != nil {
		return "", p.mapError(err)
	}

	if resp.UsageMetadata != nil {
		modality, _ := types.Modality(ctx)
		p.logger.Debug("gemini usage",
			zap.String("modality", modality),
			zap.Int32("prompt_tokens", resp.UsageMetadata.PromptTokenCount),
			zap.Int32("completion_tokens", resp.UsageMetadata.CandidatesTokenCount),
		)
	}

	return extractText(resp)
}

func convertParts(parts []llm.Part) []*genai.Part {
	out := make([]*genai.Part, 0, len(parts))
	for _, part := range parts {
		switch part.Kind {
		case llm.PartText:
			out = append(out, &genai.Part{Text: part.Text})
		case llm.PartBinary:
			out = append(out, &genai.Part{InlineData: &genai.Blob{
				MIMEType: part.MIMEType,
				Data:     part.Data,
			}})
		}
	}
	return out
}

// extractText 拼接首个候选中的非 thought 文本片段
func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", providers.EmptyResponseError(providerName, "nil response")
	}
	if len(resp.Candidates) == 0 {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return "", types.NewError(types.ErrContentBlocked,
				fmt.Sprintf("prompt blocked: %s", resp.PromptFeedback.BlockReason)).WithProvider(providerName)
		}
		return "", providers.EmptyResponseError(providerName, "no candidates")
	}

	candidate := resp.Candidates[0]
	if candidate == nil || candidate.Content == nil {
		return "", providers.EmptyResponseError(providerName, finishReason(candidate))
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		sb.WriteString(part.Text)
	}
	// 只有 thought 片段或 parts 为空同样视为空响应
	if sb.Len() == 0 {
		return "", providers.EmptyResponseError(providerName, finishReason(candidate))
	}
	return sb.String(), nil
}

func finishReason(candidate *genai.Candidate) string {
	if candidate == nil || candidate.FinishReason == "" {
		return ""
	}
	return "finish reason " + string(candidate.FinishReason)
}

func (p *GeminiProvider) mapError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return providers.MapHTTPError(apiErr.Code, apiErr.Message, providerName).WithCause(err)
	}

	return types.NewError(types.ErrUpstreamError, err.Error()).
		WithProvider(providerName).
		WithCause(err)
}

var _ llm.Provider = (*GeminiProvider)(nil)
