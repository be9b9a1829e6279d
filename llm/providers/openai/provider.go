package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/BaSui01/genbridge/internal/tlsutil"
	"github.com/BaSui01/genbridge/llm"
	"github.com/BaSui01/genbridge/llm/providers"
	"github.com/BaSui01/genbridge/types"
)

const (
	providerName = "openai"
	defaultModel = "gpt-4o-mini"
)

// OpenAIProvider 调用 OpenAI 兼容的 Chat Completions 接口。
// 图片以 data URL 形式发送，文本类文件内联为文本片段，其他二进制类型不支持。
type OpenAIProvider struct {
	client *goopenai.Client
	model  string
	logger *zap.Logger
}

// NewOpenAIProvider 创建 OpenAI Provider
func NewOpenAIProvider(cfg providers.OpenAIConfig, logger *zap.Logger) (*OpenAIProvider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, types.NewInvalidRequestError("openai api key is required")
	}

	oc := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.Organization != "" {
		oc.OrgID = cfg.Organization
	}
	oc.HTTPClient = tlsutil.UpstreamClient()

	model := providers.ChooseModel(cfg.Model, defaultModel)
	logger.Info("openai provider initialized", zap.String("model", model), zap.String("base_url", oc.BaseURL))

	return &OpenAIProvider{
		client: goopenai.NewClientWithConfig(oc),
		model:  model,
		logger: logger.With(zap.String("provider", providerName)),
	}, nil
}

// Name 返回 Provider 名称
func (p *OpenAIProvider) Name() string { return providerName }

// Model 返回使用的模型名
func (p *OpenAIProvider) Model() string { return p.model }

// Generate 把 parts 作为一条 user 消息发送
func (p *OpenAIProvider) Generate(ctx context.Context, parts []llm.Part) (string, error) {
	msg, err := buildMessage(parts)
	if err != nil {
		return "", err
	}

	resp, err := p.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:    p.model,
		Messages: []goopenai.ChatCompletionMessage{msg},
	})
	if err != nil {
		return "", mapError(err)
	}

	p.logger.Debug("openai usage",
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)

	if len(resp.Choices) == 0 {
		return "", providers.EmptyResponseError(providerName, "no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// buildMessage 纯文本请求使用 Content，含二进制数据时使用 MultiContent
func buildMessage(parts []llm.Part) (goopenai.ChatCompletionMessage, error) {
	msg := goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleUser}

	if len(parts) == 1 && parts[0].IsText() {
		msg.Content = parts[0].Text
		return msg, nil
	}

	multi := make([]goopenai.ChatMessagePart, 0, len(parts))
	for _, part := range parts {
		switch {
		case part.IsText():
			multi = append(multi, goopenai.ChatMessagePart{
				Type: goopenai.ChatMessagePartTypeText,
				Text: part.Text,
			})
		case strings.HasPrefix(part.MIMEType, "image/"):
			multi = append(multi, goopenai.ChatMessagePart{
				Type: goopenai.ChatMessagePartTypeImageURL,
				ImageURL: &goopenai.ChatMessageImageURL{
					URL:    providers.DataURL(part),
					Detail: goopenai.ImageURLDetailAuto,
				},
			})
		case isTextMIME(part.MIMEType):
			multi = append(multi, goopenai.ChatMessagePart{
				Type: goopenai.ChatMessagePartTypeText,
				Text: string(part.Data),
			})
		default:
			return msg, types.NewInvalidRequestError(
				fmt.Sprintf("unsupported content type %q for %s provider", part.MIMEType, providerName)).
				WithProvider(providerName)
		}
	}
	msg.MultiContent = multi
	return msg, nil
}

func isTextMIME(mt string) bool {
	switch {
	case strings.HasPrefix(mt, "text/"):
		return true
	case mt == "application/json", mt == "application/xml", mt == "application/x-yaml":
		return true
	}
	return false
}

func mapError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return providers.MapHTTPError(apiErr.HTTPStatusCode, apiErr.Message, providerName).WithCause(err)
	}

	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		msg := ""
		if reqErr.Err != nil {
			msg = reqErr.Err.Error()
		}
		return providers.MapHTTPError(reqErr.HTTPStatusCode, msg, providerName).WithCause(err)
	}

	return types.NewError(types.ErrUpstreamError, err.Error()).
		WithProvider(providerName).
		WithCause(err)
}

var _ llm.Provider = (*OpenAIProvider)(nil)
