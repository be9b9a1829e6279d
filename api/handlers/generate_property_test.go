package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/BaSui01/genbridge/api"
	"github.com/BaSui01/genbridge/llm"
	"github.com/BaSui01/genbridge/testutil/mocks"
)

func postText(t *rapid.T, h *GenerateHandler, prompt string) *httptest.ResponseRecorder {
	body, err := json.Marshal(api.GenerateTextRequest{Prompt: prompt})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/generate-text", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.HandleText(w, req)
	return w
}

// 任意非空 prompt 都原样交给推理器，成功输出原样返回
func TestProperty_TextOutputVerbatim(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		prompt := rapid.StringN(1, 200, -1).Draw(t, "prompt")
		output := rapid.String().Draw(t, "output")

		inferer := mocks.NewMockInferer(output)
		h := NewGenerateHandler(inferer, nil, zap.NewNop())

		w := postText(t, h, prompt)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
		}

		var resp api.OutputResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Output != output {
			t.Fatalf("output = %q, want %q", resp.Output, output)
		}

		reqs := inferer.Requests()
		if len(reqs) != 1 || len(reqs[0].Parts) != 1 || reqs[0].Parts[0].Text != prompt {
			t.Fatalf("inferer got %+v, want single text part %q", reqs, prompt)
		}
		if reqs[0].Modality != llm.ModalityText {
			t.Fatalf("modality = %q", reqs[0].Modality)
		}
	})
}

// 任意推理失败都返回 500，错误消息保持原文
func TestProperty_TextFailureMessageVerbatim(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		message := rapid.StringN(1, 200, -1).Draw(t, "message")

		inferer := mocks.NewMockInferer("").WithInferFunc(func(_ context.Context, _ llm.Request) llm.Result {
			return llm.Failed(errors.New(message))
		})
		h := NewGenerateHandler(inferer, nil, zap.NewNop())

		w := postText(t, h, "hello")
		if w.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d", w.Code)
		}

		var resp api.ErrorResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Error != message {
			t.Fatalf("error = %q, want %q", resp.Error, message)
		}
	})
}
