package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/genbridge/api"
	"github.com/BaSui01/genbridge/internal/upload"
	"github.com/BaSui01/genbridge/llm"
	"github.com/BaSui01/genbridge/testutil"
	"github.com/BaSui01/genbridge/testutil/fixtures"
	"github.com/BaSui01/genbridge/testutil/mocks"
)

// =============================================================================
// 🧪 测试辅助类型
// =============================================================================

// spyStore 包装真实 Store，记录暂存与释放
type spyStore struct {
	*upload.Store

	mu       sync.Mutex
	saved    []*upload.Upload
	released []*upload.Upload
	saveErr  error
}

func (s *spyStore) Save(ctx context.Context, src io.Reader, filename, declaredType string) (*upload.Upload, error) {
	if s.saveErr != nil {
		return nil, s.saveErr
	}
	u, err := s.Store.Save(ctx, src, filename, declaredType)
	if err == nil {
		s.mu.Lock()
		s.saved = append(s.saved, u)
		s.mu.Unlock()
	}
	return u, err
}

func (s *spyStore) Release(u *upload.Upload) {
	s.mu.Lock()
	s.released = append(s.released, u)
	s.mu.Unlock()
	s.Store.Release(u)
}

func (s *spyStore) assertAllReleased(t *testing.T) {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	assert.ElementsMatch(t, s.saved, s.released, "every staged upload must be released")
	testutil.AssertDirEmpty(t, s.Dir())
}

func newSpyStore(t *testing.T) *spyStore {
	t.Helper()
	store, err := upload.NewStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	return &spyStore{Store: store}
}

func newTestHandler(t *testing.T, inferer Inferer, opts ...GenerateOption) (*GenerateHandler, *spyStore) {
	t.Helper()
	store := newSpyStore(t)
	return NewGenerateHandler(inferer, store, zap.NewNop(), opts...), store
}

func multipartRequest(t *testing.T, path string, parts ...testutil.Part) *http.Request {
	t.Helper()
	body, contentType := testutil.MultipartBody(t, parts...)
	r := httptest.NewRequest(http.MethodPost, path, body)
	r.Header.Set("Content-Type", contentType)
	return r
}

func decodeOutput(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp api.OutputResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp.Output
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp api.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp.Error
}

// =============================================================================
// 🧪 /generate-text
// =============================================================================

func TestGenerateHandler_HandleText(t *testing.T) {
	inferer := mocks.NewMockInferer("hi there")
	h, _ := newTestHandler(t, inferer)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/generate-text", strings.NewReader(`{"prompt":"hello"}`))
	r.Header.Set("Content-Type", "application/json")

	h.HandleText(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hi there", decodeOutput(t, w))

	reqs := inferer.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, llm.ModalityText, reqs[0].Modality)
	testutil.AssertPartsEqual(t, []llm.Part{llm.Text("hello")}, reqs[0].Parts)
}

func TestGenerateHandler_HandleText_PromptNotModified(t *testing.T) {
	inferer := mocks.NewMockInferer("ok")
	h, _ := newTestHandler(t, inferer)

	prompt := "  多行\nprompt with trailing space "
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/generate-text", strings.NewReader(testutil.MustJSON(api.GenerateTextRequest{Prompt: prompt})))
	r.Header.Set("Content-Type", "application/json; charset=utf-8")

	h.HandleText(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, prompt, inferer.Requests()[0].Parts[0].Text)
}

func TestGenerateHandler_HandleText_BadRequests(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		wantStatus  int
	}{
		{"missing prompt", "application/json", `{}`, http.StatusBadRequest},
		{"empty prompt", "application/json", `{"prompt":""}`, http.StatusBadRequest},
		{"malformed json", "application/json", `{"prompt":`, http.StatusBadRequest},
		{"prompt not a string", "application/json", `{"prompt":42}`, http.StatusBadRequest},
		{"wrong content type", "text/plain", `{"prompt":"hello"}`, http.StatusBadRequest},
		{"too large", "application/json", `{"prompt":"` + strings.Repeat("x", maxJSONBodyBytes) + `"}`, http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inferer := mocks.NewMockInferer("unused")
			h, _ := newTestHandler(t, inferer)

			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/generate-text", strings.NewReader(tt.body))
			r.Header.Set("Content-Type", tt.contentType)

			h.HandleText(w, r)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.NotEmpty(t, decodeError(t, w))
			assert.Equal(t, 0, inferer.CallCount(), "model must not be called")
		})
	}
}

// =============================================================================
// 🧪 /generate-from-image
// =============================================================================

func TestGenerateHandler_HandleImage_DefaultInstruction(t *testing.T) {
	inferer := mocks.NewMockInferer("a cat on a sofa")
	h, store := newTestHandler(t, inferer)

	w := httptest.NewRecorder()
	r := multipartRequest(t, "/generate-from-image",
		testutil.FilePart(api.FieldImage, "cat.jpg", "image/jpeg", fixtures.JPEG))

	h.HandleImage(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "a cat on a sofa", decodeOutput(t, w))

	reqs := inferer.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, llm.ModalityImage, reqs[0].Modality)
	testutil.AssertPartsEqual(t, []llm.Part{
		llm.Text(DefaultImageInstruction),
		llm.Binary(fixtures.JPEG, "image/jpeg"),
	}, reqs[0].Parts)
	store.assertAllReleased(t)
}

func TestGenerateHandler_HandleImage_CustomPrompt(t *testing.T) {
	inferer := mocks.NewMockInferer("three")
	h, store := newTestHandler(t, inferer)

	w := httptest.NewRecorder()
	r := multipartRequest(t, "/generate-from-image",
		testutil.FieldPart(api.FieldPrompt, "How many cats?"),
		testutil.FilePart(api.FieldImage, "cats.png", "image/png", fixtures.PNG))

	h.HandleImage(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	testutil.AssertPartsEqual(t, []llm.Part{
		llm.Text("How many cats?"),
		llm.Binary(fixtures.PNG, "image/png"),
	}, inferer.Requests()[0].Parts)
	store.assertAllReleased(t)
}

func TestGenerateHandler_HandleImage_PromptAfterFile(t *testing.T) {
	inferer := mocks.NewMockInferer("ok")
	h, _ := newTestHandler(t, inferer)

	w := httptest.NewRecorder()
	r := multipartRequest(t, "/generate-from-image",
		testutil.FilePart(api.FieldImage, "cat.jpg", "image/jpeg", fixtures.JPEG),
		testutil.FieldPart(api.FieldPrompt, "What breed?"))

	h.HandleImage(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "What breed?", inferer.Requests()[0].Parts[0].Text)
}

func TestGenerateHandler_HandleImage_EmptyPromptUsesDefault(t *testing.T) {
	inferer := mocks.NewMockInferer("ok")
	h, _ := newTestHandler(t, inferer)

	w := httptest.NewRecorder()
	r := multipartRequest(t, "/generate-from-image",
		testutil.FieldPart(api.FieldPrompt, ""),
		testutil.FilePart(api.FieldImage, "cat.jpg", "image/jpeg", fixtures.JPEG))

	h.HandleImage(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, DefaultImageInstruction, inferer.Requests()[0].Parts[0].Text)
}

func TestGenerateHandler_HandleImage_SniffsOctetStream(t *testing.T) {
	inferer := mocks.NewMockInferer("ok")
	h, _ := newTestHandler(t, inferer)

	w := httptest.NewRecorder()
	r := multipartRequest(t, "/generate-from-image",
		testutil.FilePart(api.FieldImage, "blob", "application/octet-stream", fixtures.JPEG))

	h.HandleImage(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/jpeg", inferer.Requests()[0].Parts[1].MIMEType)
}

func TestGenerateHandler_HandleImage_FailureDeletesUpload(t *testing.T) {
	inferer := mocks.NewFailingInferer("quota exceeded")
	h, store := newTestHandler(t, inferer)

	w := httptest.NewRecorder()
	r := multipartRequest(t, "/generate-from-image",
		testutil.FilePart(api.FieldImage, "cat.jpg", "image/jpeg", fixtures.JPEG))

	h.HandleImage(w, r)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"quota exceeded"}`, w.Body.String())
	require.Len(t, store.saved, 1)
	store.assertAllReleased(t)
	_, err := os.Stat(store.saved[0].Path)
	assert.True(t, os.IsNotExist(err))
}

// =============================================================================
// 🧪 /generate-from-document 与 /generate-from-audio
// =============================================================================

func TestGenerateHandler_HandleDocument(t *testing.T) {
	inferer := mocks.NewMockInferer("summary")
	h, store := newTestHandler(t, inferer)

	w := httptest.NewRecorder()
	r := multipartRequest(t, "/generate-from-document",
		testutil.FieldPart(api.FieldPrompt, "ignored for documents"),
		testutil.FilePart(api.FieldDocument, "report.pdf", "application/pdf", fixtures.PDF))

	h.HandleDocument(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "summary", decodeOutput(t, w))
	reqs := inferer.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, llm.ModalityDocument, reqs[0].Modality)
	testutil.AssertPartsEqual(t, []llm.Part{
		llm.Text(DocumentInstruction),
		llm.Binary(fixtures.PDF, "application/pdf"),
	}, reqs[0].Parts)
	store.assertAllReleased(t)
}

func TestGenerateHandler_HandleDocument_EmptyFile(t *testing.T) {
	inferer := mocks.NewMockInferer("unused")
	h, store := newTestHandler(t, inferer)

	w := httptest.NewRecorder()
	r := multipartRequest(t, "/generate-from-document",
		testutil.FilePart(api.FieldDocument, "empty.pdf", "application/pdf", nil))

	h.HandleDocument(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotEmpty(t, decodeError(t, w))
	assert.Equal(t, 0, inferer.CallCount())
	store.assertAllReleased(t)
}

func TestGenerateHandler_HandleAudio(t *testing.T) {
	inferer := mocks.NewMockInferer("hello world")
	h, store := newTestHandler(t, inferer)

	w := httptest.NewRecorder()
	r := multipartRequest(t, "/generate-from-audio",
		testutil.FilePart(api.FieldAudio, "clip.wav", "audio/wav", fixtures.WAV))

	h.HandleAudio(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	testutil.AssertPartsEqual(t, []llm.Part{
		llm.Text(AudioInstruction),
		llm.Binary(fixtures.WAV, "audio/wav"),
	}, inferer.Requests()[0].Parts)
	store.assertAllReleased(t)
}

// =============================================================================
// 🧪 公共行为
// =============================================================================

type uploadEndpoint struct {
	name   string
	field  string
	handle func(*GenerateHandler) http.HandlerFunc
}

var uploadEndpoints = []uploadEndpoint{
	{"image", api.FieldImage, func(h *GenerateHandler) http.HandlerFunc { return h.HandleImage }},
	{"document", api.FieldDocument, func(h *GenerateHandler) http.HandlerFunc { return h.HandleDocument }},
	{"audio", api.FieldAudio, func(h *GenerateHandler) http.HandlerFunc { return h.HandleAudio }},
}

func TestGenerateHandler_UploadBadRequests(t *testing.T) {
	for _, ep := range uploadEndpoints {
		t.Run(ep.name, func(t *testing.T) {
			cases := []struct {
				name    string
				request func(t *testing.T) *http.Request
			}{
				{"missing file", func(t *testing.T) *http.Request {
					return multipartRequest(t, "/", testutil.FieldPart("other", "x"))
				}},
				{"wrong field name", func(t *testing.T) *http.Request {
					return multipartRequest(t, "/", testutil.FilePart("file", "a.bin", "text/plain", []byte("abc")))
				}},
				{"duplicate file", func(t *testing.T) *http.Request {
					return multipartRequest(t, "/",
						testutil.FilePart(ep.field, "a.txt", "text/plain", []byte("one")),
						testutil.FilePart(ep.field, "b.txt", "text/plain", []byte("two")))
				}},
				{"not multipart", func(t *testing.T) *http.Request {
					r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"prompt":"x"}`))
					r.Header.Set("Content-Type", "application/json")
					return r
				}},
				{"malformed multipart", func(t *testing.T) *http.Request {
					r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("--nope\r\ngarbage"))
					r.Header.Set("Content-Type", "multipart/form-data; boundary=xyz")
					return r
				}},
			}

			for _, tc := range cases {
				t.Run(tc.name, func(t *testing.T) {
					inferer := mocks.NewMockInferer("unused")
					h, store := newTestHandler(t, inferer)

					w := httptest.NewRecorder()
					ep.handle(h)(w, tc.request(t))

					assert.Equal(t, http.StatusBadRequest, w.Code)
					assert.NotEmpty(t, decodeError(t, w))
					assert.Equal(t, 0, inferer.CallCount())
					store.assertAllReleased(t)
				})
			}
		})
	}
}

func TestGenerateHandler_FailureMessageVerbatim(t *testing.T) {
	const msg = `Error 500: "internal" - upstream said no`

	for _, ep := range uploadEndpoints {
		t.Run(ep.name, func(t *testing.T) {
			h, store := newTestHandler(t, mocks.NewFailingInferer(msg))

			w := httptest.NewRecorder()
			ep.handle(h)(w, multipartRequest(t, "/",
				testutil.FilePart(ep.field, "f.bin", "application/octet-stream", []byte("payload"))))

			assert.Equal(t, http.StatusInternalServerError, w.Code)
			assert.Equal(t, msg, decodeError(t, w))
			store.assertAllReleased(t)
		})
	}

	t.Run("text", func(t *testing.T) {
		h, _ := newTestHandler(t, mocks.NewFailingInferer(msg))
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/generate-text", strings.NewReader(`{"prompt":"x"}`))
		r.Header.Set("Content-Type", "application/json")

		h.HandleText(w, r)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, msg, decodeError(t, w))
	})
}

func TestGenerateHandler_UploadTooLarge(t *testing.T) {
	inferer := mocks.NewMockInferer("unused")
	h, store := newTestHandler(t, inferer, WithMaxUploadBytes(1024))

	w := httptest.NewRecorder()
	r := multipartRequest(t, "/generate-from-audio",
		testutil.FilePart(api.FieldAudio, "big.wav", "audio/wav", bytes.Repeat([]byte{0x01}, 4096)))

	h.HandleAudio(w, r)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, 0, inferer.CallCount())
	store.assertAllReleased(t)
}

func TestGenerateHandler_StoreFailure(t *testing.T) {
	inferer := mocks.NewMockInferer("unused")
	h, store := newTestHandler(t, inferer)
	store.saveErr = errors.New("disk full")

	w := httptest.NewRecorder()
	h.HandleDocument(w, multipartRequest(t, "/",
		testutil.FilePart(api.FieldDocument, "a.pdf", "application/pdf", fixtures.PDF)))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 0, inferer.CallCount())
}

func TestGenerateHandler_Idempotent(t *testing.T) {
	inferer := mocks.NewMockInferer("same")
	h, store := newTestHandler(t, inferer)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		h.HandleImage(w, multipartRequest(t, "/generate-from-image",
			testutil.FilePart(api.FieldImage, "cat.jpg", "image/jpeg", fixtures.JPEG)))
		require.Equal(t, http.StatusOK, w.Code)
	}

	reqs := inferer.Requests()
	require.Len(t, reqs, 2)
	testutil.AssertPartsEqual(t, reqs[0].Parts, reqs[1].Parts)
	store.assertAllReleased(t)
}

func TestGenerateHandler_ConcurrentUploadsAreIsolated(t *testing.T) {
	inferer := mocks.NewMockInferer("ok").WithInferFunc(func(_ context.Context, req llm.Request) llm.Result {
		return llm.Succeeded(string(req.Parts[1].Data))
	})
	h, store := newTestHandler(t, inferer)

	const n = 16
	payloads := make([]string, n)
	requests := make([]*http.Request, n)
	recorders := make([]*httptest.ResponseRecorder, n)
	for i := 0; i < n; i++ {
		payloads[i] = strings.Repeat(string(rune('a'+i)), 100+i)
		requests[i] = multipartRequest(t, "/",
			testutil.FilePart(api.FieldDocument, "doc.txt", "text/plain", []byte(payloads[i])))
		recorders[i] = httptest.NewRecorder()
	}

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.HandleDocument(recorders[i], requests[i])
		}()
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.Equal(t, http.StatusOK, recorders[i].Code)
		assert.Equal(t, payloads[i], decodeOutput(t, recorders[i]))
	}
	store.assertAllReleased(t)
}
