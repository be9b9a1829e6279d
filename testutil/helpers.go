// =============================================================================
// 🧪 测试辅助函数
// =============================================================================
// 提供通用的测试辅助函数和断言
//
// 使用方法:
//
//	ctx := testutil.TestContext(t)
//	body, contentType := testutil.MultipartBody(t, testutil.FilePart("image", "cat.jpg", "image/jpeg", data))
// =============================================================================
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/genbridge/llm"
)

// =============================================================================
// 🎯 上下文辅助
// =============================================================================

// TestContext 返回带超时的测试上下文
func TestContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// TestContextWithTimeout 返回指定超时的测试上下文
func TestContextWithTimeout(t *testing.T, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// CancelledContext 返回已取消的上下文
func CancelledContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

// =============================================================================
// ✅ 断言辅助
// =============================================================================

// AssertPartsEqual 逐个比较内容片段
func AssertPartsEqual(t *testing.T, expected, actual []llm.Part) {
	t.Helper()
	require.Len(t, actual, len(expected), "part count mismatch")
	for i := range expected {
		assert.Equal(t, expected[i].Kind, actual[i].Kind, "part[%d] kind", i)
		assert.Equal(t, expected[i].Text, actual[i].Text, "part[%d] text", i)
		assert.Equal(t, expected[i].MIMEType, actual[i].MIMEType, "part[%d] mime type", i)
		assert.Equal(t, expected[i].Data, actual[i].Data, "part[%d] data", i)
	}
}

// AssertDirEmpty 断言目录存在且为空
func AssertDirEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Empty(t, names, "expected %s to be empty", dir)
}

// AssertEventuallyTrue 在超时内轮询条件
func AssertEventuallyTrue(t *testing.T, condition func() bool, timeout time.Duration) {
	t.Helper()
	if !WaitFor(condition, timeout) {
		t.Fatalf("condition not met within %v", timeout)
	}
}

// WaitFor 等待条件满足
func WaitFor(condition func() bool, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

// =============================================================================
// 📦 数据辅助
// =============================================================================

// MustJSON 序列化为 JSON 字符串，失败时 panic
func MustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("failed to marshal JSON: %v", err))
	}
	return string(data)
}

// MustParseJSON 解析 JSON 字符串，失败时 panic
func MustParseJSON[T any](s string) T {
	var v T
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		panic(fmt.Sprintf("failed to parse JSON: %v", err))
	}
	return v
}

// WriteTempFile 在 dir 中写入一个临时文件并返回路径
func WriteTempFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

// =============================================================================
// 📮 multipart 请求构造
// =============================================================================

// Part 描述 multipart 请求中的一个字段
type Part struct {
	Field       string
	Filename    string
	ContentType string
	Data        []byte
}

// FieldPart 创建普通表单字段
func FieldPart(field, value string) Part {
	return Part{Field: field, Data: []byte(value)}
}

// FilePart 创建文件字段，contentType 为空时不设置 Content-Type 头
func FilePart(field, filename, contentType string, data []byte) Part {
	return Part{Field: field, Filename: filename, ContentType: contentType, Data: data}
}

// MultipartBody 构造 multipart/form-data 请求体，返回请求体和 Content-Type
func MultipartBody(t *testing.T, parts ...Part) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for _, p := range parts {
		h := make(textproto.MIMEHeader)
		disposition := fmt.Sprintf(`form-data; name=%q`, p.Field)
		if p.Filename != "" {
			disposition += fmt.Sprintf(`; filename=%q`, p.Filename)
		}
		h.Set("Content-Disposition", disposition)
		if p.ContentType != "" {
			h.Set("Content-Type", p.ContentType)
		}
		pw, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = pw.Write(p.Data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}
