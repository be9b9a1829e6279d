// Package gemini 通过 google.golang.org/genai 接入 Google Gemini API。
//
// 文本片段映射为 genai.Part.Text，二进制片段以 InlineData 内联发送。
// 上游错误经 providers.MapHTTPError 转换，Message 保留 API 返回的原文。
package gemini
