// Package openai 通过 github.com/sashabaranov/go-openai 接入 OpenAI 兼容的
// Chat Completions 接口，BaseURL 可指向任意兼容服务。
package openai
