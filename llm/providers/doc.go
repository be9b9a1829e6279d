// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
# 概述

包 providers 提供跨模型服务商的通用适配与辅助能力，是 gemini、openai、
echo 等具体 Provider 实现的公共基础层。

# 核心类型

  - BaseProviderConfig：所有 Provider 共享的基础配置（APIKey、BaseURL、Model、Timeout）
  - GeminiConfig / OpenAIConfig：各服务商配置

# 核心函数

  - MapHTTPError：将上游 HTTP 状态码映射为语义化的 types.Error，保留上游消息原文
  - EmptyResponseError：上游没有返回可用文本时的统一错误
  - ChooseModel：按优先级选择模型（配置 > 兜底）
  - DataURL：把二进制片段编码为 data URL
*/
package providers
