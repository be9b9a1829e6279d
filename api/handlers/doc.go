// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package handlers 提供 genbridge HTTP API 的请求处理器实现。

# 概述

handlers 包实现四个生成端点、健康检查以及统一的响应/错误处理。
所有 Handler 均遵循标准 net/http 接口，通过 Swagger 注解生成 API 文档。

# 核心类型

  - GenerateHandler：/generate-text、/generate-from-image、
    /generate-from-document、/generate-from-audio
  - HealthHandler：服务健康检查（/health, /healthz, /ready, /version）
  - Inferer / UploadStore：GenerateHandler 的依赖接口，
    分别由 llm.Dispatcher 与 upload.Store 实现
  - HealthCheck：可插拔健康检查接口

# 主要能力

  - 统一响应格式：成功为 {"output": ...}，失败为 {"error": ...}
  - multipart 请求体流式写入磁盘，请求结束前删除暂存文件
  - 请求验证：DecodeJSONBody（1 MB 限制）、ValidateContentType
  - 推理失败一律 500，错误消息为上游原文
*/
package handlers
