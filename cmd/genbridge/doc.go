// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 GenBridge 服务端程序入口。

# 概述

cmd/genbridge 把四个生成接口（文本、图片、文档、音频）暴露为 HTTP 服务，
请求经中间件链进入 GenerateHandler，再由 llm.Dispatcher 转发给配置的
模型服务商。程序支持 YAML 配置文件、.env 文件与环境变量加载，
结构化日志（zap）、Prometheus 指标与 OpenTelemetry 追踪。

# 核心类型

  - Server：组装上传暂存、推理分发、处理器与 HTTP/Metrics 双端口
  - Middleware：HTTP 中间件函数签名 func(http.Handler) http.Handler

# 主要能力

  - 子命令：serve（启动服务）、health（探测 /health）、version、help
  - 中间件链：Recovery、RequestID、OTelTracing、SecurityHeaders、
    RequestLogger、MetricsMiddleware、CORS、RateLimiter（基于 IP，可关闭）
  - Metrics 服务器：独立端口暴露 /metrics，端口为 0 时不启动
  - 优雅关闭：SIGINT/SIGTERM 触发，errgroup 等待两个端口全部退出
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
