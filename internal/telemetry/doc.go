// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

// Package telemetry 封装 OpenTelemetry SDK 初始化逻辑，
// 为 GenBridge 提供集中式的 TracerProvider 和 MeterProvider 配置。
// 禁用时使用 noop 实现，推理分发器与 HTTP 中间件产生的 span 不会外发。
package telemetry
