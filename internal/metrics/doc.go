// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
包 metrics 提供基于 Prometheus 的指标采集能力，覆盖 HTTP、推理与上传三个维度。

# 概述

Collector 统一注册和记录 Prometheus 指标。使用 promauto.With 注册到
调用方提供的 registry（缺省为默认 registry），所有指标按 namespace 隔离。

# 主要能力

  - HTTP 指标：请求总数、请求耗时、请求/响应体大小，
    按 method/path/status 分组，状态码归类为 2xx/3xx/4xx/5xx。
  - 推理指标：调用总数与耗时，按 provider/modality/status 分组，
    Collector 实现 llm.Recorder。
  - 上传指标：暂存次数、文件大小、释放结果与当前暂存数量，
    Collector 实现 upload.Recorder。
  - Handler：暴露所在 registry 的 /metrics 端点。
*/
package metrics
