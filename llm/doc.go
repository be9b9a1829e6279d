// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package llm 提供与模型服务商无关的推理请求模型和分发器。

# 概述

上层 handler 把请求整理为按顺序排列的 [Part]（文本或带 MIME 类型的
二进制数据），交给 [Dispatcher] 发送给具体的 [Provider]。分发器只调用一次
Provider，并把结果统一为 [Result]：成功时携带模型原始输出，失败时携带
Provider 的错误信息，由 handler 决定 HTTP 状态码。

# 核心类型

  - [Part]：文本或二进制内容片段（Text / Binary）
  - [Request]：有序的片段序列，附带 [Modality]
  - [Result]：成功输出或 [Failure]
  - [Provider]：远端模型抽象（Name / Generate）
  - [Dispatcher]：超时控制、panic 恢复、OTel span 与指标记录

# 编码

  - [EncodeText]：原样包装字符串
  - [EncodeBinary]：读取暂存上传文件的全部内容
*/
package llm
