// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
包 server 提供 HTTP 服务器生命周期管理，支持非阻塞启动、
阻塞运行与优雅关闭。

# 核心类型

  - Manager：封装 http.Server 与 net.Listener，提供 Start/Run/Shutdown
    等生命周期方法，并通过 Errors() 传播后台服务异常。
  - Config：监听地址、读写超时、空闲超时、请求头上限与关闭超时。

# 使用方式

业务端口与 metrics 端口各持有一个 Manager，由调用方通过 errgroup
统一编排；信号处理交给 signal.NotifyContext，ctx 结束后 Run 自动
执行优雅关闭。
*/
package server
