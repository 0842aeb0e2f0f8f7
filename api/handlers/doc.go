/*
Package handlers 实现检索服务的 HTTP 处理器。

# 概述

每个处理器只做三件事：解析请求、调用 Engine、写统一响应。
Engine 以接口注入，处理器不依赖根包的具体实现。

# 核心类型

  - Engine           — 处理器依赖的管线能力集合
  - HealthHandler    — /health、/healthz、/readyz、/version
  - DocumentsHandler — 文档摄取、更新、删除与关系维护
  - QueryHandler     — 检索、问答与多跳端点
  - Response         — 统一 JSON 响应包装
*/
package handlers
