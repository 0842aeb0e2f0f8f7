/*
Package main 提供 BEAR-AI 检索服务的可执行入口。

# 概述

cmd/bearai 是法律文档检索核心的服务端程序，提供 HTTP API、
数据库迁移、健康检查和版本查询等子命令。程序支持 YAML 配置文件加载
（环境变量覆盖，前缀 BEARAI），结构化日志（zap），Prometheus
指标采集以及 OpenTelemetry 追踪。

# 核心类型

  - Server         — 主服务器，装配引擎并管理 HTTP 生命周期
  - Middleware     — HTTP 中间件函数签名 func(http.Handler) http.Handler
  - responseWriter — 包装 http.ResponseWriter 以捕获状态码

# 主要能力

  - 子命令：serve（启动服务）、migrate（语料库建表）、version、health
  - 中间件链：Recovery、RequestID、SecurityHeaders、RequestLogger、Tracing
  - 语料库后端：memory / sqlite / postgres / mysql（GORM）
  - 嵌入缓存后端：memory / redis
  - 外部能力：OpenAI 兼容端点 + 可选引用查证服务，带重试与限流
  - 优雅关闭：信号监听 → 关闭 HTTP → 清理遥测
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
