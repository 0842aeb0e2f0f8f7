/*
Package api 定义检索服务 HTTP 层的请求/响应数据结构。

# 概述

api 包只承载传输层 DTO；业务语义全部由根包 Engine 提供。
检索与问答请求直接复用 types.QueryContext（自带 JSON 标签），
本包补充其余端点的专用结构。

# 端点对应

  - POST /api/v1/documents        — 摄取文档（DocumentRequest）
  - PUT  /api/v1/documents        — 更新文档
  - DELETE /api/v1/documents/{id} — 删除文档
  - POST /api/v1/relations        — 手工添加文档关系（RelationRequest）
  - POST /api/v1/retrieve         — 混合检索（types.QueryContext）
  - POST /api/v1/ask              — 检索 + 推理循环（types.QueryContext）
  - POST /api/v1/multihop         — 多跳检索（MultiHopRequest）
*/
package api
