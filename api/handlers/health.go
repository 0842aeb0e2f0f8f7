package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/KingOfTheAce2/BEAR-AI-sub001/types"
)

// =============================================================================
// 🏥 健康检查 Handler
// =============================================================================

// HealthHandler 健康检查处理器，状态来源是 Engine 的组件快照。
type HealthHandler struct {
	engine Engine
	logger *zap.Logger
}

// NewHealthHandler 创建健康检查处理器。
func NewHealthHandler(engine Engine, logger *zap.Logger) *HealthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthHandler{engine: engine, logger: logger}
}

// HandleHealth 返回完整组件健康快照。整体 down 时返回 503，
// 让负载均衡器把实例摘除。
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteMethodNotAllowed(w, http.MethodGet)
		return
	}
	status := h.engine.SystemStatus(r.Context())
	code := http.StatusOK
	if status.State == types.HealthDown {
		code = http.StatusServiceUnavailable
	}
	WriteJSON(w, code, status)
}

// HandleHealthz 存活探针，进程在即 200。
func (h *HealthHandler) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteMethodNotAllowed(w, http.MethodGet)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleReady 就绪探针，管线可服务（healthy 或 degraded）即 200。
func (h *HealthHandler) HandleReady(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteMethodNotAllowed(w, http.MethodGet)
		return
	}
	status := h.engine.SystemStatus(r.Context())
	if status.State == types.HealthDown {
		WriteJSON(w, http.StatusServiceUnavailable, status)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// VersionInfo 版本信息响应。
type VersionInfo struct {
	Version   string    `json:"version"`
	BuildTime string    `json:"build_time"`
	GitCommit string    `json:"git_commit"`
	Timestamp time.Time `json:"timestamp"`
}

// HandleVersion 返回构建版本信息的处理函数。
func (h *HealthHandler) HandleVersion(version, buildTime, gitCommit string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			WriteMethodNotAllowed(w, http.MethodGet)
			return
		}
		WriteJSON(w, http.StatusOK, VersionInfo{
			Version:   version,
			BuildTime: buildTime,
			GitCommit: gitCommit,
			Timestamp: time.Now(),
		})
	}
}
