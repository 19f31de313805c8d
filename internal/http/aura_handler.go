package httpapi

import (
	"net/http"

	"tether-data/internal/service"

	"go.uber.org/zap"
)

// AuraHandler 认证用户的私有日志汇总（My Aura 页面）
type AuraHandler struct {
	entries *service.EntryService
	auth    *AuthHandler
	logger  *zap.Logger
}

// NewAuraHandler 创建 aura Handler
func NewAuraHandler(entries *service.EntryService, auth *AuthHandler, logger *zap.Logger) *AuraHandler {
	return &AuraHandler{entries: entries, auth: auth, logger: logger}
}

// Summary GET /tether/api/v1/aura/summary
func (h *AuraHandler) Summary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ctx := r.Context()
	p := h.auth.Principal(ctx, r)

	summary, err := h.entries.Summary(ctx, p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(summary))
}

// Streams GET /tether/api/v1/aura/logs
// 只返回流列表，条目通过 /tethers/{id}/entries 按 scope 解析读取
func (h *AuraHandler) Streams(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ctx := r.Context()
	p := h.auth.Principal(ctx, r)

	streams, err := h.entries.Streams(ctx, p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(streams))
}
