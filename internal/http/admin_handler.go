package httpapi

import (
	"net/http"
	"strings"

	"tether-data/internal/service"

	"go.uber.org/zap"
)

const adminRoutePrefix = "/tether/api/v1/admin/"

// AdminHandler 管理端数据集接口：导出/导入、raw 分区读写、usage 统计
type AdminHandler struct {
	admin  *service.AdminService
	auth   *AuthHandler
	logger *zap.Logger
}

// NewAdminHandler 创建管理 Handler
func NewAdminHandler(admin *service.AdminService, auth *AuthHandler, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{admin: admin, auth: auth, logger: logger}
}

// ServeHTTP 实现 http.Handler 接口
func (h *AdminHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, adminRoutePrefix)
	switch {
	case rest == "export":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Export(w, r)
	case rest == "import":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Import(w, r)
	case rest == "usage":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Usage(w, r)
	case strings.HasPrefix(rest, "raw/"):
		h.RawSection(w, r, strings.TrimPrefix(rest, "raw/"))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// Export 全量数据集快照下载
func (h *AdminHandler) Export(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p := h.auth.Principal(ctx, r)

	bundle, err := h.admin.Export(ctx, p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(bundle))
}

// Import 整体导入（分区全量替换）
func (h *AdminHandler) Import(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p := h.auth.Principal(ctx, r)

	// 全量快照可能很大，上限放宽到 64MB
	raw, err := readBody(r, 64<<20)
	if err != nil {
		writeJSON(w, http.StatusOK, Fail("failed to read body"))
		return
	}

	if err := h.admin.Import(ctx, p, raw); err != nil {
		h.logger.Warn("Import failed", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"imported": true}))
}

// Usage 按模板聚合的使用统计
func (h *AdminHandler) Usage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p := h.auth.Principal(ctx, r)

	report, err := h.admin.Usage(ctx, p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(report))
}

// RawSection 按分区名直接读写数据子树（调试与手工修复入口）
func (h *AdminHandler) RawSection(w http.ResponseWriter, r *http.Request, section string) {
	ctx := r.Context()
	p := h.auth.Principal(ctx, r)

	switch r.Method {
	case http.MethodGet:
		v, err := h.admin.GetSection(ctx, p, section)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(v))
	case http.MethodPut:
		raw, err := readBody(r, 64<<20)
		if err != nil {
			writeJSON(w, http.StatusOK, Fail("failed to read body"))
			return
		}
		if err := h.admin.PutSection(ctx, p, section, raw); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(map[string]any{"section": section, "replaced": true}))
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
