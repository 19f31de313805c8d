package httpapi

import (
	"net/http"
	"strings"

	"tether-data/internal/domain"
	"tether-data/internal/service"

	"go.uber.org/zap"
)

const templateRoutePrefix = "/tether/api/v1/templates"

// TemplateHandler 全局模板管理：列表/读取公开，创建/删除管理员
type TemplateHandler struct {
	templates *service.TemplateService
	auth      *AuthHandler
	logger    *zap.Logger
}

// NewTemplateHandler 创建模板 Handler
func NewTemplateHandler(templates *service.TemplateService, auth *AuthHandler, logger *zap.Logger) *TemplateHandler {
	return &TemplateHandler{templates: templates, auth: auth, logger: logger}
}

// ServeHTTP 实现 http.Handler 接口
func (h *TemplateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == templateRoutePrefix || r.URL.Path == templateRoutePrefix+"/" {
		switch r.Method {
		case http.MethodGet:
			h.List(w, r)
		case http.MethodPost:
			h.Create(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	id := strings.TrimPrefix(r.URL.Path, templateRoutePrefix+"/")
	if id == "" || strings.Contains(id, "/") {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	switch r.Method {
	case http.MethodGet:
		h.Get(w, r, id)
	case http.MethodDelete:
		h.Delete(w, r, id)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// List 模板列表；?scope=terra|aura 过滤（绑定向导用）
func (h *TemplateHandler) List(w http.ResponseWriter, r *http.Request) {
	scope := domain.Scope(r.URL.Query().Get("scope"))
	templates, err := h.templates.ListTemplates(r.Context(), scope)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(templates))
}

// Create 管理员新建模板
func (h *TemplateHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p := h.auth.Principal(ctx, r)

	var req service.CreateTemplateRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body"))
		return
	}

	id, err := h.templates.CreateTemplate(ctx, p, req)
	if err != nil {
		h.logger.Warn("CreateTemplate failed", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"template_id": id}))
}

// Get 读取单个模板
func (h *TemplateHandler) Get(w http.ResponseWriter, r *http.Request, id string) {
	tpl, err := h.templates.GetTemplate(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(tpl))
}

// Delete 管理员删除模板（已绑定的 tether 不级联，查询时按模板缺失呈现）
func (h *TemplateHandler) Delete(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()
	p := h.auth.Principal(ctx, r)

	if err := h.templates.DeleteTemplate(ctx, p, id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"template_id": id, "deleted": true}))
}
