package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux（避免引入第三方路由依赖）
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

// HandleHandler 支持 http.Handler 接口（用于 pprof 等）
func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterAuthRoutes 注册认证路由
func (r *Router) RegisterAuthRoutes(h *AuthHandler) {
	r.HandleHandler("/tether/api/v1/auth/", h)
}

// RegisterTetherRoutes 注册 tether 访问面路由
// /tethers/{id} 状态、/assign、/lock、/unlock、/reset、/form、
// /entries(.xlsx)、/stopwatch(/start|/stop)、/reference、/contacts
func (r *Router) RegisterTetherRoutes(h *TetherHandler) {
	r.HandleHandler(tetherRoutePrefix, h)
}

// RegisterTemplateRoutes 注册全局模板路由
func (r *Router) RegisterTemplateRoutes(h *TemplateHandler) {
	r.HandleHandler(templateRoutePrefix, h)
	r.HandleHandler(templateRoutePrefix+"/", h)
}

// RegisterAuraRoutes 注册 My Aura 汇总路由
func (r *Router) RegisterAuraRoutes(h *AuraHandler) {
	r.Handle("/tether/api/v1/aura/summary", h.Summary)
	r.Handle("/tether/api/v1/aura/logs", h.Streams)
}

// RegisterAdminRoutes 注册管理端数据集路由
func (r *Router) RegisterAdminRoutes(h *AdminHandler) {
	r.HandleHandler(adminRoutePrefix, h)
}

// RegisterHealthRoute 健康检查（部署探活）
func (r *Router) RegisterHealthRoute() {
	r.Handle("/healthz", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, Ok(map[string]any{"status": "ok"}))
	})
}
