package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"tether-data/internal/domain"
	"tether-data/internal/service"

	"go.uber.org/zap"
)

const tetherRoutePrefix = "/tether/api/v1/tethers/"

// TetherHandler tether 访问面：状态查询、绑定、锁定、重置、表单、
// 日志流、秒表会话、参考内容、厂商通讯录
type TetherHandler struct {
	lifecycle *service.LifecycleService
	entries   *service.EntryService
	forms     *service.FormService
	content   *service.ContentService
	auth      *AuthHandler
	logger    *zap.Logger
}

// NewTetherHandler 创建 tether Handler
func NewTetherHandler(
	lifecycle *service.LifecycleService,
	entries *service.EntryService,
	forms *service.FormService,
	content *service.ContentService,
	auth *AuthHandler,
	logger *zap.Logger,
) *TetherHandler {
	return &TetherHandler{
		lifecycle: lifecycle,
		entries:   entries,
		forms:     forms,
		content:   content,
		auth:      auth,
		logger:    logger,
	}
}

// ServeHTTP 实现 http.Handler 接口
func (h *TetherHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, tetherRoutePrefix)
	parts := strings.Split(rest, "/")
	if len(parts) == 0 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	tetherID := parts[0]

	// 路由分发：/tethers/{id}[/sub[/arg]]
	switch {
	case len(parts) == 1:
		h.require(w, r, http.MethodGet, func() { h.Lookup(w, r, tetherID) })
	case len(parts) == 2 && parts[1] == "assign":
		h.require(w, r, http.MethodPost, func() { h.Assign(w, r, tetherID) })
	case len(parts) == 2 && parts[1] == "lock":
		h.require(w, r, http.MethodPost, func() { h.SetLocked(w, r, tetherID, true) })
	case len(parts) == 2 && parts[1] == "unlock":
		h.require(w, r, http.MethodPost, func() { h.SetLocked(w, r, tetherID, false) })
	case len(parts) == 2 && parts[1] == "reset":
		h.require(w, r, http.MethodPost, func() { h.Reset(w, r, tetherID) })
	case len(parts) == 2 && parts[1] == "form":
		h.require(w, r, http.MethodGet, func() { h.Form(w, r, tetherID) })
	case len(parts) == 2 && parts[1] == "entries":
		switch r.Method {
		case http.MethodGet:
			h.ListEntries(w, r, tetherID)
		case http.MethodPost:
			h.SubmitEntry(w, r, tetherID)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case len(parts) == 2 && parts[1] == "entries.xlsx":
		h.require(w, r, http.MethodGet, func() { h.ExportEntries(w, r, tetherID) })
	case len(parts) == 2 && parts[1] == "stopwatch":
		h.require(w, r, http.MethodGet, func() { h.StopwatchStatus(w, r, tetherID) })
	case len(parts) == 3 && parts[1] == "stopwatch" && parts[2] == "start":
		h.require(w, r, http.MethodPost, func() { h.StopwatchStart(w, r, tetherID) })
	case len(parts) == 3 && parts[1] == "stopwatch" && parts[2] == "stop":
		h.require(w, r, http.MethodPost, func() { h.StopwatchStop(w, r, tetherID) })
	case len(parts) == 2 && parts[1] == "reference":
		h.Reference(w, r, tetherID)
	case len(parts) == 2 && parts[1] == "contacts":
		switch r.Method {
		case http.MethodGet:
			h.ListContacts(w, r, tetherID)
		case http.MethodPost:
			h.CreateContact(w, r, tetherID)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case len(parts) == 3 && parts[1] == "contacts":
		h.ContactByID(w, r, tetherID, parts[2])
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *TetherHandler) require(w http.ResponseWriter, r *http.Request, method string, fn func()) {
	if r.Method != method {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	fn()
}

// Lookup tether 状态：unbound / active / locked
// 扫码落地页的第一个请求，决定前端渲染绑定向导还是日志表单
func (h *TetherHandler) Lookup(w http.ResponseWriter, r *http.Request, tetherID string) {
	// ?unassigned=true：出厂链接强制走绑定流程，即使记录已存在
	if r.URL.Query().Get("unassigned") == "true" {
		writeJSON(w, http.StatusOK, Ok(&service.TetherState{Status: domain.TetherUnbound}))
		return
	}
	state, err := h.lifecycle.Lookup(r.Context(), tetherID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(state))
}

// Assign 把 unbound tether 绑定到模板
func (h *TetherHandler) Assign(w http.ResponseWriter, r *http.Request, tetherID string) {
	ctx := r.Context()
	p := h.auth.Principal(ctx, r)

	var payload struct {
		TemplateID   string            `json:"template_id"`
		StaticValues map[string]string `json:"static_values"`
	}
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body"))
		return
	}

	tether, err := h.lifecycle.Assign(ctx, p, tetherID, payload.TemplateID, payload.StaticValues)
	if err != nil {
		h.logger.Warn("Assign failed", zap.String("tether_id", tetherID), zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(tether))
}

// SetLocked 管理员锁定/解锁
func (h *TetherHandler) SetLocked(w http.ResponseWriter, r *http.Request, tetherID string, locked bool) {
	ctx := r.Context()
	p := h.auth.Principal(ctx, r)

	var err error
	if locked {
		err = h.lifecycle.Lock(ctx, p, tetherID)
	} else {
		err = h.lifecycle.Unlock(ctx, p, tetherID)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"tether_id": tetherID, "locked": locked}))
}

// Reset 管理员重置：回到 unbound，级联删除共享日志和参考内容
func (h *TetherHandler) Reset(w http.ResponseWriter, r *http.Request, tetherID string) {
	ctx := r.Context()
	p := h.auth.Principal(ctx, r)

	var payload struct {
		Confirm bool `json:"confirm"`
	}
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body"))
		return
	}

	if err := h.lifecycle.Reset(ctx, p, tetherID, payload.Confirm); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"tether_id": tetherID, "status": string(domain.TetherUnbound)}))
}

// Form 由绑定模板推导的表单描述（含秒表模式判定）
func (h *TetherHandler) Form(w http.ResponseWriter, r *http.Request, tetherID string) {
	state, err := h.lifecycle.Lookup(r.Context(), tetherID)
	if err != nil {
		writeError(w, err)
		return
	}
	if state.Template == nil {
		writeJSON(w, http.StatusOK, Fail("tether is not bound to a template"))
		return
	}
	writeJSON(w, http.StatusOK, Ok(h.forms.BuildForm(state.Template)))
}

// ListEntries 日志流（提交顺序）
func (h *TetherHandler) ListEntries(w http.ResponseWriter, r *http.Request, tetherID string) {
	ctx := r.Context()
	p := h.auth.Principal(ctx, r)

	entries, err := h.entries.ListEntries(ctx, p, tetherID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(entries))
}

type entryPayload struct {
	Values map[string]string    `json:"values"`
	Coords *service.Coordinates `json:"coords,omitempty"`
}

// SubmitEntry 提交一条普通表单条目
func (h *TetherHandler) SubmitEntry(w http.ResponseWriter, r *http.Request, tetherID string) {
	ctx := r.Context()
	p := h.auth.Principal(ctx, r)

	var payload entryPayload
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body"))
		return
	}

	entry, err := h.entries.Submit(ctx, p, tetherID, payload.Values, payload.Coords)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(entry))
}

// ExportEntries 日志流导出为 Excel
func (h *TetherHandler) ExportEntries(w http.ResponseWriter, r *http.Request, tetherID string) {
	ctx := r.Context()
	p := h.auth.Principal(ctx, r)

	state, err := h.lifecycle.Lookup(ctx, tetherID)
	if err != nil {
		writeError(w, err)
		return
	}
	if state.Template == nil {
		writeJSON(w, http.StatusOK, Fail("tether is not bound to a template"))
		return
	}
	entries, err := h.entries.ListEntries(ctx, p, tetherID)
	if err != nil {
		writeError(w, err)
		return
	}

	data, err := GenerateEntriesExport(state.Template, entries)
	if err != nil {
		h.logger.Error("ExportEntries: excel generation failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail("export failed"))
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-entries.xlsx"`, tetherID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// StopwatchStatus 秒表会话状态（页面刷新后恢复显示）
func (h *TetherHandler) StopwatchStatus(w http.ResponseWriter, r *http.Request, tetherID string) {
	ctx := r.Context()
	p := h.auth.Principal(ctx, r)

	status, err := h.forms.GetStopwatch(ctx, p, tetherID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(status))
}

// StopwatchStart 开始秒表会话
func (h *TetherHandler) StopwatchStart(w http.ResponseWriter, r *http.Request, tetherID string) {
	ctx := r.Context()
	p := h.auth.Principal(ctx, r)

	// 绑定和锁定状态先行校验：locked tether 连会话都不开
	state, err := h.lifecycle.Lookup(ctx, tetherID)
	if err != nil {
		writeError(w, err)
		return
	}
	switch state.Status {
	case domain.TetherUnbound:
		writeError(w, domain.ErrNotFound)
		return
	case domain.TetherLocked:
		writeError(w, domain.ErrLocked)
		return
	}
	if state.Template == nil || !state.Template.HasStopwatch() {
		writeJSON(w, http.StatusOK, Fail("template has no timestamp field"))
		return
	}

	status, err := h.forms.StartStopwatch(ctx, p, tetherID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(status))
}

// StopwatchStop 结束会话并落一条合成条目
func (h *TetherHandler) StopwatchStop(w http.ResponseWriter, r *http.Request, tetherID string) {
	ctx := r.Context()
	p := h.auth.Principal(ctx, r)

	var payload entryPayload
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body"))
		return
	}

	entry, err := h.entries.SubmitStopwatch(ctx, p, tetherID, payload.Values, payload.Coords)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(entry))
}

// Reference 参考内容：GET 公开读取，PUT/DELETE 管理员
func (h *TetherHandler) Reference(w http.ResponseWriter, r *http.Request, tetherID string) {
	ctx := r.Context()

	switch r.Method {
	case http.MethodGet:
		content, err := h.content.GetReference(ctx, tetherID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(content))
	case http.MethodPut:
		p := h.auth.Principal(ctx, r)
		var payload struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			ImageURL    string `json:"image_url"`
		}
		if err := readBodyJSON(r, 1<<20, &payload); err != nil {
			writeJSON(w, http.StatusOK, Fail("invalid body"))
			return
		}
		content, err := h.content.PutReference(ctx, p, tetherID, payload.Title, payload.Description, payload.ImageURL)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(content))
	case http.MethodDelete:
		p := h.auth.Principal(ctx, r)
		if err := h.content.DeleteReference(ctx, p, tetherID); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(map[string]any{"tether_id": tetherID, "deleted": true}))
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// ListContacts 厂商联系人列表（公开读取）
func (h *TetherHandler) ListContacts(w http.ResponseWriter, r *http.Request, tetherID string) {
	contacts, err := h.content.ListContacts(r.Context(), tetherID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(contacts))
}

// CreateContact 管理员新增联系人
func (h *TetherHandler) CreateContact(w http.ResponseWriter, r *http.Request, tetherID string) {
	ctx := r.Context()
	p := h.auth.Principal(ctx, r)

	var contact domain.VendorContact
	if err := readBodyJSON(r, 1<<20, &contact); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body"))
		return
	}
	contact.TetherID = tetherID

	created, err := h.content.CreateContact(ctx, p, &contact)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(created))
}

// ContactByID 单条联系人的更新/删除（管理员）
func (h *TetherHandler) ContactByID(w http.ResponseWriter, r *http.Request, tetherID, contactID string) {
	ctx := r.Context()
	p := h.auth.Principal(ctx, r)

	switch r.Method {
	case http.MethodPut:
		var contact domain.VendorContact
		if err := readBodyJSON(r, 1<<20, &contact); err != nil {
			writeJSON(w, http.StatusOK, Fail("invalid body"))
			return
		}
		contact.TetherID = tetherID
		contact.ContactID = contactID

		updated, err := h.content.UpdateContact(ctx, p, &contact)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(updated))
	case http.MethodDelete:
		if err := h.content.DeleteContact(ctx, p, tetherID, contactID); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(map[string]any{"contact_id": contactID, "deleted": true}))
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
