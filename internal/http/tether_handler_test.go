package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tether-data/internal/repository"
	"tether-data/internal/service"
	"tether-data/internal/store"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeKV struct {
	data map[string]string
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: map[string]string{}}
}

func (f *fakeKV) Get(ctx context.Context, key string) (string, error) {
	v, ok := f.data[key]
	if !ok {
		return "", store.ErrMiss
	}
	return v, nil
}

func (f *fakeKV) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	f.data[key] = value
	return nil
}

func (f *fakeKV) Del(ctx context.Context, key string) error {
	delete(f.data, key)
	return nil
}

func (f *fakeKV) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	keys := make([]string, 0, len(f.data))
	for k := range f.data {
		keys = append(keys, k)
	}
	return keys, nil
}

// testAPI 全栈测试装配：内存 repo + fakeKV + 完整路由
type testAPI struct {
	router *Router
	users  *UserStore
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	logger := zap.NewNop()
	kv := newFakeKV()

	tethersRepo := repository.NewMemoryTethersRepo()
	templateRepo := repository.NewMemoryTemplatesRepo()
	logsRepo := repository.NewMemoryLogsRepo()
	refRepo := repository.NewMemoryReferenceRepo()
	contactsRepo := repository.NewMemoryContactsRepo()

	resolver := service.NewScopeResolver()
	forms := service.NewFormService(kv, logger)
	ids := store.NewPushIDGenerator()
	templateSvc := service.NewTemplateService(templateRepo, logger)
	lifecycleSvc := service.NewLifecycleService(tethersRepo, templateRepo, logsRepo, refRepo, logger)
	entrySvc := service.NewEntryService(tethersRepo, templateRepo, logsRepo, resolver, forms, nil, ids, logger)
	contentSvc := service.NewContentService(refRepo, contactsRepo, logger)
	adminSvc := service.NewAdminService(tethersRepo, templateRepo, logsRepo, refRepo, contactsRepo, logger)

	users := NewUserStore()
	users.Upsert("admin", "Administrator", "secret", true)
	auth := NewAuthHandler(users, kv, logger)

	router := NewRouter(logger)
	router.RegisterHealthRoute()
	router.RegisterAuthRoutes(auth)
	router.RegisterTetherRoutes(NewTetherHandler(lifecycleSvc, entrySvc, forms, contentSvc, auth, logger))
	router.RegisterTemplateRoutes(NewTemplateHandler(templateSvc, auth, logger))
	router.RegisterAuraRoutes(NewAuraHandler(entrySvc, auth, logger))
	router.RegisterAdminRoutes(NewAdminHandler(adminSvc, auth, logger))

	return &testAPI{router: router, users: users}
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), "body: %s", w.Body.String())
	}
	return w.Code, env
}

func (a *testAPI) login(t *testing.T, account, password string) string {
	t.Helper()
	status, env := a.do(t, http.MethodPost, "/tether/api/v1/auth/login", "",
		map[string]string{"account": account, "password": password})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, ResultSuccess, env.Code, env.Message)

	var result struct {
		AccessToken string `json:"accessToken"`
	}
	require.NoError(t, json.Unmarshal(env.Result, &result))
	require.NotEmpty(t, result.AccessToken)
	return result.AccessToken
}

func (a *testAPI) createSiteVisitTemplate(t *testing.T, token string) string {
	t.Helper()
	status, env := a.do(t, http.MethodPost, "/tether/api/v1/templates", token, map[string]any{
		"name":  "Site Visit",
		"scope": "terra",
		"static_fields": []map[string]any{
			{"name": "Site Name", "type": "text", "required": true},
		},
		"dynamic_fields": []map[string]any{
			{"name": "Inspector", "type": "text", "required": true},
			{"name": "Condition", "type": "dropdown", "options": []string{"Good", "Fair", "Poor"}},
			{"name": "Notes", "type": "textarea"},
		},
	})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, ResultSuccess, env.Code, env.Message)

	var result struct {
		TemplateID string `json:"template_id"`
	}
	require.NoError(t, json.Unmarshal(env.Result, &result))
	return result.TemplateID
}

func TestScenario_SiteVisitLifecycle(t *testing.T) {
	api := newTestAPI(t)
	admin := api.login(t, "admin", "secret")
	tplID := api.createSiteVisitTemplate(t, admin)

	// 1. 扫码：未知 tether 呈现 unbound
	status, env := api.do(t, http.MethodGet, "/tether/api/v1/tethers/demo123", "", nil)
	require.Equal(t, http.StatusOK, status)
	var state struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(env.Result, &state))
	require.Equal(t, "unbound", state.Status)

	// 2. 匿名绑定模板
	status, env = api.do(t, http.MethodPost, "/tether/api/v1/tethers/demo123/assign", "", map[string]any{
		"template_id":   tplID,
		"static_values": map[string]string{"Site Name": "North Plant"},
	})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, ResultSuccess, env.Code, env.Message)

	// 出厂链接带 ?unassigned=true 时强制绑定流程
	status, env = api.do(t, http.MethodGet, "/tether/api/v1/tethers/demo123?unassigned=true", "", nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Result, &state))
	require.Equal(t, "unbound", state.Status)

	// 3. 表单描述由模板推导
	status, env = api.do(t, http.MethodGet, "/tether/api/v1/tethers/demo123/form", "", nil)
	require.Equal(t, http.StatusOK, status)
	var form struct {
		Stopwatch bool `json:"stopwatch"`
		Controls  []struct {
			Name string   `json:"name"`
			Kind string   `json:"kind"`
		} `json:"controls"`
	}
	require.NoError(t, json.Unmarshal(env.Result, &form))
	require.False(t, form.Stopwatch)
	require.Len(t, form.Controls, 3)

	// 4. 匿名提交条目
	status, env = api.do(t, http.MethodPost, "/tether/api/v1/tethers/demo123/entries", "", map[string]any{
		"values": map[string]string{"Inspector": "Kim", "Condition": "Good"},
	})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, ResultSuccess, env.Code, env.Message)

	// required 字段缺失被拒绝
	status, env = api.do(t, http.MethodPost, "/tether/api/v1/tethers/demo123/entries", "", map[string]any{
		"values": map[string]string{"Notes": "missing inspector"},
	})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, ResultError, env.Code)

	// 5. 历史按提交顺序返回
	status, env = api.do(t, http.MethodGet, "/tether/api/v1/tethers/demo123/entries", "", nil)
	require.Equal(t, http.StatusOK, status)
	var entries []struct {
		EntryID     string `json:"entry_id"`
		SubmittedBy string `json:"submitted_by"`
	}
	require.NoError(t, json.Unmarshal(env.Result, &entries))
	require.Len(t, entries, 1)
	require.Equal(t, "anonymous", entries[0].SubmittedBy)

	// 6. 管理员锁定后提交被拒绝，读取不受影响
	status, env = api.do(t, http.MethodPost, "/tether/api/v1/tethers/demo123/lock", admin, nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, ResultSuccess, env.Code, env.Message)

	status, env = api.do(t, http.MethodPost, "/tether/api/v1/tethers/demo123/entries", "", map[string]any{
		"values": map[string]string{"Inspector": "Kim"},
	})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, ResultError, env.Code)

	status, _ = api.do(t, http.MethodGet, "/tether/api/v1/tethers/demo123/entries", "", nil)
	require.Equal(t, http.StatusOK, status)

	// 7. 重置需要 confirm，重置后回到 unbound 且日志清空
	status, env = api.do(t, http.MethodPost, "/tether/api/v1/tethers/demo123/reset", admin, map[string]any{"confirm": false})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, ResultError, env.Code)

	status, env = api.do(t, http.MethodPost, "/tether/api/v1/tethers/demo123/reset", admin, map[string]any{"confirm": true})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, ResultSuccess, env.Code, env.Message)

	status, env = api.do(t, http.MethodGet, "/tether/api/v1/tethers/demo123", "", nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Result, &state))
	require.Equal(t, "unbound", state.Status)
}

func TestTemplateCreate_RequiresAdmin(t *testing.T) {
	api := newTestAPI(t)

	// 匿名
	status, _ := api.do(t, http.MethodPost, "/tether/api/v1/templates", "", map[string]any{
		"name": "X", "scope": "terra",
	})
	require.Equal(t, http.StatusForbidden, status)

	// 普通认证用户
	api.users.Upsert("user1", "User One", "pw", false)
	token := api.login(t, "user1", "pw")
	status, _ = api.do(t, http.MethodPost, "/tether/api/v1/templates", token, map[string]any{
		"name": "X", "scope": "terra",
	})
	require.Equal(t, http.StatusForbidden, status)
}

func TestAuraRoutes_RequireSignIn(t *testing.T) {
	api := newTestAPI(t)

	status, env := api.do(t, http.MethodGet, "/tether/api/v1/aura/summary", "", nil)
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, ResultSignInRequired, env.Code)

	status, env = api.do(t, http.MethodGet, "/tether/api/v1/aura/logs", "", nil)
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, ResultSignInRequired, env.Code)

	token := api.login(t, "admin", "secret")
	status, env = api.do(t, http.MethodGet, "/tether/api/v1/aura/logs", token, nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, ResultSuccess, env.Code)
	var streams []service.StreamOverview
	require.NoError(t, json.Unmarshal(env.Result, &streams))
	require.Empty(t, streams)
}

func TestStopwatchRoutes(t *testing.T) {
	api := newTestAPI(t)
	admin := api.login(t, "admin", "secret")

	status, env := api.do(t, http.MethodPost, "/tether/api/v1/templates", admin, map[string]any{
		"name":  "Work Session",
		"scope": "terra",
		"dynamic_fields": []map[string]any{
			{"name": "Session", "type": "timestamp"},
			{"name": "Notes", "type": "textarea"},
		},
	})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, ResultSuccess, env.Code, env.Message)
	var created struct {
		TemplateID string `json:"template_id"`
	}
	require.NoError(t, json.Unmarshal(env.Result, &created))

	status, env = api.do(t, http.MethodPost, "/tether/api/v1/tethers/sw-1/assign", "",
		map[string]any{"template_id": created.TemplateID})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, ResultSuccess, env.Code, env.Message)

	// 表单切换到秒表模式
	status, env = api.do(t, http.MethodGet, "/tether/api/v1/tethers/sw-1/form", "", nil)
	require.Equal(t, http.StatusOK, status)
	var form struct {
		Stopwatch bool `json:"stopwatch"`
	}
	require.NoError(t, json.Unmarshal(env.Result, &form))
	require.True(t, form.Stopwatch)

	// Start → Status → Stop 产生一条合成条目
	status, env = api.do(t, http.MethodPost, "/tether/api/v1/tethers/sw-1/stopwatch/start", "", nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, ResultSuccess, env.Code, env.Message)

	status, env = api.do(t, http.MethodGet, "/tether/api/v1/tethers/sw-1/stopwatch", "", nil)
	require.Equal(t, http.StatusOK, status)
	var sw struct {
		Running bool `json:"running"`
	}
	require.NoError(t, json.Unmarshal(env.Result, &sw))
	require.True(t, sw.Running)

	status, env = api.do(t, http.MethodPost, "/tether/api/v1/tethers/sw-1/stopwatch/stop", "", map[string]any{
		"values": map[string]string{"Notes": "done"},
	})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, ResultSuccess, env.Code, env.Message)

	status, env = api.do(t, http.MethodGet, "/tether/api/v1/tethers/sw-1/entries", "", nil)
	require.Equal(t, http.StatusOK, status)
	var entries []struct {
		Fields map[string]any `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(env.Result, &entries))
	require.Len(t, entries, 1)
	require.Contains(t, entries[0].Fields, "Duration (minutes)")
	require.Contains(t, entries[0].Fields, "Start Time")
}

func TestReferenceAndContacts(t *testing.T) {
	api := newTestAPI(t)
	admin := api.login(t, "admin", "secret")
	tplID := api.createSiteVisitTemplate(t, admin)

	status, env := api.do(t, http.MethodPost, "/tether/api/v1/tethers/ref-1/assign", "",
		map[string]any{"template_id": tplID})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, ResultSuccess, env.Code, env.Message)

	// 参考内容：不存在 → 404；管理员 PUT 后公开可读
	status, _ = api.do(t, http.MethodGet, "/tether/api/v1/tethers/ref-1/reference", "", nil)
	require.Equal(t, http.StatusNotFound, status)

	status, env = api.do(t, http.MethodPut, "/tether/api/v1/tethers/ref-1/reference", admin, map[string]any{
		"title": "Pump Manual", "description": "Model X-200",
	})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, ResultSuccess, env.Code, env.Message)

	status, env = api.do(t, http.MethodGet, "/tether/api/v1/tethers/ref-1/reference", "", nil)
	require.Equal(t, http.StatusOK, status)
	var ref struct {
		Title string `json:"title"`
	}
	require.NoError(t, json.Unmarshal(env.Result, &ref))
	require.Equal(t, "Pump Manual", ref.Title)

	// 匿名写参考内容被拒绝
	status, _ = api.do(t, http.MethodPut, "/tether/api/v1/tethers/ref-1/reference", "", map[string]any{"title": "nope"})
	require.Equal(t, http.StatusForbidden, status)

	// 联系人 CRUD
	status, env = api.do(t, http.MethodPost, "/tether/api/v1/tethers/ref-1/contacts", admin, map[string]any{
		"type": "vendor", "name": "Acme Corp", "email": "support@acme.example",
	})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, ResultSuccess, env.Code, env.Message)
	var contact struct {
		ContactID string `json:"contact_id"`
	}
	require.NoError(t, json.Unmarshal(env.Result, &contact))

	status, env = api.do(t, http.MethodGet, "/tether/api/v1/tethers/ref-1/contacts", "", nil)
	require.Equal(t, http.StatusOK, status)
	var contacts []json.RawMessage
	require.NoError(t, json.Unmarshal(env.Result, &contacts))
	require.Len(t, contacts, 1)

	status, env = api.do(t, http.MethodDelete,
		fmt.Sprintf("/tether/api/v1/tethers/ref-1/contacts/%s", contact.ContactID), admin, nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, ResultSuccess, env.Code, env.Message)
}

func TestAdminRoutes_ExportUsage(t *testing.T) {
	api := newTestAPI(t)
	admin := api.login(t, "admin", "secret")
	tplID := api.createSiteVisitTemplate(t, admin)

	status, env := api.do(t, http.MethodPost, "/tether/api/v1/tethers/demo123/assign", "",
		map[string]any{"template_id": tplID})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, ResultSuccess, env.Code, env.Message)

	// 匿名导出被拒绝
	status, _ = api.do(t, http.MethodGet, "/tether/api/v1/admin/export", "", nil)
	require.Equal(t, http.StatusForbidden, status)

	status, env = api.do(t, http.MethodGet, "/tether/api/v1/admin/export", admin, nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, ResultSuccess, env.Code, env.Message)
	var bundle struct {
		Metadata struct {
			Version string `json:"version"`
		} `json:"_metadata"`
		Tethers map[string]json.RawMessage `json:"tethers"`
	}
	require.NoError(t, json.Unmarshal(env.Result, &bundle))
	require.Equal(t, "1", bundle.Metadata.Version)
	require.Contains(t, bundle.Tethers, "demo123")

	status, env = api.do(t, http.MethodGet, "/tether/api/v1/admin/usage", admin, nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, ResultSuccess, env.Code, env.Message)

	status, env = api.do(t, http.MethodGet, "/tether/api/v1/admin/raw/tethers", admin, nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, ResultSuccess, env.Code, env.Message)
}

func TestAuthFlow(t *testing.T) {
	api := newTestAPI(t)

	// 注册 → me → 注销
	status, env := api.do(t, http.MethodPost, "/tether/api/v1/auth/register", "",
		map[string]string{"account": "neighbor", "password": "pw123", "display": "Neighbor"})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, ResultSuccess, env.Code, env.Message)
	var reg struct {
		AccessToken string `json:"accessToken"`
		Kind        string `json:"kind"`
	}
	require.NoError(t, json.Unmarshal(env.Result, &reg))
	require.Equal(t, "authenticated", reg.Kind)

	status, env = api.do(t, http.MethodGet, "/tether/api/v1/auth/me", reg.AccessToken, nil)
	require.Equal(t, http.StatusOK, status)
	var me struct {
		Kind    string `json:"kind"`
		Display string `json:"display"`
	}
	require.NoError(t, json.Unmarshal(env.Result, &me))
	require.Equal(t, "Neighbor", me.Display)

	status, env = api.do(t, http.MethodPost, "/tether/api/v1/auth/logout", reg.AccessToken, nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, ResultSuccess, env.Code, env.Message)

	// 注销后的 token 回到匿名
	status, env = api.do(t, http.MethodGet, "/tether/api/v1/auth/me", reg.AccessToken, nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Result, &me))
	require.Equal(t, "anonymous", me.Kind)

	// 重复注册被拒绝
	status, env = api.do(t, http.MethodPost, "/tether/api/v1/auth/register", "",
		map[string]string{"account": "neighbor", "password": "other"})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, ResultError, env.Code)
}
