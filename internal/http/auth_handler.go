package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"tether-data/internal/domain"
	"tether-data/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	sessionKeyPrefix = "auth:session:"
	sessionTTL       = 30 * 24 * time.Hour
)

// AuthHandler 认证 Handler
// 会话 token 存 KV（auth:session:{token} → Principal JSON），重启不丢
// 无 token 的请求一律按匿名主体处理，terra 流的读写不要求登录
type AuthHandler struct {
	users  *UserStore
	kv     store.KV
	logger *zap.Logger
}

// NewAuthHandler 创建认证 Handler
func NewAuthHandler(users *UserStore, kv store.KV, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{users: users, kv: kv, logger: logger}
}

// ServeHTTP 实现 http.Handler 接口
func (h *AuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// 路由分发
	switch r.URL.Path {
	case "/tether/api/v1/auth/register":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Register(w, r)
	case "/tether/api/v1/auth/login":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Login(w, r)
	case "/tether/api/v1/auth/logout":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Logout(w, r)
	case "/tether/api/v1/auth/me":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Me(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// Principal 从 Authorization: Bearer {token} 解析访问主体
// token 缺失、未知或损坏都归于匿名，不报错
func (h *AuthHandler) Principal(ctx context.Context, r *http.Request) domain.Principal {
	auth := r.Header.Get("Authorization")
	token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	if token == "" || token == auth {
		return domain.Anonymous()
	}

	raw, err := h.kv.Get(ctx, sessionKeyPrefix+token)
	if err != nil {
		return domain.Anonymous()
	}
	var p domain.Principal
	if err := json.Unmarshal([]byte(raw), &p); err != nil || p.UserID == "" {
		h.logger.Warn("corrupt session record", zap.Error(err))
		return domain.Anonymous()
	}
	return p
}

func (h *AuthHandler) issueSession(ctx context.Context, p domain.Principal) (string, error) {
	token := uuid.NewString()
	raw, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	if err := h.kv.Set(ctx, sessionKeyPrefix+token, string(raw), sessionTTL); err != nil {
		return "", err
	}
	return token, nil
}

func (h *AuthHandler) loginResult(token string, p domain.Principal) map[string]any {
	return map[string]any{
		"accessToken": token,
		"userId":      p.UserID,
		"display":     p.Display,
		"kind":        string(p.Kind),
	}
}

// Register 注册新账号并直接登录
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload struct {
		Account  string `json:"account"`
		Password string `json:"password"`
		Display  string `json:"display"`
	}
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body"))
		return
	}
	if strings.TrimSpace(payload.Account) == "" || payload.Password == "" {
		writeJSON(w, http.StatusOK, Fail("account and password are required"))
		return
	}
	if h.users.Exists(payload.Account) {
		writeJSON(w, http.StatusOK, Fail("account already registered"))
		return
	}

	u := h.users.Upsert(payload.Account, payload.Display, payload.Password, false)
	p := u.Principal()
	token, err := h.issueSession(ctx, p)
	if err != nil {
		h.logger.Error("Register: session issue failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail("session store unavailable"))
		return
	}

	h.logger.Info("user registered", zap.String("user_id", u.UserID))
	writeJSON(w, http.StatusOK, Ok(h.loginResult(token, p)))
}

// Login 账号登录
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload struct {
		Account  string `json:"account"`
		Password string `json:"password"`
	}
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body"))
		return
	}

	u, ok := h.users.Authenticate(payload.Account, payload.Password)
	if !ok {
		writeJSON(w, http.StatusOK, Fail("invalid account or password"))
		return
	}

	p := u.Principal()
	token, err := h.issueSession(ctx, p)
	if err != nil {
		h.logger.Error("Login: session issue failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail("session store unavailable"))
		return
	}
	writeJSON(w, http.StatusOK, Ok(h.loginResult(token, p)))
}

// Logout 注销当前会话（无 token 也返回成功，幂等）
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	auth := r.Header.Get("Authorization")
	token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	if token != "" && token != auth {
		if err := h.kv.Del(ctx, sessionKeyPrefix+token); err != nil {
			h.logger.Warn("Logout: session delete failed", zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"loggedOut": true}))
}

// Me 返回当前访问主体（匿名时 kind=anonymous）
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	p := h.Principal(r.Context(), r)
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"userId":  p.UserID,
		"display": p.Display,
		"kind":    string(p.Kind),
	}))
}
